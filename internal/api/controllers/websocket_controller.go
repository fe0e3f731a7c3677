package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorilla_websocket "github.com/gorilla/websocket"

	"futures_engine/internal/websocket"
)

var wsUpgrader = gorilla_websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebSocketHandler upgrades a connection and registers it on the global
// hub for regime/signal/position-change push events.
func WebSocketHandler(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("api: websocket upgrade failed: %v", err)
		return
	}

	client := websocket.NewClient(conn)
	hub := websocket.GetGlobalHub()
	hub.RegisterClient(client)

	welcome := websocket.Message{
		Type:      "connected",
		Data:      gin.H{"message": "connected to futures-engine"},
		Timestamp: time.Now(),
	}
	if payload, err := json.Marshal(welcome); err == nil {
		client.Send <- payload
	}

	go client.WritePump()
	go client.ReadPump()
}
