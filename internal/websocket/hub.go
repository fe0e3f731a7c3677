// Package websocket implements the read-side push channel: a broadcast hub
// that fans regime, trading-signal, and account-sync position-change events
// out to connected dashboard clients over gorilla/websocket.
package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	Send chan []byte
}

type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

var globalHub *Hub

func init() {
	globalHub = &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
	go globalHub.Run()
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("websocket: client connected, total=%d", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			log.Printf("websocket: client disconnected, total=%d", len(h.clients))

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) RegisterClient(client *Client)   { h.register <- client }
func (h *Hub) UnregisterClient(client *Client) { h.unregister <- client }

func (h *Hub) BroadcastMessage(messageType string, data interface{}) {
	message := Message{Type: messageType, Data: data, Timestamp: time.Now()}
	jsonData, err := json.Marshal(message)
	if err != nil {
		log.Printf("websocket: marshal failed: %v", err)
		return
	}
	h.broadcast <- jsonData
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket: read error: %v", err)
			}
			break
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// GetGlobalHub returns the process-wide hub.
func GetGlobalHub() *Hub { return globalHub }

// NewClient wraps an upgraded connection for the global hub.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{hub: globalHub, conn: conn, Send: make(chan []byte, 256)}
}

// BroadcastRegime pushes a new Strategist regime to connected clients.
func BroadcastRegime(label string, confidence float64, riskPosture string) {
	globalHub.BroadcastMessage("regime_update", map[string]interface{}{
		"label":        label,
		"confidence":   confidence,
		"risk_posture": riskPosture,
	})
}

// BroadcastSignal pushes a Trader signal to connected clients.
func BroadcastSignal(symbol, signalType string, confidence float64) {
	globalHub.BroadcastMessage("trading_signal", map[string]interface{}{
		"symbol":      symbol,
		"signal_type": signalType,
		"confidence":  confidence,
	})
}

// BroadcastPositionChange pushes an account-sync detected position change.
func BroadcastPositionChange(symbol, side, changeType string, oldAmount, newAmount, markPrice string) {
	globalHub.BroadcastMessage("position_change", map[string]interface{}{
		"symbol":      symbol,
		"side":        side,
		"type":        changeType,
		"old_amount":  oldAmount,
		"new_amount":  newAmount,
		"mark_price":  markPrice,
	})
}
