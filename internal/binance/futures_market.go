package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"futures_engine/internal/interfaces"
	"futures_engine/internal/models"
)

type fapiBalanceResponse struct {
	Asset              string `json:"asset"`
	Balance            string `json:"balance"`
	AvailableBalance   string `json:"availableBalance"`
}

func (c *FuturesClient) FetchBalance(ctx context.Context) ([]interfaces.Balance, error) {
	body, err := c.doSigned(ctx, http.MethodGet, "/fapi/v2/balance", nil)
	if err != nil {
		return nil, err
	}
	var raw []fapiBalanceResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("binance: decode balance: %w", err)
	}
	balances := make([]interfaces.Balance, 0, len(raw))
	for _, r := range raw {
		total, _ := decimal.NewFromString(r.Balance)
		free, _ := decimal.NewFromString(r.AvailableBalance)
		balances = append(balances, interfaces.Balance{
			Asset: r.Asset,
			Total: total,
			Free:  free,
			Used:  total.Sub(free),
		})
	}
	return balances, nil
}

func (c *FuturesClient) FetchTicker(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	body, err := c.doPublic(ctx, http.MethodGet, "/fapi/v1/ticker/price", params)
	if err != nil {
		return decimal.Zero, err
	}
	var resp struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("binance: decode ticker: %w", err)
	}
	return decimal.NewFromString(resp.Price)
}

func (c *FuturesClient) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]models.Kline, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", timeframe)
	if limit <= 0 || limit > 1500 {
		limit = 500
	}
	params.Set("limit", fmt.Sprintf("%d", limit))

	body, err := c.doPublic(ctx, http.MethodGet, "/fapi/v1/klines", params)
	if err != nil {
		return nil, err
	}
	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("binance: decode klines: %w", err)
	}

	klines := make([]models.Kline, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		k, err := parseFapiKline(symbol, timeframe, row)
		if err != nil {
			continue
		}
		klines = append(klines, k)
	}
	return klines, nil
}

func parseFapiKline(symbol, timeframe string, row []interface{}) (models.Kline, error) {
	openTime, ok := row[0].(float64)
	if !ok {
		return models.Kline{}, fmt.Errorf("invalid open time")
	}
	open, err1 := decimal.NewFromString(row[1].(string))
	high, err2 := decimal.NewFromString(row[2].(string))
	low, err3 := decimal.NewFromString(row[3].(string))
	closePrice, err4 := decimal.NewFromString(row[4].(string))
	volume, err5 := decimal.NewFromString(row[5].(string))
	for _, e := range []error{err1, err2, err3, err4, err5} {
		if e != nil {
			return models.Kline{}, e
		}
	}
	return models.Kline{
		Symbol:    symbol,
		Timeframe: timeframe,
		Timestamp: time.UnixMilli(int64(openTime)),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}
