package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"condorbot/market"
)

// BudaClient talks to the Buda.com REST API v2. Public endpoints work
// without credentials; order entry needs an API key and signs each request
// with HMAC-SHA384 over "method path body nonce".
type BudaClient struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
	nonce      func() string
}

func NewBuda(apiKey, apiSecret string) *BudaClient {
	return &BudaClient{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    "https://www.buda.com",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		nonce: func() string {
			return strconv.FormatInt(time.Now().UnixMicro(), 10)
		},
	}
}

// marketID converts "BTC-CLP" to Buda's "btc-clp".
func marketID(symbol string) string {
	return strings.ToLower(symbol)
}

func (c *BudaClient) sign(method, path string, body []byte, nonce string) string {
	parts := []string{method, path}
	if len(body) > 0 {
		parts = append(parts, base64.StdEncoding.EncodeToString(body))
	}
	parts = append(parts, nonce)

	mac := hmac.New(sha512.New384, []byte(c.apiSecret))
	mac.Write([]byte(strings.Join(parts, " ")))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *BudaClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	op := method + " " + path

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("exchange: build request %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		nonce := c.nonce()
		req.Header.Set("X-SBTC-APIKEY", c.apiKey)
		req.Header.Set("X-SBTC-NONCE", nonce)
		req.Header.Set("X-SBTC-SIGNATURE", c.sign(method, path, body, nonce))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Op: op, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &TransientError{Op: op, Err: fmt.Errorf("http %d: %s", resp.StatusCode, data)}
	case resp.StatusCode >= 400:
		return &RejectedError{Op: op, Reason: fmt.Sprintf("http %d: %s", resp.StatusCode, data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("exchange: decode %s: %w", op, err)
	}
	return nil
}

// budaAmount is Buda's [value, currency] string pair.
type budaAmount [2]string

func (a budaAmount) value() float64 {
	v, _ := strconv.ParseFloat(a[0], 64)
	return v
}

func (c *BudaClient) GetTicker(ctx context.Context, symbol string) (market.Ticker, error) {
	var resp struct {
		Ticker struct {
			LastPrice        budaAmount `json:"last_price"`
			Volume           budaAmount `json:"volume"`
			PriceVariation24 string     `json:"price_variation_24h"`
		} `json:"ticker"`
	}

	path := fmt.Sprintf("/api/v2/markets/%s/ticker", marketID(symbol))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return market.Ticker{}, err
	}

	change, _ := strconv.ParseFloat(resp.Ticker.PriceVariation24, 64)
	return market.Ticker{
		Symbol:    symbol,
		Price:     resp.Ticker.LastPrice.value(),
		Change24h: change,
		Volume:    resp.Ticker.Volume.value(),
		Time:      time.Now().UTC(),
	}, nil
}

// GetOHLCV reads the chart endpoint, which answers in TradingView UDF
// format: parallel arrays for time, open, high, low, close, volume.
func (c *BudaClient) GetOHLCV(ctx context.Context, symbol string, interval time.Duration, limit int) ([]market.Candle, error) {
	to := time.Now().UTC()
	from := to.Add(-interval * time.Duration(limit))

	var resp struct {
		Status string    `json:"s"`
		Time   []int64   `json:"t"`
		Open   []float64 `json:"o"`
		High   []float64 `json:"h"`
		Low    []float64 `json:"l"`
		Close  []float64 `json:"c"`
		Volume []float64 `json:"v"`
	}

	path := fmt.Sprintf("/api/v2/markets/%s/tv?resolution=%d&from=%d&to=%d",
		marketID(symbol), int(interval.Minutes()), from.Unix(), to.Unix())
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, &TransientError{Op: "GET " + path, Err: fmt.Errorf("chart status %q", resp.Status)}
	}

	n := len(resp.Time)
	if len(resp.Open) != n || len(resp.High) != n || len(resp.Low) != n ||
		len(resp.Close) != n || len(resp.Volume) != n {
		return nil, fmt.Errorf("exchange: ragged candle arrays for %s", symbol)
	}

	candles := make([]market.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = market.Candle{
			Time:   time.Unix(resp.Time[i], 0).UTC(),
			Open:   resp.Open[i],
			High:   resp.High[i],
			Low:    resp.Low[i],
			Close:  resp.Close[i],
			Volume: resp.Volume[i],
		}
	}
	if limit > 0 && n > limit {
		candles = candles[n-limit:]
	}
	return candles, nil
}

func sideToBudaType(side market.Side) string {
	if side == market.SideBuy {
		return "Bid"
	}
	return "Ask"
}

func budaStateToStatus(state string) OrderStatus {
	switch state {
	case "traded":
		return OrderFilled
	case "canceled", "canceling":
		return OrderCancelled
	case "rejected":
		return OrderRejected
	default: // received, pending, accepted
		return OrderOpen
	}
}

func (c *BudaClient) SubmitOrder(ctx context.Context, symbol string, side market.Side, amount float64) (string, error) {
	body, err := json.Marshal(map[string]string{
		"type":       sideToBudaType(side),
		"price_type": "market",
		"amount":     strconv.FormatFloat(amount, 'f', -1, 64),
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		Order struct {
			ID    json.Number `json:"id"`
			State string      `json:"state"`
		} `json:"order"`
	}

	path := fmt.Sprintf("/api/v2/markets/%s/orders", marketID(symbol))
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", err
	}
	return resp.Order.ID.String(), nil
}

func (c *BudaClient) GetOrderStatus(ctx context.Context, orderID string) (OrderState, error) {
	var resp struct {
		Order struct {
			ID             json.Number `json:"id"`
			State          string      `json:"state"`
			TradedAmount   budaAmount  `json:"traded_amount"`
			TotalExchanged budaAmount  `json:"total_exchanged"`
			PaidFee        budaAmount  `json:"paid_fee"`
		} `json:"order"`
	}

	path := "/api/v2/orders/" + orderID
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return OrderState{}, err
	}

	st := OrderState{
		ID:           resp.Order.ID.String(),
		Status:       budaStateToStatus(resp.Order.State),
		FilledAmount: resp.Order.TradedAmount.value(),
		Fee:          resp.Order.PaidFee.value(),
	}
	if st.FilledAmount > 0 {
		st.AvgPrice = resp.Order.TotalExchanged.value() / st.FilledAmount
	}
	return st, nil
}

func (c *BudaClient) CancelOrder(ctx context.Context, orderID string) error {
	body, err := json.Marshal(map[string]string{"state": "canceling"})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, "/api/v2/orders/"+orderID, body, nil)
}
