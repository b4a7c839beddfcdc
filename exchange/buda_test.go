package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condorbot/market"
)

func newTestBuda(t *testing.T, handler http.Handler) *BudaClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewBuda("key", "secret")
	c.baseURL = srv.URL
	c.nonce = func() string { return "1756700000000000" }
	return c
}

func TestGetTicker(t *testing.T) {
	c := newTestBuda(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/markets/btc-clp/ticker", r.URL.Path)
		fmt.Fprint(w, `{"ticker":{
			"last_price":["50000000.0","CLP"],
			"volume":["12.5","BTC"],
			"price_variation_24h":"0.031"}}`)
	}))

	tk, err := c.GetTicker(context.Background(), "BTC-CLP")
	require.NoError(t, err)
	assert.Equal(t, "BTC-CLP", tk.Symbol)
	assert.InDelta(t, 50_000_000.0, tk.Price, 1e-6)
	assert.InDelta(t, 12.5, tk.Volume, 1e-9)
	assert.InDelta(t, 0.031, tk.Change24h, 1e-9)
}

func TestGetOHLCV(t *testing.T) {
	c := newTestBuda(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/markets/btc-clp/tv", r.URL.Path)
		assert.Equal(t, "60", r.URL.Query().Get("resolution"))
		fmt.Fprint(w, `{"s":"ok",
			"t":[1756700000,1756703600],
			"o":[100,101],"h":[102,103],"l":[99,100],"c":[101,102],"v":[1,2]}`)
	}))

	candles, err := c.GetOHLCV(context.Background(), "BTC-CLP", time.Hour, 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.InDelta(t, 101.0, candles[0].Close, 1e-9)
	assert.InDelta(t, 102.0, candles[1].Close, 1e-9)
	assert.True(t, candles[0].Time.Before(candles[1].Time))
}

func TestGetOHLCVRaggedArrays(t *testing.T) {
	c := newTestBuda(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"s":"ok","t":[1,2],"o":[100],"h":[102],"l":[99],"c":[101],"v":[1]}`)
	}))

	_, err := c.GetOHLCV(context.Background(), "BTC-CLP", time.Hour, 2)
	assert.Error(t, err)
}

func TestSubmitOrderSignsRequest(t *testing.T) {
	var gotKey, gotNonce, gotSig string
	c := newTestBuda(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-SBTC-APIKEY")
		gotNonce = r.Header.Get("X-SBTC-NONCE")
		gotSig = r.Header.Get("X-SBTC-SIGNATURE")
		fmt.Fprint(w, `{"order":{"id":12345,"state":"received"}}`)
	}))

	id, err := c.SubmitOrder(context.Background(), "BTC-CLP", market.SideBuy, 0.001)
	require.NoError(t, err)
	assert.Equal(t, "12345", id)

	assert.Equal(t, "key", gotKey)
	assert.Equal(t, "1756700000000000", gotNonce)
	assert.NotEmpty(t, gotSig)
}

func TestGetOrderStatusFilled(t *testing.T) {
	c := newTestBuda(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/orders/12345", r.URL.Path)
		fmt.Fprint(w, `{"order":{
			"id":12345,"state":"traded",
			"traded_amount":["0.001","BTC"],
			"total_exchanged":["50000.0","CLP"],
			"paid_fee":["400.0","CLP"]}}`)
	}))

	st, err := c.GetOrderStatus(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, OrderFilled, st.Status)
	assert.True(t, st.Status.Terminal())
	assert.InDelta(t, 0.001, st.FilledAmount, 1e-12)
	assert.InDelta(t, 50_000_000.0, st.AvgPrice, 1e-3)
	assert.InDelta(t, 400.0, st.Fee, 1e-9)
}

func TestServerErrorsAreTransient(t *testing.T) {
	c := newTestBuda(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream busy", http.StatusServiceUnavailable)
	}))

	_, err := c.GetTicker(context.Background(), "BTC-CLP")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestClientErrorsAreRejections(t *testing.T) {
	c := newTestBuda(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"insufficient funds"}`, http.StatusUnprocessableEntity)
	}))

	_, err := c.SubmitOrder(context.Background(), "BTC-CLP", market.SideBuy, 100)
	require.Error(t, err)
	assert.False(t, IsTransient(err))

	var re *RejectedError
	assert.True(t, errors.As(err, &re))
}

func TestBudaStateMapping(t *testing.T) {
	cases := map[string]OrderStatus{
		"received":  OrderOpen,
		"pending":   OrderOpen,
		"traded":    OrderFilled,
		"canceled":  OrderCancelled,
		"canceling": OrderCancelled,
		"rejected":  OrderRejected,
	}
	for state, want := range cases {
		assert.Equal(t, want, budaStateToStatus(state), state)
	}
}

func TestIsTransientClassification(t *testing.T) {
	assert.True(t, IsTransient(&TransientError{Op: "x", Err: errors.New("timeout")}))
	assert.False(t, IsTransient(&RejectedError{Op: "x", Reason: "bad symbol"}))
	assert.False(t, IsTransient(errors.New("some other failure")))
}
