package notify

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestMultiFansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, b, Discard{}}

	m.Publish(New(EventTrade, "bought 0.001 BTC", nil))

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Equal(t, EventTrade, a.events[0].Type)
}

func TestTelegramSendsTradeEvents(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got <- r.Form.Get("text")
	}))
	defer srv.Close()

	tg := NewTelegram("token", "chat", slog.New(slog.NewTextHandler(io.Discard, nil)))
	tg.baseURL = srv.URL

	tg.Publish(New(EventTrade, "bought 0.001 BTC @ 50000000", nil))

	select {
	case text := <-got:
		assert.Contains(t, text, "bought 0.001 BTC")
	case <-time.After(2 * time.Second):
		t.Fatal("telegram message never arrived")
	}
}

func TestTelegramSkipsTickerEvents(t *testing.T) {
	called := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called <- struct{}{}
	}))
	defer srv.Close()

	tg := NewTelegram("token", "chat", slog.New(slog.NewTextHandler(io.Discard, nil)))
	tg.baseURL = srv.URL

	tg.Publish(New(EventTicker, "", nil))

	select {
	case <-called:
		t.Fatal("ticker event should not reach telegram")
	case <-time.After(50 * time.Millisecond):
	}
}
