package notify

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Telegram posts selected events to a chat via the Bot API. Sends happen on
// a background goroutine per event; a full or failing Telegram never stalls
// the trading loop.
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	log      *slog.Logger
}

func NewTelegram(botToken, chatID string, log *slog.Logger) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  "https://api.telegram.org",
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

func (t *Telegram) Publish(e Event) {
	// Ticker updates are too chatty for a phone.
	if e.Type == EventTicker {
		return
	}
	go t.send(t.format(e))
}

func (t *Telegram) format(e Event) string {
	switch e.Type {
	case EventTrade:
		return fmt.Sprintf("💱 <b>Trade</b>\n%s", e.Message)
	case EventVeto:
		return fmt.Sprintf("🛑 <b>Trade vetoed</b>\n%s", e.Message)
	case EventOrderFail:
		return fmt.Sprintf("❌ <b>Order failed</b>\n%s", e.Message)
	case EventAlert:
		return fmt.Sprintf("⚠️ <b>Alert</b>\n%s", e.Message)
	default:
		return fmt.Sprintf("🤖 %s", e.Message)
	}
}

func (t *Telegram) send(message string) {
	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", message)
	data.Set("parse_mode", "HTML")
	data.Set("disable_web_page_preview", "true")

	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	resp, err := t.client.PostForm(apiURL, data)
	if err != nil {
		t.log.Warn("telegram send failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.log.Warn("telegram api error", "status", resp.StatusCode, "body", string(body))
	}
}
