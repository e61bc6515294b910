package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	xhttp "GoldenScan/pkg/http"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier delivers messages through the Telegram Bot API. The token
// can be swapped at runtime while sends are in flight, so access to it
// goes through a mutex.
type Notifier struct {
	apiBase string
	hc      *xhttp.Client

	mu    sync.RWMutex
	token string
}

// Option configures the notifier.
type Option func(*Notifier)

// WithAPIBase overrides the Telegram API base URL (used by tests).
func WithAPIBase(base string) Option {
	return func(n *Notifier) { n.apiBase = base }
}

// New creates a Telegram notifier for the given bot token.
func New(token string, opts ...Option) *Notifier {
	n := &Notifier{
		apiBase: defaultAPIBase,
		token:   token,
		hc:      xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SetToken swaps the bot token at runtime (configuration updates).
func (n *Notifier) SetToken(token string) {
	n.mu.Lock()
	n.token = token
	n.mu.Unlock()
}

func (n *Notifier) currentToken() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.token
}

type sendMessageReq struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResp struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts one HTML-formatted message to a single chat.
func (n *Notifier) Send(ctx context.Context, chatID, text string) error {
	token := n.currentToken()
	if token == "" {
		return fmt.Errorf("telegram: bot token not configured")
	}

	var resp sendMessageResp
	err := n.hc.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, token),
		Body: sendMessageReq{
			ChatID:    chatID,
			Text:      text,
			ParseMode: "HTML",
		},
	}, &resp)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram rejected message: %s", resp.Description)
	}
	return nil
}
