// Package dispatch implements outbound channels behind the Dispatcher
// contract.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/telandes/recaudo/internal/config"
	"github.com/telandes/recaudo/internal/notification/domain"
	"github.com/telandes/recaudo/internal/observability/tracing"
)

const telegramTimeout = 10 * time.Second

// Telegram sends messages through the Telegram Bot API sendMessage
// endpoint. Destination is the subscriber's chat id.
type Telegram struct {
	client  *http.Client
	apiBase string
	token   string
}

func NewTelegram(cfg config.Config) *Telegram {
	return &Telegram{
		client:  tracing.WrapHTTPClient(&http.Client{Timeout: telegramTimeout}),
		apiBase: cfg.TelegramAPIBase,
		token:   cfg.TelegramBotToken,
	}
}

func (t *Telegram) Send(ctx context.Context, destination, message string) error {
	if destination == "" {
		return domain.ErrNoDestination
	}

	body, err := json.Marshal(map[string]string{
		"chat_id": destination,
		"text":    message,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram send failed: status %d: %s", resp.StatusCode, payload)
	}
	return nil
}
