package notification

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const telegramEndpoint = "https://api.telegram.org"

// Telegram posts messages through the Bot API sendMessage method.
type Telegram struct {
	client   *http.Client
	endpoint string
	token    string
	chatId   string
}

func NewTelegram(token, chatId string) *Telegram {
	return &Telegram{
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: telegramEndpoint,
		token:    token,
		chatId:   chatId,
	}
}

// WithEndpoint overrides the Bot API base URL, used by tests.
func (t *Telegram) WithEndpoint(endpoint string) *Telegram {
	t.endpoint = endpoint
	return t
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Send(ctx context.Context, title, message string) error {
	values := url.Values{}
	values.Set("chat_id", t.chatId)
	values.Set("text", title+"\n"+message)

	target := fmt.Sprintf("%s/bot%s/sendMessage", t.endpoint, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("unable to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("unable to send telegram message: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}
