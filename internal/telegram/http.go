package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPTransport talks to the Telegram Bot API over HTTPS.
type HTTPTransport struct {
	baseURL     string
	token       string
	pollTimeout time.Duration
	client      *http.Client
}

// NewHTTPTransport creates a transport for the given bot token. baseURL is
// normally "https://api.telegram.org"; tests point it at a local server.
// The HTTP client timeout is padded past pollTimeout so long polls are not
// cut off by the client.
func NewHTTPTransport(baseURL, token string, pollTimeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		pollTimeout: pollTimeout,
		client:      &http.Client{Timeout: pollTimeout + 10*time.Second},
	}
}

type apiEnvelope struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type wireUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// SetCommands implements Transport.
func (t *HTTPTransport) SetCommands(ctx context.Context, cmds []Command) error {
	_, err := t.call(ctx, "setMyCommands", map[string]any{"commands": cmds})
	return err
}

// GetUpdates implements Transport.
func (t *HTTPTransport) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	raw, err := t.call(ctx, "getUpdates", map[string]any{
		"offset":          offset + 1,
		"timeout":         int(t.pollTimeout.Seconds()),
		"allowed_updates": []string{"message"},
	})
	if err != nil {
		return nil, err
	}

	var wire []wireUpdate
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("telegram: decode updates: %w", err)
	}

	updates := make([]Update, 0, len(wire))
	for _, w := range wire {
		u := Update{ID: w.UpdateID}
		if w.Message != nil {
			u.ChatID = w.Message.Chat.ID
			u.Text = w.Message.Text
		}
		updates = append(updates, u)
	}
	return updates, nil
}

// SendMessage implements Transport.
func (t *HTTPTransport) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := t.call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
	return err
}

func (t *HTTPTransport) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("telegram: encode %s: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("telegram: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("telegram: read %s response: %w", method, err)
	}

	var env apiEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("telegram: decode %s response (status %d): %w", method, resp.StatusCode, err)
	}
	if !env.OK {
		return nil, fmt.Errorf("telegram: %s failed: %s", method, env.Description)
	}
	return env.Result, nil
}
