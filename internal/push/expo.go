package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"medreminder/internal/model"
)

// Expo sends push notifications via Expo's Push API.
// Tokens look like "ExponentPushToken[xxx]"; Expo handles delivery to both iOS and Android.
type Expo struct {
	httpClient *http.Client
	url        string
}

// ExpoPushMessage is the payload for Expo's Push API.
type ExpoPushMessage struct {
	To       string            `json:"to"`
	Title    string            `json:"title,omitempty"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Priority string            `json:"priority,omitempty"` // "default", "normal", "high"
}

// ExpoPushResponse is the response from Expo's API for a single message.
type ExpoPushResponse struct {
	Data ExpoPushTicket `json:"data"`
}

type ExpoPushTicket struct {
	Status  string `json:"status"` // "ok" or "error"
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"` // "DeviceNotRegistered", "MessageTooBig", etc.
	} `json:"details,omitempty"`
}

const expoPushURL = "https://exp.host/--/api/v2/push/send"

// NewExpo creates a new Expo Push client. Expo needs no credentials.
func NewExpo() *Expo {
	return &Expo{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		url: expoPushURL,
	}
}

// Send posts one message for one token.
func (c *Expo) Send(ctx context.Context, token string, n model.Notification) error {
	if !IsExpoToken(token) {
		return ErrNoTransport
	}

	payload, err := json.Marshal(ExpoPushMessage{
		To:       token,
		Title:    n.Title,
		Body:     n.Body,
		Data:     n.Data,
		Sound:    "default",
		Priority: "high",
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expo api error: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var pushResp ExpoPushResponse
	if err := json.Unmarshal(respBody, &pushResp); err != nil {
		// The push was accepted; an unreadable ticket is not a delivery failure.
		return nil
	}

	ticket := pushResp.Data
	if ticket.Status == "error" {
		if ticket.Details.Error == "DeviceNotRegistered" {
			return fmt.Errorf("expo ticket: %w: %s", ErrUnregistered, ticket.Message)
		}
		return fmt.Errorf("expo ticket: %s (%s)", ticket.Message, ticket.Details.Error)
	}
	return nil
}
