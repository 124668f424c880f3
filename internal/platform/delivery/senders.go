package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// WebhookSender POSTs the rendered message as JSON to a fixed endpoint. It
// backs the website/push channel by default; the receiving gateway fans the
// payload out to connected browsers.
type WebhookSender struct {
	Endpoint string
	Client   *http.Client
}

func NewWebhookSender(endpoint string) *WebhookSender {
	return &WebhookSender{
		Endpoint: endpoint,
		Client:   &http.Client{},
	}
}

type webhookPayload struct {
	UserID             string `json:"user_id"`
	PushToken          string `json:"push_token,omitempty"`
	Title              string `json:"title"`
	Body               string `json:"body"`
	Priority           string `json:"priority,omitempty"`
	RequireInteraction bool   `json:"require_interaction,omitempty"`
}

// Send implements Sender. The caller bounds the call with its context; no
// separate timeout is applied here.
func (s *WebhookSender) Send(ctx context.Context, to Contact, msg Message, hints Hints) error {
	body, err := json.Marshal(webhookPayload{
		UserID:             to.UserID,
		PushToken:          to.PushToken,
		Title:              msg.Title,
		Body:               msg.Body,
		Priority:           hints.Priority,
		RequireInteraction: hints.RequireInteraction,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// SendCall records a single call to a MockSender.
type SendCall struct {
	To    Contact
	Msg   Message
	Hints Hints
}

// MockSender is a call-recording test double for Sender. It also serves as the
// development-mode sender for channels without a configured transport.
type MockSender struct {
	mu         sync.Mutex
	calls      []SendCall
	ShouldFail bool
	FailError  string
}

// Send records the call and optionally returns an error.
func (m *MockSender) Send(_ context.Context, to Contact, msg Message, hints Hints) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, SendCall{To: to, Msg: msg, Hints: hints})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded calls.
func (m *MockSender) Calls() []SendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SendCall, len(m.calls))
	copy(out, m.calls)
	return out
}
