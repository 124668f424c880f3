package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	mock := &MockSender{}
	reg.Register(ChannelSMS, mock)

	s, err := reg.Sender(ChannelSMS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != Sender(mock) {
		t.Error("wrong sender returned")
	}

	if _, err := reg.Sender(ChannelEmail); err != ErrUnknownChannel {
		t.Errorf("expected ErrUnknownChannel, got %v", err)
	}
}

func TestWebhookSender_Send(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL)
	err := s.Send(context.Background(),
		Contact{UserID: "user-1", PushToken: "tok-1"},
		Message{Title: "Vaccination due today: Polio", Body: "Polio is due today at 09:00."},
		Hints{Priority: "critical", RequireInteraction: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.UserID != "user-1" || got.PushToken != "tok-1" {
		t.Errorf("payload contact = %+v", got)
	}
	if !got.RequireInteraction || got.Priority != "critical" {
		t.Errorf("payload hints = %+v", got)
	}
}

func TestWebhookSender_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL)
	if err := s.Send(context.Background(), Contact{}, Message{}, Hints{}); err == nil {
		t.Error("expected error on non-2xx response")
	}
}

func TestMockSender_RecordsCalls(t *testing.T) {
	m := &MockSender{}
	_ = m.Send(context.Background(), Contact{UserID: "u"}, Message{Title: "t"}, Hints{})
	m.ShouldFail = true
	m.FailError = "boom"
	if err := m.Send(context.Background(), Contact{}, Message{}, Hints{}); err == nil || err.Error() != "boom" {
		t.Errorf("expected configured failure, got %v", err)
	}
	if len(m.Calls()) != 2 {
		t.Errorf("expected both calls recorded, got %d", len(m.Calls()))
	}
}

func TestStaticDirectory(t *testing.T) {
	d := NewStaticDirectory()
	d.Put(Contact{UserID: "u", Phone: "+91-000", Language: "hi"})

	c, err := d.Lookup(context.Background(), "u")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Phone != "+91-000" || c.Language != "hi" {
		t.Errorf("contact = %+v", c)
	}

	// Unknown users resolve to an empty contact, not an error.
	c, err = d.Lookup(context.Background(), "stranger")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.UserID != "" {
		t.Errorf("expected empty contact, got %+v", c)
	}
}
