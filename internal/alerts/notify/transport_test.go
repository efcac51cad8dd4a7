package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookTransportSendsPerChannelPayload(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := NewWebhookTransport(map[string]string{"email": server.URL}, 0)
	err := transport.Send(context.Background(), "email", "user@example.com", "Low Balance Alert", "Please top up soon.")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.Channel != "email" || got.Recipient != "user@example.com" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if got.Title != "Low Balance Alert" {
		t.Fatalf("unexpected title: %s", got.Title)
	}
}

func TestWebhookTransportNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	transport := NewWebhookTransport(map[string]string{"sms": server.URL}, 0)
	if err := transport.Send(context.Background(), "sms", "+123", "t", "m"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestWebhookTransportUnknownChannel(t *testing.T) {
	transport := NewWebhookTransport(nil, 0)
	if err := transport.Send(context.Background(), "pigeon", "r", "t", "m"); err == nil {
		t.Fatal("expected error for channel without url")
	}
}
