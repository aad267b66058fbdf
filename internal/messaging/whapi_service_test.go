package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWhapiSendText(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"sent": true})
	}))
	defer srv.Close()

	s := NewWhapiService(WithWhapiToken("tok"), WithWhapiBaseURL(srv.URL))
	if err := s.SendText(context.Background(), "447700900123", "JOB FOUND"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/messages/text" {
		t.Errorf("got path %q, want /messages/text", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("got auth %q", gotAuth)
	}
	if gotBody["to"] != "447700900123@c.us" {
		t.Errorf("got to %q, want chat-suffixed number", gotBody["to"])
	}
	if gotBody["body"] != "JOB FOUND" {
		t.Errorf("got body %q", gotBody["body"])
	}
}

func TestWhapiSendTextGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "invalid recipient"})
	}))
	defer srv.Close()

	s := NewWhapiService(WithWhapiToken("tok"), WithWhapiBaseURL(srv.URL))
	err := s.SendText(context.Background(), "447700900123", "hello")
	if err == nil {
		t.Fatal("expected error from gateway error payload")
	}
}

func TestWhapiSendTextHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{"message": "bad token"})
	}))
	defer srv.Close()

	s := NewWhapiService(WithWhapiToken("tok"), WithWhapiBaseURL(srv.URL))
	if err := s.SendText(context.Background(), "447700900123", "hello"); err == nil {
		t.Fatal("expected error from 401 response")
	}
}

func TestWhapiNotConfigured(t *testing.T) {
	s := NewWhapiService()
	err := s.SendText(context.Background(), "447700900123", "hello")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestWhapiRegisterWebhook(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
	}))
	defer srv.Close()

	s := NewWhapiService(WithWhapiToken("tok"), WithWhapiBaseURL(srv.URL))
	if err := s.RegisterWebhook(context.Background(), "https://relay.example.com/hook/messages"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodPatch || gotPath != "/settings" {
		t.Errorf("got %s %s, want PATCH /settings", gotMethod, gotPath)
	}
	hooks, ok := gotBody["webhooks"].([]interface{})
	if !ok || len(hooks) != 1 {
		t.Fatalf("webhooks not sent: %v", gotBody)
	}
	if s.RegisterWebhook(context.Background(), "") == nil {
		t.Error("empty webhook URL should be rejected")
	}
}

func TestValidateAndCanonicalizeRecipient(t *testing.T) {
	s := NewWhapiService()
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+44 7700 900123", "447700900123", false},
		{"447700900123", "447700900123", false},
		{"", "", true},
		{"no digits", "", true},
		{"12345", "", true},
	}
	for _, tc := range cases {
		got, err := s.ValidateAndCanonicalizeRecipient(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("%q: got (%q, %v), want %q", tc.in, got, err, tc.want)
		}
	}
}
