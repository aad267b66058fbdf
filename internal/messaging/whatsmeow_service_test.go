package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/jobrelay/jobrelay/internal/whatsapp"
)

func TestWhatsMeowServiceSendText(t *testing.T) {
	mock := whatsapp.NewMockClient()
	s := NewWhatsMeowService(mock)

	if err := s.SendText(context.Background(), "447700900123", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.Sent) != 1 || mock.Sent[0] != "447700900123" {
		t.Errorf("send not recorded: %v", mock.Sent)
	}
}

func TestWhatsMeowServiceNilClient(t *testing.T) {
	s := NewWhatsMeowService(nil)
	if err := s.SendText(context.Background(), "447700900123", "hello"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
