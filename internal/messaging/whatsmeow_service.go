package messaging

import (
	"context"
	"log/slog"

	"github.com/jobrelay/jobrelay/internal/whatsapp"
)

// WhatsMeowService implements Service over a direct whatsmeow client session.
type WhatsMeowService struct {
	client whatsapp.Sender
}

// NewWhatsMeowService wraps the given WhatsApp sender.
func NewWhatsMeowService(client whatsapp.Sender) *WhatsMeowService {
	return &WhatsMeowService{client: client}
}

// ValidateAndCanonicalizeRecipient reduces the recipient to bare digits.
func (s *WhatsMeowService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// SendText sends a text message over the client session.
func (s *WhatsMeowService) SendText(ctx context.Context, to string, body string) error {
	if s.client == nil {
		return ErrNotConfigured
	}
	return s.client.SendText(ctx, to, body)
}

// Start is a no-op; the underlying client connects at construction.
func (s *WhatsMeowService) Start(ctx context.Context) error {
	return nil
}

// Stop disconnects the client session when one is held.
func (s *WhatsMeowService) Stop() error {
	if c, ok := s.client.(*whatsapp.Client); ok {
		c.Disconnect()
		slog.Info("WhatsMeowService stopped, session disconnected")
	}
	return nil
}
