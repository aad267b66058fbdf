package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jobrelay/jobrelay/internal/messaging"
	"github.com/jobrelay/jobrelay/internal/models"
)

// MatchHeader opens every notification so subscribers can filter on it.
const MatchHeader = "JOB FOUND"

// Dispatcher formats and sends match notifications to individual subscribers.
type Dispatcher struct {
	svc messaging.Service
}

// NewDispatcher creates a dispatcher over the given messaging service.
func NewDispatcher(svc messaging.Service) *Dispatcher {
	return &Dispatcher{svc: svc}
}

// Notify sends one match notification to sub. The body carries the match
// header, the origin group, the posting member, and the job text.
func (d *Dispatcher) Notify(ctx context.Context, sub models.Subscriber, jobText, originName, senderID string) error {
	to, err := d.svc.ValidateAndCanonicalizeRecipient(sub.Number)
	if err != nil {
		return fmt.Errorf("invalid subscriber number for %s: %w", sub.Name, err)
	}
	body := FormatNotification(jobText, originName, senderID)
	if err := d.svc.SendText(ctx, to, body); err != nil {
		return fmt.Errorf("notification to %s failed: %w", sub.Name, err)
	}
	slog.Info("Dispatcher.Notify: notification sent", "subscriber", sub.Name, "number", to, "origin", originName)
	return nil
}

// FormatNotification renders the fixed notification template.
func FormatNotification(jobText, originName, senderID string) string {
	return fmt.Sprintf("%s \n\nFrom Group: %s\nFrom member: +%s \n\n%s", MatchHeader, originName, senderID, jobText)
}
