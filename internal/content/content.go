// Package content normalizes heterogeneous inbound message envelopes into a
// single comparable string for deduplication and relevance evaluation.
package content

import (
	"log/slog"

	"github.com/jobrelay/jobrelay/internal/models"
)

// Placeholder strings returned when a supported message kind carries no body.
// Placeholders are treated as real content downstream: they participate in
// deduplication and evaluation like any other extracted string.
const (
	PlaceholderText  = "No content Text"
	PlaceholderImage = "No content Image"
	PlaceholderVideo = "No content Video"
	PlaceholderLink  = "No content link"
)

// Extract returns the textual content of a message and whether the message
// kind is supported. ok=false means the message should be skipped entirely;
// it is never an error. Missing sub-fields degrade to a placeholder string.
func Extract(m models.Message) (string, bool) {
	switch m.Type {
	case models.MessageTypeText:
		if m.Text == nil || m.Text.Body == "" {
			return PlaceholderText, true
		}
		return m.Text.Body, true
	case models.MessageTypeImage:
		if m.Image == nil || m.Image.Caption == "" {
			return PlaceholderImage, true
		}
		return m.Image.Caption, true
	case models.MessageTypeVideo:
		if m.Video == nil || m.Video.Caption == "" {
			return PlaceholderVideo, true
		}
		return m.Video.Caption, true
	case models.MessageTypeLinkPreview:
		if m.LinkPreview == nil || m.LinkPreview.Body == "" {
			return PlaceholderLink, true
		}
		return m.LinkPreview.Body, true
	default:
		slog.Warn("content.Extract: unsupported message type", "type", m.Type, "chat_id", m.ChatID)
		return "", false
	}
}
