// Package models defines the core data structures for JobRelay.
//
// It includes the inbound webhook message envelope, the subscriber record, and
// the API response envelope shared across modules.
package models

import (
	"errors"
	"time"
)

// MessageType identifies the kind of an inbound WhatsApp message.
type MessageType string

const (
	// MessageTypeText is a plain text message.
	MessageTypeText MessageType = "text"
	// MessageTypeImage is an image, optionally captioned.
	MessageTypeImage MessageType = "image"
	// MessageTypeVideo is a video, optionally captioned.
	MessageTypeVideo MessageType = "video"
	// MessageTypeLinkPreview is a link share with preview text.
	MessageTypeLinkPreview MessageType = "link_preview"
)

// Validation constants for input validation
const (
	// MaxMessageBodyLength defines the maximum outbound message body length
	MaxMessageBodyLength = 4096
	// MinSubscriberRangeMiles defines the minimum allowed service radius
	MinSubscriberRangeMiles = 1
	// MaxSubscriberRangeMiles defines the maximum allowed service radius
	MaxSubscriberRangeMiles = 500
)

// Error variables for better error handling and testability
var (
	ErrEmptyRecipient        = errors.New("recipient cannot be empty")
	ErrEmptyBody             = errors.New("message body cannot be empty")
	ErrBodyTooLong           = errors.New("message body exceeds maximum length")
	ErrEmptySubscriberName   = errors.New("subscriber name cannot be empty")
	ErrEmptySubscriberNumber = errors.New("subscriber number cannot be empty")
	ErrEmptyLocation         = errors.New("subscriber location cannot be empty")
	ErrInvalidRangeMiles     = errors.New("subscriber range must be between 1 and 500 miles")
)

// TextContent carries the body of a text message.
type TextContent struct {
	Body string `json:"body,omitempty"`
}

// MediaContent carries the caption of an image or video message.
type MediaContent struct {
	Caption string `json:"caption,omitempty"`
}

// LinkPreviewContent carries the preview text of a shared link.
type LinkPreviewContent struct {
	Body string `json:"body,omitempty"`
}

// Message is the inbound webhook envelope for a single group message.
// Exactly one of the kind-specific fields is populated, selected by Type;
// unknown types leave them all nil and are skipped by the extractor.
type Message struct {
	ID          string              `json:"id,omitempty"`
	Type        MessageType         `json:"type"`
	ChatID      string              `json:"chat_id"`
	ChatName    string              `json:"chat_name"`
	From        string              `json:"from"`
	FromName    string              `json:"from_name"`
	FromMe      bool                `json:"from_me"`
	Text        *TextContent        `json:"text,omitempty"`
	Image       *MediaContent       `json:"image,omitempty"`
	Video       *MediaContent       `json:"video,omitempty"`
	LinkPreview *LinkPreviewContent `json:"link_preview,omitempty"`
}

// WebhookPayload is the batch delivered by the WhatsApp gateway webhook.
type WebhookPayload struct {
	Messages []Message `json:"messages"`
}

// Subscriber is a user eligible for job notifications. Account credentials and
// billing state live with the user-management service and are not carried here.
type Subscriber struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Number     string    `json:"number"`
	Location   string    `json:"location"`
	RangeMiles int       `json:"range_miles"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Validate performs validation on a Subscriber record before storage.
func (s *Subscriber) Validate() error {
	if s.Name == "" {
		return ErrEmptySubscriberName
	}
	if s.Number == "" {
		return ErrEmptySubscriberNumber
	}
	if s.Location == "" {
		return ErrEmptyLocation
	}
	if s.RangeMiles < MinSubscriberRangeMiles || s.RangeMiles > MaxSubscriberRangeMiles {
		return ErrInvalidRangeMiles
	}
	return nil
}

// API response status constants
const (
	// APIStatusOK indicates a successful API response
	APIStatusOK = "success"
	// APIStatusError indicates an error API response
	APIStatusError = "error"
)

// APIResponse is the standard envelope returned by every HTTP endpoint.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: APIStatusError, Message: message}
}

// BatchResult reports the outcome of processing one webhook batch.
// Messages is the count of messages considered, the metric the original
// gateway contract exposes; Processed and Notified are richer counters
// surfaced for operators.
type BatchResult struct {
	Messages  int `json:"messages"`
	Processed int `json:"processed"`
	Notified  int `json:"notified"`
}
