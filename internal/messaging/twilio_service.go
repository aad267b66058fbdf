package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// WhatsAppPrefix is Twilio's address prefix for WhatsApp recipients.
const WhatsAppPrefix = "whatsapp:+"

// messageCreator is the minimal Twilio API surface, satisfied by the REST
// client and by test fakes.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioOpts holds configuration options for the Twilio service.
type TwilioOpts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// TwilioOption defines a configuration option for the Twilio service.
type TwilioOption func(*TwilioOpts)

// WithTwilioCredentials sets the account SID and auth token.
func WithTwilioCredentials(sid, token string) TwilioOption {
	return func(o *TwilioOpts) {
		o.AccountSID = sid
		o.AuthToken = token
	}
}

// WithTwilioFromNumber sets the WhatsApp sender number.
func WithTwilioFromNumber(number string) TwilioOption {
	return func(o *TwilioOpts) {
		o.FromNumber = number
	}
}

// TwilioService implements Service using the Twilio WhatsApp API.
type TwilioService struct {
	api  messageCreator
	from string
}

// NewTwilioService creates a Twilio-backed messaging service.
func NewTwilioService(opts ...TwilioOption) (*TwilioService, error) {
	var cfg TwilioOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("twilio: %w", ErrNotConfigured)
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("twilio sender number not configured")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	from, err := canonicalizePhone(cfg.FromNumber)
	if err != nil {
		return nil, fmt.Errorf("invalid twilio sender number: %w", err)
	}
	slog.Debug("TwilioService created", "from", from)
	return &TwilioService{api: client.Api, from: from}, nil
}

// ValidateAndCanonicalizeRecipient reduces the recipient to bare digits.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// SendText sends a WhatsApp message through Twilio.
func (s *TwilioService) SendText(ctx context.Context, to string, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(WhatsAppPrefix + to)
	params.SetFrom(WhatsAppPrefix + s.from)
	params.SetBody(body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		slog.Error("TwilioService.SendText: send failed", "error", err, "to", to)
		return fmt.Errorf("twilio send to %s failed: %w", to, err)
	}
	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	slog.Info("TwilioService.SendText: message sent", "to", to, "sid", sid)
	return nil
}

// Start is a no-op; Twilio needs no session.
func (s *TwilioService) Start(ctx context.Context) error {
	return nil
}

// Stop is a no-op.
func (s *TwilioService) Stop() error {
	return nil
}
