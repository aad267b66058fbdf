package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jobrelay/jobrelay/internal/models"
)

// fakeProcessor records batches and returns a canned result.
type fakeProcessor struct {
	batches []models.WebhookPayload
	result  models.BatchResult
}

func (f *fakeProcessor) ProcessBatch(ctx context.Context, payload models.WebhookPayload) models.BatchResult {
	f.batches = append(f.batches, payload)
	res := f.result
	res.Messages = len(payload.Messages)
	return res
}

// fakeMsgService is a minimal messaging.Service without webhook support.
type fakeMsgService struct{}

func (f *fakeMsgService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return recipient, nil
}
func (f *fakeMsgService) SendText(ctx context.Context, to string, body string) error { return nil }
func (f *fakeMsgService) Start(ctx context.Context) error                            { return nil }
func (f *fakeMsgService) Stop() error                                                { return nil }

// fakeRegistrarService additionally supports webhook registration.
type fakeRegistrarService struct {
	fakeMsgService
	registered []string
	err        error
}

func (f *fakeRegistrarService) RegisterWebhook(ctx context.Context, url string) error {
	if f.err != nil {
		return f.err
	}
	f.registered = append(f.registered, url)
	return nil
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHookMessagesHandler(t *testing.T) {
	proc := &fakeProcessor{result: models.BatchResult{Processed: 1, Notified: 2}}
	server := NewServer(proc, &fakeMsgService{})

	body := `{"messages":[{"type":"text","chat_id":"123@g.us","chat_name":"Recovery Jobs UK","from":"447700900999","text":{"body":"Car recovery needed in Leeds"}}]}`
	req := httptest.NewRequest(http.MethodPost, "/hook/messages", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Status != models.APIStatusOK {
		t.Errorf("expected ok status, got %+v", resp)
	}
	if len(proc.batches) != 1 || len(proc.batches[0].Messages) != 1 {
		t.Fatalf("expected processor to receive 1 message, got %+v", proc.batches)
	}
	got := proc.batches[0].Messages[0]
	if got.ChatID != "123@g.us" || got.Text == nil || got.Text.Body != "Car recovery needed in Leeds" {
		t.Errorf("payload not decoded as expected: %+v", got)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("expected result object, got %T", resp.Result)
	}
	if result["messages"] != float64(1) || result["notified"] != float64(2) {
		t.Errorf("unexpected batch result: %+v", result)
	}
}

func TestHookMessagesHandlerInvalidJSON(t *testing.T) {
	server := NewServer(&fakeProcessor{}, &fakeMsgService{})

	req := httptest.NewRequest(http.MethodPost, "/hook/messages", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Status != models.APIStatusError {
		t.Errorf("expected error status, got %+v", resp)
	}
}

func TestHookMessagesHandlerEmptyBatch(t *testing.T) {
	proc := &fakeProcessor{}
	server := NewServer(proc, &fakeMsgService{})

	req := httptest.NewRequest(http.MethodPost, "/hook/messages", bytes.NewBufferString(`{"messages":[]}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("empty batch must be accepted, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Message != "No messages to process" {
		t.Errorf("unexpected message: %q", resp.Message)
	}
	if len(proc.batches) != 1 {
		t.Errorf("empty batch still reaches the processor, got %d calls", len(proc.batches))
	}
}

func TestHookMessagesHandlerMethodNotAllowed(t *testing.T) {
	server := NewServer(&fakeProcessor{}, &fakeMsgService{})

	req := httptest.NewRequest(http.MethodGet, "/hook/messages", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
}

func TestSetupWebhookHandler(t *testing.T) {
	svc := &fakeRegistrarService{}
	server := NewServer(&fakeProcessor{}, svc, WithWebhookURL("https://relay.example.com/hook/messages"))

	req := httptest.NewRequest(http.MethodGet, "/setup-webhook", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.registered) != 1 || svc.registered[0] != "https://relay.example.com/hook/messages" {
		t.Errorf("webhook URL not registered: %v", svc.registered)
	}
}

func TestSetupWebhookHandlerUnsupported(t *testing.T) {
	server := NewServer(&fakeProcessor{}, &fakeMsgService{}, WithWebhookURL("https://relay.example.com/hook/messages"))

	req := httptest.NewRequest(http.MethodGet, "/setup-webhook", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unsupported backend, got %d", rec.Code)
	}
}

func TestSetupWebhookHandlerMissingURL(t *testing.T) {
	server := NewServer(&fakeProcessor{}, &fakeRegistrarService{})

	req := httptest.NewRequest(http.MethodGet, "/setup-webhook", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without a webhook URL, got %d", rec.Code)
	}
}

func TestSetupWebhookHandlerRegistrationFailure(t *testing.T) {
	svc := &fakeRegistrarService{err: errors.New("gateway down")}
	server := NewServer(&fakeProcessor{}, svc, WithWebhookURL("https://relay.example.com/hook/messages"))

	req := httptest.NewRequest(http.MethodGet, "/setup-webhook", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	server := NewServer(&fakeProcessor{}, &fakeMsgService{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	result, ok := resp.Result.(map[string]interface{})
	if !ok || result["status"] != "healthy" || result["version"] != Version {
		t.Errorf("unexpected health payload: %+v", resp.Result)
	}
}

func TestHealthHandlerUnknownPath(t *testing.T) {
	server := NewServer(&fakeProcessor{}, &fakeMsgService{})

	req := httptest.NewRequest(http.MethodGet, "/no-such-route", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestNewServerDefaults(t *testing.T) {
	server := NewServer(&fakeProcessor{}, &fakeMsgService{})
	if server.addr != DefaultAddr {
		t.Errorf("expected default addr %q, got %q", DefaultAddr, server.addr)
	}
}
