// Package api provides HTTP handlers for JobRelay endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jobrelay/jobrelay/internal/models"
)

// hookMessagesHandler receives gateway webhook deliveries (POST /hook/messages).
// Processing outcomes for individual messages never fail the delivery; the
// gateway only needs to know the batch was accepted.
func (s *Server) hookMessagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.hookMessagesHandler: processing webhook delivery", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.hookMessagesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload models.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		slog.Warn("Server.hookMessagesHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	result := s.processor.ProcessBatch(r.Context(), payload)
	if result.Messages == 0 {
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("No messages to process", result))
		return
	}

	slog.Info("Server.hookMessagesHandler: batch processed", "messages", result.Messages, "processed", result.Processed, "notified", result.Notified)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Messages processed", result))
}

// setupWebhookHandler points the gateway's webhook at this server (GET /setup-webhook).
func (s *Server) setupWebhookHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.setupWebhookHandler: processing setup request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.setupWebhookHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	registrar, ok := s.msgService.(webhookRegistrar)
	if !ok {
		slog.Warn("Server.setupWebhookHandler: messaging service does not support webhook registration")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Messaging service does not support webhook registration"))
		return
	}
	if s.webhookURL == "" {
		slog.Warn("Server.setupWebhookHandler: no webhook URL configured")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required configuration: webhook URL"))
		return
	}

	if err := registrar.RegisterWebhook(r.Context(), s.webhookURL); err != nil {
		slog.Error("Server.setupWebhookHandler: webhook registration failed", "error", err, "url", s.webhookURL)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to register webhook"))
		return
	}

	slog.Info("Server.setupWebhookHandler: webhook registered", "url", s.webhookURL)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Webhook registered successfully", nil))
}

// healthHandler provides a health check endpoint for monitoring (GET /).
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"service":   "JobRelay",
		"version":   Version,
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}))
}
