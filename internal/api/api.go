// Package api provides HTTP handlers and the main API server logic for JobRelay.
//
// It exposes the inbound webhook endpoint that feeds the relay pipeline, a
// webhook registration helper, and a health endpoint. The API integrates with
// the relay, messaging, store, and genai modules.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jobrelay/jobrelay/internal/dedup"
	"github.com/jobrelay/jobrelay/internal/genai"
	"github.com/jobrelay/jobrelay/internal/groups"
	"github.com/jobrelay/jobrelay/internal/messaging"
	"github.com/jobrelay/jobrelay/internal/models"
	"github.com/jobrelay/jobrelay/internal/relay"
	"github.com/jobrelay/jobrelay/internal/relevance"
	"github.com/jobrelay/jobrelay/internal/store"
)

// Default configuration constants
const (
	// DefaultAddr is the default API server listen address.
	DefaultAddr = ":8000"
	// DefaultDedupWindow is the default duplicate suppression window.
	DefaultDedupWindow = 120 * time.Second
	// Version is reported by the health endpoint.
	Version = "1.0.0"
)

// Opts holds configuration options for the API server and the pipeline it
// fronts.
type Opts struct {
	Addr            string
	WebhookURL      string
	SetupWebhook    bool
	AllowedGroups   []string
	DedupWindow     time.Duration
	EvalConcurrency int
	EvalTimeout     time.Duration
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the HTTP listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithWebhookURL sets the public URL registered with the messaging gateway.
func WithWebhookURL(url string) Option {
	return func(o *Opts) {
		o.WebhookURL = url
	}
}

// WithSetupWebhook registers the webhook with the gateway at startup.
func WithSetupWebhook() Option {
	return func(o *Opts) {
		o.SetupWebhook = true
	}
}

// WithAllowedGroups sets the group chat IDs accepted as job lead origins.
func WithAllowedGroups(ids []string) Option {
	return func(o *Opts) {
		o.AllowedGroups = ids
	}
}

// WithDedupWindow sets the duplicate suppression window.
func WithDedupWindow(d time.Duration) Option {
	return func(o *Opts) {
		o.DedupWindow = d
	}
}

// WithEvalConcurrency sets the per-message evaluation worker bound.
func WithEvalConcurrency(n int) Option {
	return func(o *Opts) {
		o.EvalConcurrency = n
	}
}

// WithEvalTimeout sets the per-evaluation model call timeout.
func WithEvalTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.EvalTimeout = d
	}
}

// applyOptions resolves the option list against the defaults.
func applyOptions(opts []Option) Opts {
	cfg := Opts{
		Addr:            DefaultAddr,
		DedupWindow:     DefaultDedupWindow,
		EvalConcurrency: relay.DefaultConcurrency,
		EvalTimeout:     relevance.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// batchProcessor is the pipeline surface the webhook handler needs.
// Implemented by relay.Processor.
type batchProcessor interface {
	ProcessBatch(ctx context.Context, payload models.WebhookPayload) models.BatchResult
}

// webhookRegistrar is implemented by messaging services that can point a
// gateway webhook at this server.
type webhookRegistrar interface {
	RegisterWebhook(ctx context.Context, url string) error
}

// Server hosts the JobRelay HTTP endpoints.
type Server struct {
	addr       string
	webhookURL string
	processor  batchProcessor
	msgService messaging.Service
}

// NewServer creates an API server over the given pipeline and messaging
// service.
func NewServer(processor batchProcessor, msgService messaging.Service, opts ...Option) *Server {
	cfg := applyOptions(opts)
	return &Server{
		addr:       cfg.Addr,
		webhookURL: cfg.WebhookURL,
		processor:  processor,
		msgService: msgService,
	}
}

// Handler returns the route table for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/hook/messages", s.hookMessagesHandler)
	mux.HandleFunc("/setup-webhook", s.setupWebhookHandler)
	mux.HandleFunc("/", s.healthHandler)
	return mux
}

// Run wires the configured modules together and serves the API. It blocks
// until the HTTP server stops.
func Run(msgService messaging.Service, storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	cfg := applyOptions(apiOpts)

	directory, err := newDirectory(storeOpts)
	if err != nil {
		return err
	}

	// A missing model client is not fatal: the evaluator defaults every lead
	// to no match until credentials arrive.
	var gen relevance.Generator
	if client, err := genai.NewClient(genaiOpts...); err != nil {
		slog.Error("api.Run: GenAI client unavailable, all leads will evaluate as no match", "error", err)
	} else {
		gen = client
	}
	evaluator := relevance.NewEvaluator(gen, relevance.WithTimeout(cfg.EvalTimeout))

	allow := groups.NewAllowList(cfg.AllowedGroups)
	if allow.Len() == 0 {
		slog.Warn("api.Run: no allowed group IDs configured, every inbound message will be dropped")
	}
	cache := dedup.New(cfg.DedupWindow)
	dispatcher := relay.NewDispatcher(msgService)
	processor := relay.NewProcessor(cache, allow, evaluator, dispatcher, directory, relay.WithConcurrency(cfg.EvalConcurrency))

	ctx := context.Background()
	if err := msgService.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := msgService.Stop(); err != nil {
			slog.Error("api.Run: failed to stop messaging service", "error", err)
		}
	}()

	if cfg.SetupWebhook {
		registerWebhook(ctx, msgService, cfg.WebhookURL)
	}

	server := NewServer(processor, msgService, apiOpts...)
	slog.Info("api.Run: JobRelay API listening", "addr", cfg.Addr, "allowed_groups", allow.Len(), "dedup_window", cfg.DedupWindow)
	return http.ListenAndServe(cfg.Addr, server.Handler())
}

// newDirectory selects the subscriber directory backend from the configured
// DSN.
func newDirectory(storeOpts []store.Option) (store.Directory, error) {
	var cfg store.Opts
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Warn("api.newDirectory: no database DSN configured, using in-memory subscriber directory")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(cfg.DSN) == "postgres" {
		slog.Info("api.newDirectory: using PostgreSQL subscriber directory")
		return store.NewPostgresStore(storeOpts...)
	}
	slog.Info("api.newDirectory: using SQLite subscriber directory", "path", cfg.DSN)
	return store.NewSQLiteStore(storeOpts...)
}

// registerWebhook performs the startup webhook registration when the
// messaging backend supports it. Failure is logged, not fatal: batches can
// still arrive from a previously registered webhook.
func registerWebhook(ctx context.Context, svc messaging.Service, url string) {
	registrar, ok := svc.(webhookRegistrar)
	if !ok {
		slog.Warn("api.registerWebhook: messaging service does not support webhook registration")
		return
	}
	if err := registrar.RegisterWebhook(ctx, url); err != nil {
		slog.Error("api.registerWebhook: webhook registration failed", "error", err, "url", url)
		return
	}
	slog.Info("api.registerWebhook: webhook registered", "url", url)
}
