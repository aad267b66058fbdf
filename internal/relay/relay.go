// Package relay implements the message processing pipeline invoked on every
// inbound webhook batch: group filtering, content extraction, deduplication,
// per-subscriber relevance evaluation, and match notification dispatch.
package relay

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jobrelay/jobrelay/internal/content"
	"github.com/jobrelay/jobrelay/internal/dedup"
	"github.com/jobrelay/jobrelay/internal/groups"
	"github.com/jobrelay/jobrelay/internal/models"
	"github.com/jobrelay/jobrelay/internal/relevance"
	"github.com/jobrelay/jobrelay/internal/store"
)

// DefaultConcurrency is the evaluation fan-out bound per message.
const DefaultConcurrency = 4

// Evaluator decides whether a job lead is relevant to one subscriber's area.
// Implemented by relevance.Evaluator.
type Evaluator interface {
	Evaluate(ctx context.Context, jobText, location string, rangeMiles int) relevance.Result
}

// Notifier delivers one match notification. Implemented by Dispatcher.
type Notifier interface {
	Notify(ctx context.Context, sub models.Subscriber, jobText, originName, senderID string) error
}

// Opts holds configuration options for the processor.
type Opts struct {
	Concurrency int
}

// Option defines a configuration option for the processor.
type Option func(*Opts)

// WithConcurrency sets the per-message evaluation worker bound.
func WithConcurrency(n int) Option {
	return func(o *Opts) {
		o.Concurrency = n
	}
}

// Processor orchestrates one webhook batch end to end. Individual evaluation
// or delivery failures are contained per subscriber and per message; a batch
// as a whole succeeds unless nothing could run at all.
type Processor struct {
	cache       *dedup.Cache
	allow       *groups.AllowList
	eval        Evaluator
	notifier    Notifier
	directory   store.Directory
	concurrency int
}

// NewProcessor wires the pipeline components together.
func NewProcessor(cache *dedup.Cache, allow *groups.AllowList, eval Evaluator, notifier Notifier, directory store.Directory, opts ...Option) *Processor {
	cfg := Opts{Concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Processor{
		cache:       cache,
		allow:       allow,
		eval:        eval,
		notifier:    notifier,
		directory:   directory,
		concurrency: cfg.Concurrency,
	}
}

// ProcessBatch runs one webhook delivery through the pipeline. An empty batch
// is a terminal success with no further work.
func (p *Processor) ProcessBatch(ctx context.Context, payload models.WebhookPayload) models.BatchResult {
	// Evict once per batch, not per message.
	p.cache.EvictExpired()

	result := models.BatchResult{Messages: len(payload.Messages)}
	if len(payload.Messages) == 0 {
		slog.Info("Processor.ProcessBatch: received webhook with no messages")
		return result
	}
	slog.Info("Processor.ProcessBatch: processing webhook batch", "messages", len(payload.Messages))

	// One subscriber snapshot per batch; staleness within a batch is acceptable.
	subs, err := p.directory.ListActiveSubscribers()
	if err != nil {
		slog.Error("Processor.ProcessBatch: failed to list active subscribers", "error", err)
		subs = nil
	}

	for _, msg := range payload.Messages {
		processed, notified := p.processMessage(ctx, msg, subs)
		if processed {
			result.Processed++
		}
		result.Notified += notified
	}
	return result
}

// processMessage runs one message through filter, extraction, dedup,
// evaluation, and dispatch. A panic here is contained to this message so the
// rest of the batch keeps flowing.
func (p *Processor) processMessage(ctx context.Context, msg models.Message, subs []models.Subscriber) (processed bool, notified int) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Processor.processMessage: panic recovered", "panic", r, "chat_id", msg.ChatID, "from", msg.From)
			processed, notified = false, 0
		}
	}()

	if msg.FromMe {
		return false, 0
	}
	if !p.allow.Allowed(msg.ChatID) {
		slog.Info("Processor.processMessage: skipping message from non-allowed group", "chat_id", msg.ChatID, "chat_name", msg.ChatName)
		return false, 0
	}

	jobText, ok := content.Extract(msg)
	if !ok {
		return false, 0
	}
	if p.cache.Observe(jobText) {
		slog.Info("Processor.processMessage: skipping duplicate message", "chat_name", msg.ChatName, "preview", preview(jobText))
		return false, 0
	}

	slog.Info("Processor.processMessage: evaluating job lead", "chat_name", msg.ChatName, "subscribers", len(subs), "preview", preview(jobText))
	notified = p.evaluateAndDispatch(ctx, jobText, msg, subs)
	return true, notified
}

// matchOutcome carries one subscriber's evaluation result across the fan-out.
type matchOutcome struct {
	sub    models.Subscriber
	result relevance.Result
}

// evaluateAndDispatch fans subscriber evaluations out over a bounded worker
// pool and dispatches notifications as matches arrive. Evaluations are
// independent; each outcome travels as a value so one subscriber's failure
// never crosses into another's.
func (p *Processor) evaluateAndDispatch(ctx context.Context, jobText string, msg models.Message, subs []models.Subscriber) int {
	if len(subs) == 0 {
		return 0
	}

	// Buffered so workers can always finish, even if dispatch bails out early.
	outcomes := make(chan matchOutcome, len(subs))
	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub models.Subscriber) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes <- matchOutcome{sub: sub, result: p.safeEvaluate(ctx, jobText, sub)}
		}(sub)
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	notified := 0
	for out := range outcomes {
		if out.result != relevance.Match {
			continue
		}
		if err := p.notifier.Notify(ctx, out.sub, jobText, msg.ChatName, msg.From); err != nil {
			slog.Error("Processor.evaluateAndDispatch: notification failed", "error", err, "subscriber", out.sub.Name)
			continue
		}
		notified++
	}
	return notified
}

// safeEvaluate shields the fan-out from a panicking evaluator; a panic reads
// as NoMatch, the same safe default as any other evaluation failure. The
// recover must live in the worker goroutine, where the per-message guard
// cannot reach.
func (p *Processor) safeEvaluate(ctx context.Context, jobText string, sub models.Subscriber) (res relevance.Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Processor.safeEvaluate: panic recovered, defaulting to no match", "panic", r, "subscriber", sub.Name)
			res = relevance.NoMatch
		}
	}()
	return p.eval.Evaluate(ctx, jobText, sub.Location, sub.RangeMiles)
}

// preview truncates job text for log lines.
func preview(s string) string {
	const max = 50
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
