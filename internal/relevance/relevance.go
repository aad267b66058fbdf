// Package relevance decides whether a job lead falls within a subscriber's
// service radius by asking an OpenAI model.
package relevance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Result is the binary outcome of evaluating one (message, subscriber) pair.
type Result string

const (
	// Match means the job is within the subscriber's radius.
	Match Result = "match"
	// NoMatch means it is not, or the evaluation could not be completed.
	NoMatch Result = "no_match"
)

// MatchToken is the exact reply fragment that signals a match. Any other
// reply, including partial or malformed answers, reads as NoMatch.
const MatchToken = "JOB FOUND"

// DefaultTimeout bounds one evaluation call so a hung model request cannot
// stall an entire batch.
const DefaultTimeout = 30 * time.Second

// Generator produces a model reply for a system/user prompt pair.
// Implemented by genai.Client.
type Generator interface {
	GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Evaluator builds the radius prompt, runs the model call, and extracts the
// decision. A nil generator (missing credentials) or any call failure yields
// NoMatch: an unavailable model must never produce a notification.
type Evaluator struct {
	gen     Generator
	timeout time.Duration
}

// Opts holds configuration options for the evaluator.
type Opts struct {
	Timeout time.Duration
}

// Option defines a configuration option for the evaluator.
type Option func(*Opts)

// WithTimeout sets the per-call evaluation timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.Timeout = d
	}
}

// NewEvaluator creates an evaluator around the given generator. gen may be
// nil; every evaluation then takes the safe default.
func NewEvaluator(gen Generator, opts ...Option) *Evaluator {
	cfg := Opts{Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Evaluator{gen: gen, timeout: cfg.Timeout}
}

// Evaluate reports whether jobText describes a job within rangeMiles of the
// subscriber's location.
func (e *Evaluator) Evaluate(ctx context.Context, jobText, location string, rangeMiles int) Result {
	if e.gen == nil {
		// Not expected to self-resolve, unlike a transient failure.
		slog.Error("Evaluator.Evaluate: no generator configured, defaulting to no match", "location", location)
		return NoMatch
	}

	prompt := BuildPrompt(location, rangeMiles)
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	reply, err := e.gen.GeneratePrompt(ctx, prompt, jobText)
	if err != nil {
		slog.Error("Evaluator.Evaluate: model call failed, defaulting to no match", "error", err, "location", location)
		return NoMatch
	}
	slog.Debug("Evaluator.Evaluate: model reply received", "location", location, "range_miles", rangeMiles, "reply", reply)

	if strings.Contains(reply, MatchToken) {
		return Match
	}
	return NoMatch
}

// BuildPrompt constructs the system instruction for one subscriber's area.
func BuildPrompt(location string, rangeMiles int) string {
	return fmt.Sprintf(
		"You will receive potential vehicle recovery job leads as your user input. "+
			"If any of the locations or postcodes in the user message is within %d miles of %s "+
			"please reply with: JOB FOUND, Else reply with: NIL.",
		rangeMiles, location,
	)
}
