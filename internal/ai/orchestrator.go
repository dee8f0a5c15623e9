// Package ai provides the multi-provider fallback orchestrator used to
// enrich matching with generated content. Providers are tried strictly in
// the order given; the first success wins. The orchestrator never retries a
// provider itself — transport-level retries are the client's concern.
package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ProviderID identifies one configured completion backend.
type ProviderID string

const (
	ProviderGemini  ProviderID = "gemini"
	ProviderOpenAI  ProviderID = "openai"
	ProviderMistral ProviderID = "mistral"
)

// Options tunes a single completion call.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Provider is one completion backend in the fallback chain.
type Provider interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// Registry holds the provider clients constructed at startup. It is built
// once, passed to the orchestrator, and never mutated afterwards — no
// package-level singletons.
type Registry struct {
	providers map[ProviderID]Provider
	order     []ProviderID
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[ProviderID]Provider)}
}

// Register adds a provider to the registry. Registration order becomes the
// default fallback order.
func (r *Registry) Register(id ProviderID, p Provider) {
	if _, ok := r.providers[id]; !ok {
		r.order = append(r.order, id)
	}
	r.providers[id] = p
}

// Get returns the provider registered under id, if any.
func (r *Registry) Get(id ProviderID) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// DefaultOrder returns the registration order.
func (r *Registry) DefaultOrder() []ProviderID {
	out := make([]ProviderID, len(r.order))
	copy(out, r.order)
	return out
}

// Len reports how many providers are registered.
func (r *Registry) Len() int { return len(r.providers) }

// ExhaustedError is returned when every provider in the chain failed.
// It carries the per-provider failures for logging and diagnostics.
type ExhaustedError struct {
	Failures map[ProviderID]error
}

func (e *ExhaustedError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	return fmt.Sprintf("all providers exhausted: %s", strings.Join(ids, ", "))
}

// ErrNoProviders is returned when the requested order is empty or names no
// registered provider.
var ErrNoProviders = errors.New("no providers configured")

// Orchestrator walks an ordered provider chain until one succeeds.
type Orchestrator struct {
	registry *Registry
	timeout  time.Duration // per-provider deadline
	log      *zap.Logger
}

// NewOrchestrator returns an Orchestrator. timeout bounds each individual
// provider call; a timed-out provider counts as failed and the chain
// advances.
func NewOrchestrator(registry *Registry, timeout time.Duration, log *zap.Logger) *Orchestrator {
	return &Orchestrator{registry: registry, timeout: timeout, log: log}
}

// GenerateWithFallback tries the providers in order and returns the first
// successful completion along with the identity of the provider that
// produced it. An empty order falls back to the registry's default order.
// When every provider fails the caller gets a typed *ExhaustedError — never
// a fabricated result.
func (o *Orchestrator) GenerateWithFallback(ctx context.Context, order []ProviderID, prompt string, opts Options) (string, ProviderID, error) {
	if len(order) == 0 {
		order = o.registry.DefaultOrder()
	}
	if len(order) == 0 {
		return "", "", ErrNoProviders
	}

	failures := make(map[ProviderID]error, len(order))
	attempted := false

	for _, id := range order {
		provider, ok := o.registry.Get(id)
		if !ok {
			o.log.Warn("skipping unknown provider", zap.String("provider", string(id)))
			continue
		}
		attempted = true

		callCtx := ctx
		var cancel context.CancelFunc
		if o.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		}

		result, err := provider.Complete(callCtx, prompt, opts)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			o.log.Debug("provider succeeded",
				zap.String("provider", string(id)),
				zap.Int("resultLen", len(result)))
			return result, id, nil
		}

		failures[id] = err
		o.log.Warn("provider failed, advancing fallback chain",
			zap.String("provider", string(id)),
			zap.Error(err))

		// A cancelled parent context means the caller is gone; stop early.
		if ctx.Err() != nil {
			break
		}
	}

	if !attempted {
		return "", "", ErrNoProviders
	}
	return "", "", &ExhaustedError{Failures: failures}
}
