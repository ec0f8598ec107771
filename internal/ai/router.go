package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrNoBackends      = errors.New("no providers configured")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrProviderPinned  = errors.New("pinned provider unavailable")
)

// ExhaustedError is returned when every provider in the chain failed.
// It carries the last underlying cause for the logs; handlers map it to
// a service-unavailable response without leaking provider details.
type ExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d providers exhausted: %v", e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Generator is what the router drives; satisfied by *Backend.
type Generator interface {
	Name() string
	Available() bool
	Generate(ctx context.Context, messages []Message, modelID string) (string, error)
}

// Router walks an ordered provider chain. Each provider gets exactly one
// attempt bounded by attemptTimeout; there are no same-provider retries,
// so total latency is capped at timeout times chain length.
type Router struct {
	chain          []Generator
	attemptTimeout time.Duration
}

type RouteOptions struct {
	// Provider pins a single backend; the fallback chain is bypassed.
	Provider string
	// Model overrides the backend's default model.
	Model string
}

type RouteResult struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

func NewRouter(chain []Generator, attemptTimeout time.Duration) *Router {
	if attemptTimeout <= 0 {
		attemptTimeout = 60 * time.Second
	}
	return &Router{chain: chain, attemptTimeout: attemptTimeout}
}

// NewBackendRouter adapts a concrete backend slice.
func NewBackendRouter(backends []*Backend, attemptTimeout time.Duration) *Router {
	chain := make([]Generator, len(backends))
	for i, b := range backends {
		chain[i] = b
	}
	return NewRouter(chain, attemptTimeout)
}

func (r *Router) Generate(ctx context.Context, messages []Message, opts RouteOptions) (*RouteResult, error) {
	if len(r.chain) == 0 {
		return nil, ErrNoBackends
	}

	if opts.Provider != "" {
		return r.generatePinned(ctx, messages, opts)
	}

	attempts := 0
	var lastErr error
	for _, backend := range r.chain {
		if !backend.Available() {
			log.Debug().Str("provider", backend.Name()).Msg("provider unavailable, skipping")
			continue
		}
		attempts++
		text, err := r.attempt(ctx, backend, messages, opts.Model)
		if err == nil {
			return &RouteResult{Text: text, Provider: backend.Name(), Model: opts.Model}, nil
		}
		lastErr = err
		log.Warn().Err(err).Str("provider", backend.Name()).Msg("provider failed, falling back")

		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no provider in the chain is available")
	}
	return nil, &ExhaustedError{Attempts: attempts, LastErr: lastErr}
}

func (r *Router) generatePinned(ctx context.Context, messages []Message, opts RouteOptions) (*RouteResult, error) {
	var backend Generator
	for _, b := range r.chain {
		if b.Name() == opts.Provider {
			backend = b
			break
		}
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
	if !backend.Available() {
		return nil, fmt.Errorf("%w: %q", ErrProviderPinned, opts.Provider)
	}

	text, err := r.attempt(ctx, backend, messages, opts.Model)
	if err != nil {
		return nil, err
	}
	return &RouteResult{Text: text, Provider: backend.Name(), Model: opts.Model}, nil
}

func (r *Router) attempt(ctx context.Context, backend Generator, messages []Message, modelID string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
	defer cancel()
	return backend.Generate(attemptCtx, messages, modelID)
}

// Providers reports the chain with availability, for the health endpoint.
func (r *Router) Providers() []ProviderStatus {
	out := make([]ProviderStatus, 0, len(r.chain))
	for _, b := range r.chain {
		out = append(out, ProviderStatus{Name: b.Name(), Available: b.Available()})
	}
	return out
}

type ProviderStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}
