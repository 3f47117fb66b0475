package embedding

import (
	"context"
	"strings"

	"github.com/boardroomlabs/ancestry/internal/simulation"
)

// Service is the embedText entry point. It owns the blank-text
// short-circuit, the simulation override, and the fallback wiring; the
// factory supplies the actual backends.
type Service struct {
	factory *Factory
	base    Config
	sim     simulation.Controls
}

// NewService creates a Service. base supplies credentials and endpoint
// defaults that per-call Options do not carry.
func NewService(factory *Factory, base Config, sim simulation.Controls) *Service {
	if sim.EnabledFn == nil {
		sim = simulation.DefaultControls()
	}
	return &Service{factory: factory, base: base, sim: sim}
}

// EmbedText embeds a single text using the backend selected by opts.
//
// Blank or whitespace-only text returns a local zero vector without
// contacting any backend. When simulation mode is active the call is forced
// onto the local backend and the resolved simulated delay is applied before
// returning. A remote failure retries silently on the local backend when
// opts.AllowFallback is set; otherwise the error propagates.
func (s *Service) EmbedText(ctx context.Context, text string, opts Options) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return NewLocal(opts.Dimensions).Embed(ctx, text)
	}

	if s.sim.EnabledFn() {
		res, err := NewLocal(opts.Dimensions).Embed(ctx, text)
		s.sim.SleepFn(ctx, s.sim.DelayFn())
		return res, err
	}

	cfg := s.base
	cfg.Provider = opts.Provider
	if cfg.Provider == "" {
		cfg.Provider = localProviderName
	}
	if opts.Model != "" {
		cfg.Model = opts.Model
	}
	if opts.Dimensions > 0 {
		cfg.Dimensions = opts.Dimensions
	}

	provider, err := s.factory.Create(cfg)
	if err != nil {
		return nil, err
	}
	if opts.AllowFallback && provider.Name() != localProviderName {
		provider = WithFallback(provider, NewLocal(cfg.Dimensions), nil)
	}
	return provider.Embed(ctx, text)
}
