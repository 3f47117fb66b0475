package embedding

import (
	"context"
	"log/slog"
)

// FallbackProvider wraps a primary backend with a local deterministic
// fallback. A primary failure is absorbed silently: the caller sees the
// fallback's result instead of the error.
type FallbackProvider struct {
	primary  Provider
	fallback Provider
	logger   *slog.Logger
}

// WithFallback wraps primary so failures retry on fallback.
func WithFallback(primary, fallback Provider, logger *slog.Logger) *FallbackProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackProvider{primary: primary, fallback: fallback, logger: logger}
}

// Name returns the primary provider name.
func (f *FallbackProvider) Name() string { return f.primary.Name() }

// Embed tries the primary backend and degrades to the fallback on error.
func (f *FallbackProvider) Embed(ctx context.Context, text string) (*Result, error) {
	res, err := f.primary.Embed(ctx, text)
	if err == nil {
		return res, nil
	}
	f.logger.Debug("primary embedding backend failed, using fallback",
		"primary", f.primary.Name(), "fallback", f.fallback.Name(), "error", err)
	return f.fallback.Embed(ctx, text)
}
