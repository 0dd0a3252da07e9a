package snapshot

import (
	"context"

	"MarketPulse/internal/model"
	"MarketPulse/internal/strategy"
)

// Request is a caller's ask for a snapshot. Mode and Strategy are free-form
// and fall back to intraday and the default plan.
type Request struct {
	Symbol   string
	Mode     string
	Strategy string
}

// Service is the request-facing entry point. Only caller and configuration
// errors are returned; everything else is a labelled snapshot.
type Service struct {
	resolver   *Resolver
	configured bool
}

// NewService creates a Service. When configured is false every request fails
// closed with model.ErrNotConfigured and no upstream call is made.
func NewService(resolver *Resolver, configured bool) *Service {
	return &Service{resolver: resolver, configured: configured}
}

// Configured reports whether an upstream credential is present.
func (s *Service) Configured() bool { return s.configured }

// Analyze validates req and resolves its snapshot.
func (s *Service) Analyze(ctx context.Context, req Request) (model.Snapshot, error) {
	symbol, err := model.NormalizeSymbol(req.Symbol)
	if err != nil {
		return model.Snapshot{}, err
	}
	if !s.configured {
		return model.Snapshot{}, model.ErrNotConfigured
	}
	return s.resolver.Resolve(ctx, symbol, model.ParseMode(req.Mode), strategy.ParseKey(req.Strategy)), nil
}
