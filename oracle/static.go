package oracle

import (
	"context"

	"github.com/touristpay/bridge/types"
)

// StaticOracle is a deterministic, offline Oracle for demos and tests.
// Zero value behaves like an unreachable oracle (Analyze errors, Tip
// degrades to DefaultTip).
type StaticOracle struct {
	// Analysis is returned from Analyze when AnalyzeErr is nil.
	Analysis *types.MerchantAnalysis

	// AnalyzeErr, when set, makes Analyze fail.
	AnalyzeErr error

	// TipText is returned from Tip; empty means DefaultTip.
	TipText string

	// TipErr, when set, makes Tip fail.
	TipErr error

	// Gate, when non-nil, holds Analyze and Tip open until the channel is
	// closed (or the context expires). Lets tests observe the placeholder
	// state between code acquisition and enrichment.
	Gate <-chan struct{}
}

func (s *StaticOracle) wait(ctx context.Context) error {
	if s.Gate == nil {
		return nil
	}
	select {
	case <-s.Gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *StaticOracle) Analyze(ctx context.Context, rawCode string) (*types.MerchantAnalysis, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if s.AnalyzeErr != nil {
		return nil, s.AnalyzeErr
	}
	if s.Analysis == nil {
		return nil, &types.BridgeError{
			Code:    types.ErrOracle,
			Message: "static oracle has no analysis configured",
		}
	}
	out := *s.Analysis
	return &out, nil
}

func (s *StaticOracle) Tip(ctx context.Context, category string) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	if s.TipErr != nil {
		return "", s.TipErr
	}
	if s.TipText == "" {
		return DefaultTip, nil
	}
	return s.TipText, nil
}
