// Package generate fronts the generative service with the usage gate: denied callers never
// reach the service, and only successful completions count against the allowance.
package generate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/copygate/internal/llm"
	"github.com/JakeFAU/copygate/internal/metrics"
	"github.com/JakeFAU/copygate/internal/quota"
)

// ErrQuotaExceeded matches every *QuotaExceededError.
var ErrQuotaExceeded = errors.New("free generation quota exceeded")

// QuotaExceededError reports a denied generation.
type QuotaExceededError struct {
	Count int64
	Limit int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: %d of %d used", ErrQuotaExceeded, e.Count, e.Limit)
}

// Is makes errors.Is(err, ErrQuotaExceeded) hold.
func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// GatedMessage is the user-facing explanation for a denied generation.
func GatedMessage(limit int64) string {
	return fmt.Sprintf("You've used all %d free generations. Create a free account to continue.", limit)
}

// Completer is the generative service.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (llm.Response, error)
}

// Gate is the usage gate.
type Gate interface {
	CheckAndReserve(ctx context.Context, identity string) quota.Decision
	Commit(ctx context.Context, identity string, decision quota.Decision) quota.Usage
}

// Result is a successful generation.
type Result struct {
	Response llm.Response
	Text     string
	Usage    quota.Usage
}

// Gateway checks the gate, calls the service, and commits usage on success.
type Gateway struct {
	gate   Gate
	llm    Completer
	logger *zap.Logger
}

// NewGateway creates a Gateway.
func NewGateway(gate Gate, completer Completer, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{gate: gate, llm: completer, logger: logger.Named("generate")}
}

// Generate runs one gated completion for identity.
func (g *Gateway) Generate(ctx context.Context, identity string, req llm.Request) (Result, error) {
	decision := g.gate.CheckAndReserve(ctx, identity)
	if !decision.Permits() {
		metrics.ObserveGeneration("gated")
		g.logger.Info("generation gated",
			zap.String("identity", identity),
			zap.Int64("count", decision.Count),
			zap.Int64("limit", decision.Limit),
		)
		return Result{}, &QuotaExceededError{Count: decision.Count, Limit: decision.Limit}
	}

	resp, err := g.llm.Complete(ctx, req)
	if err != nil {
		metrics.ObserveGeneration("failed")
		g.logger.Warn("generation failed", zap.String("identity", identity), zap.Error(err))
		return Result{}, fmt.Errorf("generate: %w", err)
	}

	usage := g.gate.Commit(ctx, identity, decision)
	metrics.ObserveGeneration("ok")
	g.logger.Info("generation complete",
		zap.String("identity", identity),
		zap.Int64("usage_count", usage.Count),
		zap.Bool("tracked", usage.Tracked),
	)
	return Result{Response: resp, Text: resp.FirstText(), Usage: usage}, nil
}
