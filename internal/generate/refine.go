package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/copygate/internal/llm"
	"github.com/JakeFAU/copygate/internal/prompt"
)

// ErrInvalidRefinement is returned for requests missing the text or the instruction.
var ErrInvalidRefinement = errors.New("current text and instruction are required")

// Refiner rewrites a single headline or description. It is not gated.
type Refiner struct {
	llm    Completer
	model  string
	logger *zap.Logger
}

// NewRefiner creates a Refiner. An empty model uses the client default.
func NewRefiner(completer Completer, model string, logger *zap.Logger) *Refiner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refiner{llm: completer, model: model, logger: logger.Named("refine")}
}

// Refine returns the rewritten text, cut to in.Limit. An empty answer keeps the current text.
func (r *Refiner) Refine(ctx context.Context, in prompt.RefineInput) (string, error) {
	if strings.TrimSpace(in.Current) == "" || strings.TrimSpace(in.Instruction) == "" {
		return "", ErrInvalidRefinement
	}
	if in.Limit <= 0 {
		in.Limit = prompt.HeadlineLimit
		if in.IsDescription {
			in.Limit = prompt.DescriptionLimit
		}
	}

	resp, err := r.llm.Complete(ctx, llm.Request{
		Model:     r.model,
		MaxTokens: prompt.RefineMaxTokens,
		Messages:  []llm.Message{{Role: "user", Content: llm.Text(prompt.Refine(in))}},
	})
	if err != nil {
		return "", fmt.Errorf("refine: %w", err)
	}

	refined := strings.TrimSpace(resp.FirstText())
	if refined == "" {
		r.logger.Debug("empty refinement, keeping current text")
		refined = in.Current
	}
	return prompt.Truncate(refined, in.Limit), nil
}
