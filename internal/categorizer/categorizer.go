// Package categorizer suggests a budget category for a transaction, asking
// an optional oracle first and falling back to keyword heuristics.
package categorizer

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/normalize"
)

// Source records which tier produced a suggestion.
type Source string

const (
	SourceOracle   Source = "oracle"
	SourceKeyword  Source = "keyword"
	SourceIncome   Source = "income"
	SourceFallback Source = "fallback"
)

// Oracle answers a closed-choice classification prompt with free text.
type Oracle interface {
	Classify(ctx context.Context, prompt string) (string, error)
}

// OracleResult is the outcome of one oracle consultation. When OK is false,
// Reason says why the answer was not usable.
type OracleResult struct {
	Category string
	OK       bool
	Reason   string
}

// Suggestion is a resolved category with its pillar.
type Suggestion struct {
	Category string
	Pillar   string
	Source   Source
}

// NeedsReview reports whether the suggestion is the sentinel category.
func (s Suggestion) NeedsReview() bool {
	return s.Category == domain.Uncategorized
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithOracle enables the oracle tier.
func WithOracle(o Oracle) Option {
	return func(c *Classifier) { c.oracle = o }
}

// WithHints replaces the keyword table.
func WithHints(h []Hint) Option {
	return func(c *Classifier) { c.hints = h }
}

// Classifier is safe for concurrent use as long as its oracle is.
type Classifier struct {
	oracle Oracle
	hints  []Hint
}

// New creates a classifier using DefaultHints and no oracle.
func New(opts ...Option) *Classifier {
	c := &Classifier{hints: DefaultHints}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Suggest resolves a category. It never fails: oracle problems fall
// through to the heuristic tier.
func (c *Classifier) Suggest(ctx context.Context, description string, amount decimal.Decimal) Suggestion {
	if c.oracle != nil {
		res := c.Consult(ctx, description, amount)
		if res.OK {
			return suggestion(res.Category, SourceOracle)
		}
		log := logger.FromContext(ctx)
		log.Debug().
			Str("description", description).
			Str("reason", res.Reason).
			Msg("Oracle gave no usable category, using heuristics")
	}
	return suggestion(c.Heuristic(description, amount))
}

// Consult asks the oracle and validates its answer against the fixed set.
func (c *Classifier) Consult(ctx context.Context, description string, amount decimal.Decimal) OracleResult {
	if c.oracle == nil {
		return OracleResult{Reason: "no oracle configured"}
	}
	raw, err := c.oracle.Classify(ctx, BuildPrompt(description, amount))
	if err != nil {
		return OracleResult{Reason: "oracle error: " + err.Error()}
	}
	category, ok := ParseResponse(raw)
	if !ok {
		return OracleResult{Reason: "response not in category list: " + raw}
	}
	return OracleResult{Category: category, OK: true}
}

// Heuristic scans the keyword table, then falls back on the amount sign.
func (c *Classifier) Heuristic(description string, amount decimal.Decimal) (string, Source) {
	text := normalize.Key(description)
	for _, h := range c.hints {
		for _, kw := range h.Keywords {
			if strings.Contains(text, kw) {
				return h.Category, SourceKeyword
			}
		}
	}
	if amount.IsPositive() {
		return "Income", SourceIncome
	}
	return domain.Uncategorized, SourceFallback
}

func suggestion(category string, source Source) Suggestion {
	return Suggestion{
		Category: category,
		Pillar:   domain.DerivePillar(category),
		Source:   source,
	}
}
