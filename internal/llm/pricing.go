package llm

import (
	"sort"

	"github.com/rebootlabs/mastery/internal/store"
)

// ModelCost holds per-million-token pricing for a model in USD.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost calculates the total USD cost for the given token counts.
func (c ModelCost) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*c.InputPerMTok/1_000_000 +
		float64(outputTokens)*c.OutputPerMTok/1_000_000
}

// LookupCost returns the pricing for a model ID, or nil if unknown.
func LookupCost(modelID string) *ModelCost {
	if c, ok := modelCosts[modelID]; ok {
		return &c
	}
	return nil
}

// modelCosts covers the models the friendly names resolve to plus their
// common aliases. Last updated: 2026-09-30.
var modelCosts = map[string]ModelCost{
	"claude-haiku-4-5":           {1, 5},
	"claude-haiku-4-5-20251001":  {1, 5},
	"claude-sonnet-4-5":          {3, 15},
	"claude-sonnet-4-5-20250929": {3, 15},

	"gpt-4o":       {2.5, 10},
	"gpt-4o-mini":  {0.15, 0.6},
	"gpt-4.1-mini": {0.4, 1.6},

	"gemini-2.5-flash":            {0.3, 2.5},
	"gemini-2.5-flash-lite":       {0.1, 0.4},
	"gemini-2.5-pro":              {1.25, 10},
	"google/gemini-2.0-flash-001": {0.1, 0.4},
	"google/gemini-2.5-flash":     {0.3, 2.5},
	"openai/gpt-4o-mini":          {0.15, 0.6},
	"anthropic/claude-haiku-4.5":  {1, 5},
}

// UsageRow aggregates recorded requests for one (provider, model, purpose).
type UsageRow struct {
	Provider     string
	Model        string
	Purpose      string
	Requests     int
	Failures     int
	InputTokens  int
	OutputTokens int
	// CostUSD is nil when the model has no pricing entry.
	CostUSD *float64
}

// SummarizeUsage groups LLM request events and prices them. Rows are
// sorted by provider, model, then purpose.
func SummarizeUsage(events []store.LLMRequestRecord) []UsageRow {
	type key struct{ provider, model, purpose string }
	rows := make(map[key]*UsageRow)
	for _, e := range events {
		k := key{e.Provider, e.Model, e.Purpose}
		r, ok := rows[k]
		if !ok {
			r = &UsageRow{Provider: e.Provider, Model: e.Model, Purpose: e.Purpose}
			rows[k] = r
		}
		r.Requests++
		if !e.Success {
			r.Failures++
		}
		r.InputTokens += e.InputTokens
		r.OutputTokens += e.OutputTokens
	}

	out := make([]UsageRow, 0, len(rows))
	for _, r := range rows {
		if c := LookupCost(r.Model); c != nil {
			cost := c.Cost(r.InputTokens, r.OutputTokens)
			r.CostUSD = &cost
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Provider != b.Provider {
			return a.Provider < b.Provider
		}
		if a.Model != b.Model {
			return a.Model < b.Model
		}
		return a.Purpose < b.Purpose
	})
	return out
}
