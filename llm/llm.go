// Package llm defines the contract between the dispatcher and the
// text-generation backend.
package llm

import (
	"context"
	"time"
)

type SafetyRating struct {
	Category    string
	Probability string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Reply is the explicit result of one generation call: either usable text,
// or a block with its reason and per-category ratings. A transport or API
// failure is reported through the error return instead.
type Reply struct {
	Text          string
	Blocked       bool
	BlockReason   string
	SafetyRatings []SafetyRating
	Usage         Usage
	Duration      time.Duration
}

// Client performs a single stateless generation exchange. One attempt per
// call; no retries, no conversation history.
type Client interface {
	Generate(ctx context.Context, question string) (Reply, error)
}
