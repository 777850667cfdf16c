// Package llm provides the AI fallback classifier used as the last stage of
// the categorization waterfall.
package llm

import (
	"context"
	"time"
)

// Client defines the interface for LLM providers.
type Client interface {
	Classify(ctx context.Context, req ClassifyRequest) (ClassifyResponse, error)
}

// CandidateCategory is one category the model may choose from.
type CandidateCategory struct {
	Name string
	Type string
}

// ClassifyRequest carries one transaction plus the tenant's categories.
type ClassifyRequest struct {
	Description  string
	Memo         string
	MovementType string
	Categories   []CandidateCategory
	Amount       float64
}

// ClassifyResponse contains the model's pick. Confidence is on a 0-100
// scale; the engine applies its own threshold.
type ClassifyResponse struct {
	CategoryName string
	Reasoning    string
	Confidence   float64
}

// Config configures an LLM client.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}
