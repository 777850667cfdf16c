package model

import (
	"encoding/json"
	"time"
)

// StageAttempt records one waterfall stage's outcome for a transaction.
type StageAttempt struct {
	Stage   string `json:"stage"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// Reasoning is the structured trace of a categorization run. It is stored
// with the transaction so a reviewer can see exactly why a category was or
// was not assigned.
type Reasoning struct {
	Source         ClassificationSource `json:"source,omitempty"`
	RuleID         string               `json:"ruleId,omitempty"`
	MatchedPattern string               `json:"matchedPattern,omitempty"`
	SimilarTo      string               `json:"similarTo,omitempty"`
	Summary        string               `json:"summary"`
	Stages         []StageAttempt       `json:"stages"`
}

// AddStage appends a stage outcome to the trace.
func (r *Reasoning) AddStage(stage, outcome, detail string) {
	r.Stages = append(r.Stages, StageAttempt{Stage: stage, Outcome: outcome, Detail: detail})
}

// JSON serializes the reasoning for storage. Serialization of this struct
// cannot fail; errors are deliberately swallowed.
func (r *Reasoning) JSON() string {
	data, _ := json.Marshal(r)
	return string(data)
}

// ClassificationResult is the outcome of running a transaction through the
// categorization waterfall.
type ClassificationResult struct {
	ClassifiedAt time.Time
	CategoryID   *string
	CategoryName string
	RuleID       string
	Source       ClassificationSource
	MovementType MovementType
	Reasoning    Reasoning
	Confidence   float64 // 0-100
	NeedsReview  bool
}
