package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// TransactionType distinguishes inflows from outflows.
type TransactionType string

// Transaction type constants.
const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// ClassificationSource indicates which stage produced a categorization.
type ClassificationSource string

// Classification source constants.
const (
	SourceCache   ClassificationSource = "cache"
	SourceRule    ClassificationSource = "rule"
	SourceHistory ClassificationSource = "history"
	SourceAI      ClassificationSource = "ai"
	SourceManual  ClassificationSource = "manual"
	SourceImport  ClassificationSource = "import"
)

// Transaction represents a single bank statement line.
type Transaction struct {
	Date                time.Time
	CategorizedAt       *time.Time
	CategoryID          *string
	ID                  string
	AccountID           string
	CompanyID           string
	UploadID            string
	Description         string // Raw bank description
	Name                string // Counterparty name when the bank provides one
	Memo                string
	Hash                string
	RuleID              string // Rule that categorized this transaction, when Source is rule
	Reasoning           string // Structured JSON reasoning from the categorization run
	Type                TransactionType
	Source              ClassificationSource
	MovementType        MovementType
	Amount              float64 // Signed: credits positive, debits negative
	Confidence          float64 // 0-100
	NeedsReview         bool
	Verified            bool
	ManuallyCategorized bool
}

// GenerateHash creates a unique hash for duplicate detection within an account.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.Description,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// SearchText returns the text a matcher should inspect, joining the
// description with the optional name and memo fields.
func (t *Transaction) SearchText() string {
	text := t.Description
	if t.Name != "" && t.Name != t.Description {
		text += " " + t.Name
	}
	if t.Memo != "" {
		text += " " + t.Memo
	}
	return text
}

// TransactionSplit allocates part of a transaction's amount to a different
// category. Once splits exist they are the unit of truth for their portion;
// the parent's own category covers only the unallocated remainder.
type TransactionSplit struct {
	CreatedAt     time.Time
	ID            string
	TransactionID string
	CategoryID    string
	Note          string
	Amount        float64 // Same sign convention as the parent
}
