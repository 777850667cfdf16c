package model

import "time"

// Company is a tenant. Every query in the system is scoped by CompanyID.
type Company struct {
	CreatedAt time.Time
	ID        string
	Name      string
	TaxID     string // CNPJ
	IsActive  bool
}

// Account is a bank account belonging to a company.
type Account struct {
	CreatedAt time.Time
	ID        string
	CompanyID string
	Name      string
	BankCode  string
	IsActive  bool
}

// UploadStatus tracks the processing state of a statement import batch.
type UploadStatus string

// Upload status constants.
const (
	UploadPending    UploadStatus = "pending"
	UploadProcessing UploadStatus = "processing"
	UploadCompleted  UploadStatus = "completed"
	UploadFailed     UploadStatus = "failed"
)

// Upload is one statement import batch. FileHash guards against the same
// file being imported twice.
type Upload struct {
	CreatedAt        time.Time
	CompletedAt      *time.Time
	ID               string
	CompanyID        string
	AccountID        string
	FileHash         string
	Status           UploadStatus
	TransactionCount int
	CategorizedCount int
}
