package dre

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fluxofin/dreflow/internal/common"
	"github.com/fluxofin/dreflow/internal/model"
	"github.com/fluxofin/dreflow/internal/service"
)

// GroupNC labels the unclassified line. It is never folded into the derived
// totals; it exists so the statement is honest about what is still pending.
const GroupNC Group = "NC"

// Period is one statement month.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod parses a YYYY-MM period string.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: invalid period %q, want YYYY-MM", common.ErrValidation, s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Range returns the half-open [start, end) interval the period covers.
func (p Period) Range() (time.Time, time.Time) {
	start := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Previous returns the period one month earlier.
func (p Period) Previous() Period {
	start, _ := p.Range()
	prev := start.AddDate(0, -1, 0)
	return Period{Year: prev.Year(), Month: prev.Month()}
}

// Line is one row of a computed statement.
type Line struct {
	Group   Group
	Label   string
	Amount  float64
	Derived bool
}

// Statement is a computed DRE for one company and period. Amounts keep the
// sign they were stored with; costs stay negative.
type Statement struct {
	GeneratedAt      time.Time
	Totals           map[Group]float64
	CompanyID        string
	Lines            []Line
	Period           Period
	Unclassified     float64
	TransactionCount int
}

// Comparison holds two statements for adjacent or arbitrary periods plus
// per-line deltas (current minus previous).
type Comparison struct {
	Current  *Statement
	Previous *Statement
	Deltas   map[Group]float64
}

// Aggregator computes DRE statements from categorized transactions.
type Aggregator struct {
	storage service.Storage
	logger  *slog.Logger
}

// NewAggregator creates a statement aggregator.
func NewAggregator(storage service.Storage, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{storage: storage, logger: logger}
}

// ComputeStatement builds the DRE for one company and period.
//
// Ignored categories are excluded entirely, splits are attributed to their
// own categories with the unallocated remainder following the parent, and
// everything without a category lands on the NC line.
func (a *Aggregator) ComputeStatement(ctx context.Context, companyID string, period Period) (*Statement, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company ID is required", common.ErrValidation)
	}

	start, end := period.Range()
	txns, err := a.storage.GetTransactions(ctx, service.TransactionFilter{
		CompanyID: companyID,
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions for %s: %w", period, err)
	}

	categories, err := a.storage.GetCategories(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	catByID := make(map[string]model.Category, len(categories))
	for _, c := range categories {
		catByID[c.ID] = c
	}

	ids := make([]string, len(txns))
	for i, t := range txns {
		ids[i] = t.ID
	}
	splits, err := a.storage.GetSplitsByTransactionIDs(ctx, companyID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load splits: %w", err)
	}

	stmt := &Statement{
		GeneratedAt:      time.Now(),
		CompanyID:        companyID,
		Period:           period,
		Totals:           make(map[Group]float64),
		TransactionCount: len(txns),
	}

	for i := range txns {
		txn := &txns[i]
		remainder := txn.Amount
		for _, sp := range splits[txn.ID] {
			remainder -= sp.Amount
			if err := stmt.add(sp.Amount, &sp.CategoryID, catByID); err != nil {
				return nil, err
			}
		}
		if remainder != 0 {
			if err := stmt.add(remainder, txn.CategoryID, catByID); err != nil {
				return nil, err
			}
		}
	}

	stmt.derive()
	stmt.buildLines()

	a.logger.Debug("computed statement",
		"company_id", companyID,
		"period", period.String(),
		"transactions", stmt.TransactionCount,
		"unclassified", stmt.Unclassified)

	return stmt, nil
}

// ComparePeriods computes two statements and the per-line deltas between
// them. It is two plain ComputeStatement calls; nothing about the math
// changes in comparison mode.
func (a *Aggregator) ComparePeriods(ctx context.Context, companyID string, current, previous Period) (*Comparison, error) {
	cur, err := a.ComputeStatement(ctx, companyID, current)
	if err != nil {
		return nil, err
	}
	prev, err := a.ComputeStatement(ctx, companyID, previous)
	if err != nil {
		return nil, err
	}

	deltas := make(map[Group]float64, len(cur.Totals))
	for g, v := range cur.Totals {
		deltas[g] = v - prev.Totals[g]
	}
	for g, v := range prev.Totals {
		if _, ok := cur.Totals[g]; !ok {
			deltas[g] = -v
		}
	}

	return &Comparison{Current: cur, Previous: prev, Deltas: deltas}, nil
}

// add attributes one signed amount to the statement.
func (s *Statement) add(amount float64, categoryID *string, catByID map[string]model.Category) error {
	if categoryID == nil || *categoryID == "" {
		s.Unclassified += amount
		return nil
	}
	cat, ok := catByID[*categoryID]
	if !ok {
		// The category map is tenant-scoped, so a miss means a reference
		// into another tenant's data.
		return fmt.Errorf("%w: category %s not visible to company %s", common.ErrCrossTenant, *categoryID, s.CompanyID)
	}
	if cat.IsIgnored {
		return nil
	}
	group := Group(cat.DREGroup)
	if cat.DREGroup == "" {
		group = GroupOther
	}
	s.Totals[group] += amount
	return nil
}

// derive fills in the computed lines. Signs are preserved from storage, so
// the derived lines are plain sums.
func (s *Statement) derive() {
	t := s.Totals
	t[GroupRO] = t[GroupRoB] + t[GroupTDCF]
	t[GroupMC] = t[GroupRO] + t[GroupMP] + t[GroupCV]
	t[GroupEBIT] = t[GroupMC] + t[GroupCF]
	t[GroupLAIR] = t[GroupEBIT] + t[GroupRNOP] + t[GroupDNOP]
	t[GroupLLE] = t[GroupLAIR] + t[GroupIRPJ] + t[GroupCSLL]
}

func (s *Statement) buildLines() {
	for _, def := range Groups {
		amount, present := s.Totals[def.Code]
		if !present && !def.Derived {
			continue
		}
		s.Lines = append(s.Lines, Line{
			Group:   def.Code,
			Label:   def.Label,
			Amount:  amount,
			Derived: def.Derived,
		})
	}
	if s.Unclassified != 0 {
		s.Lines = append(s.Lines, Line{Group: GroupNC, Label: "Não Classificado", Amount: s.Unclassified})
	}
}
