package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fluxofin/dreflow/internal/common"
	"github.com/fluxofin/dreflow/internal/model"
	"github.com/fluxofin/dreflow/internal/pattern"
	"github.com/fluxofin/dreflow/internal/service"
)

// MinGenerationConfidence is the lowest AI confidence that produces a rule.
const MinGenerationConfidence = 70.0

// Generator turns accepted AI classifications into candidate rules. The
// rules it creates are born inactive; they earn promotion through the
// lifecycle service, never by being created.
type Generator struct {
	storage service.Storage
	logger  *slog.Logger
}

// NewGenerator creates a rule generator.
func NewGenerator(storage service.Storage, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{storage: storage, logger: logger}
}

// CreateFromClassification extracts a pattern from the transaction and
// persists a candidate rule for it. A nil rule with a nil error means the
// transaction did not yield a usable pattern or the rule already exists.
func (g *Generator) CreateFromClassification(ctx context.Context, txn *model.Transaction, categoryID string, confidence float64) (*model.CategoryRule, error) {
	if confidence < MinGenerationConfidence {
		return nil, nil
	}

	// The category must be visible to the transaction's tenant. A miss here
	// is a cross-tenant reference, which is a bug in the caller.
	if _, err := g.storage.GetCategoryByID(ctx, txn.CompanyID, categoryID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: category %s not visible to company %s", common.ErrCrossTenant, categoryID, txn.CompanyID)
		}
		return nil, err
	}

	suggestion, ok := pattern.ExtractPattern(txn.Description)
	if !ok {
		g.logger.Debug("no usable pattern in description", "transaction_id", txn.ID)
		return nil, nil
	}
	if err := pattern.ValidatePattern(suggestion.Pattern, model.RuleTypeContains); err != nil {
		return nil, nil
	}

	existing, err := g.storage.GetRules(ctx, txn.CompanyID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing rules: %w", err)
	}
	if dup := pattern.FindDuplicate(existing, suggestion.Pattern, categoryID); dup != nil {
		g.logger.Debug("near-duplicate rule exists",
			"pattern", suggestion.Pattern,
			"existing_rule_id", dup.ID)
		return nil, nil
	}

	now := time.Now()
	rule := &model.CategoryRule{
		ID:              uuid.NewString(),
		CompanyID:       txn.CompanyID,
		CategoryID:      categoryID,
		Pattern:         suggestion.Pattern,
		RuleType:        model.RuleTypeContains,
		Status:          model.RuleStatusCandidate,
		SourceType:      model.RuleSourceAIGenerated,
		ConfidenceScore: confidence / 100,
		IsActive:        false,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := g.storage.CreateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create generated rule: %w", err)
	}

	g.logger.Info("candidate rule generated",
		"rule_id", rule.ID,
		"company_id", rule.CompanyID,
		"pattern", rule.Pattern,
		"strategy", suggestion.Strategy)
	return rule, nil
}
