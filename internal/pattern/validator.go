package pattern

import (
	"fmt"
	"strings"

	"github.com/fluxofin/dreflow/internal/common"
	"github.com/fluxofin/dreflow/internal/model"
)

// MinPatternLength is the shortest pattern a rule may carry.
const MinPatternLength = 3

// ValidatePattern checks that a rule pattern is usable before the rule is
// persisted. Regex patterns must compile within the length bound; text
// patterns must contain at least one non-generic word, so a rule can never
// be anchored on "PAGAMENTO" alone.
func ValidatePattern(patternText string, ruleType model.RuleType) error {
	trimmed := strings.TrimSpace(patternText)
	if len(trimmed) < MinPatternLength {
		return fmt.Errorf("%w: pattern %q is shorter than %d characters", common.ErrValidation, trimmed, MinPatternLength)
	}

	if ruleType == model.RuleTypeRegex {
		if _, err := common.CompileRulePattern(trimmed); err != nil {
			return err
		}
		return nil
	}

	for _, word := range strings.Fields(Normalize(trimmed)) {
		if !IsGenericWord(word) && len(word) >= 2 {
			return nil
		}
	}
	return fmt.Errorf("%w: pattern %q contains only generic words", common.ErrValidation, trimmed)
}

// FindDuplicate returns the first existing rule whose pattern is nearly
// identical to the candidate pattern for the same category, or nil.
func FindDuplicate(rules []model.CategoryRule, patternText, categoryID string) *model.CategoryRule {
	for i := range rules {
		if rules[i].CategoryID != categoryID {
			continue
		}
		if Similarity(rules[i].Pattern, patternText) > 0.90 {
			return &rules[i]
		}
	}
	return nil
}
