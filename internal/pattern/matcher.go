package pattern

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/fluxofin/dreflow/internal/common"
	"github.com/fluxofin/dreflow/internal/model"
)

// Match-type weights. An exact rule is stronger evidence than a substring
// hit, which in turn beats a regex.
const (
	weightExact    = 1.0
	weightContains = 0.85
	weightRegex    = 0.75
)

// Match is one rule that matched a transaction, with its composite score.
type Match struct {
	Rule  model.CategoryRule
	Score float64
}

// Matcher evaluates transactions against a tenant's category rules.
type Matcher interface {
	Match(ctx context.Context, txn model.Transaction) ([]Match, error)
}

// MatcherImpl implements Matcher over an in-memory rule set.
type MatcherImpl struct {
	compiledRegex map[string]*regexp.Regexp
	rules         []model.CategoryRule
}

// NewMatcher creates a matcher with the given rules. Regex patterns are
// compiled up front; rules whose patterns do not compile are skipped at
// match time rather than failing the whole set.
func NewMatcher(rules []model.CategoryRule) *MatcherImpl {
	m := &MatcherImpl{
		rules:         rules,
		compiledRegex: make(map[string]*regexp.Regexp),
	}

	for _, rule := range rules {
		if rule.RuleType == model.RuleTypeRegex && rule.Pattern != "" {
			if re, err := common.CompileRulePattern(rule.Pattern); err == nil {
				m.compiledRegex[rule.ID] = re
			}
		}
	}

	return m
}

// Match evaluates a transaction against all rules and returns the matches
// ordered best-first: highest score, then highest usage count, then most
// recently created. Only trusted rules participate; candidate rules are
// never applied automatically no matter their confidence.
func (m *MatcherImpl) Match(_ context.Context, txn model.Transaction) ([]Match, error) {
	text := strings.ToUpper(txn.SearchText())

	var matches []Match
	for _, rule := range m.rules {
		if !rule.Trusted() {
			continue
		}
		if m.matchesRule(text, rule) {
			matches = append(matches, Match{Rule: rule, Score: Score(rule)})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Rule.UsageCount != b.Rule.UsageCount {
			return a.Rule.UsageCount > b.Rule.UsageCount
		}
		return a.Rule.CreatedAt.After(b.Rule.CreatedAt)
	})

	return matches, nil
}

// matchesRule checks one rule against uppercased transaction text.
func (m *MatcherImpl) matchesRule(text string, rule model.CategoryRule) bool {
	if rule.Pattern == "" {
		return false
	}

	switch rule.RuleType {
	case model.RuleTypeExact:
		return strings.EqualFold(strings.TrimSpace(text), strings.TrimSpace(rule.Pattern))
	case model.RuleTypeContains:
		return strings.Contains(text, strings.ToUpper(rule.Pattern))
	case model.RuleTypeRegex:
		re, ok := m.compiledRegex[rule.ID]
		return ok && re.MatchString(text)
	default:
		return false
	}
}

// Score computes a rule's composite match score on a 0-100 scale. The
// match-type weight contributes 40%, the rule's own confidence 50%, and a
// logarithmic usage bonus the remaining 10%.
func Score(rule model.CategoryRule) float64 {
	var typeWeight float64
	switch rule.RuleType {
	case model.RuleTypeExact:
		typeWeight = weightExact
	case model.RuleTypeContains:
		typeWeight = weightContains
	case model.RuleTypeRegex:
		typeWeight = weightRegex
	}

	usageBonus := math.Log10(float64(rule.UsageCount)+1) / 10
	if usageBonus > 0.15 {
		usageBonus = 0.15
	}

	return (typeWeight*0.4 + rule.ConfidenceScore*0.5 + usageBonus*0.1) * 100
}

// TestResult summarizes a dry run of one rule over a transaction set.
type TestResult struct {
	SampleMatches []model.Transaction
	TotalTested   int
	MatchCount    int
}

// TestRule runs a rule against a set of transactions without applying
// anything, returning how many would match and a small sample. Works for
// untrusted rules too, since the point is evaluating them before promotion.
func TestRule(rule model.CategoryRule, txns []model.Transaction) TestResult {
	probe := rule
	probe.Status = model.RuleStatusActive
	probe.IsActive = true
	m := NewMatcher([]model.CategoryRule{probe})

	result := TestResult{TotalTested: len(txns)}
	for _, txn := range txns {
		if m.matchesRule(strings.ToUpper(txn.SearchText()), probe) {
			result.MatchCount++
			if len(result.SampleMatches) < 5 {
				result.SampleMatches = append(result.SampleMatches, txn)
			}
		}
	}
	return result
}
