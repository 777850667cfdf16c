package common

import (
	"fmt"
	"regexp"
)

// MaxRegexPatternLength bounds user-supplied regex patterns. Go's RE2
// engine cannot backtrack catastrophically, but an unbounded pattern can
// still be expensive to compile on every rule evaluation.
const MaxRegexPatternLength = 200

// CompileRulePattern compiles a user-supplied regex pattern with a length
// bound, matching case-insensitively.
func CompileRulePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty regex pattern", ErrValidation)
	}
	if len(pattern) > MaxRegexPatternLength {
		return nil, fmt.Errorf("%w: regex pattern exceeds %d characters", ErrValidation, MaxRegexPatternLength)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return re, nil
}
