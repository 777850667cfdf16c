package llm

import (
	"fmt"
	"strings"
)

// NewClient creates an LLM client based on the provided configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		return newAnthropicClient(cfg)
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
