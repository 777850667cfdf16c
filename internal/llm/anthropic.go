package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// anthropicClient implements the Client interface for the Anthropic API.
type anthropicClient struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// newAnthropicClient creates a new Anthropic API client.
func newAnthropicClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-20241022"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 300
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &anthropicClient{
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

const systemPrompt = "You are a financial transaction classifier for Brazilian company bank statements. " +
	"Pick exactly one category from the provided list. " +
	"Respond only with JSON in the exact format requested."

// Classify sends a classification request to Anthropic.
func (c *anthropicClient) Classify(ctx context.Context, req ClassifyRequest) (ClassifyResponse, error) {
	requestBody := map[string]any{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"system":      systemPrompt,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": buildPrompt(req),
			},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return ClassifyResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.anthropic.com/v1/messages", strings.NewReader(string(jsonBody)))
	if err != nil {
		return ClassifyResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ClassifyResponse{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ClassifyResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return ClassifyResponse{}, fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ClassifyResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Content) == 0 {
		return ClassifyResponse{}, fmt.Errorf("no content in response")
	}

	return parseClassification(response.Content[0].Text)
}

// buildPrompt renders the transaction and candidate categories for the model.
func buildPrompt(req ClassifyRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transaction:\n  description: %s\n", req.Description)
	if req.Memo != "" {
		fmt.Fprintf(&b, "  memo: %s\n", req.Memo)
	}
	fmt.Fprintf(&b, "  amount: %.2f\n", req.Amount)
	if req.MovementType != "" {
		fmt.Fprintf(&b, "  movement type: %s\n", req.MovementType)
	}

	b.WriteString("\nCategories:\n")
	for _, cat := range req.Categories {
		fmt.Fprintf(&b, "  - %s (%s)\n", cat.Name, cat.Type)
	}

	b.WriteString("\nRespond with JSON: {\"category\": \"<name from the list>\", \"confidence\": <0-100>, \"reasoning\": \"<one sentence>\"}")
	return b.String()
}

// parseClassification extracts the category pick from the LLM response.
func parseClassification(content string) (ClassifyResponse, error) {
	var jsonResp struct {
		Category   string  `json:"category"`
		Reasoning  string  `json:"reasoning"`
		Confidence float64 `json:"confidence"`
	}

	content = cleanMarkdownWrapper(content)

	if err := json.Unmarshal([]byte(content), &jsonResp); err != nil {
		return ClassifyResponse{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if jsonResp.Category == "" {
		return ClassifyResponse{}, fmt.Errorf("no category found in response")
	}

	return ClassifyResponse{
		CategoryName: jsonResp.Category,
		Confidence:   jsonResp.Confidence,
		Reasoning:    jsonResp.Reasoning,
	}, nil
}

// cleanMarkdownWrapper strips a ```json fence the model sometimes adds.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	return strings.TrimSpace(content)
}

// anthropicResponse represents the Anthropic API response structure.
type anthropicResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Role       string `json:"role"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
