package models

import "time"

// Usage represents token usage from an LLM response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Usage sources recorded in the ledger.
const (
	SourceProvider = "provider"
	SourceCache    = "cache"
)

// UsageRecord tracks the outcome of a single generation.
type UsageRecord struct {
	ID               int64     `json:"id"`
	Template         string    `json:"template,omitempty"`
	Model            string    `json:"model"`
	Source           string    `json:"source"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	LatencyMs        int64     `json:"latency_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// UsageSummary aggregates usage across generations.
type UsageSummary struct {
	Template        string `json:"template"`
	Model           string `json:"model"`
	RequestCount    int    `json:"request_count"`
	CacheHits       int    `json:"cache_hits"`
	TotalPrompt     int    `json:"total_prompt"`
	TotalCompletion int    `json:"total_completion"`
	TotalTokens     int    `json:"total_tokens"`
}
