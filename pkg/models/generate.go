package models

// GenerateRequest is the body of POST /v1/generate.
// Options recognizes model, max_tokens, temperature and timestamp;
// any other key is forwarded to the provider.
type GenerateRequest struct {
	Prompt  string         `json:"prompt"`
	Options map[string]any `json:"options,omitempty"`
}

// GenerateResponse carries generated text back to the caller.
type GenerateResponse struct {
	Result string `json:"result"`
}

// ErrorResponse is the error body returned by the HTTP API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// TemplateInfo describes a prompt template.
type TemplateInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    []string `json:"required"`
	Optional    []string `json:"optional,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}
