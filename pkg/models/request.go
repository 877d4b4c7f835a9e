package models

import "encoding/json"

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is an OpenAI-compatible chat completion request.
// Extra holds provider-specific fields that are merged into the JSON body;
// the typed fields always win over an Extra entry with the same name.
type ChatCompletionRequest struct {
	Model       string         `json:"model"`
	Messages    []ChatMessage  `json:"messages"`
	Temperature *float64       `json:"temperature,omitempty"`
	MaxTokens   *int           `json:"max_tokens,omitempty"`
	Extra       map[string]any `json:"-"`
}

// MarshalJSON flattens Extra into the request body.
func (r ChatCompletionRequest) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, len(r.Extra)+4)
	for k, v := range r.Extra {
		body[k] = v
	}
	body["model"] = r.Model
	body["messages"] = r.Messages
	if r.Temperature != nil {
		body["temperature"] = *r.Temperature
	} else {
		delete(body, "temperature")
	}
	if r.MaxTokens != nil {
		body["max_tokens"] = *r.MaxTokens
	} else {
		delete(body, "max_tokens")
	}
	return json.Marshal(body)
}

// ChatCompletionResponse is an OpenAI-compatible chat completion response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice represents a single completion choice.
type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// APIError is the error envelope returned by OpenAI-compatible providers.
type APIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type,omitempty"`
		Code    any    `json:"code,omitempty"`
	} `json:"error"`
}
