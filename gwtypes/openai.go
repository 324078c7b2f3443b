// Package gwtypes defines the OpenAI-compatible wire structures the gateway
// accepts from and returns to clients. These are the target/source shapes for
// the request and response translators; the upstream-facing shapes live in
// package gemini.
package gwtypes

import "encoding/json"

// ChatRequest is an OpenAI Chat Completions request as sent by clients.
//
// Model may carry a virtual suffix (-search, :non-thinking) or the alternate
// backend's virtual prefix; the catalog package resolves these before the
// request reaches the translator.
type ChatRequest struct {
	Model       string      `json:"model"`
	Messages    []Message   `json:"messages"`
	Tools       []Tool      `json:"tools,omitempty"`
	ToolChoice  interface{} `json:"tool_choice,omitempty"`
	Stream      bool        `json:"stream,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Temperature float64     `json:"temperature,omitempty"`
}

// Message is a single chat turn. Content is a tagged union: either a plain
// string or an ordered list of parts (text / image_url). Use AsParts/AsText
// to dispatch on the tag rather than type-switching at every call site.
type Message struct {
	Role       string      `json:"role"`
	Content    interface{} `json:"content,omitempty"`
	Name       string      `json:"name,omitempty"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
}

// ContentPart is one element of a multi-part message content array.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries either a data URI (RFC 2397) or a remote URL. Only data
// URIs are translated to upstream inlineData parts; remote URLs are skipped
// with a warning per spec (no server-side fetch).
type ImageURL struct {
	URL string `json:"url"`
}

// AsText returns (text, true) when Content is a plain string.
func (m Message) AsText() (string, bool) {
	s, ok := m.Content.(string)
	return s, ok
}

// AsParts returns the content as a slice of ContentPart regardless of how it
// was unmarshaled (json.Unmarshal leaves Content as []interface{} of
// map[string]interface{} when the field isn't typed up front).
func (m Message) AsParts() ([]ContentPart, bool) {
	switch c := m.Content.(type) {
	case []ContentPart:
		return c, true
	case []interface{}:
		parts := make([]ContentPart, 0, len(c))
		for _, raw := range c {
			b, err := json.Marshal(raw)
			if err != nil {
				continue
			}
			var p ContentPart
			if err := json.Unmarshal(b, &p); err != nil {
				continue
			}
			parts = append(parts, p)
		}
		return parts, true
	default:
		return nil, false
	}
}

// Tool is a client-declared function the model may call.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction carries the function signature. Parameters is kept as a raw
// map so the schema sanitizer can operate on arbitrary JSON Schema without a
// lossy intermediate struct.
type ToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// ToolCall is an assistant-emitted function invocation.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
	Index    int              `json:"index,omitempty"`
}

// ToolCallFunction carries the function name and JSON-encoded arguments.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatResponse is a non-streaming chat.completion response.
type ChatResponse struct {
	ID                string   `json:"id"`
	Object            string   `json:"object"`
	Created           int64    `json:"created"`
	Model             string   `json:"model"`
	Choices           []Choice `json:"choices"`
	Usage             Usage    `json:"usage"`
	SystemFingerprint *string  `json:"system_fingerprint"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason *string `json:"finish_reason"`
}

// Usage mirrors OpenAI's token accounting fields.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatStreamChunk is a single chat.completion.chunk SSE payload.
type ChatStreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice is one choice within a streaming chunk.
type StreamChoice struct {
	Index        int          `json:"index"`
	Delta        StreamDelta  `json:"delta"`
	FinishReason *string      `json:"finish_reason"`
}

// StreamDelta carries the incremental fields of a streaming chunk. Role is
// populated on every chunk that carries content or tool calls.
type StreamDelta struct {
	Role      string     `json:"role,omitempty"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// EmbeddingRequest is an OpenAI-compatible embeddings request. Input may be a
// single string or an array of strings.
type EmbeddingRequest struct {
	Model string      `json:"model"`
	Input interface{} `json:"input"`
}

// InputStrings normalizes Input into a slice regardless of whether the
// caller sent a single string or an array.
func (r EmbeddingRequest) InputStrings() []string {
	switch v := r.Input.(type) {
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// EmbeddingResponse is the OpenAI-compatible embeddings response.
type EmbeddingResponse struct {
	Object string          `json:"object"`
	Data   []EmbeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  EmbeddingUsage  `json:"usage"`
}

// EmbeddingData is a single embedding vector and its position in the batch.
type EmbeddingData struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

// EmbeddingUsage mirrors OpenAI's (reduced) usage block for embeddings.
type EmbeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ErrorResponse is the OpenAI-compatible error envelope returned for
// invalid_request_error and upstream_error conditions.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error message, type, and optional param/code.
type ErrorDetail struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Param   *string `json:"param,omitempty"`
	Code    *string `json:"code,omitempty"`
}

// ModelsListResponse is the payload for GET /v1/models.
type ModelsListResponse struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// ModelInfo describes one entry in the model catalog.
type ModelInfo struct {
	ID          string `json:"id"`
	Object      string `json:"object"`
	Created     int64  `json:"created"`
	OwnedBy     string `json:"owned_by"`
	Description string `json:"description,omitempty"`
}
