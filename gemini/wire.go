// Package gemini hand-rolls the JSON wire shapes for the direct backend's
// contents/functionDeclarations dialect rather than pulling in the full
// generative-ai-go / google.golang.org/api client surface: the gateway needs
// byte-level control over the response stream (see package stream) that a
// higher-level SDK client would hide behind its own framing. The struct
// shapes below mirror what github.com/google/generative-ai-go/genai and
// google.golang.org/api/generativelanguage expose, so callers already
// familiar with that SDK will recognize the field names.
package gemini

import "encoding/json"

// Request is the upstream request body: an ordered list of turns plus
// optional system instruction and tool declarations.
type Request struct {
	Contents          []Content   `json:"contents"`
	SystemInstruction *Content    `json:"systemInstruction,omitempty"`
	Tools             []ToolDecl  `json:"tools,omitempty"`
	ToolConfig        *ToolConfig `json:"toolConfig,omitempty"`
	GenerationConfig  *GenConfig  `json:"generationConfig,omitempty"`
}

// GenConfig carries generation knobs, including the thinkingBudget lever the
// catalog's :non-thinking dispatch rule sets to zero.
type GenConfig struct {
	Temperature     float64         `json:"temperature,omitempty"`
	MaxOutputTokens int             `json:"maxOutputTokens,omitempty"`
	ThinkingConfig  *ThinkingConfig `json:"thinkingConfig,omitempty"`
}

// ThinkingConfig controls the model's internal reasoning budget.
type ThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

// Content is one turn: a role ("user" or "model") and an ordered list of
// parts. Empty-part contents are never emitted (spec invariant).
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is a tagged union over {text}, {inlineData}, {functionCall},
// {functionResponse}. Exactly one field should be set; callers check in that
// order since the upstream never sets more than one per part.
type Part struct {
	Text             string            `json:"text,omitempty"`
	InlineData       *InlineData       `json:"inlineData,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
}

// InlineData carries a base64 blob for multi-modal (e.g. image) parts.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// FunctionCall is a model-emitted function invocation.
type FunctionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// FunctionResponse is a tool result fed back to the model.
type FunctionResponse struct {
	Name     string                 `json:"name"`
	Response map[string]interface{} `json:"response"`
}

// ToolDecl wraps one set of function declarations; the upstream groups all
// client tools under a single entry.
type ToolDecl struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

// FunctionDeclaration is the upstream-accepted (sanitized) function schema.
type FunctionDeclaration struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// ToolConfig constrains how the model may call functions.
type ToolConfig struct {
	FunctionCallingConfig FunctionCallingConfig `json:"functionCallingConfig"`
}

// FunctionCallingConfig is the mode (AUTO/NONE/ANY) plus an optional
// allow-list, mirroring the OpenAI tool_choice semantics one level down.
type FunctionCallingConfig struct {
	Mode                 string   `json:"mode"`
	AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty"`
}

const (
	FunctionCallingAuto = "AUTO"
	FunctionCallingNone = "NONE"
	FunctionCallingAny  = "ANY"
)

// Response is the upstream single-shot or final-chunk response shape.
type Response struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
}

// Candidate is one generated alternative.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
	Index        *int    `json:"index,omitempty"`
}

// PromptFeedback reports why the prompt itself was blocked, if it was.
type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// UsageMetadata reports upstream token accounting.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// EmbedResponse covers both shapes the embeddings endpoint is observed to
// return: a batch ({embeddings:[{values}]}) and a single result
// ({embedding:{values}}).
type EmbedResponse struct {
	Embeddings []EmbedValues `json:"embeddings,omitempty"`
	Embedding  *EmbedValues  `json:"embedding,omitempty"`
}

// EmbedValues is the raw float vector for one input.
type EmbedValues struct {
	Values []float64 `json:"values"`
}

// Finish reason constants as reported by the upstream.
const (
	FinishStop        = "STOP"
	FinishMaxTokens   = "MAX_TOKENS"
	FinishSafety      = "SAFETY"
	FinishRecitation  = "RECITATION"
	FinishToolCalls   = "TOOL_CALLS"
	FinishOther       = "OTHER"
	FinishUnspecified = "FINISH_REASON_UNSPECIFIED"
)

// RawSchema is a convenience alias used where a function parameter schema is
// passed through as opaque JSON (e.g. when logging or re-marshaling without
// going through the sanitizer again).
type RawSchema = json.RawMessage
