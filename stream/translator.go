package stream

import (
	"encoding/json"
	"fmt"
	"time"

	"aigateway/gemini"
	"aigateway/gwtypes"
)

// Translator converts each JSON object yielded by a Chunker into an OpenAI
// chat.completion.chunk SSE payload, per spec §4.E. One Translator is used
// for the whole lifetime of a single streaming response: it keeps the
// stream id and model name stable across every chunk it emits.
type Translator struct {
	id    string
	model string
}

// NewTranslator returns a Translator for one streaming response. id should
// be unique per response (the caller typically derives it the same way
// UpstreamToOpenAI derives a chatcmpl id).
func NewTranslator(id, model string) *Translator {
	return &Translator{id: id, model: model}
}

// Translate converts one object string (as yielded by Chunker.Feed) into
// zero or more SSE data payloads (JSON-encoded, without the "data: "
// envelope or trailing newlines — the caller writes the envelope). Most
// objects produce exactly one payload; a dropped object (an empty chunk or
// a {done:true} sentinel) produces none; a top-level array recurses into
// each element and may produce several.
func (t *Translator) Translate(objJSON string) [][]byte {
	var generic map[string]interface{}
	if err := json.Unmarshal([]byte(objJSON), &generic); err != nil {
		return t.translateArray(objJSON)
	}
	return t.translateObject(generic, objJSON)
}

func (t *Translator) translateArray(objJSON string) [][]byte {
	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(objJSON), &arr); err != nil {
		return nil
	}
	var out [][]byte
	for _, elem := range arr {
		out = append(out, t.Translate(string(elem))...)
	}
	return out
}

func (t *Translator) translateObject(generic map[string]interface{}, objJSON string) [][]byte {
	if done, ok := generic["done"].(bool); ok && done {
		return nil
	}

	if _, hasCandidates := generic["candidates"]; hasCandidates {
		return t.translateChatChunk(objJSON)
	}

	if text, ok := generic["text"].(string); ok && len(generic) == 1 {
		wrapped := gemini.Response{
			Candidates: []gemini.Candidate{{
				Content: gemini.Content{Role: "model", Parts: []gemini.Part{{Text: text}}},
			}},
		}
		b, err := json.Marshal(wrapped)
		if err != nil {
			return nil
		}
		return t.Translate(string(b))
	}

	// Already OpenAI-shaped (alternate backend passthrough).
	return [][]byte{[]byte(objJSON)}
}

func (t *Translator) translateChatChunk(objJSON string) [][]byte {
	var resp gemini.Response
	if err := json.Unmarshal([]byte(objJSON), &resp); err != nil || len(resp.Candidates) == 0 {
		return nil
	}
	cand := resp.Candidates[0]
	content, toolCalls := splitStreamParts(cand.Content.Parts)

	reason := mapStreamFinishReason(cand.FinishReason, len(toolCalls) > 0)

	if content == "" && len(toolCalls) == 0 && reason == nil {
		return nil
	}

	delta := gwtypes.StreamDelta{}
	if content != "" || len(toolCalls) > 0 {
		delta.Role = "assistant"
	}
	delta.Content = content
	delta.ToolCalls = toolCalls

	chunk := gwtypes.ChatStreamChunk{
		ID:      t.id,
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   t.model,
		Choices: []gwtypes.StreamChoice{{
			Index:        0,
			Delta:        delta,
			FinishReason: reason,
		}},
	}
	b, err := json.Marshal(chunk)
	if err != nil {
		return nil
	}
	return [][]byte{b}
}

func splitStreamParts(parts []gemini.Part) (string, []gwtypes.ToolCall) {
	var text string
	var calls []gwtypes.ToolCall
	ts := time.Now().UnixMilli()
	for i, p := range parts {
		if p.Text != "" {
			text += p.Text
		}
		if p.FunctionCall != nil {
			args, err := json.Marshal(p.FunctionCall.Args)
			if err != nil || p.FunctionCall.Args == nil {
				args = []byte("{}")
			}
			calls = append(calls, gwtypes.ToolCall{
				ID:    fmt.Sprintf("call_%s_%d_%d", p.FunctionCall.Name, ts, i),
				Type:  "function",
				Index: i,
				Function: gwtypes.ToolCallFunction{
					Name:      p.FunctionCall.Name,
					Arguments: string(args),
				},
			})
		}
	}
	return text, calls
}

var streamFinishReasonMap = map[string]string{
	gemini.FinishStop:       "stop",
	gemini.FinishMaxTokens:  "length",
	gemini.FinishSafety:     "content_filter",
	gemini.FinishRecitation: "content_filter",
	gemini.FinishToolCalls:  "tool_calls",
}

func mapStreamFinishReason(raw string, hasToolCalls bool) *string {
	if raw == "" {
		if hasToolCalls {
			r := "tool_calls"
			return &r
		}
		return nil
	}
	mapped, known := streamFinishReasonMap[raw]
	if !known {
		if hasToolCalls {
			r := "tool_calls"
			return &r
		}
		return nil
	}
	if hasToolCalls && mapped != "stop" && mapped != "length" {
		r := "tool_calls"
		return &r
	}
	return &mapped
}

// DoneFrame is the literal terminator every stream emits exactly once.
const DoneFrame = "[DONE]"
