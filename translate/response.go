package translate

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"aigateway/gemini"
	"aigateway/gwtypes"
)

// finishReasonMap implements spec §4.C's finish-reason table. STOP/MAX_TOKENS
// map directly; SAFETY and RECITATION both collapse to content_filter;
// TOOL_CALLS maps to tool_calls; everything else (including the explicit
// unspecified/other sentinels) maps to no finish reason at all.
var finishReasonMap = map[string]string{
	gemini.FinishStop:      "stop",
	gemini.FinishMaxTokens: "length",
	gemini.FinishSafety:      "content_filter",
	gemini.FinishRecitation:  "content_filter",
	gemini.FinishToolCalls:   "tool_calls",
}

const safetyBlockedPlaceholder = "[Response blocked by safety filtering]"

// UpstreamToOpenAI converts a complete (non-streaming) upstream Response
// into the JSON body of an OpenAI chat.completion, per spec §4.C. It never
// returns an error: a malformed input degrades to a well-formed
// error-shaped completion with finish_reason "error".
func UpstreamToOpenAI(resp *gemini.Response, model string) gwtypes.ChatResponse {
	id := fmt.Sprintf("chatcmpl-%d-%s", nowUnixMilli(), randomSuffix(6))
	base := gwtypes.ChatResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
	}

	if resp == nil || len(resp.Candidates) == 0 {
		reason := "error"
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = "content_filter"
		}
		base.Choices = []gwtypes.Choice{errorChoice(reason)}
		base.Usage = copyUsage(nil)
		return base
	}

	cand := resp.Candidates[0]
	content, toolCalls := splitCandidateParts(cand.Content.Parts)

	reason := mapFinishReason(cand.FinishReason, len(toolCalls) > 0)
	if content == "" && cand.FinishReason == gemini.FinishSafety {
		content = safetyBlockedPlaceholder
	}

	msg := gwtypes.Message{Role: "assistant"}
	if content != "" {
		msg.Content = content
	}
	if len(toolCalls) > 0 {
		msg.ToolCalls = toolCalls
	}

	base.Choices = []gwtypes.Choice{{
		Index:        0,
		Message:      msg,
		FinishReason: reason,
	}}
	base.Usage = copyUsage(resp.UsageMetadata)
	return base
}

func errorChoice(reason string) gwtypes.Choice {
	r := reason
	return gwtypes.Choice{
		Index:        0,
		Message:      gwtypes.Message{Role: "assistant", Content: ""},
		FinishReason: &r,
	}
}

// splitCandidateParts concatenates text parts and converts functionCall
// parts into OpenAI tool calls with the synthetic id scheme
// call_<name>_<unix_ms>_<i>.
func splitCandidateParts(parts []gemini.Part) (string, []gwtypes.ToolCall) {
	var text string
	var calls []gwtypes.ToolCall
	ts := nowUnixMilli()
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
				ID:   fmt.Sprintf("call_%s_%d_%d", p.FunctionCall.Name, ts, i),
				Type: "function",
				Function: gwtypes.ToolCallFunction{
					Name:      p.FunctionCall.Name,
					Arguments: string(args),
				},
			})
		}
	}
	return text, calls
}

// mapFinishReason applies the table above, forcing "tool_calls" whenever
// tool calls are present and the mapped reason isn't stop/length.
func mapFinishReason(raw string, hasToolCalls bool) *string {
	mapped, known := finishReasonMap[raw]
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

func copyUsage(u *gemini.UsageMetadata) gwtypes.Usage {
	if u == nil {
		return gwtypes.Usage{}
	}
	return gwtypes.Usage{
		PromptTokens:     u.PromptTokenCount,
		CompletionTokens: u.CandidatesTokenCount,
		TotalTokens:      u.TotalTokenCount,
	}
}

func nowUnixMilli() int64 {
	return time.Now().UnixMilli()
}

const randomAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unrecoverable; fall back to a
		// fixed suffix rather than panicking mid-response.
		return "000000"[:n]
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = randomAlphabet[int(b)%len(randomAlphabet)]
	}
	return string(out)
}
