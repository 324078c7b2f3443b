package stream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aigateway/gwtypes"
)

func decodeChunk(t *testing.T, b []byte) gwtypes.ChatStreamChunk {
	t.Helper()
	var c gwtypes.ChatStreamChunk
	require.NoError(t, json.Unmarshal(b, &c))
	return c
}

func TestTranslator_TextChunk(t *testing.T) {
	tr := NewTranslator("chatcmpl-1", "gemini-pro")
	out := tr.Translate(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hi"}]}}]}`)
	require.Len(t, out, 1)
	chunk := decodeChunk(t, out[0])
	assert.Equal(t, "hi", chunk.Choices[0].Delta.Content)
	assert.Equal(t, "assistant", chunk.Choices[0].Delta.Role)
}

func TestTranslator_ToolCallChunk(t *testing.T) {
	tr := NewTranslator("chatcmpl-1", "gemini-pro")
	out := tr.Translate(`{"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"f","args":{"x":1}}}]},"finishReason":"TOOL_CALLS"}]}`)
	require.Len(t, out, 1)
	chunk := decodeChunk(t, out[0])
	require.Len(t, chunk.Choices[0].Delta.ToolCalls, 1)
	assert.Equal(t, `{"x":1}`, chunk.Choices[0].Delta.ToolCalls[0].Function.Arguments)
	require.NotNil(t, chunk.Choices[0].FinishReason)
	assert.Equal(t, "tool_calls", *chunk.Choices[0].FinishReason)
}

func TestTranslator_DoneSentinelDropped(t *testing.T) {
	tr := NewTranslator("chatcmpl-1", "gemini-pro")
	out := tr.Translate(`{"done":true}`)
	assert.Empty(t, out)
}

func TestTranslator_BareTextFragmentWrapped(t *testing.T) {
	tr := NewTranslator("chatcmpl-1", "gemini-pro")
	out := tr.Translate(`{"text":"partial"}`)
	require.Len(t, out, 1)
	chunk := decodeChunk(t, out[0])
	assert.Equal(t, "partial", chunk.Choices[0].Delta.Content)
}

func TestTranslator_EmptyChunkDropped(t *testing.T) {
	tr := NewTranslator("chatcmpl-1", "gemini-pro")
	out := tr.Translate(`{"candidates":[{"content":{"role":"model","parts":[]}}]}`)
	assert.Empty(t, out)
}

func TestTranslator_PassthroughAlreadyOpenAIShaped(t *testing.T) {
	tr := NewTranslator("chatcmpl-1", "gemini-pro")
	openaiShaped := `{"id":"chatcmpl-x","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"z"}}]}`
	out := tr.Translate(openaiShaped)
	require.Len(t, out, 1)
	assert.JSONEq(t, openaiShaped, string(out[0]))
}

func TestTranslator_OrderingAcrossMultipleObjects(t *testing.T) {
	tr := NewTranslator("chatcmpl-1", "gemini-pro")
	var frames [][]byte
	frames = append(frames, tr.Translate(`{"candidates":[{"content":{"parts":[{"text":"a"}]}}]}`)...)
	frames = append(frames, tr.Translate(`{"candidates":[{"content":{"parts":[{"text":"b"}]}}]}`)...)
	require.Len(t, frames, 2)
	assert.Equal(t, "a", decodeChunk(t, frames[0]).Choices[0].Delta.Content)
	assert.Equal(t, "b", decodeChunk(t, frames[1]).Choices[0].Delta.Content)
}
