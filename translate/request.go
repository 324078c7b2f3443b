// Package translate converts between the OpenAI-compatible wire shapes
// (package gwtypes) and the upstream contents/functionDeclarations dialect
// (package gemini). It keeps the teacher's two-function shape
// (proxy/transform.go's TransformAnthropicToOpenAI/TransformOpenAIToAnthropic)
// retargeted to OpenAIToUpstream/UpstreamToOpenAI.
package translate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"aigateway/gemini"
	"aigateway/gwlog"
	"aigateway/gwtypes"
	"aigateway/schema"
)

// ToolCallNames is a per-request map of tool_call id to function name,
// populated while translating assistant messages and consulted while
// translating the following tool message. It must never outlive (or be
// shared across) one request, per spec's lifecycle rules.
type ToolCallNames map[string]string

// dataURIPattern matches an RFC 2397 data URI: "data:<mime>;base64,<data>".
var dataURIPattern = regexp.MustCompile(`^data:(.+?);base64,(.+)$`)

// toolNamePattern is the allowed character class for a sanitized tool
// declaration name; a cleaned name is also required to start with a
// letter or underscore.
var toolNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,64}$`)

// RequestOptions gates the role-mapping and tool behavior that depends on
// caller/model context rather than purely on message content.
type RequestOptions struct {
	// SupportsSystemInstruction is false for model families that reject a
	// dedicated systemInstruction field; system messages are then folded
	// into a leading user turn instead.
	SupportsSystemInstruction bool
	// SafetyFilteringDisabled also forces system messages inline, per spec
	// §4.B rule 1.
	SafetyFilteringDisabled bool
}

// OpenAIToUpstream converts a client ChatRequest into the upstream Request
// shape, applying schema sanitization to every tool and returning the
// per-request tool-call-id→name map the caller must thread through to any
// subsequent turn translation within the same request.
func OpenAIToUpstream(req gwtypes.ChatRequest, opts RequestOptions, log gwlog.Logger) (*gemini.Request, ToolCallNames, error) {
	if log == nil {
		log = noopLogger{}
	}
	names := ToolCallNames{}
	inlineSystem := !opts.SupportsSystemInstruction || opts.SafetyFilteringDisabled

	var systemInstruction *gemini.Content
	var contents []gemini.Content
	var leadingUserParts []gemini.Part

	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			parts := messageParts(msg, log)
			if inlineSystem {
				leadingUserParts = append(leadingUserParts, parts...)
				continue
			}
			if len(parts) == 0 {
				continue
			}
			systemInstruction = &gemini.Content{Role: "system", Parts: parts}

		case "user":
			parts := messageParts(msg, log)
			if len(leadingUserParts) > 0 {
				parts = append(leadingUserParts, parts...)
				leadingUserParts = nil
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, gemini.Content{Role: "user", Parts: parts})

		case "assistant":
			parts := assistantParts(msg, names, log)
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, gemini.Content{Role: "model", Parts: parts})

		case "tool":
			part := toolResponsePart(msg, names, log)
			if part == nil {
				continue
			}
			contents = append(contents, gemini.Content{Role: "user", Parts: []gemini.Part{*part}})

		default:
			log.Warn("skipping message with unknown role %q", msg.Role)
		}
	}

	if len(leadingUserParts) > 0 {
		// A system-only request with no user turn still needs somewhere to
		// carry the inlined system content.
		contents = append([]gemini.Content{{Role: "user", Parts: leadingUserParts}}, contents...)
	}

	upstream := &gemini.Request{
		Contents:          contents,
		SystemInstruction: systemInstruction,
	}

	if len(req.Tools) > 0 {
		decls := make([]gemini.FunctionDeclaration, 0, len(req.Tools))
		seen := map[string]int{}
		for _, tool := range req.Tools {
			name := cleanToolName(tool.Function.Name, seen)
			params := schema.Sanitize(cloneSchema(tool.Function.Parameters))
			if _, ok := params["type"]; !ok && looksObjectShaped(params) {
				params["type"] = "object"
			}
			decls = append(decls, gemini.FunctionDeclaration{
				Name:        name,
				Description: tool.Function.Description,
				Parameters:  params,
			})
		}
		upstream.Tools = []gemini.ToolDecl{{FunctionDeclarations: decls}}
		upstream.ToolConfig = toolConfigFor(req.ToolChoice)
	}

	return upstream, names, nil
}

func messageParts(msg gwtypes.Message, log gwlog.Logger) []gemini.Part {
	if text, ok := msg.AsText(); ok {
		if text == "" {
			return nil
		}
		return []gemini.Part{{Text: text}}
	}
	parts, ok := msg.AsParts()
	if !ok {
		return nil
	}
	out := make([]gemini.Part, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case "text":
			if p.Text != "" {
				out = append(out, gemini.Part{Text: p.Text})
			}
		case "image_url":
			if p.ImageURL == nil {
				continue
			}
			m := dataURIPattern.FindStringSubmatch(p.ImageURL.URL)
			if m == nil {
				log.Warn("skipping non-data-URI image_url (no server-side fetch)")
				continue
			}
			out = append(out, gemini.Part{InlineData: &gemini.InlineData{MimeType: m[1], Data: m[2]}})
		default:
			log.Warn("skipping content part of unknown type %q", p.Type)
		}
	}
	return out
}

func assistantParts(msg gwtypes.Message, names ToolCallNames, log gwlog.Logger) []gemini.Part {
	var parts []gemini.Part
	for _, tc := range msg.ToolCalls {
		names[tc.ID] = tc.Function.Name
		args := map[string]interface{}{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]interface{}{"_error": err.Error(), "raw": tc.Function.Arguments}
			}
		}
		parts = append(parts, gemini.Part{FunctionCall: &gemini.FunctionCall{Name: tc.Function.Name, Args: args}})
	}
	parts = append(parts, messageParts(msg, log)...)
	return parts
}

func toolResponsePart(msg gwtypes.Message, names ToolCallNames, log gwlog.Logger) *gemini.Part {
	text, _ := msg.AsText()

	var payload map[string]interface{}
	if text != "" {
		if err := json.Unmarshal([]byte(text), &payload); err != nil {
			payload = nil
		} else if _, isObject := anyAsObject(payload); !isObject {
			payload = nil
		}
	}
	if payload == nil {
		payload = map[string]interface{}{"content": text}
	}

	name := msg.Name
	if name == "" {
		name = names[msg.ToolCallID]
	}
	if name == "" {
		log.Warn("tool message %q has no resolvable function name, downgrading to text", msg.ToolCallID)
		return &gemini.Part{Text: text}
	}

	return &gemini.Part{FunctionResponse: &gemini.FunctionResponse{Name: name, Response: payload}}
}

func anyAsObject(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func toolConfigFor(choice interface{}) *gemini.ToolConfig {
	switch c := choice.(type) {
	case nil:
		return nil
	case string:
		switch c {
		case "auto":
			return &gemini.ToolConfig{FunctionCallingConfig: gemini.FunctionCallingConfig{Mode: gemini.FunctionCallingAuto}}
		case "none":
			return &gemini.ToolConfig{FunctionCallingConfig: gemini.FunctionCallingConfig{Mode: gemini.FunctionCallingNone}}
		default:
			return &gemini.ToolConfig{FunctionCallingConfig: gemini.FunctionCallingConfig{
				Mode:                 gemini.FunctionCallingAny,
				AllowedFunctionNames: []string{c},
			}}
		}
	case map[string]interface{}:
		if fn, ok := c["function"].(map[string]interface{}); ok {
			if name, ok := fn["name"].(string); ok && name != "" {
				return &gemini.ToolConfig{FunctionCallingConfig: gemini.FunctionCallingConfig{
					Mode:                 gemini.FunctionCallingAny,
					AllowedFunctionNames: []string{name},
				}}
			}
		}
		return &gemini.ToolConfig{FunctionCallingConfig: gemini.FunctionCallingConfig{Mode: gemini.FunctionCallingAuto}}
	default:
		return &gemini.ToolConfig{FunctionCallingConfig: gemini.FunctionCallingConfig{Mode: gemini.FunctionCallingAuto}}
	}
}

// cleanToolName restricts name to the accepted character class, prefixes a
// leading underscore when it starts with a digit or symbol, and
// disambiguates collisions within the same request by appending _2, _3, ...
func cleanToolName(name string, seen map[string]int) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') ||
			r == '_' || r == '.' || r == ':' || r == '-' {
			return r
		}
		return -1
	}, name)
	if len(cleaned) > 64 {
		cleaned = cleaned[:64]
	}
	if cleaned == "" || !(isLetter(cleaned[0]) || cleaned[0] == '_') {
		cleaned = "_" + cleaned
		if len(cleaned) > 64 {
			cleaned = cleaned[:64]
		}
	}
	if !toolNamePattern.MatchString(cleaned) {
		cleaned = "_tool"
	}

	seen[cleaned]++
	if n := seen[cleaned]; n > 1 {
		return fmt.Sprintf("%s_%d", cleaned, n)
	}
	return cleaned
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func looksObjectShaped(m map[string]interface{}) bool {
	_, hasProps := m["properties"]
	_, hasRequired := m["required"]
	return hasProps || hasRequired
}

func cloneSchema(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return map[string]interface{}{}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{})             {}
func (noopLogger) Info(string, ...interface{})              {}
func (noopLogger) Warn(string, ...interface{})               {}
func (noopLogger) Error(string, ...interface{})              {}
func (l noopLogger) WithField(string, interface{}) gwlog.Logger { return l }
func (l noopLogger) WithModel(string) gwlog.Logger              { return l }
func (l noopLogger) WithComponent(string) gwlog.Logger          { return l }
