// Package upstream defines the gateway's south-bound collaborators: the
// credential and settings stores the core consults before every request, and
// the two backend proxies (direct, alternate) that actually speak to a
// generative-AI backend. Per spec.md §6 these are consumed interfaces, not
// implemented by the core — CredentialPool and SettingsStore are declared
// here as interfaces only; package main adapts gwconfig to them
// (configadapter.go) and package upstream/fakes supplies in-memory test
// doubles; DirectProxy and
// AlternateProxy get a real net/http-based implementation because without one
// there is nothing for package server to drive end to end.
package upstream

import (
	"context"
	"io"

	"aigateway/gemini"
	"aigateway/gwconfig"
)

// ServiceAccount is the alternate backend's credential shape: a Google Cloud
// service account used to mint short-lived OAuth2 bearer tokens.
type ServiceAccount struct {
	Email      string
	PrivateKey []byte
	ProjectID  string
}

// ModelConfig is one entry of the external model catalog: its rate-limiting
// category plus optional quota ceilings. The gateway core never enforces
// quotas itself (spec.md §1 Non-goals: "durable rate-limit accounting"), and
// no caller in this repository reads these values: the advertised model set
// comes from catalog.Synthesize over the configured base models.
type ModelConfig struct {
	Category        string
	DailyQuota      *int
	IndividualQuota *int
}

// CredentialPool selects which upstream endpoint and credential a request
// should use. Implementations must be safe for concurrent use: the core
// calls SelectDirect/SelectAlternate once per request, from whatever
// goroutine is handling that request.
type CredentialPool interface {
	SelectDirect(ctx context.Context, tier gwconfig.Tier) (endpoint, apiKey, keyID string, err error)
	SelectAlternate(ctx context.Context) (ServiceAccount, error)
}

// SettingsStore answers the handful of configuration questions the core
// needs per request: which models are known, arbitrary named feature flags,
// and whether a given API key has safety filtering disabled.
type SettingsStore interface {
	GetModelsConfig(ctx context.Context) (map[string]ModelConfig, error)
	GetSetting(ctx context.Context, key string, def interface{}) interface{}
	GetWorkerKeySafetySetting(ctx context.Context, apiKey string) bool
}

// ChatResult is what a proxy returns for one chat-completions call.
// Exactly one of Response or StreamBody is set, matching the stream flag the
// caller passed in. StreamBody yields raw upstream bytes; the caller (package
// server) is responsible for running them through stream.Chunker and
// stream.Translator — proxies never parse their own stream, mirroring
// spec.md §9's "do not rely on a framework-provided JSON stream parser."
type ChatResult struct {
	Response      *gemini.Response
	StreamBody    io.ReadCloser
	SelectedKeyID string
}

// DirectProxy speaks to the direct, API-key-authenticated backend.
type DirectProxy interface {
	ProxyChatCompletions(ctx context.Context, req *gemini.Request, endpoint, apiKey string, stream bool) (ChatResult, error)
	ProxyEmbeddings(ctx context.Context, model string, inputs []string, endpoint, apiKey string) (*gemini.EmbedResponse, error)
	// RecordStreamOutcome reports whether a stream==true ProxyChatCompletions
	// call ultimately succeeded, once the caller has fully drained
	// ChatResult.StreamBody. ProxyChatCompletions itself cannot know this: a
	// mid-stream read failure only becomes visible to the caller, not to the
	// proxy, once the body is being consumed.
	RecordStreamOutcome(ctx context.Context, endpoint string, err error)
}

// AlternateProxy speaks to the service-account-authenticated backend. It is
// gated by its own enablement flag and supported-model list, both read from
// gwconfig at startup (spec.md §6's AlternateProxy.isEnabled()/
// supportedModels()).
type AlternateProxy interface {
	IsEnabled() bool
	SupportedModels() []string
	ProxyChatCompletions(ctx context.Context, req *gemini.Request, model string, stream bool) (ChatResult, error)
}
