// Package fakes provides in-memory test doubles for the external
// collaborators package upstream declares (CredentialPool, SettingsStore,
// DirectProxy, AlternateProxy). Per spec.md §6 these are consumed
// interfaces, not implemented by the core, so production-grade
// implementations (a replicated credential store, a persistent quota
// tracker) are out of scope — these doubles exist only to exercise the
// server package's wiring in tests.
package fakes

import (
	"context"
	"sync"

	"aigateway/gemini"
	"aigateway/gwconfig"
	"aigateway/upstream"
)

// CredentialPool is a fixed-answer CredentialPool double.
type CredentialPool struct {
	mu sync.Mutex

	DirectEndpoint string
	DirectAPIKey   string
	DirectKeyID    string
	DirectErr      error

	Alternate    upstream.ServiceAccount
	AlternateErr error

	Calls int
}

// SelectDirect returns the configured fixed answer, incrementing Calls.
func (f *CredentialPool) SelectDirect(ctx context.Context, tier gwconfig.Tier) (string, string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.DirectErr != nil {
		return "", "", "", f.DirectErr
	}
	return f.DirectEndpoint, f.DirectAPIKey, f.DirectKeyID, nil
}

// SelectAlternate returns the configured fixed service account.
func (f *CredentialPool) SelectAlternate(ctx context.Context) (upstream.ServiceAccount, error) {
	if f.AlternateErr != nil {
		return upstream.ServiceAccount{}, f.AlternateErr
	}
	return f.Alternate, nil
}

// SettingsStore is a fixed-answer SettingsStore double.
type SettingsStore struct {
	mu sync.Mutex

	Models            map[string]upstream.ModelConfig
	Settings          map[string]interface{}
	SafetyDisabledFor map[string]bool
}

// NewSettingsStore returns an empty, ready-to-use SettingsStore double.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{
		Models:            map[string]upstream.ModelConfig{},
		Settings:          map[string]interface{}{},
		SafetyDisabledFor: map[string]bool{},
	}
}

// GetModelsConfig returns the fixed model map.
func (f *SettingsStore) GetModelsConfig(ctx context.Context) (map[string]upstream.ModelConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Models, nil
}

// GetSetting returns the fixed setting for key, or def if unset.
func (f *SettingsStore) GetSetting(ctx context.Context, key string, def interface{}) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.Settings[key]; ok {
		return v
	}
	return def
}

// GetWorkerKeySafetySetting reports whether apiKey has safety filtering
// disabled, defaulting to false (safety on) for unknown keys.
func (f *SettingsStore) GetWorkerKeySafetySetting(ctx context.Context, apiKey string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.SafetyDisabledFor[apiKey]
}

// DirectProxy is a scripted DirectProxy double: each call consumes the next
// queued result (or repeats the last one if the queue is exhausted).
type DirectProxy struct {
	mu      sync.Mutex
	Results []upstream.ChatResult
	Errs    []error
	calls   int

	EmbedResult *gemini.EmbedResponse
	EmbedErr    error

	// StreamOutcomes records every RecordStreamOutcome call (endpoint, err),
	// in order, so tests can assert the server reported a streamed call's
	// final status instead of silently dropping it.
	StreamOutcomes []StreamOutcome
}

// StreamOutcome is one recorded RecordStreamOutcome call.
type StreamOutcome struct {
	Endpoint string
	Err      error
}

// ProxyChatCompletions returns the next scripted result/error pair.
func (f *DirectProxy) ProxyChatCompletions(ctx context.Context, req *gemini.Request, endpoint, apiKey string, stream bool) (upstream.ChatResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	maxLen := len(f.Results)
	if len(f.Errs) > maxLen {
		maxLen = len(f.Errs)
	}
	if i >= maxLen {
		i = maxLen - 1
	}
	var res upstream.ChatResult
	var err error
	if i >= 0 && i < len(f.Results) {
		res = f.Results[i]
	}
	if i >= 0 && i < len(f.Errs) {
		err = f.Errs[i]
	}
	return res, err
}

// ProxyEmbeddings returns the fixed embedding result/error.
func (f *DirectProxy) ProxyEmbeddings(ctx context.Context, model string, inputs []string, endpoint, apiKey string) (*gemini.EmbedResponse, error) {
	return f.EmbedResult, f.EmbedErr
}

// RecordStreamOutcome appends to StreamOutcomes for later assertion.
func (f *DirectProxy) RecordStreamOutcome(ctx context.Context, endpoint string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StreamOutcomes = append(f.StreamOutcomes, StreamOutcome{Endpoint: endpoint, Err: err})
}

// AlternateProxy is a scripted AlternateProxy double.
type AlternateProxy struct {
	Enabled bool
	Models  []string
	Result  upstream.ChatResult
	Err     error
}

// IsEnabled reports the fixed enablement flag.
func (f *AlternateProxy) IsEnabled() bool { return f.Enabled }

// SupportedModels returns the fixed model list.
func (f *AlternateProxy) SupportedModels() []string { return f.Models }

// ProxyChatCompletions returns the fixed result/error.
func (f *AlternateProxy) ProxyChatCompletions(ctx context.Context, req *gemini.Request, model string, stream bool) (upstream.ChatResult, error) {
	return f.Result, f.Err
}
