package main

import (
	"context"

	"aigateway/gwconfig"
	"aigateway/upstream"
)

// configCredentialPool adapts *gwconfig.Config to upstream.CredentialPool.
// It is the thin, in-process stand-in spec.md §6 allows for a real
// credential pool (replicated storage, per-key rotation across a fleet) —
// out of scope per spec.md §1 Non-goals, but main still needs something
// concrete to hand the server.
type configCredentialPool struct {
	cfg              *gwconfig.Config
	alternateAccount upstream.ServiceAccount
}

func (p *configCredentialPool) SelectDirect(ctx context.Context, tier gwconfig.Tier) (string, string, string, error) {
	endpoint := p.cfg.EndpointFor(ctx, tier)
	return endpoint, p.cfg.APIKeyFor(tier), endpoint, nil
}

func (p *configCredentialPool) SelectAlternate(ctx context.Context) (upstream.ServiceAccount, error) {
	return p.alternateAccount, nil
}

// configSettingsStore adapts *gwconfig.Config to upstream.SettingsStore.
type configSettingsStore struct {
	cfg *gwconfig.Config
}

func (s *configSettingsStore) GetModelsConfig(ctx context.Context) (map[string]upstream.ModelConfig, error) {
	return map[string]upstream.ModelConfig{}, nil
}

func (s *configSettingsStore) GetSetting(ctx context.Context, key string, def interface{}) interface{} {
	return s.cfg.GetSetting(key, def)
}

func (s *configSettingsStore) GetWorkerKeySafetySetting(ctx context.Context, apiKey string) bool {
	return s.cfg.SafetyDisabledFor(apiKey)
}
