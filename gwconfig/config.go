// Package gwconfig loads gateway configuration from a .env file (via
// github.com/joho/godotenv, the loader NeboLoop-nebo uses) plus optional
// YAML override files (gopkg.in/yaml.v3, matching the teacher's
// tools_override.yaml/system_overrides.yaml pattern in config/config.go).
// Config's getters follow the teacher's config.Config (GetBigModelEndpoint,
// GetSetting, ...), generalized from "BIG_MODEL"/"SMALL_MODEL" tiers to the
// direct backend's endpoint tiers: EndpointFor/APIKeyFor take a Tier, and
// GetSetting, SafetyDisabledFor and DescriptionFor cover the rest.
package gwconfig

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"aigateway/circuitbreaker"
)

// Tier names one of the direct backend's endpoint pools.
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierSecondary Tier = "secondary"
)

// Config is the gateway's runtime configuration, safe for concurrent reads;
// endpoint-rotation state is guarded by mutex the same way the teacher's
// Config protects bigModelIndex/smallModelIndex.
type Config struct {
	Port string

	SearchEnabled    bool
	AlternateEnabled bool
	KeepAliveEnabled bool

	DefaultConnectionTimeout int

	// DirectRatePerSecond soft-caps outbound requests per direct-tier
	// endpoint (0 disables limiting).
	DirectRatePerSecond float64

	// ModelDescriptionsOverrideFile is the path watched for hot-reload, set
	// whenever MODEL_DESCRIPTIONS_OVERRIDE_FILE is provided.
	ModelDescriptionsOverrideFile string

	PrimaryEndpoints   []string
	SecondaryEndpoints []string
	PrimaryAPIKey      string
	SecondaryAPIKey    string

	AlternateSupportedModels []string

	// SafetyDisabledKeys holds the API keys that requested safety filtering
	// be turned off, keyed by the key value itself for O(1) lookup.
	SafetyDisabledKeys map[string]bool

	// ModelDescriptionOverrides is loaded from an optional YAML file the
	// same way the teacher loads tools_override.yaml.
	ModelDescriptionOverrides map[string]string

	HealthManager *circuitbreaker.HealthManager

	mutex           sync.Mutex
	primaryIndex    int
	secondaryIndex  int
}

// Default returns a Config with conservative defaults and no endpoints
// configured, used by tests and as the base LoadFromEnv builds on.
func Default() *Config {
	return &Config{
		Port:                      "8080",
		KeepAliveEnabled:          true,
		DefaultConnectionTimeout:  30,
		SafetyDisabledKeys:        map[string]bool{},
		ModelDescriptionOverrides: map[string]string{},
		HealthManager:             circuitbreaker.NewHealthManager(circuitbreaker.DefaultConfig()),
	}
}

// LoadFromEnv loads .env (required, matching the teacher's "configuration
// is required" posture) plus optional YAML overrides, returning a fully
// populated Config.
func LoadFromEnv(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf(".env file is required for configuration: %w", err)
	}

	cfg := Default()

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.SearchEnabled = envBool("SEARCH_ENABLED", false)
	cfg.AlternateEnabled = envBool("ALTERNATE_ENABLED", false)
	cfg.KeepAliveEnabled = envBool("KEEPALIVE_ENABLED", true)
	cfg.DefaultConnectionTimeout = envInt("DEFAULT_CONNECTION_TIMEOUT", cfg.DefaultConnectionTimeout)
	cfg.DirectRatePerSecond = envFloat("DIRECT_RATE_LIMIT_PER_SECOND", 0)

	cfg.PrimaryEndpoints = splitCSV(os.Getenv("PRIMARY_MODEL_ENDPOINT"))
	if len(cfg.PrimaryEndpoints) == 0 {
		return nil, fmt.Errorf("PRIMARY_MODEL_ENDPOINT must be set in .env file")
	}
	cfg.SecondaryEndpoints = splitCSV(os.Getenv("SECONDARY_MODEL_ENDPOINT"))
	cfg.PrimaryAPIKey = os.Getenv("PRIMARY_API_KEY")
	cfg.SecondaryAPIKey = os.Getenv("SECONDARY_API_KEY")
	cfg.AlternateSupportedModels = splitCSV(os.Getenv("ALTERNATE_SUPPORTED_MODELS"))
	for _, key := range splitCSV(os.Getenv("SAFETY_DISABLED_API_KEYS")) {
		cfg.SafetyDisabledKeys[key] = true
	}

	cfg.HealthManager.InitializeEndpoints(append(append([]string{}, cfg.PrimaryEndpoints...), cfg.SecondaryEndpoints...))

	if overridesPath := os.Getenv("MODEL_DESCRIPTIONS_OVERRIDE_FILE"); overridesPath != "" {
		overrides, err := loadModelDescriptionOverrides(overridesPath)
		if err != nil {
			return nil, fmt.Errorf("loading model description overrides: %w", err)
		}
		cfg.ModelDescriptionOverrides = overrides
		cfg.ModelDescriptionsOverrideFile = overridesPath
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

type modelDescriptionsYAML struct {
	Descriptions map[string]string `yaml:"descriptions"`
}

func loadModelDescriptionOverrides(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var parsed modelDescriptionsYAML
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	if parsed.Descriptions == nil {
		return map[string]string{}, nil
	}
	return parsed.Descriptions, nil
}

// EndpointFor returns the next endpoint in tier's rotation, skipping
// circuit-broken endpoints via HealthManager. Both tiers route through the
// same health check: spec.md never distinguishes a tier that should bypass
// breaker logic, so unlike the teacher's GetSmallModelEndpoint/
// GetBigModelEndpoint split, primary and secondary are treated symmetrically
// here. HealthManager.ReorderBySuccess runs first so a tier that has been
// failing quietly migrates its better-performing endpoints to the front of
// the rotation before SelectHealthyEndpoint walks it.
func (c *Config) EndpointFor(ctx context.Context, tier Tier) string {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	switch tier {
	case TierPrimary:
		if len(c.PrimaryEndpoints) == 0 {
			return ""
		}
		c.HealthManager.ReorderBySuccess(ctx, c.PrimaryEndpoints, string(TierPrimary))
		return c.HealthManager.SelectHealthyEndpoint(ctx, c.PrimaryEndpoints, &c.primaryIndex)
	case TierSecondary:
		if len(c.SecondaryEndpoints) == 0 {
			return ""
		}
		c.HealthManager.ReorderBySuccess(ctx, c.SecondaryEndpoints, string(TierSecondary))
		return c.HealthManager.SelectHealthyEndpoint(ctx, c.SecondaryEndpoints, &c.secondaryIndex)
	default:
		return ""
	}
}

// DescriptionFor returns the override description for modelID, reloaded
// live by WatchModelDescriptions whenever the backing YAML file changes.
func (c *Config) DescriptionFor(modelID string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	d, ok := c.ModelDescriptionOverrides[modelID]
	return d, ok
}

// APIKeyFor returns the configured API key for tier.
func (c *Config) APIKeyFor(tier Tier) string {
	switch tier {
	case TierPrimary:
		return c.PrimaryAPIKey
	case TierSecondary:
		return c.SecondaryAPIKey
	default:
		return ""
	}
}

// SafetyDisabledFor reports whether apiKey has requested safety filtering be
// turned off, the per-key setting the keep-alive pump's gating condition
// (spec.md §4.F) consults.
func (c *Config) SafetyDisabledFor(apiKey string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.SafetyDisabledKeys[apiKey]
}

// GetSetting is a narrow generic accessor mirroring the teacher's
// Config.GetSetting(key, default), used by components that only need a
// single named knob rather than a dedicated typed getter.
func (c *Config) GetSetting(key string, def interface{}) interface{} {
	switch key {
	case "search_enabled":
		return c.SearchEnabled
	case "alternate_enabled":
		return c.AlternateEnabled
	case "keepalive_enabled":
		return c.KeepAliveEnabled
	default:
		return def
	}
}
