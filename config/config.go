// Package config holds the process configuration for starctl and any host
// that embeds the STAR services.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-star/ai"
	"github.com/goliatone/go-star/imagestore"
	"github.com/goliatone/go-star/ratelimit"
)

// Supported persistence drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Supported AI providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

// BaseConfig holds all configuration sections.
type BaseConfig struct {
	Persistence PersistenceConfig `json:"persistence"`
	AI          AIConfig          `json:"ai"`
	Auth        AuthConfig        `json:"auth"`
	Limits      LimitsConfig      `json:"limits"`
	Images      ImagesConfig      `json:"images"`
	Features    FeaturesConfig    `json:"features"`
	Metrics     MetricsConfig     `json:"metrics"`
}

// PersistenceConfig implements persistence.Config interface
type PersistenceConfig struct {
	Debug          bool          `json:"debug" env:"DB_DEBUG" default:"false"`
	Driver         string        `json:"driver" env:"DB_DRIVER" default:"sqlite"`
	Server         string        `json:"server" env:"DB_SERVER" default:"file:star.db?_journal_mode=WAL&cache=shared&_fk=1"`
	PingTimeout    time.Duration `json:"ping_timeout" default:"5s"`
	OtelIdentifier string        `json:"otel_identifier" default:"go-star"`
}

func (c PersistenceConfig) GetDebug() bool                { return c.Debug }
func (c PersistenceConfig) GetDriver() string             { return c.Driver }
func (c PersistenceConfig) GetServer() string             { return c.Server }
func (c PersistenceConfig) GetPingTimeout() time.Duration { return c.PingTimeout }
func (c PersistenceConfig) GetOtelIdentifier() string     { return c.OtelIdentifier }

// AIConfig selects the completion provider and its credentials.
type AIConfig struct {
	Provider   string        `json:"provider" env:"AI_PROVIDER" default:"openai"`
	Timeout    time.Duration `json:"timeout" env:"AI_TIMEOUT" default:"60s"`
	MaxRetries int           `json:"max_retries" default:"2"`
	OpenAI     OpenAIConfig  `json:"openai"`
	Anthropic  ClaudeConfig  `json:"anthropic"`
}

// OpenAIConfig configures the OpenAI adapter. BaseURL points the client at
// Azure or any compatible endpoint.
type OpenAIConfig struct {
	APIKey      string `json:"api_key" env:"OPENAI_API_KEY"`
	BaseURL     string `json:"base_url" env:"OPENAI_BASE_URL"`
	Model       string `json:"model" env:"OPENAI_MODEL" default:"gpt-4o"`
	VisionModel string `json:"vision_model" env:"OPENAI_VISION_MODEL" default:"gpt-4o"`
	MaxTokens   int    `json:"max_tokens" default:"4000"`
}

// ClaudeConfig configures the Anthropic adapter.
type ClaudeConfig struct {
	APIKey    string `json:"api_key" env:"ANTHROPIC_API_KEY"`
	BaseURL   string `json:"base_url" env:"ANTHROPIC_BASE_URL"`
	Model     string `json:"model" env:"ANTHROPIC_MODEL" default:"claude-3-7-sonnet-latest"`
	MaxTokens int    `json:"max_tokens" default:"4000"`
}

// Defaults returns the provider-level call defaults fed into ai.NewSettings.
func (c AIConfig) Defaults() map[string]any {
	out := map[string]any{}
	if c.Timeout > 0 {
		out[ai.SettingTimeout] = c.Timeout
	}
	switch c.provider() {
	case ProviderOpenAI:
		setIf(out, ai.SettingModel, c.OpenAI.Model)
		setIf(out, ai.SettingVisionModel, c.OpenAI.VisionModel)
		if c.OpenAI.MaxTokens > 0 {
			out[ai.SettingMaxTokens] = c.OpenAI.MaxTokens
		}
	case ProviderAnthropic:
		setIf(out, ai.SettingModel, c.Anthropic.Model)
		if c.Anthropic.MaxTokens > 0 {
			out[ai.SettingMaxTokens] = c.Anthropic.MaxTokens
		}
	}
	return out
}

func (c AIConfig) provider() string {
	return strings.ToLower(strings.TrimSpace(c.Provider))
}

// AuthConfig carries the admin bootstrap list for single sign-on sync.
type AuthConfig struct {
	AdminEmails string `json:"admin_emails" env:"ADMIN_EMAILS"`
}

// AdminEmailList splits AdminEmails on commas, dropping blanks.
func (c AuthConfig) AdminEmailList() []string {
	var out []string
	for _, part := range strings.Split(c.AdminEmails, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LimitPolicy overrides one rate limit preset.
type LimitPolicy struct {
	Limit  int           `json:"limit"`
	Window time.Duration `json:"window"`
}

// LimitsConfig overrides the built-in rate limit presets by name.
type LimitsConfig struct {
	Policies map[string]LimitPolicy `json:"policies"`
}

// Set builds the limiter set.
func (c LimitsConfig) Set() (*ratelimit.Set, error) {
	overrides := make(map[string]ratelimit.Policy, len(c.Policies))
	for name, policy := range c.Policies {
		overrides[name] = ratelimit.Policy{Limit: policy.Limit, Window: policy.Window}
	}
	return ratelimit.NewSet(overrides, nil)
}

// ImagesConfig selects the case-study image store.
type ImagesConfig struct {
	Driver    string `json:"driver" env:"IMAGES_DRIVER" default:"fs"`
	Root      string `json:"root" env:"IMAGES_ROOT" default:"./uploads"`
	Bucket    string `json:"bucket" env:"IMAGES_BUCKET"`
	Region    string `json:"region" env:"IMAGES_REGION"`
	Endpoint  string `json:"endpoint" env:"IMAGES_ENDPOINT"`
	PathStyle bool   `json:"path_style" env:"IMAGES_PATH_STYLE"`
}

// StoreConfig maps the section onto imagestore.Config.
func (c ImagesConfig) StoreConfig() imagestore.Config {
	return imagestore.Config{
		Driver:    c.Driver,
		Root:      c.Root,
		Bucket:    c.Bucket,
		Region:    c.Region,
		Endpoint:  c.Endpoint,
		PathStyle: c.PathStyle,
	}
}

// FeaturesConfig lists feature keys that are switched off for everyone.
type FeaturesConfig struct {
	Disabled []string `json:"disabled"`
}

// Gate returns a static gate honouring Disabled.
func (c FeaturesConfig) Gate() featuregate.FeatureGate {
	off := make(map[string]bool, len(c.Disabled))
	for _, key := range c.Disabled {
		if key = strings.TrimSpace(key); key != "" {
			off[key] = true
		}
	}
	return staticGate{disabled: off}
}

type staticGate struct {
	disabled map[string]bool
}

func (g staticGate) Enabled(_ context.Context, key string, _ ...featuregate.ResolveOption) (bool, error) {
	return !g.disabled[key], nil
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Address string `json:"address" env:"METRICS_ADDRESS" default:":9090"`
	Path    string `json:"path" default:"/metrics"`
}

// GetPersistence returns persistence config
func (c *BaseConfig) GetPersistence() persistence.Config {
	return c.Persistence
}

// Validate implements config.Validable interface
func (c *BaseConfig) Validate() error {
	switch strings.ToLower(c.Persistence.Driver) {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("config: unknown persistence driver %q", c.Persistence.Driver)
	}
	if strings.TrimSpace(c.Persistence.Server) == "" {
		return fmt.Errorf("config: persistence server required")
	}
	switch c.AI.provider() {
	case ProviderOpenAI, ProviderAnthropic, ProviderNone, "":
	default:
		return fmt.Errorf("config: unknown ai provider %q", c.AI.Provider)
	}
	switch strings.ToLower(strings.TrimSpace(c.Images.Driver)) {
	case "", imagestore.DriverFilesystem:
	case imagestore.DriverS3:
		if strings.TrimSpace(c.Images.Bucket) == "" {
			return fmt.Errorf("config: images bucket required for s3")
		}
	default:
		return fmt.Errorf("config: unknown images driver %q", c.Images.Driver)
	}
	for name, policy := range c.Limits.Policies {
		if policy.Limit <= 0 || policy.Window <= 0 {
			return fmt.Errorf("config: limit policy %q needs a positive limit and window", name)
		}
	}
	return nil
}

// Defaults returns a BaseConfig populated with the built-in defaults, the
// starting point handed to the go-config loader.
func Defaults() *BaseConfig {
	return &BaseConfig{
		Persistence: PersistenceConfig{
			Driver:         DriverSQLite,
			Server:         "file:star.db?_journal_mode=WAL&cache=shared&_fk=1",
			PingTimeout:    5 * time.Second,
			OtelIdentifier: "go-star",
		},
		AI: AIConfig{
			Provider:   ProviderOpenAI,
			Timeout:    60 * time.Second,
			MaxRetries: 2,
			OpenAI: OpenAIConfig{
				Model:       "gpt-4o",
				VisionModel: "gpt-4o",
				MaxTokens:   4000,
			},
			Anthropic: ClaudeConfig{
				Model:     "claude-3-7-sonnet-latest",
				MaxTokens: 4000,
			},
		},
		Images: ImagesConfig{
			Driver: imagestore.DriverFilesystem,
			Root:   "./uploads",
		},
		Metrics: MetricsConfig{
			Address: ":9090",
			Path:    "/metrics",
		},
	}
}

func setIf(m map[string]any, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		m[key] = value
	}
}
