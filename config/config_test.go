package config

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-star/ai"
	"github.com/goliatone/go-star/ratelimit"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	require.Equal(t, DriverSQLite, cfg.GetPersistence().GetDriver())
	require.Equal(t, 5*time.Second, cfg.GetPersistence().GetPingTimeout())
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	cases := map[string]func(*BaseConfig){
		"driver":   func(c *BaseConfig) { c.Persistence.Driver = "mysql" },
		"server":   func(c *BaseConfig) { c.Persistence.Server = " " },
		"provider": func(c *BaseConfig) { c.AI.Provider = "gemini" },
		"images":   func(c *BaseConfig) { c.Images.Driver = "ftp" },
		"bucket":   func(c *BaseConfig) { c.Images.Driver = "s3" },
		"limit": func(c *BaseConfig) {
			c.Limits.Policies = map[string]LimitPolicy{"ai": {Limit: 0, Window: time.Minute}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Defaults()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestAIDefaultsFollowProvider(t *testing.T) {
	cfg := Defaults().AI
	openai := cfg.Defaults()
	require.Equal(t, "gpt-4o", openai[ai.SettingModel])
	require.Equal(t, "gpt-4o", openai[ai.SettingVisionModel])
	require.Equal(t, 4000, openai[ai.SettingMaxTokens])
	require.Equal(t, 60*time.Second, openai[ai.SettingTimeout])

	cfg.Provider = "Anthropic"
	claude := cfg.Defaults()
	require.Equal(t, "claude-3-7-sonnet-latest", claude[ai.SettingModel])
	require.NotContains(t, claude, ai.SettingVisionModel)

	cfg.Provider = ProviderNone
	require.Len(t, cfg.Defaults(), 1)
}

func TestAdminEmailList(t *testing.T) {
	auth := AuthConfig{AdminEmails: " boss@example.com, ,lead@example.com "}
	require.Equal(t, []string{"boss@example.com", "lead@example.com"}, auth.AdminEmailList())
	require.Empty(t, AuthConfig{}.AdminEmailList())
}

func TestLimitsOverridePreset(t *testing.T) {
	set, err := LimitsConfig{Policies: map[string]LimitPolicy{
		ratelimit.PresetAI: {Limit: 1, Window: time.Hour},
	}}.Set()
	require.NoError(t, err)
	require.Equal(t, 1, set.Get(ratelimit.PresetAI).Policy().Limit)
	require.Equal(t, 100, set.Get(ratelimit.PresetAPI).Policy().Limit)
	require.True(t, set.Allow(ratelimit.PresetAI, "u1"))
	require.False(t, set.Allow(ratelimit.PresetAI, "u1"))
}

func TestFeaturesGate(t *testing.T) {
	gate := FeaturesConfig{Disabled: []string{" ai.query "}}.Gate()
	ctx := context.Background()

	enabled, err := gate.Enabled(ctx, "ai.query")
	require.NoError(t, err)
	require.False(t, enabled)

	enabled, err = gate.Enabled(ctx, "ai.generate")
	require.NoError(t, err)
	require.True(t, enabled)
}

func TestImagesStoreConfig(t *testing.T) {
	images := ImagesConfig{Driver: "s3", Bucket: "star", Region: "eu-west-1", PathStyle: true}
	store := images.StoreConfig()
	require.Equal(t, "s3", store.Driver)
	require.Equal(t, "star", store.Bucket)
	require.True(t, store.PathStyle)
}
