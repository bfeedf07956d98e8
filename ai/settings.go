package ai

import (
	"fmt"
	"strings"
	"time"

	opts "github.com/goliatone/go-options"
)

// Setting keys understood by Settings.
const (
	SettingModel       = "model"
	SettingVisionModel = "vision_model"
	SettingTemperature = "temperature"
	SettingMaxTokens   = "max_tokens"
	SettingTimeout     = "timeout"
)

// CallSettings are the effective parameters for one provider call.
type CallSettings struct {
	Model       string
	Temperature *float64
	MaxTokens   int
	Timeout     time.Duration
}

// Settings layers call parameters: provider defaults, then the per-operation
// preset, then a per-request override. Later layers win key by key.
type Settings struct {
	defaults map[string]any
	presets  map[string]map[string]any
}

// DefaultPresets returns the built-in per-operation overrides. Every
// operation runs at temperature 0.2 except story generation at 0.7.
func DefaultPresets() map[string]map[string]any {
	out := make(map[string]map[string]any)
	for _, op := range []string{
		OperationEvaluate,
		OperationImprove,
		OperationTextAnalysis,
		OperationImageAnalyze,
		OperationGapAnalysis,
		OperationQuery,
		OperationOptimize,
	} {
		out[op] = map[string]any{SettingTemperature: 0.2}
	}
	out[OperationGenerate] = map[string]any{SettingTemperature: 0.7}
	return out
}

// NewSettings builds a settings resolver. Presets are merged over
// DefaultPresets.
func NewSettings(defaults map[string]any, presets map[string]map[string]any) *Settings {
	merged := DefaultPresets()
	for op, values := range presets {
		layer := merged[op]
		if layer == nil {
			layer = make(map[string]any)
		}
		for k, v := range values {
			layer[k] = v
		}
		merged[op] = layer
	}
	return &Settings{defaults: cloneSettings(defaults), presets: merged}
}

// Resolve returns the effective settings for operation.
func (s *Settings) Resolve(operation string, override map[string]any) (CallSettings, error) {
	defaults := cloneSettings(s.defaults)
	if operation == OperationImageAnalyze {
		if vision, ok := defaults[SettingVisionModel].(string); ok && strings.TrimSpace(vision) != "" {
			defaults[SettingModel] = vision
		}
	}
	layers := []opts.Layer[map[string]any]{
		newSettingsLayer("defaults", "Provider Defaults", opts.ScopePrioritySystem, defaults),
		newSettingsLayer("operation", "Operation Preset", opts.ScopePriorityOrg, cloneSettings(s.presets[operation])),
		newSettingsLayer("request", "Request Override", opts.ScopePriorityUser, cloneSettings(override)),
	}
	stack, err := opts.NewStack(layers...)
	if err != nil {
		return CallSettings{}, err
	}
	merged, err := stack.Merge()
	if err != nil {
		return CallSettings{}, err
	}
	return callSettingsFrom(merged.Value)
}

func newSettingsLayer(name, label string, priority int, payload map[string]any) opts.Layer[map[string]any] {
	if payload == nil {
		payload = make(map[string]any)
	}
	scope := opts.NewScope(name, priority,
		opts.WithScopeLabel(label),
		opts.WithScopeMetadata(map[string]any{"layer": name}))
	return opts.NewLayer(scope, payload, opts.WithSnapshotID[map[string]any](scope.Name))
}

func callSettingsFrom(values map[string]any) (CallSettings, error) {
	var out CallSettings
	if v, ok := values[SettingModel]; ok {
		model, ok := v.(string)
		if !ok {
			return out, fmt.Errorf("ai: setting %s must be a string", SettingModel)
		}
		out.Model = strings.TrimSpace(model)
	}
	if v, ok := values[SettingTemperature]; ok {
		f, err := toFloat(v)
		if err != nil {
			return out, fmt.Errorf("ai: setting %s: %w", SettingTemperature, err)
		}
		out.Temperature = &f
	}
	if v, ok := values[SettingMaxTokens]; ok {
		f, err := toFloat(v)
		if err != nil {
			return out, fmt.Errorf("ai: setting %s: %w", SettingMaxTokens, err)
		}
		out.MaxTokens = int(f)
	}
	if v, ok := values[SettingTimeout]; ok {
		d, err := toDuration(v)
		if err != nil {
			return out, fmt.Errorf("ai: setting %s: %w", SettingTimeout, err)
		}
		out.Timeout = d
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	}
	return 0, fmt.Errorf("unsupported number %T", v)
}

func toDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		return time.ParseDuration(d)
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	return time.Duration(f * float64(time.Second)), nil
}

func cloneSettings(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
