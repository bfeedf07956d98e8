// Package ai turns stories and competencies into prompts, calls a text or
// vision model through a Provider and parses the reply into structured
// results. Every operation reports failure through the result's Error field
// instead of a Go error.
package ai

import (
	"context"
)

// Operation names. They double as audit actions and metric labels.
const (
	OperationGenerate     = "generate_story"
	OperationEvaluate     = "evaluate_story"
	OperationImprove      = "improve_story"
	OperationTextAnalysis = "text_analysis"
	OperationImageAnalyze = "image_analysis"
	OperationGapAnalysis  = "gap_analysis"
	OperationQuery        = "general_query"
	OperationOptimize     = "optimize_prompt"
)

// Image is an inline image attached to a request.
type Image struct {
	ContentType string
	Data        []byte
}

// Request is a single completion call.
type Request struct {
	Operation   string
	System      string
	Prompt      string
	Model       string
	// Temperature is nil when no layer set one; the provider default applies.
	Temperature *float64
	MaxTokens   int
	// JSON asks the provider for a JSON object reply. Providers that cannot
	// honour it ignore the flag.
	JSON   bool
	Images []Image
}

// Response carries the provider reply text.
type Response struct {
	Text  string
	Model string
}

// Provider is an external text generation service.
type Provider interface {
	Name() string
	SupportsStructured() bool
	SupportsVision() bool
	Complete(ctx context.Context, req Request) (Response, error)
}
