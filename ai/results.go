package ai

// StoryComponents holds the title and the four STAR narrative fields.
type StoryComponents struct {
	Title     string `json:"title"`
	Situation string `json:"situation"`
	Task      string `json:"task"`
	Action    string `json:"action"`
	Result    string `json:"result"`
}

// Get returns the named STAR component.
func (c StoryComponents) Get(component string) string {
	switch component {
	case "title":
		return c.Title
	case "situation":
		return c.Situation
	case "task":
		return c.Task
	case "action":
		return c.Action
	case "result":
		return c.Result
	}
	return ""
}

// Set assigns the named STAR component.
func (c *StoryComponents) Set(component, value string) {
	switch component {
	case "title":
		c.Title = value
	case "situation":
		c.Situation = value
	case "task":
		c.Task = value
	case "action":
		c.Action = value
	case "result":
		c.Result = value
	}
}

// GenerateResult is the outcome of GenerateStory.
type GenerateResult struct {
	RequestID  string
	Story      StoryComponents
	Raw        string
	Structured bool
	Error      string
}

// Failed reports whether the call degraded to an error.
func (r GenerateResult) Failed() bool { return r.Error != "" }

// Scores are 1-5 ratings per evaluation category.
type Scores struct {
	Completeness float64 `json:"completeness"`
	Clarity      float64 `json:"clarity"`
	Relevance    float64 `json:"relevance"`
	Impact       float64 `json:"impact"`
	Storytelling float64 `json:"storytelling"`
	Overall      float64 `json:"overall"`
}

// EvaluationResult is the outcome of EvaluateStory.
type EvaluationResult struct {
	RequestID   string
	Evaluation  string
	Scores      Scores
	Suggestions map[string]string
	Structured  bool
	Error       string
}

// Failed reports whether the call degraded to an error.
func (r EvaluationResult) Failed() bool { return r.Error != "" }

// ImprovementResult is the outcome of ImproveStory. Improved falls back to
// the original text for any component the reply did not rewrite.
type ImprovementResult struct {
	RequestID   string
	Original    StoryComponents
	Improved    StoryComponents
	Suggestions map[string]string
	Feedback    string
	Error       string
}

// Failed reports whether the call degraded to an error.
func (r ImprovementResult) Failed() bool { return r.Error != "" }

// Alignment describes how strongly an analysis relates to a competency.
// Mentions and Relevant come from the heuristic path, Relevance and
// Justification from structured replies.
type Alignment struct {
	Mentions      int     `json:"mentions,omitempty"`
	Relevant      bool    `json:"relevant"`
	Relevance     float64 `json:"relevance,omitempty"`
	Justification string  `json:"justification,omitempty"`
}

// AnalysisResult is the outcome of AnalyzeText and AnalyzeImage.
type AnalysisResult struct {
	RequestID       string
	ExtractedText   string
	Analysis        string
	Alignment       map[string]Alignment
	Recommendations []string
	Structured      bool
	Error           string
}

// Failed reports whether the call degraded to an error.
func (r AnalysisResult) Failed() bool { return r.Error != "" }

// GapCompetency is one entry of a gap analysis.
type GapCompetency struct {
	Name          string   `json:"name"`
	CoverageScore float64  `json:"coverage_score"`
	Assessment    string   `json:"assessment"`
	Suggestions   []string `json:"suggestions,omitempty"`
}

// GapAnalysisResult is the outcome of PerformGapAnalysis.
type GapAnalysisResult struct {
	RequestID      string
	Summary        string
	Covered        []GapCompetency
	Gaps           []GapCompetency
	Priorities     []string
	Structured     bool
	Error          string
	Recommendation string
}

// Failed reports whether the call degraded to an error.
func (r GapAnalysisResult) Failed() bool { return r.Error != "" }

// QueryResult is the outcome of AnswerQuery.
type QueryResult struct {
	RequestID string
	Response  string
	Error     string
}

// Failed reports whether the call degraded to an error.
func (r QueryResult) Failed() bool { return r.Error != "" }

// PromptResult is the outcome of OptimizePrompt. Optimized equals Original
// when the call failed.
type PromptResult struct {
	RequestID string
	Original  string
	Optimized string
	Error     string
}

// Failed reports whether the call degraded to an error.
func (r PromptResult) Failed() bool { return r.Error != "" }
