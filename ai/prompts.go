package ai

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-star/pkg/types"
)

const (
	systemAnalyzeText  = "You are an expert in analyzing business content and aligning it with competency frameworks."
	systemAnalyzeImage = "You are an expert in analyzing visual content and aligning it with competency frameworks."
	systemEvaluate     = "You are an expert in evaluating STAR method stories and providing constructive feedback."
	systemGenerate     = "You are an expert in creating compelling STAR method stories that demonstrate professional competencies."
	systemGap          = "You are an expert in competency frameworks and gap analysis."
	systemQuery        = "You are a helpful coach for competency frameworks and the STAR method."
	systemOptimize     = "You are a prompt engineering expert."
)

const generateJSONShape = `Provide your response in the following JSON format:
{
    "title": "Title of the STAR story",
    "situation": "Detailed situation description",
    "task": "Detailed task description",
    "action": "Detailed action description",
    "result": "Detailed result description"
}`

const evaluateJSONShape = `Provide your response in the following JSON format:
{
    "evaluation": "Detailed evaluation text here",
    "scores": {
        "completeness": 4.5,
        "clarity": 3.8,
        "relevance": 4.2,
        "impact": 3.5,
        "storytelling": 4.0,
        "overall": 4.0
    },
    "improvement_suggestions": {
        "situation": "Suggestion for improving the situation component",
        "task": "Suggestion for improving the task component",
        "action": "Suggestion for improving the action component",
        "result": "Suggestion for improving the result component"
    }
}`

const improveJSONShape = `Provide your response in the following JSON format:
{
    "feedback": "Overall feedback on the story",
    "improvement_suggestions": {
        "situation": "Suggestion for improving the situation component",
        "task": "Suggestion for improving the task component",
        "action": "Suggestion for improving the action component",
        "result": "Suggestion for improving the result component"
    },
    "improved": {
        "situation": "Rewritten situation",
        "task": "Rewritten task",
        "action": "Rewritten action",
        "result": "Rewritten result"
    }
}`

const analysisJSONShape = `Provide your response in the following JSON format:
{
    %s"analysis": "Detailed analysis text here",
    "competency_alignment": {
        "CompetencyName1": {"relevance": 0.9, "justification": "Why this competency is relevant"},
        "CompetencyName2": {"relevance": 0.7, "justification": "Why this competency is relevant"}
    },
    "recommendations": ["Recommendation 1", "Recommendation 2"]
}`

const gapJSONShape = `Provide your response in the following JSON format:
{
    "summary": "Overall summary of the gap analysis",
    "covered_competencies": [
        {
            "name": "Competency name",
            "coverage_score": 0.9,
            "assessment": "Assessment of how well this competency is covered"
        }
    ],
    "gap_competencies": [
        {
            "name": "Competency name",
            "coverage_score": 0.2,
            "assessment": "Assessment of the gap",
            "suggestions": ["Suggestion 1", "Suggestion 2"]
        }
    ],
    "recommended_priorities": ["Priority 1", "Priority 2", "Priority 3"]
}`

// GenerateStoryPrompt asks for a first-person STAR story demonstrating
// competency, optionally grounded in the caller's experience.
func GenerateStoryPrompt(competency types.Competency, experience string, structured bool) string {
	var b strings.Builder
	b.WriteString("Please generate a high-quality STAR (Situation, Task, Action, Result) story that demonstrates the following competency:\n\n")
	fmt.Fprintf(&b, "Competency: %s\nDescription: %s\n\n", competency.Name, competency.Description)
	if experience = strings.TrimSpace(experience); experience != "" {
		fmt.Fprintf(&b, "Use this context/experience when creating the story:\n%s\n\n", experience)
	}
	b.WriteString("The story should:\n")
	b.WriteString("1. Be specific and detailed\n")
	b.WriteString("2. Clearly demonstrate the competency\n")
	b.WriteString("3. Show measurable results\n")
	b.WriteString("4. Be structured in the STAR format\n")
	b.WriteString("5. Be written in first person\n\n")
	if structured {
		b.WriteString(generateJSONShape)
	} else {
		b.WriteString("Please structure your response with clear headers for Title, Situation, Task, Action, and Result.")
	}
	return b.String()
}

// EvaluateStoryPrompt asks for feedback on a story, optionally against the
// competency it should demonstrate.
func EvaluateStoryPrompt(story types.Story, competency *types.Competency, structured bool) string {
	var b strings.Builder
	b.WriteString("Please evaluate this STAR (Situation, Task, Action, Result) story and provide feedback on:\n\n")
	b.WriteString("1. Completeness and clarity of each STAR component\n")
	b.WriteString("2. Effectiveness in demonstrating the relevant skills and behaviors\n")
	b.WriteString("3. Impact and measurability of the results\n")
	b.WriteString("4. Overall storytelling and persuasiveness\n")
	b.WriteString("5. Areas for improvement\n\n")
	writeCompetencyContext(&b, competency, "")
	writeStory(&b, story)
	if structured {
		b.WriteString("\n")
		b.WriteString(evaluateJSONShape)
	} else {
		b.WriteString("\nRate each of completeness, clarity, relevance, impact and storytelling on its own line as \"Name: n/5\".")
	}
	return b.String()
}

// ImproveStoryPrompt asks for per-component suggestions and rewrites.
func ImproveStoryPrompt(story types.Story, competency *types.Competency, structured bool) string {
	var b strings.Builder
	b.WriteString("Please suggest specific improvements for each component of this STAR (Situation, Task, Action, Result) story.\n")
	b.WriteString("Focus on making the story more compelling, specific, and effective for demonstrating skills in a professional context.\n\n")
	writeCompetencyContext(&b, competency, "Please ensure your suggestions help align the story better with this competency.\n")
	writeStory(&b, story)
	b.WriteString("\n")
	if structured {
		b.WriteString(improveJSONShape)
		return b.String()
	}
	b.WriteString("For each component (Situation, Task, Action, Result), please provide:\n")
	b.WriteString("1. Specific suggestions for improvement\n")
	b.WriteString("2. Example text showing how it could be rewritten\n\n")
	b.WriteString("Structure your response with clear headers for each STAR component and separate the suggestions from the examples.")
	return b.String()
}

// AnalyzeTextPrompt asks for an analysis of free text against competencies.
func AnalyzeTextPrompt(text string, competencies []types.Competency, structured bool) string {
	var b strings.Builder
	b.WriteString("Analyze this content with focus on the following:\n\n")
	b.WriteString("1. Key issues and challenges presented\n")
	b.WriteString("2. Potential solutions and their pros/cons\n")
	b.WriteString("3. Recommended approach and implementation steps\n\n")
	writeCompetencyList(&b, "Consider the following competencies in your analysis:\n", competencies)
	b.WriteString("Please be specific about which competencies are most relevant for addressing this and why.\n\n")
	fmt.Fprintf(&b, "Content to analyze:\n%s\n", text)
	if structured {
		b.WriteString("\n")
		fmt.Fprintf(&b, analysisJSONShape, "")
	}
	return b.String()
}

// AnalyzeImagePrompt asks a vision model to read and analyze an image.
func AnalyzeImagePrompt(competencies []types.Competency, structured bool) string {
	var b strings.Builder
	b.WriteString("Analyze this image with focus on extracting and understanding any text or diagrams visible.\n\n")
	writeCompetencyList(&b, "Consider the following competencies in your analysis:\n", competencies)
	b.WriteString("Please be specific about which competencies are most relevant for addressing this and why.\n")
	if structured {
		b.WriteString("\n")
		fmt.Fprintf(&b, analysisJSONShape, "\"extracted_text\": \"Text visible in the image\",\n    ")
	}
	return b.String()
}

// GapAnalysisPrompt serialises every story and every competency into a single
// request. Stories are numbered from 1 and list title, competency name and the
// four components; competencies list name and description.
func GapAnalysisPrompt(stories []types.Story, competencies []types.Competency, structured bool) string {
	var b strings.Builder
	b.WriteString("Please perform a gap analysis between the user's STAR stories and the competency framework.\n\n")
	b.WriteString(SerializeStories(stories))
	b.WriteString("\n")
	b.WriteString(SerializeCompetencies(competencies))
	b.WriteString("\nAnalyze:\n")
	b.WriteString("1. Which competencies are well-covered by existing stories\n")
	b.WriteString("2. Which competencies are partially covered but need strengthening\n")
	b.WriteString("3. Which competencies are completely missing or inadequately demonstrated\n")
	b.WriteString("4. Suggestions for developing stories to fill the gaps\n")
	if structured {
		b.WriteString("\n")
		b.WriteString(gapJSONShape)
	}
	return b.String()
}

// SerializeStories renders the "User's STAR Stories" block of the gap
// analysis prompt.
func SerializeStories(stories []types.Story) string {
	var b strings.Builder
	b.WriteString("User's STAR Stories:\n")
	for i, story := range stories {
		title := story.Title
		if strings.TrimSpace(title) == "" {
			title = "Untitled"
		}
		competency := story.CompetencyName
		if competency == "" {
			competency = "No competency"
		}
		fmt.Fprintf(&b, "\nStory %d: %s\n", i+1, title)
		fmt.Fprintf(&b, "Competency: %s\n", competency)
		fmt.Fprintf(&b, "Situation: %s\n", orNotProvided(story.Situation))
		fmt.Fprintf(&b, "Task: %s\n", orNotProvided(story.Task))
		fmt.Fprintf(&b, "Action: %s\n", orNotProvided(story.Action))
		fmt.Fprintf(&b, "Result: %s\n", orNotProvided(story.Result))
	}
	return b.String()
}

// SerializeCompetencies renders the "Competency Framework" block of the gap
// analysis prompt.
func SerializeCompetencies(competencies []types.Competency) string {
	var b strings.Builder
	b.WriteString("Competency Framework:\n")
	for _, comp := range competencies {
		fmt.Fprintf(&b, "- %s: %s\n", comp.Name, comp.Description)
	}
	return b.String()
}

// QueryPrompt wraps a free-form question with the competency catalogue.
func QueryPrompt(query string, competencies []types.Competency) string {
	var b strings.Builder
	b.WriteString("Please answer this query about competencies or the STAR method:\n\n")
	writeCompetencyList(&b, "Consider the following competencies:\n", competencies)
	fmt.Fprintf(&b, "User query: %s\n\n", query)
	b.WriteString("Provide a helpful, informative response that directly addresses the query.")
	return b.String()
}

// QueryContext carries optional hints for OptimizePrompt.
type QueryContext struct {
	PreviousQueries []string
	UserRole        string
}

// OptimizePromptPrompt asks the model to rewrite a user query into a better
// prompt while keeping its intent.
func OptimizePromptPrompt(query string, competencies []types.Competency, qc QueryContext) string {
	var b strings.Builder
	b.WriteString("Your task is to transform this user query into an optimized prompt for a language model to generate the best possible response.\n\n")
	b.WriteString("The original query is about a competency framework and STAR method stories. The user is likely preparing for a performance review or promotion.\n\n")
	writeCompetencyList(&b, "Consider the following competencies:\n", competencies)
	if len(qc.PreviousQueries) > 0 {
		fmt.Fprintf(&b, "Previous queries: %s\n", strings.Join(qc.PreviousQueries, "; "))
	}
	if role := strings.TrimSpace(qc.UserRole); role != "" {
		fmt.Fprintf(&b, "User role: %s\n", role)
	}
	fmt.Fprintf(&b, "\nOriginal user query:\n%q\n\n", query)
	b.WriteString("Please create an optimized prompt that:\n")
	b.WriteString("1. Adds necessary structure and context\n")
	b.WriteString("2. Makes the request more specific\n")
	b.WriteString("3. Aligns with the competency framework\n")
	b.WriteString("4. Follows best practices for prompting\n")
	b.WriteString("5. Maintains the user's original intent\n\n")
	b.WriteString("Return ONLY the optimized prompt with no explanations or metadata.")
	return b.String()
}

func writeCompetencyContext(b *strings.Builder, competency *types.Competency, extra string) {
	if competency == nil {
		return
	}
	fmt.Fprintf(b, "This STAR story is meant to demonstrate the competency:\n\"%s: %s\"\n", competency.Name, competency.Description)
	b.WriteString(extra)
	b.WriteString("\n")
}

func writeStory(b *strings.Builder, story types.Story) {
	title := story.Title
	if strings.TrimSpace(title) == "" {
		title = "No title provided"
	}
	b.WriteString("STAR Story:\n")
	fmt.Fprintf(b, "Title: %s\n\n", title)
	fmt.Fprintf(b, "Situation: %s\n\n", orNotProvided(story.Situation))
	fmt.Fprintf(b, "Task: %s\n\n", orNotProvided(story.Task))
	fmt.Fprintf(b, "Action: %s\n\n", orNotProvided(story.Action))
	fmt.Fprintf(b, "Result: %s\n", orNotProvided(story.Result))
}

func writeCompetencyList(b *strings.Builder, heading string, competencies []types.Competency) {
	if len(competencies) == 0 {
		return
	}
	b.WriteString(heading)
	for _, comp := range competencies {
		fmt.Fprintf(b, "- %s: %s\n", comp.Name, comp.Description)
	}
	b.WriteString("\n")
}

func orNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not provided"
	}
	return s
}
