package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Components lists the STAR narrative fields in order.
var Components = []string{"situation", "task", "action", "result"}

// Placeholder is the text used for a component the reply did not provide.
func Placeholder(component string) string {
	return fmt.Sprintf("No %s information provided.", component)
}

var (
	titleHeader     = regexp.MustCompile(`(?is)(?:title|#\s*title)[:\s]+`)
	componentHeader = map[string]*regexp.Regexp{}
	improveHeader   = map[string][]*regexp.Regexp{}
	sectionLabel    = regexp.MustCompile(`^\w+:`)
)

// improveMarkers are tried in order for each component.
var improveMarkers = []string{"example", "rewritten", "improved", "could be"}

func init() {
	for _, component := range Components {
		componentHeader[component] = regexp.MustCompile(`(?is)(?:` + component + `|#\s*` + component + `)[:\s]+`)
		patterns := make([]*regexp.Regexp, 0, len(improveMarkers))
		for _, marker := range improveMarkers {
			patterns = append(patterns, regexp.MustCompile(`(?is)`+component+`.*?`+marker+`[:\s]+`))
		}
		improveHeader[component] = patterns
	}
}

// ParseStory extracts a title and the four STAR components from free text.
// Sections are located by header and run until the next header. When no
// component header is found the text is split into four equal parts. Empty
// components are replaced with Placeholder; the title may stay empty.
func ParseStory(text string) StoryComponents {
	var out StoryComponents
	if body, ok := afterHeader(text, titleHeader); ok {
		out.Title = strings.TrimSpace(body[:titleEnd(body)])
	}
	found := false
	for _, component := range Components {
		body, ok := afterHeader(text, componentHeader[component])
		if !ok {
			continue
		}
		found = true
		out.Set(component, strings.TrimSpace(body[:componentEnd(body)]))
	}
	if !found {
		for i, chunk := range splitEven(strings.TrimSpace(text), len(Components)) {
			out.Set(Components[i], strings.TrimSpace(chunk))
		}
	}
	return withPlaceholders(out)
}

// ParseImprovements extracts rewritten components introduced by markers such
// as "Example:" or "Rewritten:". Components without a rewrite keep the
// original text.
func ParseImprovements(text string, original StoryComponents) StoryComponents {
	out := StoryComponents{Title: original.Title}
	for _, component := range Components {
		out.Set(component, original.Get(component))
		for _, pattern := range improveHeader[component] {
			body, ok := afterHeader(text, pattern)
			if !ok {
				continue
			}
			out.Set(component, strings.TrimSpace(body[:improvementEnd(body)]))
			break
		}
	}
	return out
}

func withPlaceholders(c StoryComponents) StoryComponents {
	for _, component := range Components {
		if strings.TrimSpace(c.Get(component)) == "" {
			c.Set(component, Placeholder(component))
		}
	}
	return c
}

// afterHeader returns the text following the first match of header.
func afterHeader(text string, header *regexp.Regexp) (string, bool) {
	loc := header.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	return text[loc[1]:], true
}

// titleEnd stops at a blank line, a markdown heading or a bold marker.
func titleEnd(body string) int {
	end := len(body)
	for _, stop := range []string{"\n\n", "\n#", "\n**"} {
		if i := strings.Index(body, stop); i >= 0 && i < end {
			end = i
		}
	}
	return end
}

// componentEnd stops at a blank line that introduces another section: a
// "Label:" line, a heading or a bold marker.
func componentEnd(body string) int {
	offset := 0
	for {
		i := strings.Index(body[offset:], "\n\n")
		if i < 0 {
			return len(body)
		}
		at := offset + i
		next := body[at+2:]
		if sectionLabel.MatchString(next) || strings.HasPrefix(next, "#") || strings.HasPrefix(next, "**") {
			return at
		}
		offset = at + 1
	}
}

// improvementEnd stops at a blank line or at a line starting with a letter.
func improvementEnd(body string) int {
	for i := 0; i < len(body); i++ {
		if body[i] != '\n' || i+1 >= len(body) {
			continue
		}
		next := body[i+1]
		if next == '\n' || (next >= 'a' && next <= 'z') || (next >= 'A' && next <= 'Z') {
			return i
		}
	}
	return len(body)
}

// splitEven cuts text into n contiguous chunks of equal rune length; the last
// chunk takes the remainder.
func splitEven(text string, n int) []string {
	runes := []rune(text)
	size := len(runes) / n
	out := make([]string, n)
	for i := 0; i < n; i++ {
		start := i * size
		end := start + size
		if i == n-1 {
			end = len(runes)
		}
		out[i] = string(runes[start:end])
	}
	return out
}

var scoreCategories = []struct {
	name     string
	keywords []string
}{
	{"completeness", []string{"complete", "comprehensive", "thorough"}},
	{"clarity", []string{"clear", "specific", "detail"}},
	{"relevance", []string{"relevant", "aligned", "demonstrate"}},
	{"impact", []string{"impact", "result", "outcome", "measure"}},
	{"storytelling", []string{"compelling", "persuasive", "engaging"}},
}

var (
	positiveQualifiers = []string{"excellent", "great", "very good", "strong", "well"}
	negativeQualifiers = []string{"lacking", "missing", "weak", "insufficient", "could be better"}
)

var explicitScore = regexp.MustCompile(`(?im)^[ \t*#\-]*(?:(completeness|clarity|relevance|impact|storytelling|overall)[ \t*]*(?:score)?|score)[ \t*]*[:\-][ \t]*\**[ \t]*(\d+(?:\.\d+)?)[ \t]*/[ \t]*5`)

// ScoreEvaluation derives 1-5 scores from evaluation text. Explicit
// "Clarity: 4/5" or "Score: 4/5" lines win; other categories start at 3 and
// move one point per positive or negative qualifier found directly before a
// category keyword. A bare "Score: n/5" line sets the overall score; otherwise
// overall is the mean of the five categories rounded to one decimal.
func ScoreEvaluation(text string) Scores {
	explicit := explicitScores(text)
	lower := strings.ToLower(text)
	values := make(map[string]float64, len(scoreCategories))
	for _, category := range scoreCategories {
		if v, ok := explicit[category.name]; ok {
			values[category.name] = v
			continue
		}
		score := 3
		for _, word := range positiveQualifiers {
			if qualifies(lower, word, category.keywords) {
				score++
			}
		}
		for _, word := range negativeQualifiers {
			if qualifies(lower, word, category.keywords) {
				score--
			}
		}
		values[category.name] = clampScore(float64(score))
	}

	scores := Scores{
		Completeness: values["completeness"],
		Clarity:      values["clarity"],
		Relevance:    values["relevance"],
		Impact:       values["impact"],
		Storytelling: values["storytelling"],
	}
	if v, ok := explicit["overall"]; ok {
		scores.Overall = v
	} else {
		scores.Overall = roundOne(meanScore(scores))
	}
	return scores
}

// NeutralScores is the score set used when a structured reply cannot be read.
func NeutralScores() Scores {
	return Scores{Completeness: 3, Clarity: 3, Relevance: 3, Impact: 3, Storytelling: 3, Overall: 3}
}

func qualifies(lower, word string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(lower, word+" "+keyword) {
			return true
		}
	}
	return false
}

func explicitScores(text string) map[string]float64 {
	out := make(map[string]float64)
	for _, match := range explicitScore.FindAllStringSubmatch(text, -1) {
		value, err := strconv.ParseFloat(match[2], 64)
		if err != nil {
			continue
		}
		name := strings.ToLower(match[1])
		if name == "" {
			name = "overall"
		}
		if _, seen := out[name]; seen {
			continue
		}
		out[name] = clampScore(value)
	}
	return out
}

func meanScore(s Scores) float64 {
	return (s.Completeness + s.Clarity + s.Relevance + s.Impact + s.Storytelling) / 5
}

func clampScore(v float64) float64 {
	return math.Max(1, math.Min(5, v))
}

func roundOne(v float64) float64 {
	return math.Round(v*10) / 10
}

// CompetencyMentions counts case-insensitive mentions of each competency name
// in text. Names that never appear are omitted; more than one mention marks
// the competency relevant.
func CompetencyMentions(text string, names []string) map[string]Alignment {
	if len(names) == 0 {
		return map[string]Alignment{}
	}
	lower := strings.ToLower(text)
	out := make(map[string]Alignment, len(names))
	for _, name := range names {
		needle := strings.ToLower(strings.TrimSpace(name))
		if needle == "" {
			continue
		}
		mentions := strings.Count(lower, needle)
		if mentions == 0 {
			continue
		}
		out[name] = Alignment{Mentions: mentions, Relevant: mentions > 1}
	}
	return out
}

// decodeJSON reads a JSON object reply, tolerating a surrounding markdown
// code fence.
func decodeJSON(text string, dst any) error {
	body := strings.TrimSpace(text)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```")
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && isFenceLanguage(body[:nl]) {
			body = body[nl+1:]
		}
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	}
	if body == "" {
		return errors.New("empty reply")
	}
	return json.Unmarshal([]byte(body), dst)
}

func isFenceLanguage(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
