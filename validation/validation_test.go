package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-star/pkg/types"
	"github.com/stretchr/testify/require"
)

func validStory() types.StoryInput {
	return types.StoryInput{
		UserID:    1,
		Title:     "  Launch  ",
		Situation: "The release pipeline was failing nightly.",
		Task:      "Restore a reliable release cadence.",
		Action:    "Rewrote the flaky integration suite.",
		Result:    "Nightly releases went green for a quarter.",
	}
}

func fieldErrors(t *testing.T, err error) types.ValidationErrors {
	t.Helper()
	require.ErrorIs(t, err, types.ErrValidation)
	var fields types.ValidationErrors
	require.True(t, errors.As(err, &fields))
	return fields
}

func TestStory_Valid(t *testing.T) {
	out, err := Story(validStory())
	require.NoError(t, err)
	require.Equal(t, "Launch", out.Title)
}

func TestStory_ShortComponentsReportPerField(t *testing.T) {
	input := validStory()
	input.Task = "short"
	input.Result = "          "

	_, err := Story(input)
	fields := fieldErrors(t, err)
	require.Equal(t, "The task component must have meaningful content (at least 10 characters).", fields["task"])
	require.Equal(t, "The result component must have meaningful content (at least 10 characters).", fields["result"])
	require.NotContains(t, fields, "situation")
}

func TestStory_TitleRules(t *testing.T) {
	input := validStory()
	input.Title = "   "
	fields := fieldErrors(t, func() error { _, err := Story(input); return err }())
	require.Equal(t, "Title cannot be empty or whitespace.", fields["title"])

	input.Title = "A"
	fields = fieldErrors(t, func() error { _, err := Story(input); return err }())
	require.Equal(t, "Title must be between 2 and 255 characters.", fields["title"])

	input.Title = strings.Repeat("x", 256)
	fields = fieldErrors(t, func() error { _, err := Story(input); return err }())
	require.Contains(t, fields, "title")
}

func TestStory_SanitisesNarrative(t *testing.T) {
	input := validStory()
	input.Action = `<p class="lead">Rewrote the suite</p><script>alert(1)</script>`

	out, err := Story(input)
	require.NoError(t, err)
	require.Equal(t, `<p class="lead">Rewrote the suite</p>`, out.Action)
}

func TestStory_MarkupDroppedBySanitiserDoesNotCount(t *testing.T) {
	input := validStory()
	input.Situation = "<script>alert('hello world')</script>"
	input.Task = "<img src=x onerror=alert(1)>"
	input.Action = "<p><b>   </b></p><em>short</em>"

	_, err := Story(input)
	fields := fieldErrors(t, err)
	require.Equal(t, ComponentMessage("situation"), fields["situation"])
	require.Equal(t, ComponentMessage("task"), fields["task"])
	require.Equal(t, ComponentMessage("action"), fields["action"])
	require.NotContains(t, fields, "result")

	hidden := `<iframe src="x"></iframe>tiny`
	_, err = StoryPatch(types.StoryPatch{Result: &hidden})
	fields = fieldErrors(t, err)
	require.Equal(t, ComponentMessage("result"), fields["result"])
}

func TestCompetency_DescriptionOfOnlyMarkupIsRequired(t *testing.T) {
	_, err := Competency(types.CompetencyInput{Name: "Ownership", Description: "<script>x()</script>"})
	fields := fieldErrors(t, err)
	require.Equal(t, "Description is required.", fields["description"])
}

func TestVisibleText(t *testing.T) {
	require.Equal(t, "", VisibleText(""))
	require.Equal(t, "Tom & Jerry", VisibleText("<p> <b>Tom</b> &amp; Jerry </p>"))
}

func TestStoryPatch_OnlyValidatesPresentFields(t *testing.T) {
	feedback := "fine"
	_, err := StoryPatch(types.StoryPatch{AIFeedback: &feedback})
	require.NoError(t, err)

	short := "tiny"
	_, err = StoryPatch(types.StoryPatch{Situation: &short})
	fields := fieldErrors(t, err)
	require.Equal(t, ComponentMessage("situation"), fields["situation"])
}

func TestCompetency_Rules(t *testing.T) {
	out, err := Competency(types.CompetencyInput{Name: " Ownership ", Description: "Takes initiative", Level: 3})
	require.NoError(t, err)
	require.Equal(t, "Ownership", out.Name)

	_, err = Competency(types.CompetencyInput{Name: "Ownership", Description: "Takes initiative"})
	require.NoError(t, err)

	_, err = Competency(types.CompetencyInput{Name: " ", Description: "", Level: 9})
	fields := fieldErrors(t, err)
	require.Equal(t, "Competency name cannot be empty or whitespace.", fields["name"])
	require.Equal(t, "Description is required.", fields["description"])
	require.Equal(t, "Level must be between 1 and 5.", fields["level"])
}

func TestCompetencyPatch_ZeroLevelClears(t *testing.T) {
	zero := 0
	_, err := CompetencyPatch(types.CompetencyPatch{Level: &zero})
	require.NoError(t, err)

	six := 6
	_, err = CompetencyPatch(types.CompetencyPatch{Level: &six})
	fields := fieldErrors(t, err)
	require.Contains(t, fields, "level")
}

func TestCaseStudy_Rules(t *testing.T) {
	_, err := CaseStudy(types.CaseStudyInput{UserID: 1, Title: "Migration", Description: "<b>ok</b>"})
	require.NoError(t, err)

	_, err = CaseStudy(types.CaseStudyInput{Title: "x"})
	fields := fieldErrors(t, err)
	require.Contains(t, fields, "title")
	require.Contains(t, fields, "user_id")
}

func TestSanitizeHTML(t *testing.T) {
	require.Equal(t, "", SanitizeHTML(""))
	require.Equal(t, "<strong>bold</strong> text", SanitizeHTML(`<strong onclick="x()">bold</strong> <a href="http://x">text</a>`))
	require.Equal(t, `<h2 style="color: red">Title</h2>`, SanitizeHTML(`<h2 style="color: red">Title</h2>`))
}

func TestImageContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	contentType, err := ImageContentType(png)
	require.NoError(t, err)
	require.Equal(t, "image/png", contentType)

	_, err = ImageContentType([]byte("plain text"))
	require.ErrorIs(t, err, types.ErrValidation)

	_, err = ImageContentType(nil)
	require.ErrorIs(t, err, types.ErrValidation)
}
