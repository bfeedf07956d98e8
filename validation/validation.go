// Package validation checks caller-supplied fields before they reach the
// repositories and sanitises free-text HTML. Failures are reported as a
// types.ValidationErrors field -> message map.
package validation

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-star/pkg/types"
)

// StarComponents lists the narrative fields of a STAR story in order.
var StarComponents = []string{"situation", "task", "action", "result"}

const (
	minTitleLength     = 2
	maxTitleLength     = 255
	minComponentLength = 10
)

var (
	msgTitleBlank   = "Title cannot be empty or whitespace."
	msgTitleLength  = fmt.Sprintf("Title must be between %d and %d characters.", minTitleLength, maxTitleLength)
	msgNameBlank    = "Competency name cannot be empty or whitespace."
	msgNameLength   = fmt.Sprintf("Name must be between %d and %d characters.", minTitleLength, maxTitleLength)
	msgDescription  = "Description is required."
	msgLevel        = "Level must be between 1 and 5."
	msgUserRequired = "A user is required."
	msgCompetencyID = "Competency must be a valid id."
)

// ComponentMessage is the message reported for a STAR component that is too
// short.
func ComponentMessage(component string) string {
	return fmt.Sprintf("The %s component must have meaningful content (at least %d characters).", component, minComponentLength)
}

func titleRules(blank, length string) []validation.Rule {
	return []validation.Rule{
		validation.Required.Error(blank),
		validation.RuneLength(minTitleLength, maxTitleLength).Error(length),
	}
}

func componentRules(component string) []validation.Rule {
	msg := ComponentMessage(component)
	return []validation.Rule{
		validation.Required.Error(msg),
		validation.RuneLength(minComponentLength, 0).Error(msg),
	}
}

var levelRules = []validation.Rule{
	validation.Min(1).Error(msgLevel),
	validation.Max(5).Error(msgLevel),
}

// Story validates a new story and returns it with title trimmed and
// narrative fields sanitised. Component lengths are measured on the
// sanitised text, so markup that the allowlist drops does not count.
func Story(input types.StoryInput) (types.StoryInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Situation = SanitizeHTML(input.Situation)
	input.Task = SanitizeHTML(input.Task)
	input.Action = SanitizeHTML(input.Action)
	input.Result = SanitizeHTML(input.Result)
	fields := validation.Errors{
		"title":     validation.Validate(input.Title, titleRules(msgTitleBlank, msgTitleLength)...),
		"situation": validateComponent("situation", input.Situation),
		"task":      validateComponent("task", input.Task),
		"action":    validateComponent("action", input.Action),
		"result":    validateComponent("result", input.Result),
	}
	if input.UserID <= 0 {
		fields["user_id"] = errors.New(msgUserRequired)
	}
	return input, toValidationErrors(fields.Filter())
}

func validateComponent(name, sanitised string) error {
	return validation.Validate(VisibleText(sanitised), componentRules(name)...)
}

// StoryPatch validates only the fields present in the patch.
func StoryPatch(patch types.StoryPatch) (types.StoryPatch, error) {
	fields := validation.Errors{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
		fields["title"] = validation.Validate(title, titleRules(msgTitleBlank, msgTitleLength)...)
	}
	components := map[string]**string{
		"situation": &patch.Situation,
		"task":      &patch.Task,
		"action":    &patch.Action,
		"result":    &patch.Result,
	}
	for name, ref := range components {
		if *ref == nil {
			continue
		}
		clean := SanitizeHTML(**ref)
		*ref = &clean
		fields[name] = validateComponent(name, clean)
	}
	if patch.CompetencyID != nil && *patch.CompetencyID < 0 {
		fields["competency_id"] = errors.New(msgCompetencyID)
	}
	return patch, toValidationErrors(fields.Filter())
}

// Competency validates a new competency.
func Competency(input types.CompetencyInput) (types.CompetencyInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Category = strings.TrimSpace(input.Category)
	input.Description = SanitizeHTML(input.Description)
	fields := validation.Errors{
		"name":        validation.Validate(input.Name, titleRules(msgNameBlank, msgNameLength)...),
		"description": validation.Validate(VisibleText(input.Description), validation.Required.Error(msgDescription)),
		"level":       validation.Validate(input.Level, levelRules...),
	}
	if err := toValidationErrors(fields.Filter()); err != nil {
		return input, err
	}
	return input, nil
}

// CompetencyPatch validates only the fields present in the patch.
func CompetencyPatch(patch types.CompetencyPatch) (types.CompetencyPatch, error) {
	fields := validation.Errors{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
		fields["name"] = validation.Validate(name, titleRules(msgNameBlank, msgNameLength)...)
	}
	if patch.Description != nil {
		clean := SanitizeHTML(*patch.Description)
		patch.Description = &clean
		fields["description"] = validation.Validate(VisibleText(clean), validation.Required.Error(msgDescription))
	}
	if patch.Level != nil {
		fields["level"] = validation.Validate(*patch.Level, levelRules...)
	}
	return patch, toValidationErrors(fields.Filter())
}

// CaseStudy validates a new case study.
func CaseStudy(input types.CaseStudyInput) (types.CaseStudyInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	fields := validation.Errors{
		"title": validation.Validate(input.Title, titleRules(msgTitleBlank, msgTitleLength)...),
	}
	if input.UserID <= 0 {
		fields["user_id"] = errors.New(msgUserRequired)
	}
	if err := toValidationErrors(fields.Filter()); err != nil {
		return input, err
	}
	input.Description = SanitizeHTML(input.Description)
	return input, nil
}

// CaseStudyPatch validates only the fields present in the patch.
func CaseStudyPatch(patch types.CaseStudyPatch) (types.CaseStudyPatch, error) {
	fields := validation.Errors{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
		fields["title"] = validation.Validate(title, titleRules(msgTitleBlank, msgTitleLength)...)
	}
	if patch.Description != nil {
		clean := SanitizeHTML(*patch.Description)
		patch.Description = &clean
	}
	return patch, toValidationErrors(fields.Filter())
}

func toValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := types.ValidationErrors{}
	for field, fieldErr := range fieldErrs {
		if fieldErr == nil {
			continue
		}
		out.Add(field, fieldErr.Error())
	}
	return out.OrNil()
}

func validationError(field, message string) error {
	return types.ValidationErrors{field: message}
}
