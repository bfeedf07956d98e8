package types

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

var (
	// ErrNotFound indicates a point lookup found no row.
	ErrNotFound = errors.New("go-star: record not found")
	// ErrIntegrityViolation indicates a constraint failure on write. The
	// enclosing transaction has been rolled back.
	ErrIntegrityViolation = errors.New("go-star: integrity violation")
	// ErrStorageUnavailable indicates the persistent store could not be reached.
	ErrStorageUnavailable = errors.New("go-star: storage unavailable")
	// ErrCompetencyInUse indicates a competency is still referenced by stories.
	ErrCompetencyInUse = errors.New("go-star: competency in use")
	// ErrExternalService indicates the AI or vision service failed.
	ErrExternalService = errors.New("go-star: external service error")
	// ErrValidation indicates caller supplied fields failed validation.
	ErrValidation = errors.New("go-star: validation failed")
	// ErrNotAuthorized indicates the actor does not own the requested record.
	ErrNotAuthorized = errors.New("go-star: not authorized")
	// ErrRateLimited indicates the caller exhausted its call budget.
	ErrRateLimited = errors.New("go-star: rate limit exceeded")
	// ErrFeatureDisabled indicates a feature gate turned the workflow off.
	ErrFeatureDisabled = errors.New("go-star: feature disabled")
	// ErrUserIDRequired indicates a user identifier was omitted.
	ErrUserIDRequired = errors.New("go-star: user id required")
	// ErrServiceNotReady indicates the service has not been properly configured.
	ErrServiceNotReady = errors.New("go-star: service not ready")
	// ErrMissingUserRepository occurs when no user repository was supplied.
	ErrMissingUserRepository = errors.New("go-star: missing user repository")
	// ErrMissingCompetencyRepository occurs when no competency repository was supplied.
	ErrMissingCompetencyRepository = errors.New("go-star: missing competency repository")
	// ErrMissingStoryRepository occurs when no story repository was supplied.
	ErrMissingStoryRepository = errors.New("go-star: missing story repository")
	// ErrMissingCaseStudyRepository occurs when no case study repository was supplied.
	ErrMissingCaseStudyRepository = errors.New("go-star: missing case study repository")
	// ErrMissingAuditSink occurs when no audit sink was supplied.
	ErrMissingAuditSink = errors.New("go-star: missing audit sink")
	// ErrMissingAuditRepository occurs when no audit repository was supplied.
	ErrMissingAuditRepository = errors.New("go-star: missing audit repository")
	// ErrMissingOrchestrator occurs when AI commands lack an orchestrator.
	ErrMissingOrchestrator = errors.New("go-star: missing ai orchestrator")
	// ErrMissingTransactor occurs when no transaction manager was supplied.
	ErrMissingTransactor = errors.New("go-star: missing transaction manager")
)

// ValidationErrors maps field names to a human readable message.
type ValidationErrors map[string]string

// Error renders the messages in field order.
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ErrValidation.Error()
	}
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v[field])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrValidation) match.
func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// Add records a message for field unless one is already present.
func (v ValidationErrors) Add(field, message string) {
	if _, ok := v[field]; ok {
		return
	}
	v[field] = message
}

// OrNil returns nil when no messages were recorded.
func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

const (
	TextCodeNotFound           = "RECORD_NOT_FOUND"
	TextCodeIntegrity          = "INTEGRITY_VIOLATION"
	TextCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	TextCodeCompetencyInUse    = "COMPETENCY_IN_USE"
	TextCodeExternalService    = "EXTERNAL_SERVICE_ERROR"
	TextCodeValidation         = "VALIDATION_FAILED"
	TextCodeNotAuthorized      = "NOT_AUTHORIZED"
	TextCodeRateLimited        = "RATE_LIMITED"
	TextCodeFeatureDisabled    = "FEATURE_DISABLED"
)

// RichError converts taxonomy errors into go-errors values so transports can
// map them onto status codes. Errors that already carry rich metadata are
// returned unchanged.
func RichError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}

	var fields ValidationErrors
	switch {
	case errors.As(err, &fields):
		meta := make(map[string]any, len(fields))
		for k, v := range fields {
			meta[k] = v
		}
		return goerrors.Wrap(err, goerrors.CategoryValidation, "go-star: validation failed").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(TextCodeValidation).
			WithMetadata(meta)
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUserIDRequired):
		return goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(TextCodeValidation)
	case errors.Is(err, ErrNotFound):
		return goerrors.Wrap(err, goerrors.CategoryNotFound, err.Error()).
			WithCode(goerrors.CodeNotFound).
			WithTextCode(TextCodeNotFound)
	case errors.Is(err, ErrCompetencyInUse):
		return goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
			WithCode(http.StatusConflict).
			WithTextCode(TextCodeCompetencyInUse)
	case errors.Is(err, ErrIntegrityViolation):
		return goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
			WithCode(http.StatusConflict).
			WithTextCode(TextCodeIntegrity)
	case errors.Is(err, ErrNotAuthorized):
		return goerrors.Wrap(err, goerrors.CategoryAuthz, err.Error()).
			WithCode(goerrors.CodeForbidden).
			WithTextCode(TextCodeNotAuthorized)
	case errors.Is(err, ErrFeatureDisabled):
		return goerrors.Wrap(err, goerrors.CategoryAuthz, err.Error()).
			WithCode(goerrors.CodeForbidden).
			WithTextCode(TextCodeFeatureDisabled)
	case errors.Is(err, ErrRateLimited):
		return goerrors.Wrap(err, goerrors.CategoryAuthz, err.Error()).
			WithCode(http.StatusTooManyRequests).
			WithTextCode(TextCodeRateLimited)
	case errors.Is(err, ErrStorageUnavailable):
		return goerrors.Wrap(err, goerrors.CategoryInternal, err.Error()).
			WithCode(http.StatusServiceUnavailable).
			WithTextCode(TextCodeStorageUnavailable)
	case errors.Is(err, ErrExternalService):
		return goerrors.Wrap(err, goerrors.CategoryInternal, err.Error()).
			WithCode(http.StatusBadGateway).
			WithTextCode(TextCodeExternalService)
	default:
		return goerrors.Wrap(err, goerrors.CategoryInternal, "go-star: internal error").
			WithCode(goerrors.CodeInternal)
	}
}
