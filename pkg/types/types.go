package types

import (
	"context"
	"time"
)

// User is the copy-out representation of an account synced from the identity
// provider.
type User struct {
	ID          int64
	ExternalID  string
	Email       string
	DisplayName string
	IsAdmin     bool
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserInput captures the fields accepted when creating a user.
type UserInput struct {
	ExternalID  string
	Email       string
	DisplayName string
	IsAdmin     bool
}

// UserPatch lists the user fields an update may touch. Nil fields are left
// untouched.
type UserPatch struct {
	Email       *string
	DisplayName *string
	IsAdmin     *bool
	IsActive    *bool
}

// Empty reports whether the patch carries no changes.
func (p UserPatch) Empty() bool {
	return p.Email == nil && p.DisplayName == nil && p.IsAdmin == nil && p.IsActive == nil
}

// Competency is a named skill definition stories are written against.
type Competency struct {
	ID           int64
	Name         string
	Description  string
	Category     string
	Level        int
	Expectations map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CompetencyInput captures the fields accepted when creating a competency.
// Level 0 means unset.
type CompetencyInput struct {
	Name         string
	Description  string
	Category     string
	Level        int
	Expectations map[string]any
}

// CompetencyPatch lists competency fields an update may touch. A Level of 0
// clears the stored level.
type CompetencyPatch struct {
	Name         *string
	Description  *string
	Category     *string
	Level        *int
	Expectations map[string]any
}

// Empty reports whether the patch carries no changes.
func (p CompetencyPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Category == nil && p.Level == nil && p.Expectations == nil
}

// Story is a STAR narrative. CompetencyName is resolved while the record is
// loaded so callers never need a second round trip.
type Story struct {
	ID             int64
	UserID         int64
	CompetencyID   int64
	CompetencyName string
	Title          string
	Situation      string
	Task           string
	Action         string
	Result         string
	AIFeedback     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasCompetency reports whether the story references a competency.
func (s Story) HasCompetency() bool {
	return s.CompetencyID != 0
}

// StoryInput captures the fields accepted when creating a story.
type StoryInput struct {
	UserID       int64
	CompetencyID int64
	Title        string
	Situation    string
	Task         string
	Action       string
	Result       string
}

// StoryPatch lists story fields an update may touch. A CompetencyID pointing at
// 0 detaches the story from its competency.
type StoryPatch struct {
	CompetencyID *int64
	Title        *string
	Situation    *string
	Task         *string
	Action       *string
	Result       *string
	AIFeedback   *string
}

// Empty reports whether the patch carries no changes.
func (p StoryPatch) Empty() bool {
	return p.CompetencyID == nil && p.Title == nil && p.Situation == nil &&
		p.Task == nil && p.Action == nil && p.Result == nil && p.AIFeedback == nil
}

// CaseStudy is a free-form write-up, optionally backed by an uploaded image.
type CaseStudy struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	ImagePath   string
	AIAnalysis  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CaseStudyInput captures the fields accepted when creating a case study.
type CaseStudyInput struct {
	UserID      int64
	Title       string
	Description string
	ImagePath   string
}

// CaseStudyPatch lists case study fields an update may touch.
type CaseStudyPatch struct {
	Title       *string
	Description *string
	ImagePath   *string
	AIAnalysis  *string
}

// Empty reports whether the patch carries no changes.
func (p CaseStudyPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.ImagePath == nil && p.AIAnalysis == nil
}

// AuditRecord is an append-only audit entry. UserID and EntityID are 0 when
// absent.
type AuditRecord struct {
	ID         int64
	UserID     int64
	Action     string
	EntityType string
	EntityID   int64
	Details    string
	Data       map[string]any
	CreatedAt  time.Time
}

// AuditFilter narrows audit queries. Zero values disable a filter.
type AuditFilter struct {
	UserID int64
	Action string
	Limit  int
}

// AuditSink is the write contract for audit entries.
type AuditSink interface {
	Log(ctx context.Context, record AuditRecord) error
}

// AuditRepository exposes read-side access to the audit log.
type AuditRepository interface {
	RecentAudit(ctx context.Context, filter AuditFilter) ([]AuditRecord, error)
	AuditByUser(ctx context.Context, userID int64) ([]AuditRecord, error)
}

// UserRepository describes account persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, input UserInput) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, id int64, patch UserPatch) (*User, error)
	ToggleAdmin(ctx context.Context, id int64) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CountUsers(ctx context.Context) (int, error)
	DeleteUser(ctx context.Context, id int64) (bool, error)
}

// CompetencyRepository describes competency persistence.
type CompetencyRepository interface {
	CreateCompetency(ctx context.Context, input CompetencyInput) (*Competency, error)
	GetCompetencyByID(ctx context.Context, id int64) (*Competency, error)
	GetCompetencyByName(ctx context.Context, name string) (*Competency, error)
	ListCompetencies(ctx context.Context) ([]Competency, error)
	UpdateCompetency(ctx context.Context, id int64, patch CompetencyPatch) (*Competency, error)
	DeleteCompetency(ctx context.Context, id int64) (bool, error)
	IsCompetencyInUse(ctx context.Context, id int64) (bool, error)
}

// StoryRepository describes STAR story persistence.
type StoryRepository interface {
	CreateStory(ctx context.Context, input StoryInput) (*Story, error)
	GetStoryByID(ctx context.Context, id int64) (*Story, error)
	ListStoriesByUser(ctx context.Context, userID int64) ([]Story, error)
	RecentStoriesByUser(ctx context.Context, userID int64, limit int) ([]Story, error)
	ListStoriesByCompetency(ctx context.Context, competencyID int64) ([]Story, error)
	CountStoriesByUser(ctx context.Context, userID int64) (int, error)
	CompetencyStoryCounts(ctx context.Context, userID int64) (map[int64]int, error)
	UpdateStory(ctx context.Context, id int64, patch StoryPatch) (*Story, error)
	DeleteStory(ctx context.Context, id int64) (bool, error)
}

// CaseStudyRepository describes case study persistence.
type CaseStudyRepository interface {
	CreateCaseStudy(ctx context.Context, input CaseStudyInput) (*CaseStudy, error)
	GetCaseStudyByID(ctx context.Context, id int64) (*CaseStudy, error)
	ListCaseStudiesByUser(ctx context.Context, userID int64) ([]CaseStudy, error)
	CountCaseStudiesByUser(ctx context.Context, userID int64) (int, error)
	UpdateCaseStudy(ctx context.Context, id int64, patch CaseStudyPatch) (*CaseStudy, error)
	DeleteCaseStudy(ctx context.Context, id int64) (bool, error)
}

// Hooks groups optional callbacks invoked after key workflows complete.
type Hooks struct {
	AfterAudit func(context.Context, AuditRecord)
	AfterLogin func(context.Context, LoginEvent)
}

// LoginEvent is emitted after an identity provider login has been synced.
type LoginEvent struct {
	User       User
	Created    bool
	Changed    bool
	OccurredAt time.Time
}

// Clock abstracts time retrieval for deterministic testing.
type Clock interface {
	Now() time.Time
}

// Logger is the minimal logging contract used across packages.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Error(msg string, err error, fields ...any)
}

// SystemClock defers to time.Now for production usage.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// NopLogger discards all log lines.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, error, ...any) {}

// NextUpdatedAt returns the timestamp to store on mutation. The value is
// truncated to microseconds (the coarsest precision of the supported stores)
// and is always strictly after prev.
func NextUpdatedAt(clock Clock, prev time.Time) time.Time {
	var now time.Time
	if clock == nil {
		now = time.Now().UTC()
	} else {
		now = clock.Now().UTC()
	}
	now = now.Truncate(time.Microsecond)
	if !prev.IsZero() && !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}
