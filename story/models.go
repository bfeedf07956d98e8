package story

import (
	"time"

	"github.com/goliatone/go-star/pkg/types"
	"github.com/uptrace/bun"
)

// Record is the Bun model backing the star_stories table.
type Record struct {
	bun.BaseModel `bun:"table:star_stories"`

	ID           int64     `bun:"id,pk,autoincrement"`
	UserID       int64     `bun:"user_id,notnull"`
	CompetencyID int64     `bun:"competency_id,nullzero"`
	Title        string    `bun:"title,notnull"`
	Situation    string    `bun:"situation,notnull"`
	Task         string    `bun:"task,notnull"`
	Action       string    `bun:"action,notnull"`
	Result       string    `bun:"result,notnull"`
	AIFeedback   string    `bun:"ai_feedback,nullzero"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// competencyName is the projection used to resolve competency names.
type competencyName struct {
	bun.BaseModel `bun:"table:competencies"`

	ID   int64  `bun:"id"`
	Name string `bun:"name"`
}

func toDomain(rec *Record, names map[int64]string) types.Story {
	return types.Story{
		ID:             rec.ID,
		UserID:         rec.UserID,
		CompetencyID:   rec.CompetencyID,
		CompetencyName: names[rec.CompetencyID],
		Title:          rec.Title,
		Situation:      rec.Situation,
		Task:           rec.Task,
		Action:         rec.Action,
		Result:         rec.Result,
		AIFeedback:     rec.AIFeedback,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}

func applyPatch(rec *Record, patch types.StoryPatch) []string {
	var columns []string
	if patch.CompetencyID != nil {
		rec.CompetencyID = *patch.CompetencyID
		columns = append(columns, "competency_id")
	}
	if patch.Title != nil {
		rec.Title = *patch.Title
		columns = append(columns, "title")
	}
	if patch.Situation != nil {
		rec.Situation = *patch.Situation
		columns = append(columns, "situation")
	}
	if patch.Task != nil {
		rec.Task = *patch.Task
		columns = append(columns, "task")
	}
	if patch.Action != nil {
		rec.Action = *patch.Action
		columns = append(columns, "action")
	}
	if patch.Result != nil {
		rec.Result = *patch.Result
		columns = append(columns, "result")
	}
	if patch.AIFeedback != nil {
		rec.AIFeedback = *patch.AIFeedback
		columns = append(columns, "ai_feedback")
	}
	return columns
}
