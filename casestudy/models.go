package casestudy

import (
	"time"

	"github.com/goliatone/go-star/pkg/types"
	"github.com/uptrace/bun"
)

// Record is the Bun model backing the case_studies table.
type Record struct {
	bun.BaseModel `bun:"table:case_studies"`

	ID          int64     `bun:"id,pk,autoincrement"`
	UserID      int64     `bun:"user_id,notnull"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description,notnull"`
	ImagePath   string    `bun:"image_path,nullzero"`
	AIAnalysis  string    `bun:"ai_analysis,nullzero"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

func toDomain(rec *Record) *types.CaseStudy {
	if rec == nil {
		return nil
	}
	return &types.CaseStudy{
		ID:          rec.ID,
		UserID:      rec.UserID,
		Title:       rec.Title,
		Description: rec.Description,
		ImagePath:   rec.ImagePath,
		AIAnalysis:  rec.AIAnalysis,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func applyPatch(rec *Record, patch types.CaseStudyPatch) []string {
	var columns []string
	if patch.Title != nil {
		rec.Title = *patch.Title
		columns = append(columns, "title")
	}
	if patch.Description != nil {
		rec.Description = *patch.Description
		columns = append(columns, "description")
	}
	if patch.ImagePath != nil {
		rec.ImagePath = *patch.ImagePath
		columns = append(columns, "image_path")
	}
	if patch.AIAnalysis != nil {
		rec.AIAnalysis = *patch.AIAnalysis
		columns = append(columns, "ai_analysis")
	}
	return columns
}
