package competency

import (
	"time"

	"github.com/goliatone/go-star/pkg/types"
	"github.com/uptrace/bun"
)

// Record is the Bun model backing the competencies table.
type Record struct {
	bun.BaseModel `bun:"table:competencies"`

	ID           int64          `bun:"id,pk,autoincrement"`
	Name         string         `bun:"name,notnull"`
	Description  string         `bun:"description,notnull"`
	Category     string         `bun:"category,nullzero"`
	Level        int            `bun:"level,nullzero"`
	Expectations map[string]any `bun:"expectations,type:jsonb,nullzero"`
	CreatedAt    time.Time      `bun:"created_at,notnull"`
	UpdatedAt    time.Time      `bun:"updated_at,notnull"`
}

func toDomain(rec *Record) *types.Competency {
	if rec == nil {
		return nil
	}
	return &types.Competency{
		ID:           rec.ID,
		Name:         rec.Name,
		Description:  rec.Description,
		Category:     rec.Category,
		Level:        rec.Level,
		Expectations: cloneMap(rec.Expectations),
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

func applyPatch(rec *Record, patch types.CompetencyPatch) []string {
	var columns []string
	if patch.Name != nil {
		rec.Name = *patch.Name
		columns = append(columns, "name")
	}
	if patch.Description != nil {
		rec.Description = *patch.Description
		columns = append(columns, "description")
	}
	if patch.Category != nil {
		rec.Category = *patch.Category
		columns = append(columns, "category")
	}
	if patch.Level != nil {
		rec.Level = *patch.Level
		columns = append(columns, "level")
	}
	if patch.Expectations != nil {
		rec.Expectations = cloneMap(patch.Expectations)
		columns = append(columns, "expectations")
	}
	return columns
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
