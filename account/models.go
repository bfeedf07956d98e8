package account

import (
	"time"

	"github.com/goliatone/go-star/pkg/types"
	"github.com/uptrace/bun"
)

// Record is the Bun model backing the users table.
type Record struct {
	bun.BaseModel `bun:"table:users"`

	ID          int64     `bun:"id,pk,autoincrement"`
	ExternalID  string    `bun:"external_id,notnull"`
	Email       string    `bun:"email,notnull"`
	DisplayName string    `bun:"display_name,notnull"`
	IsAdmin     bool      `bun:"is_admin,notnull"`
	IsActive    bool      `bun:"is_active,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

func toDomain(rec *Record) *types.User {
	if rec == nil {
		return nil
	}
	return &types.User{
		ID:          rec.ID,
		ExternalID:  rec.ExternalID,
		Email:       rec.Email,
		DisplayName: rec.DisplayName,
		IsAdmin:     rec.IsAdmin,
		IsActive:    rec.IsActive,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

// applyPatch mutates rec and returns the columns the patch names.
func applyPatch(rec *Record, patch types.UserPatch) []string {
	var columns []string
	if patch.Email != nil {
		rec.Email = *patch.Email
		columns = append(columns, "email")
	}
	if patch.DisplayName != nil {
		rec.DisplayName = *patch.DisplayName
		columns = append(columns, "display_name")
	}
	if patch.IsAdmin != nil {
		rec.IsAdmin = *patch.IsAdmin
		columns = append(columns, "is_admin")
	}
	if patch.IsActive != nil {
		rec.IsActive = *patch.IsActive
		columns = append(columns, "is_active")
	}
	return columns
}
