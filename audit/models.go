package audit

import (
	"time"

	"github.com/goliatone/go-star/pkg/types"
	"github.com/uptrace/bun"
)

// LogEntry models the persisted row in audit_logs. Rows are inserted once and
// never updated or deleted.
type LogEntry struct {
	bun.BaseModel `bun:"table:audit_logs"`

	ID         int64          `bun:"id,pk,autoincrement"`
	UserID     int64          `bun:"user_id,nullzero"`
	Action     string         `bun:"action,notnull"`
	EntityType string         `bun:"entity_type,notnull"`
	EntityID   int64          `bun:"entity_id,nullzero"`
	Details    string         `bun:"details,nullzero"`
	Data       map[string]any `bun:"data,type:jsonb,nullzero"`
	CreatedAt  time.Time      `bun:"created_at,notnull"`
}

func toLogEntry(record types.AuditRecord) *LogEntry {
	return &LogEntry{
		UserID:     record.UserID,
		Action:     record.Action,
		EntityType: record.EntityType,
		EntityID:   record.EntityID,
		Details:    record.Details,
		Data:       cloneMap(record.Data),
		CreatedAt:  record.CreatedAt,
	}
}

func toAuditRecord(entry *LogEntry) types.AuditRecord {
	return types.AuditRecord{
		ID:         entry.ID,
		UserID:     entry.UserID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Details:    entry.Details,
		Data:       cloneMap(entry.Data),
		CreatedAt:  entry.CreatedAt,
	}
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
