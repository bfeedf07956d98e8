package audit

import (
	"sync"

	"github.com/goliatone/go-masker"
	"github.com/goliatone/go-star/pkg/types"
)

var defaultMaskerOnce sync.Once

// DefaultMasker returns the shared masker with the audit denylist registered.
func DefaultMasker() *masker.Masker {
	defaultMaskerOnce.Do(func() {
		if masker.Default == nil {
			return
		}
		registerDefaultMaskFields(masker.Default)
	})
	return masker.Default
}

// SanitizeRecord masks credential-like values in the record's data payload.
// When masking fails the payload is dropped rather than persisted raw.
func SanitizeRecord(mask *masker.Masker, record types.AuditRecord) types.AuditRecord {
	if len(record.Data) == 0 {
		return record
	}
	if mask == nil {
		mask = DefaultMasker()
	}
	if mask == nil {
		record.Data = nil
		return record
	}

	masked, err := mask.Mask(cloneMap(record.Data))
	if err != nil {
		record.Data = nil
		return record
	}
	switch masked := masked.(type) {
	case map[string]any:
		record.Data = masked
	default:
		record.Data = nil
	}
	return record
}

func registerDefaultMaskFields(mask *masker.Masker) {
	if mask == nil {
		return
	}
	for _, field := range maskedFields {
		mask.RegisterMaskField(field, "filled4")
	}
}

var maskedFields = []string{
	"api_key",
	"access_token",
	"id_token",
	"refresh_token",
	"authorization",
	"password",
	"secret",
}
