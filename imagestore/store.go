// Package imagestore keeps the images uploaded with case studies. Images are
// addressed by a relative key stored on the case study record.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Drivers understood by New.
const (
	DriverFilesystem = "fs"
	DriverS3         = "s3"
)

// MaxObjectSize caps how much of a stored object is read back.
const MaxObjectSize = 16 << 20

var (
	// ErrNotFound is returned when no object exists for a key.
	ErrNotFound = errors.New("imagestore: image not found")
	// ErrInvalidKey rejects empty, absolute or traversing keys.
	ErrInvalidKey = errors.New("imagestore: invalid key")
	// ErrTooLarge is returned when a stored object exceeds MaxObjectSize.
	ErrTooLarge = errors.New("imagestore: image too large")
)

// Store reads and writes image bytes by key.
type Store interface {
	Driver() string
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Config selects and configures a driver.
type Config struct {
	Driver   string
	Root     string
	Bucket   string
	Region   string
	Endpoint string
	// PathStyle forces path-style addressing, required by most S3-compatible
	// servers such as MinIO.
	PathStyle bool
}

// New builds the store named by cfg.Driver. An empty driver means fs.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.Root)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
	default:
		return nil, fmt.Errorf("imagestore: unknown driver %q", cfg.Driver)
	}
}

// SanitizeKey normalises key to a slash separated relative path and rejects
// anything that could escape the store root.
func SanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", ErrInvalidKey
		}
	}
	clean := path.Clean(key)
	if clean == "." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxObjectSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxObjectSize {
		return nil, ErrTooLarge
	}
	return data, nil
}
