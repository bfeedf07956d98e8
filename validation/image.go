package validation

import (
	"fmt"
	"net/http"
)

// MaxImageSize is the largest accepted case-study image.
const MaxImageSize = 16 * 1024 * 1024

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// ImageContentType sniffs data and returns its content type when it is an
// accepted image.
func ImageContentType(data []byte) (string, error) {
	if len(data) == 0 {
		return "", validationError("image", "No file provided")
	}
	if len(data) > MaxImageSize {
		return "", validationError("image", fmt.Sprintf("File size exceeds maximum allowed (%dMB)", MaxImageSize/(1024*1024)))
	}
	contentType := http.DetectContentType(data)
	if !allowedImageTypes[contentType] {
		return "", validationError("image", "File type not allowed. Allowed types: jpeg, png, gif")
	}
	return contentType, nil
}
