package storage

import (
	"fmt"

	apperrors "github.com/bracket-esports/bracket/common/errors"
)

const MaxImageBytes = 5 << 20

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
}

// ImageExtension validates an upload and returns the file extension for it.
func ImageExtension(contentType string, size int64) (string, error) {
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", apperrors.Validation(map[string]string{
			"file": fmt.Sprintf("unsupported content type %q, expected png, jpeg or webp", contentType),
		})
	}
	if size <= 0 || size > MaxImageBytes {
		return "", apperrors.Validation(map[string]string{
			"file": fmt.Sprintf("size must be between 1 byte and %d bytes", MaxImageBytes),
		})
	}
	return ext, nil
}
