package entity

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
)

var ErrInvalidImage = errors.New("invalid image")

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageUpload is the single image file carried by a create or update request.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewImageUpload sniffs the content type of data and rejects empty, oversized
// or non-image payloads. A maxSize of zero disables the size check.
func NewImageUpload(filename string, data []byte, maxSize int64) (ImageUpload, error) {
	if len(data) == 0 {
		return ImageUpload{}, fmt.Errorf("%w: file %q is empty", ErrInvalidImage, filename)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return ImageUpload{}, fmt.Errorf("%w: file %q exceeds %d bytes", ErrInvalidImage, filename, maxSize)
	}
	contentType := http.DetectContentType(data)
	if _, ok := allowedImageTypes[contentType]; !ok {
		return ImageUpload{}, fmt.Errorf("%w: unsupported content type %s", ErrInvalidImage, contentType)
	}
	return ImageUpload{
		Filename:    filepath.Base(filename),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// Extension returns the file extension matching the sniffed content type.
func (u ImageUpload) Extension() string {
	return allowedImageTypes[u.ContentType]
}
