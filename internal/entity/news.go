package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var ErrInvalidField = errors.New("invalid field value")

const (
	MaxTitleLength    = 200
	MaxContentLength  = 20000
	MaxCategoryLength = 100
)

// ImageReference points at an externally hosted image. DeletionHandle is the
// key the image store needs to remove it again.
type ImageReference struct {
	URI            string `json:"uri"`
	DeletionHandle string `json:"deletionHandle"`
}

type News struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Category  string          `json:"category"`
	AddedBy   string          `json:"addedBy"`
	NewsImage *ImageReference `json:"newsImage"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// protectedFields are never taken from client payloads.
var protectedFields = map[string]struct{}{
	"addedBy":   {},
	"newsImage": {},
	"id":        {},
	"_id":       {},
	"createdAt": {},
	"updatedAt": {},
}

func IsProtectedField(key string) bool {
	_, ok := protectedFields[key]
	return ok
}

// ApplyFields copies the recognised content fields of a client payload onto n.
// Protected and unknown keys are skipped.
func (n *News) ApplyFields(fields map[string]any) error {
	for key, raw := range fields {
		if IsProtectedField(key) {
			continue
		}
		switch key {
		case "title":
			s, err := stringField(key, raw)
			if err != nil {
				return err
			}
			n.Title = s
		case "content":
			s, err := stringField(key, raw)
			if err != nil {
				return err
			}
			n.Content = s
		case "category":
			s, err := stringField(key, raw)
			if err != nil {
				return err
			}
			n.Category = s
		case "status":
			st, err := statusField(raw)
			if err != nil {
				return err
			}
			n.Status = st
		}
	}
	return nil
}

func stringField(key string, raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case []string:
		if len(v) == 1 {
			return strings.TrimSpace(v[0]), nil
		}
	}
	return "", fmt.Errorf("%w: %s must be a string", ErrInvalidField, key)
}

func statusField(raw any) (Status, error) {
	switch v := raw.(type) {
	case string:
		return ParseStatus(v)
	case []string:
		if len(v) == 1 {
			return ParseStatus(v[0])
		}
	case float64:
		if v == float64(int(v)) {
			return statusFromCode(int(v))
		}
	case int:
		return statusFromCode(v)
	case Status:
		if v.IsValid() {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: status %v is not recognised", ErrInvalidField, raw)
}

func (n News) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Title, validation.Required, validation.RuneLength(1, MaxTitleLength)),
		validation.Field(&n.Content, validation.RuneLength(0, MaxContentLength)),
		validation.Field(&n.Category, validation.RuneLength(0, MaxCategoryLength)),
		validation.Field(&n.AddedBy, validation.Required),
		validation.Field(&n.Status, validation.By(func(value interface{}) error {
			if s, _ := value.(Status); !s.IsValid() {
				return errors.New("unknown status")
			}
			return nil
		})),
	)
}

// IsAuthoredBy reports whether userID created the news item.
func (n *News) IsAuthoredBy(userID string) bool {
	return userID != "" && n.AddedBy == userID
}
