package usecase

import (
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/port/repository"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("news not found")
	ErrForbidden  = errors.New("operation not allowed for this user")
)

// ValidationError carries a client-facing reason and matches ErrValidation.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func validationErr(reason string, cause error) error {
	return &ValidationError{Reason: reason, Err: cause}
}

func invalidInput(err error) error {
	return &ValidationError{Reason: err.Error(), Err: err}
}

// mapRepoErr turns repository.ErrNotFound into ErrNotFound and keeps the cause.
func mapRepoErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
