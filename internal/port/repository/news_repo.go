package repository

import (
	"context"
	"errors"

	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/entity"
)

var ErrNotFound = errors.New("document not found")

// ErrTxOutcomeUnknown is returned when a commit failed in a way that leaves it
// unknown whether the transaction was applied.
var ErrTxOutcomeUnknown = errors.New("transaction outcome unknown")

type NewsRepository interface {
	// Save inserts news when its ID is empty (assigning the new ID) and replaces it otherwise.
	Save(ctx context.Context, news *entity.News) error
	// UpdateStatus writes only the status field of an existing document.
	UpdateStatus(ctx context.Context, id string, status entity.Status) error
	GetByID(ctx context.Context, id string) (*entity.News, error)
	ListByStatus(ctx context.Context, status entity.Status) ([]*entity.News, error)
	ListByAuthor(ctx context.Context, authorID string) ([]*entity.News, error)
}

// TxManager runs fn inside a single storage transaction. The transaction is
// committed when fn returns nil and aborted otherwise, including on panic.
// Repository calls made with the ctx handed to fn take part in the transaction.
// A commit error wrapping ErrTxOutcomeUnknown may still have been applied.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
