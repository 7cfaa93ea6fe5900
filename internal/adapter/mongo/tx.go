package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/port/repository"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// TxManager runs units of work in a MongoDB session transaction. It needs a
// replica set or sharded cluster.
type TxManager struct {
	client *mongo.Client
	logger *zap.Logger
}

func NewTxManager(client *mongo.Client, logger *zap.Logger) *TxManager {
	return &TxManager{client: client, logger: logger}
}

// WithinTransaction does not retry fn on transient errors: fn may have side
// effects outside the database that must happen at most once.
func (m *TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	sess, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start mongo session: %w", err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err = sess.StartTransaction(txnOpts); err != nil {
		return fmt.Errorf("failed to start mongo transaction: %w", err)
	}

	sessCtx := mongo.NewSessionContext(ctx, sess)

	defer func() {
		if p := recover(); p != nil {
			m.abort(ctx, sess)
			panic(p)
		}
	}()

	if err = fn(sessCtx); err != nil {
		m.abort(ctx, sess)
		return err
	}

	if err = sess.CommitTransaction(sessCtx); err != nil {
		return commitError(err)
	}
	return nil
}

const unknownCommitResultLabel = "UnknownTransactionCommitResult"

// commitError marks commits the server may have applied despite the error.
func commitError(err error) error {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorLabel(unknownCommitResultLabel) {
		return fmt.Errorf("failed to commit mongo transaction: %w: %w", repository.ErrTxOutcomeUnknown, err)
	}
	return fmt.Errorf("failed to commit mongo transaction: %w", err)
}

func (m *TxManager) abort(ctx context.Context, sess mongo.Session) {
	// the request context may already be cancelled; abort must still reach the server
	if err := sess.AbortTransaction(context.WithoutCancel(ctx)); err != nil {
		m.logger.Warn("Failed to abort mongo transaction", zap.Error(err))
	}
}
