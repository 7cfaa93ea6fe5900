package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/entity"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/port/cache"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/port/repository"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/port/storage"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type NATSPublisherInterface interface {
	PublishNewsCreated(ctx context.Context, news *entity.News) error
	PublishNewsUpdated(ctx context.Context, news *entity.News, actorID string) error
	PublishNewsDeleted(ctx context.Context, newsID, actorID string) error
}

const (
	// The active list is cached under activeNewsCacheKey:<generation>. Writes
	// move activeNewsGenerationKey to a fresh value, so a list read before a
	// write can only ever be stored under a generation nobody looks up again.
	activeNewsCacheKey      = "news:active"
	activeNewsGenerationKey = "news:active:generation"
	defaultActiveNewsTTL = time.Minute
	imageNamespace       = "news"
	imageCleanupTimeout  = 10 * time.Second
)

type NewsUseCase struct {
	newsRepo      repository.NewsRepository
	txManager     repository.TxManager
	images        storage.ImageStorage
	natsPublisher NATSPublisherInterface
	cacheRepo     cache.CacheRepository
	metrics       *metrics.MetricsManager
	logger        *zap.Logger
	tracer        trace.Tracer
	activeListTTL time.Duration
	now           func() time.Time
	newGeneration func() string
}

// NewNewsUseCase wires the news workflows. np, cr and m may be nil.
func NewNewsUseCase(
	nr repository.NewsRepository,
	tx repository.TxManager,
	images storage.ImageStorage,
	np NATSPublisherInterface,
	cr cache.CacheRepository,
	m *metrics.MetricsManager,
	activeListTTL time.Duration,
	log *zap.Logger,
) *NewsUseCase {
	if activeListTTL <= 0 {
		activeListTTL = defaultActiveNewsTTL
	}
	return &NewsUseCase{
		newsRepo:      nr,
		txManager:     tx,
		images:        images,
		natsPublisher: np,
		cacheRepo:     cr,
		metrics:       m,
		logger:        log,
		tracer:        otel.Tracer("newsroom-service/usecase"),
		activeListTTL: activeListTTL,
		now:           func() time.Time { return time.Now().UTC() },
		newGeneration: uuid.NewString,
	}
}

type CreateNewsInput struct {
	Fields map[string]any
	Image  *entity.ImageUpload
	Caller entity.Identity
}

type UpdateNewsInput struct {
	NewsID string
	Fields map[string]any
	// Image is nil when the request carries no replacement image.
	Image  *entity.ImageUpload
	Caller entity.Identity
}

type DeleteNewsInput struct {
	NewsID string
	Caller entity.Identity
}

func (uc *NewsUseCase) startSpan(ctx context.Context, name string, caller entity.Identity) (context.Context, trace.Span) {
	return uc.tracer.Start(ctx, "NewsUseCase."+name, trace.WithAttributes(
		attribute.String("caller.id", caller.ID),
		attribute.String("caller.role", string(caller.Role)),
	))
}

func (uc *NewsUseCase) finish(span trace.Span, operation string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	uc.metrics.ObserveOperation(operation, err)
}

func (uc *NewsUseCase) CreateNews(ctx context.Context, input CreateNewsInput) (_ *entity.News, err error) {
	ctx, span := uc.startSpan(ctx, "CreateNews", input.Caller)
	defer func() { uc.finish(span, "create", err) }()

	if input.Image == nil {
		return nil, fmt.Errorf("NewsUseCase.CreateNews: %w", validationErr("news image is required", nil))
	}

	now := uc.now()
	news := &entity.News{Status: entity.DefaultStatus}
	if err := news.ApplyFields(input.Fields); err != nil {
		return nil, fmt.Errorf("NewsUseCase.CreateNews: %w", invalidInput(err))
	}
	news.AddedBy = input.Caller.ID
	news.CreatedAt = now
	news.UpdatedAt = now
	if err := news.Validate(); err != nil {
		return nil, fmt.Errorf("NewsUseCase.CreateNews: %w", invalidInput(err))
	}

	var uploaded *entity.ImageReference
	err = uc.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		ref, err := uc.images.Upload(txCtx, *input.Image, imageNamespace)
		uc.metrics.ObserveImage("upload", err)
		if err != nil {
			return fmt.Errorf("failed to upload news image: %w", err)
		}
		uploaded = &ref
		news.NewsImage = &ref

		if err := uc.newsRepo.Save(txCtx, news); err != nil {
			return fmt.Errorf("failed to save news: %w", err)
		}
		return nil
	})
	if err != nil {
		uc.logger.Error("Failed to create news", zap.Error(err), zap.String("caller_id", input.Caller.ID))
		if uploaded != nil {
			uc.compensateUpload(ctx, uploaded.DeletionHandle, err)
		}
		return nil, fmt.Errorf("NewsUseCase.CreateNews: %w", err)
	}
	span.SetAttributes(attribute.String("news.id", news.ID))

	uc.invalidateActiveList(ctx)
	if uc.natsPublisher != nil {
		if errPub := uc.natsPublisher.PublishNewsCreated(ctx, news); errPub != nil {
			uc.logger.Warn("Failed to publish NATS event for news created",
				zap.Error(errPub),
				zap.String("news_id", news.ID),
			)
		}
	}

	uc.logger.Info("News created", zap.String("news_id", news.ID), zap.String("added_by", news.AddedBy))
	return news, nil
}

// ListActiveNews returns every ACTIVE item to users and the caller's own items,
// in any status, to admins. Other roles get an empty list.
func (uc *NewsUseCase) ListActiveNews(ctx context.Context, caller entity.Identity) (_ []*entity.News, err error) {
	ctx, span := uc.startSpan(ctx, "ListActiveNews", caller)
	defer func() { uc.finish(span, "list", err) }()

	var list []*entity.News
	switch caller.Role {
	case entity.RoleUser:
		list, err = uc.listActive(ctx)
	case entity.RoleAdmin:
		list, err = uc.newsRepo.ListByAuthor(ctx, caller.ID)
	default:
		uc.logger.Debug("Listing news for unrecognised role", zap.String("role", string(caller.Role)))
	}
	if err != nil {
		uc.logger.Error("Failed to list news from repository", zap.Error(err), zap.String("role", string(caller.Role)))
		return nil, fmt.Errorf("NewsUseCase.ListActiveNews: failed to list news from repo: %w", err)
	}
	if list == nil {
		list = []*entity.News{}
	}
	span.SetAttributes(attribute.Int("news.count", len(list)))
	return list, nil
}

func (uc *NewsUseCase) listActive(ctx context.Context) ([]*entity.News, error) {
	key, cacheable := uc.activeListKey(ctx)
	if cacheable {
		cached, err := uc.cacheRepo.Get(ctx, key)
		if err == nil {
			var list []*entity.News
			unmarshalErr := json.Unmarshal(cached, &list)
			if unmarshalErr == nil {
				uc.logger.Debug("Active news served from cache", zap.Int("count", len(list)))
				return list, nil
			}
			uc.logger.Warn("Failed to unmarshal active news from cache", zap.Error(unmarshalErr), zap.String("key", key))
			if delErr := uc.cacheRepo.Delete(ctx, key); delErr != nil {
				uc.logger.Warn("Failed to drop corrupt active news entry", zap.Error(delErr), zap.String("key", key))
			}
		} else if !errors.Is(err, cache.ErrNotFound) {
			uc.logger.Warn("Failed to get active news from cache (not a cache miss)", zap.Error(err))
		}
	}

	list, err := uc.newsRepo.ListByStatus(ctx, entity.StatusActive)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if data, marshalErr := json.Marshal(list); marshalErr != nil {
			uc.logger.Warn("Failed to marshal active news for caching", zap.Error(marshalErr))
		} else if setErr := uc.cacheRepo.Set(ctx, key, data, uc.activeListTTL); setErr != nil {
			uc.logger.Warn("Failed to cache active news", zap.Error(setErr))
		}
	}
	return list, nil
}

// activeListKey resolves the cache key of the current generation. It must run
// before the repository read. A missing generation is started fresh rather than
// defaulted, so an evicted generation cannot resurrect an older entry.
func (uc *NewsUseCase) activeListKey(ctx context.Context) (string, bool) {
	if uc.cacheRepo == nil {
		return "", false
	}
	raw, err := uc.cacheRepo.Get(ctx, activeNewsGenerationKey)
	switch {
	case err == nil && len(raw) > 0:
		return activeNewsCacheKey + ":" + string(raw), true
	case err != nil && !errors.Is(err, cache.ErrNotFound):
		uc.logger.Warn("Failed to read active news generation, bypassing cache", zap.Error(err))
		return "", false
	}
	gen, ok := uc.bumpGeneration(ctx)
	if !ok {
		return "", false
	}
	return activeNewsCacheKey + ":" + gen, true
}

func (uc *NewsUseCase) bumpGeneration(ctx context.Context) (string, bool) {
	gen := uc.newGeneration()
	if err := uc.cacheRepo.Set(ctx, activeNewsGenerationKey, []byte(gen), 0); err != nil {
		uc.logger.Warn("Failed to advance active news generation", zap.Error(err))
		return "", false
	}
	return gen, true
}

// DeleteNews soft-deletes: only the status field is written. Repeating it is not an error.
func (uc *NewsUseCase) DeleteNews(ctx context.Context, input DeleteNewsInput) (err error) {
	ctx, span := uc.startSpan(ctx, "DeleteNews", input.Caller)
	span.SetAttributes(attribute.String("news.id", input.NewsID))
	defer func() { uc.finish(span, "delete", err) }()

	news, err := uc.newsRepo.GetByID(ctx, input.NewsID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			uc.logger.Error("Failed to get news by ID from repository", zap.Error(err), zap.String("news_id", input.NewsID))
		}
		return fmt.Errorf("NewsUseCase.DeleteNews: failed to get news from repo: %w", mapRepoErr(err))
	}
	if !news.IsAuthoredBy(input.Caller.ID) {
		return fmt.Errorf("NewsUseCase.DeleteNews: news %s: %w", input.NewsID, ErrForbidden)
	}

	if err := uc.newsRepo.UpdateStatus(ctx, news.ID, entity.StatusDeleted); err != nil {
		uc.logger.Error("Failed to mark news as deleted", zap.Error(err), zap.String("news_id", input.NewsID))
		return fmt.Errorf("NewsUseCase.DeleteNews: failed to update news status: %w", mapRepoErr(err))
	}

	uc.invalidateActiveList(ctx)
	if uc.natsPublisher != nil {
		if errPub := uc.natsPublisher.PublishNewsDeleted(ctx, news.ID, input.Caller.ID); errPub != nil {
			uc.logger.Warn("Failed to publish NATS event for news deleted",
				zap.Error(errPub),
				zap.String("news_id", news.ID),
			)
		}
	}

	uc.logger.Info("News deleted", zap.String("news_id", news.ID))
	return nil
}

// UpdateNews merges the non-protected fields and, when given, swaps the image.
// The previous image is removed only once the new reference is committed.
func (uc *NewsUseCase) UpdateNews(ctx context.Context, input UpdateNewsInput) (_ *entity.News, err error) {
	ctx, span := uc.startSpan(ctx, "UpdateNews", input.Caller)
	span.SetAttributes(attribute.String("news.id", input.NewsID))
	defer func() { uc.finish(span, "update", err) }()

	var (
		updated  *entity.News
		oldImage *entity.ImageReference
		uploaded *entity.ImageReference
	)
	err = uc.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		news, err := uc.newsRepo.GetByID(txCtx, input.NewsID)
		if err != nil {
			return fmt.Errorf("failed to get news from repo: %w", mapRepoErr(err))
		}
		if !news.IsAuthoredBy(input.Caller.ID) {
			return fmt.Errorf("news %s: %w", input.NewsID, ErrForbidden)
		}
		oldImage = news.NewsImage

		if err := news.ApplyFields(input.Fields); err != nil {
			return invalidInput(err)
		}
		news.UpdatedAt = uc.now()
		if err := news.Validate(); err != nil {
			return invalidInput(err)
		}

		if input.Image != nil {
			ref, err := uc.images.Upload(txCtx, *input.Image, imageNamespace)
			uc.metrics.ObserveImage("upload", err)
			if err != nil {
				return fmt.Errorf("failed to upload news image: %w", err)
			}
			uploaded = &ref
			news.NewsImage = &ref
		}

		if err := uc.newsRepo.Save(txCtx, news); err != nil {
			return fmt.Errorf("failed to save news: %w", mapRepoErr(err))
		}
		updated = news
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrForbidden) && !errors.Is(err, ErrValidation) {
			uc.logger.Error("Failed to update news", zap.Error(err), zap.String("news_id", input.NewsID))
		}
		if uploaded != nil {
			uc.compensateUpload(ctx, uploaded.DeletionHandle, err)
		}
		return nil, fmt.Errorf("NewsUseCase.UpdateNews: %w", err)
	}

	if uploaded != nil && oldImage != nil && oldImage.DeletionHandle != "" {
		uc.discardImage(ctx, oldImage.DeletionHandle, "delete")
	}

	uc.invalidateActiveList(ctx)
	if uc.natsPublisher != nil {
		if errPub := uc.natsPublisher.PublishNewsUpdated(ctx, updated, input.Caller.ID); errPub != nil {
			uc.logger.Warn("Failed to publish NATS event for news updated",
				zap.Error(errPub),
				zap.String("news_id", updated.ID),
			)
		}
	}

	uc.logger.Info("News updated", zap.String("news_id", updated.ID), zap.Bool("image_replaced", uploaded != nil))
	return updated, nil
}

// compensateUpload removes a blob uploaded by a failed unit of work. When the
// commit outcome is unknown the document may reference the blob, so it is kept.
func (uc *NewsUseCase) compensateUpload(ctx context.Context, handle string, txErr error) {
	if errors.Is(txErr, repository.ErrTxOutcomeUnknown) {
		uc.logger.Error("Commit outcome unknown, keeping uploaded image",
			zap.Error(txErr),
			zap.String("deletion_handle", handle),
		)
		return
	}
	uc.discardImage(ctx, handle, "compensate")
}

// discardImage removes a blob best-effort. It survives cancellation of the
// request context.
func (uc *NewsUseCase) discardImage(ctx context.Context, handle, action string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), imageCleanupTimeout)
	defer cancel()

	err := uc.images.Delete(cleanupCtx, handle)
	uc.metrics.ObserveImage(action, err)
	if err != nil {
		uc.logger.Warn("Failed to delete image from store",
			zap.Error(err),
			zap.String("deletion_handle", handle),
			zap.String("action", action),
		)
	}
}

// invalidateActiveList runs after a committed write. Entries of older
// generations are left to expire.
func (uc *NewsUseCase) invalidateActiveList(ctx context.Context) {
	if uc.cacheRepo == nil {
		return
	}
	if _, ok := uc.bumpGeneration(ctx); !ok {
		uc.logger.Warn("Active news cache may serve stale data until it expires", zap.Duration("ttl", uc.activeListTTL))
	}
}
