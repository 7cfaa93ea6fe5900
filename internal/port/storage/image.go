package storage

import (
	"context"

	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/entity"
)

type ImageStorage interface {
	// Upload stores the image under namespace and returns where it can be fetched
	// and how to delete it.
	Upload(ctx context.Context, img entity.ImageUpload, namespace string) (entity.ImageReference, error)
	Delete(ctx context.Context, deletionHandle string) error
}
