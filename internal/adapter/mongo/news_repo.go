package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/entity"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/port/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const newsCollectionName = "news"

type NewsMongoRepository struct {
	db *mongo.Database
}

func NewNewsMongoRepository(client *mongo.Client, dbName string) *NewsMongoRepository {
	return &NewsMongoRepository{
		db: client.Database(dbName),
	}
}

type imageDocument struct {
	URI            string `bson:"uri"`
	DeletionHandle string `bson:"deletion_handle"`
}

type newsDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	Category  string             `bson:"category"`
	AddedBy   string             `bson:"added_by"`
	NewsImage *imageDocument     `bson:"news_image"`
	Status    int32              `bson:"status"`
	CreatedAt primitive.DateTime `bson:"created_at"`
	UpdatedAt primitive.DateTime `bson:"updated_at"`
}

func toNewsDocument(n *entity.News) (*newsDocument, error) {
	doc := &newsDocument{
		Title:     n.Title,
		Content:   n.Content,
		Category:  n.Category,
		AddedBy:   n.AddedBy,
		Status:    int32(n.Status),
		CreatedAt: primitive.NewDateTimeFromTime(n.CreatedAt),
		UpdatedAt: primitive.NewDateTimeFromTime(n.UpdatedAt),
	}
	if n.NewsImage != nil {
		doc.NewsImage = &imageDocument{
			URI:            n.NewsImage.URI,
			DeletionHandle: n.NewsImage.DeletionHandle,
		}
	}
	if n.ID != "" {
		objID, err := primitive.ObjectIDFromHex(n.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid news ID format: %w", err)
		}
		doc.ID = objID
	}
	return doc, nil
}

func toNewsEntity(doc *newsDocument) *entity.News {
	n := &entity.News{
		ID:        doc.ID.Hex(),
		Title:     doc.Title,
		Content:   doc.Content,
		Category:  doc.Category,
		AddedBy:   doc.AddedBy,
		Status:    entity.Status(doc.Status),
		CreatedAt: doc.CreatedAt.Time().UTC(),
		UpdatedAt: doc.UpdatedAt.Time().UTC(),
	}
	if doc.NewsImage != nil {
		n.NewsImage = &entity.ImageReference{
			URI:            doc.NewsImage.URI,
			DeletionHandle: doc.NewsImage.DeletionHandle,
		}
	}
	return n
}

func (r *NewsMongoRepository) Save(ctx context.Context, news *entity.News) error {
	doc, err := toNewsDocument(news)
	if err != nil {
		return err
	}
	coll := r.db.Collection(newsCollectionName)

	if doc.ID.IsZero() {
		res, err := coll.InsertOne(ctx, doc)
		if err != nil {
			return fmt.Errorf("failed to insert news in mongo: %w", err)
		}
		insertedID, ok := res.InsertedID.(primitive.ObjectID)
		if !ok {
			return fmt.Errorf("failed to convert inserted_id to ObjectID")
		}
		news.ID = insertedID.Hex()
		return nil
	}

	res, err := coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return fmt.Errorf("failed to replace news in mongo: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateStatus sets status alone, so writes that landed after the caller's read survive.
func (r *NewsMongoRepository) UpdateStatus(ctx context.Context, id string, status entity.Status) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}

	res, err := r.db.Collection(newsCollectionName).UpdateOne(ctx,
		bson.M{"_id": objID},
		bson.M{"$set": bson.M{"status": int32(status)}},
	)
	if err != nil {
		return fmt.Errorf("failed to update news status in mongo: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *NewsMongoRepository) GetByID(ctx context.Context, id string) (*entity.News, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var doc newsDocument
	err = r.db.Collection(newsCollectionName).FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get news by id from mongo: %w", err)
	}
	return toNewsEntity(&doc), nil
}

func (r *NewsMongoRepository) ListByStatus(ctx context.Context, status entity.Status) ([]*entity.News, error) {
	return r.find(ctx, bson.M{"status": int32(status)})
}

func (r *NewsMongoRepository) ListByAuthor(ctx context.Context, authorID string) ([]*entity.News, error) {
	return r.find(ctx, bson.M{"added_by": authorID})
}

func (r *NewsMongoRepository) find(ctx context.Context, filter bson.M) ([]*entity.News, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.db.Collection(newsCollectionName).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list news from mongo: %w", err)
	}
	defer cursor.Close(ctx)

	var newsDocs []newsDocument
	if err = cursor.All(ctx, &newsDocs); err != nil {
		return nil, fmt.Errorf("failed to decode news list from mongo: %w", err)
	}

	newsEntities := make([]*entity.News, len(newsDocs))
	for i := range newsDocs {
		newsEntities[i] = toNewsEntity(&newsDocs[i])
	}
	return newsEntities, nil
}
