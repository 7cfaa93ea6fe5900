package mongo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/entity"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/port/repository"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const testDBName = "test_newsroom_db"

var testClient *mongo.Client

// TestMain starts a single-node replica set when GO_TEST_INTEGRATION=1;
// transactions are unavailable on a standalone mongod.
func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_INTEGRATION") != "1" {
		os.Exit(m.Run())
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}
	if err = pool.Client.Ping(); err != nil {
		log.Fatalf("Could not connect to Docker: %s", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "6.0",
		Cmd:        []string{"--replSet", "rs0", "--bind_ip_all"},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start MongoDB resource: %s", err)
	}
	uri := fmt.Sprintf("mongodb://%s/?directConnection=true", resource.GetHostPort("27017/tcp"))

	pool.MaxWait = 2 * time.Minute
	if err = pool.Retry(func() error {
		var errRetry error
		testClient, errRetry = mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
		if errRetry != nil {
			return errRetry
		}
		return testClient.Ping(context.Background(), nil)
	}); err != nil {
		log.Fatalf("Could not connect to MongoDB: %s", err)
	}

	initiate := bson.D{{Key: "replSetInitiate", Value: bson.M{
		"_id":     "rs0",
		"members": bson.A{bson.M{"_id": 0, "host": "localhost:27017"}},
	}}}
	if err = testClient.Database("admin").RunCommand(context.Background(), initiate).Err(); err != nil {
		log.Fatalf("Could not initiate replica set: %s", err)
	}

	if err = pool.Retry(func() error {
		var hello bson.M
		if errRetry := testClient.Database("admin").RunCommand(context.Background(), bson.D{{Key: "hello", Value: 1}}).Decode(&hello); errRetry != nil {
			return errRetry
		}
		if primary, _ := hello["isWritablePrimary"].(bool); !primary {
			return errors.New("replica set has no primary yet")
		}
		return nil
	}); err != nil {
		log.Fatalf("Replica set never elected a primary: %s", err)
	}

	if err = EnsureNewsIndexes(context.Background(), testClient.Database(testDBName)); err != nil {
		log.Fatalf("Could not create indexes: %s", err)
	}

	code := m.Run()

	_ = testClient.Disconnect(context.Background())
	if err = pool.Purge(resource); err != nil {
		log.Printf("Could not purge MongoDB resource: %s", err)
	}
	os.Exit(code)
}

func requireIntegration(t *testing.T) {
	t.Helper()
	if testClient == nil {
		t.Skip("set GO_TEST_INTEGRATION=1 to run MongoDB integration tests")
	}
}

func cleanNews(t *testing.T) {
	t.Helper()
	_, err := testClient.Database(testDBName).Collection(newsCollectionName).DeleteMany(context.Background(), bson.M{})
	require.NoError(t, err)
}

func newTestNews(author string, status entity.Status, createdAt time.Time) *entity.News {
	return &entity.News{
		Title:     "title by " + author,
		Content:   "content",
		AddedBy:   author,
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestNewsMongoRepository_Integration(t *testing.T) {
	requireIntegration(t)
	cleanNews(t)
	ctx := context.Background()
	repo := NewNewsMongoRepository(testClient, testDBName)
	base := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("save inserts then replaces", func(t *testing.T) {
		n := newTestNews("u1", entity.StatusActive, base)
		n.NewsImage = &entity.ImageReference{URI: "http://img/a.png", DeletionHandle: "news/a.png"}
		require.NoError(t, repo.Save(ctx, n))
		require.NotEmpty(t, n.ID)

		n.Status = entity.StatusDeleted
		require.NoError(t, repo.Save(ctx, n))

		got, err := repo.GetByID(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusDeleted, got.Status)
		assert.Equal(t, n.NewsImage, got.NewsImage)
		assert.Equal(t, "u1", got.AddedBy)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "000000000000000000000000")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		_, err = repo.GetByID(ctx, "bad-id")
		assert.ErrorIs(t, err, repository.ErrNotFound)

		err = repo.Save(ctx, &entity.News{ID: "000000000000000000000000", Title: "x"})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("update status leaves other fields alone", func(t *testing.T) {
		n := newTestNews("u1", entity.StatusActive, base)
		n.NewsImage = &entity.ImageReference{URI: "http://img/old.png", DeletionHandle: "news/old.png"}
		require.NoError(t, repo.Save(ctx, n))
		stale, err := repo.GetByID(ctx, n.ID)
		require.NoError(t, err)

		n.Title = "edited"
		n.NewsImage = &entity.ImageReference{URI: "http://img/new.png", DeletionHandle: "news/new.png"}
		require.NoError(t, repo.Save(ctx, n))

		require.NoError(t, repo.UpdateStatus(ctx, stale.ID, entity.StatusDeleted))

		got, err := repo.GetByID(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusDeleted, got.Status)
		assert.Equal(t, "edited", got.Title)
		assert.Equal(t, "news/new.png", got.NewsImage.DeletionHandle)
		assert.Equal(t, n.UpdatedAt, got.UpdatedAt)

		assert.ErrorIs(t, repo.UpdateStatus(ctx, "000000000000000000000000", entity.StatusDeleted), repository.ErrNotFound)
		assert.ErrorIs(t, repo.UpdateStatus(ctx, "bad-id", entity.StatusDeleted), repository.ErrNotFound)
	})

	t.Run("list filters", func(t *testing.T) {
		cleanNews(t)
		require.NoError(t, repo.Save(ctx, newTestNews("u1", entity.StatusActive, base)))
		require.NoError(t, repo.Save(ctx, newTestNews("u1", entity.StatusPending, base.Add(time.Second))))
		require.NoError(t, repo.Save(ctx, newTestNews("u2", entity.StatusActive, base.Add(2*time.Second))))

		active, err := repo.ListByStatus(ctx, entity.StatusActive)
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, "u2", active[0].AddedBy)

		mine, err := repo.ListByAuthor(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, entity.StatusPending, mine[0].Status)

		none, err := repo.ListByAuthor(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestTxManager_Integration(t *testing.T) {
	requireIntegration(t)
	cleanNews(t)
	ctx := context.Background()
	repo := NewNewsMongoRepository(testClient, testDBName)
	tx := NewTxManager(testClient, zap.NewNop())

	t.Run("commit persists", func(t *testing.T) {
		n := newTestNews("u1", entity.StatusActive, time.Now())
		err := tx.WithinTransaction(ctx, func(txCtx context.Context) error {
			return repo.Save(txCtx, n)
		})
		require.NoError(t, err)
		_, err = repo.GetByID(ctx, n.ID)
		assert.NoError(t, err)
	})

	t.Run("error aborts", func(t *testing.T) {
		n := newTestNews("u1", entity.StatusActive, time.Now())
		boom := errors.New("boom")
		err := tx.WithinTransaction(ctx, func(txCtx context.Context) error {
			if err := repo.Save(txCtx, n); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		_, err = repo.GetByID(ctx, n.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("panic aborts and propagates", func(t *testing.T) {
		n := newTestNews("u1", entity.StatusActive, time.Now())
		assert.Panics(t, func() {
			_ = tx.WithinTransaction(ctx, func(txCtx context.Context) error {
				_ = repo.Save(txCtx, n)
				panic("boom")
			})
		})
		_, err := repo.GetByID(ctx, n.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}
