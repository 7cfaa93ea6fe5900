package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentMessage struct {
	subject string
	data    []byte
}

type fakeConn struct {
	sent []sentMessage
	err  error
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{subject: subj, data: data})
	return nil
}

func newTestPublisher(c *fakeConn) *Publisher {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &Publisher{pub: c, logger: zap.NewNop(), now: func() time.Time { return fixed }}
}

func TestPublisher(t *testing.T) {
	ctx := context.Background()
	news := &entity.News{ID: "n1", Title: "A", AddedBy: "u1", Status: entity.StatusActive}

	t.Run("created", func(t *testing.T) {
		c := &fakeConn{}
		require.NoError(t, newTestPublisher(c).PublishNewsCreated(ctx, news))
		require.Len(t, c.sent, 1)
		assert.Equal(t, NewsCreatedSubject, c.sent[0].subject)

		var ev NewsEvent
		require.NoError(t, json.Unmarshal(c.sent[0].data, &ev))
		assert.Equal(t, "n1", ev.NewsID)
		assert.Equal(t, "u1", ev.ActorID)
		require.NotNil(t, ev.News)
		assert.Equal(t, entity.StatusActive, ev.News.Status)
		assert.Equal(t, 2024, ev.OccurredAt.Year())
	})

	t.Run("updated and deleted", func(t *testing.T) {
		c := &fakeConn{}
		p := newTestPublisher(c)
		require.NoError(t, p.PublishNewsUpdated(ctx, news, "u1"))
		require.NoError(t, p.PublishNewsDeleted(ctx, "n1", "u1"))
		require.Len(t, c.sent, 2)
		assert.Equal(t, NewsUpdatedSubject, c.sent[0].subject)
		assert.Equal(t, NewsDeletedSubject, c.sent[1].subject)
		assert.NotContains(t, string(c.sent[1].data), `"news"`)
	})

	t.Run("publish error", func(t *testing.T) {
		c := &fakeConn{err: errors.New("connection closed")}
		err := newTestPublisher(c).PublishNewsDeleted(ctx, "n1", "u1")
		assert.ErrorContains(t, err, NewsDeletedSubject)
	})

	t.Run("close without connection", func(t *testing.T) {
		assert.NotPanics(t, func() { newTestPublisher(&fakeConn{}).Close() })
	})
}
