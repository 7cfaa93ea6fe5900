package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/entity"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	NewsCreatedSubject = "news.created"
	NewsUpdatedSubject = "news.updated"
	NewsDeletedSubject = "news.deleted"
)

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subj string, data []byte) error
}

type Publisher struct {
	nc     *nats.Conn
	pub    conn
	logger *zap.Logger
	now    func() time.Time
}

// NewsEvent is the message body of every news subject.
type NewsEvent struct {
	NewsID     string       `json:"newsId"`
	ActorID    string       `json:"actorId,omitempty"`
	OccurredAt time.Time    `json:"occurredAt"`
	News       *entity.News `json:"news,omitempty"`
}

func NewNATSPublisher(cfg *config.NATSConfig, logger *zap.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("newsroom-service"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Error("NATS error", zap.String("subject", subject), zap.Error(err))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("Successfully connected to NATS", zap.String("url", nc.ConnectedUrl()))

	return &Publisher{nc: nc, pub: nc, logger: logger, now: time.Now}, nil
}

func (p *Publisher) PublishNewsCreated(ctx context.Context, news *entity.News) error {
	return p.publish(NewsCreatedSubject, NewsEvent{NewsID: news.ID, ActorID: news.AddedBy, News: news})
}

func (p *Publisher) PublishNewsUpdated(ctx context.Context, news *entity.News, actorID string) error {
	return p.publish(NewsUpdatedSubject, NewsEvent{NewsID: news.ID, ActorID: actorID, News: news})
}

func (p *Publisher) PublishNewsDeleted(ctx context.Context, newsID, actorID string) error {
	return p.publish(NewsDeletedSubject, NewsEvent{NewsID: newsID, ActorID: actorID})
}

func (p *Publisher) publish(subject string, event NewsEvent) error {
	event.OccurredAt = p.now().UTC()
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event for %s: %w", subject, err)
	}

	if err := p.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish NATS message for %s: %w", subject, err)
	}
	p.logger.Info("Published NATS message",
		zap.String("subject", subject),
		zap.String("news_id", event.NewsID),
	)
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil && !p.nc.IsClosed() {
		if err := p.nc.Drain(); err != nil {
			p.logger.Error("Error draining NATS connection", zap.Error(err))
		}
		p.nc.Close()
		p.logger.Info("NATS publisher connection closed")
	}
}
