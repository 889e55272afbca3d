package redis

import (
	"context"
	"encoding/json"
	"sync"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
)

const changeBuffer = 64

type changeFeed struct {
	client *redislib.Client
	prefix string
	logger *zap.Logger
}

// NewChangeFeed publishes document changes on one Redis channel per collection.
func NewChangeFeed(client *redislib.Client, logger *zap.Logger) repository.ChangeFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &changeFeed{
		client: client,
		prefix: "greenbite:changes:",
		logger: logger,
	}
}

func (f *changeFeed) Publish(ctx context.Context, change domain.Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "encode change", err)
	}
	if err := f.client.Publish(ctx, f.channel(change.Collection), payload).Err(); err != nil {
		return domain.Unavailable("publish change", err)
	}
	return nil
}

func (f *changeFeed) Subscribe(ctx context.Context, collection string) (repository.Subscription, error) {
	pubsub := f.client.Subscribe(ctx, f.channel(collection))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, domain.Unavailable("subscribe changes", err)
	}

	sub := &changeSubscription{
		pubsub: pubsub,
		ch:     make(chan domain.Change, changeBuffer),
		done:   make(chan struct{}),
	}
	go sub.pump(f.logger)
	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

func (f *changeFeed) channel(collection string) string {
	return f.prefix + collection
}

type changeSubscription struct {
	pubsub *redislib.PubSub
	ch     chan domain.Change
	done   chan struct{}
	once   sync.Once
}

func (s *changeSubscription) pump(logger *zap.Logger) {
	defer close(s.ch)
	for msg := range s.pubsub.Channel() {
		var change domain.Change
		if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
			logger.Warn("dropping malformed change", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		select {
		case s.ch <- change:
		case <-s.done:
			return
		}
	}
}

func (s *changeSubscription) Changes() <-chan domain.Change { return s.ch }

func (s *changeSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}
