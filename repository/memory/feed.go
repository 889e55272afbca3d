package memory

import (
	"context"
	"sync"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
)

const subscriptionBuffer = 64

// Feed is an in-process change feed. Slow subscribers drop changes once
// their buffer is full, like a pub/sub channel would.
type Feed struct {
	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[string]map[*subscription]struct{})}
}

var _ repository.ChangeFeed = (*Feed)(nil)

func (f *Feed) Publish(ctx context.Context, change domain.Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs[change.Collection] {
		select {
		case sub.ch <- change:
		default:
		}
	}
	return nil
}

func (f *Feed) Subscribe(ctx context.Context, collection string) (repository.Subscription, error) {
	sub := &subscription{
		feed:       f,
		collection: collection,
		ch:         make(chan domain.Change, subscriptionBuffer),
	}
	f.mu.Lock()
	if f.subs[collection] == nil {
		f.subs[collection] = make(map[*subscription]struct{})
	}
	f.subs[collection][sub] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()
	return sub, nil
}

type subscription struct {
	feed       *Feed
	collection string
	ch         chan domain.Change
	once       sync.Once
}

func (s *subscription) Changes() <-chan domain.Change { return s.ch }

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs[s.collection], s)
		s.feed.mu.Unlock()
		close(s.ch)
	})
	return nil
}
