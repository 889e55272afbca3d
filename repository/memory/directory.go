// Package memory holds process-local implementations of the repository
// ports. They back the STORE_DRIVER=memory mode and the unit tests.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
)

// Store implements repository.Directory and repository.Outbox over maps.
// RunTx holds the store lock for the whole callback, so callbacks must only
// use the Tx they are given.
type Store struct {
	mu     sync.Mutex
	docs   map[string]domain.Document
	outbox map[string]*domain.OutboxMessage
	now    func() time.Time
}

func NewStore() *Store {
	return &Store{
		docs:   make(map[string]domain.Document),
		outbox: make(map[string]*domain.OutboxMessage),
		now:    time.Now,
	}
}

var (
	_ repository.Directory = (*Store)(nil)
	_ repository.Outbox    = (*Store)(nil)
)

func (s *Store) Get(ctx context.Context, path string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[path]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return cloneDoc(doc), nil
}

func (s *Store) List(ctx context.Context, collection string) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var docs []domain.Document
	for path, doc := range s.docs {
		if parent, _ := domain.SplitPath(path); parent == collection {
			docs = append(docs, *cloneDoc(doc))
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

func (s *Store) Set(ctx context.Context, path string, value interface{}) error {
	return s.RunTx(ctx, func(tx repository.Tx) error { return tx.Set(ctx, path, value) })
}

func (s *Store) Patch(ctx context.Context, path string, fields map[string]interface{}) error {
	return s.RunTx(ctx, func(tx repository.Tx) error { return tx.Patch(ctx, path, fields) })
}

func (s *Store) Delete(ctx context.Context, path string) error {
	return s.RunTx(ctx, func(tx repository.Tx) error { return tx.Delete(ctx, path) })
}

func (s *Store) RunTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, staged: make(map[string]*domain.Document)}
	if err := fn(tx); err != nil {
		return err
	}
	for path, doc := range tx.staged {
		if doc == nil {
			delete(s.docs, path)
			continue
		}
		s.docs[path] = *doc
	}
	for _, msg := range tx.outbox {
		s.outbox[msg.ID] = msg
	}
	return nil
}

type memTx struct {
	store  *Store
	staged map[string]*domain.Document
	outbox []*domain.OutboxMessage
}

func (t *memTx) lookup(path string) (*domain.Document, bool) {
	if doc, ok := t.staged[path]; ok {
		return doc, doc != nil
	}
	doc, ok := t.store.docs[path]
	if !ok {
		return nil, false
	}
	return cloneDoc(doc), true
}

func (t *memTx) Get(ctx context.Context, path string) (*domain.Document, error) {
	doc, ok := t.lookup(path)
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return cloneDoc(*doc), nil
}

func (t *memTx) Set(ctx context.Context, path string, value interface{}) error {
	if !domain.ValidPath(path) {
		return domain.Invalid("invalid document path %q", path)
	}
	data, err := marshal(value)
	if err != nil {
		return err
	}
	doc := &domain.Document{Path: path, Data: data}
	if existing, ok := t.lookup(path); ok {
		doc.CreatedAt = existing.CreatedAt
	}
	doc.UpdatedAt = t.store.now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}
	t.staged[path] = doc
	return nil
}

func (t *memTx) Patch(ctx context.Context, path string, fields map[string]interface{}) error {
	doc, ok := t.lookup(path)
	if !ok {
		return domain.ErrDocumentNotFound
	}
	merged := make(map[string]json.RawMessage)
	if len(doc.Data) > 0 {
		if err := json.Unmarshal(doc.Data, &merged); err != nil {
			return err
		}
	}
	for key, value := range fields {
		raw, err := marshal(value)
		if err != nil {
			return err
		}
		merged[key] = raw
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	doc.Data = data
	doc.UpdatedAt = t.store.now().UTC()
	t.staged[path] = doc
	return nil
}

func (t *memTx) Delete(ctx context.Context, path string) error {
	if _, ok := t.lookup(path); !ok {
		return domain.ErrDocumentNotFound
	}
	t.staged[path] = nil
	return nil
}

func (t *memTx) Enqueue(ctx context.Context, msg *domain.OutboxMessage) error {
	if msg == nil {
		return domain.ErrInvalidPayload
	}
	normalizeMessage(msg, t.store.now())
	clone := *msg
	t.outbox = append(t.outbox, &clone)
	return nil
}

func normalizeMessage(msg *domain.OutboxMessage, now time.Time) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.State == "" {
		msg.State = domain.OutboxPending
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now.UTC()
	}
	if msg.NextAttemptAt.IsZero() {
		msg.NextAttemptAt = msg.CreatedAt
	}
}

func marshal(value interface{}) (json.RawMessage, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return append(json.RawMessage(nil), raw...), nil
	}
	return json.Marshal(value)
}

func cloneDoc(doc domain.Document) *domain.Document {
	doc.Data = append(json.RawMessage(nil), doc.Data...)
	return &doc
}
