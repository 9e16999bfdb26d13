package service

import (
	"context"
	"sync"

	"github.com/nandanugg/collector-tracker/module/core/domain"
)

type mockDocumentRepo struct {
	setFn       func(ctx context.Context, path string, body map[string]any) error
	incrementFn func(ctx context.Context, path, field string, delta float64, fields map[string]any) error
	getFn       func(ctx context.Context, path string) (*domain.Document, error)
	childrenFn  func(ctx context.Context, parent string) ([]domain.Document, error)
}

func (m *mockDocumentRepo) Set(ctx context.Context, path string, body map[string]any) error {
	return m.setFn(ctx, path, body)
}

func (m *mockDocumentRepo) Increment(ctx context.Context, path, field string, delta float64, fields map[string]any) error {
	return m.incrementFn(ctx, path, field, delta, fields)
}

func (m *mockDocumentRepo) Get(ctx context.Context, path string) (*domain.Document, error) {
	return m.getFn(ctx, path)
}

func (m *mockDocumentRepo) Children(ctx context.Context, parent string) ([]domain.Document, error) {
	return m.childrenFn(ctx, parent)
}

type recordingQueue struct {
	mu    sync.Mutex
	snaps []domain.FlushSnapshot
}

func (q *recordingQueue) Submit(snap domain.FlushSnapshot) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.snaps = append(q.snaps, snap)
	return true
}

func (q *recordingQueue) all() []domain.FlushSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.FlushSnapshot(nil), q.snaps...)
}

type mockPublisher struct {
	mu        sync.Mutex
	publishFn func(ctx context.Context, evt domain.Event) error
	events    []domain.Event
}

func (m *mockPublisher) Publish(ctx context.Context, evt domain.Event) error {
	m.mu.Lock()
	m.events = append(m.events, evt)
	m.mu.Unlock()
	if m.publishFn != nil {
		return m.publishFn(ctx, evt)
	}
	return nil
}

func (m *mockPublisher) kinds() []domain.EventKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.EventKind, len(m.events))
	for i, e := range m.events {
		out[i] = e.Kind
	}
	return out
}

type mockProvider struct {
	watchFn func(ctx context.Context, userID string, opts ProviderOptions, onSample func(domain.RawSample), onError func(error)) (func(), error)
}

func (m *mockProvider) Watch(ctx context.Context, userID string, opts ProviderOptions, onSample func(domain.RawSample), onError func(error)) (func(), error) {
	return m.watchFn(ctx, userID, opts, onSample, onError)
}

func accuracy(v float64) *float64 { return &v }
