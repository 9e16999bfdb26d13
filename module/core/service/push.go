package service

import (
	"context"
	"sync"

	"github.com/nandanugg/collector-tracker/module/core/domain"
)

type pushWatcher struct {
	onSample func(domain.RawSample)
	onError  func(error)
}

// PushProvider is the foreground provider: the hosted web content posts
// samples over HTTP and they are dispatched to the user's watcher.
type PushProvider struct {
	mu       sync.RWMutex
	watchers map[string]*pushWatcher
}

var _ LocationProvider = (*PushProvider)(nil)

func NewPushProvider() *PushProvider {
	return &PushProvider{watchers: map[string]*pushWatcher{}}
}

func (p *PushProvider) Watch(_ context.Context, userID string, _ ProviderOptions, onSample func(domain.RawSample), onError func(error)) (func(), error) {
	w := &pushWatcher{onSample: onSample, onError: onError}

	p.mu.Lock()
	p.watchers[userID] = w
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.watchers[userID] == w {
			delete(p.watchers, userID)
		}
	}, nil
}

func (p *PushProvider) Push(userID string, sample domain.RawSample) error {
	w, err := p.watcher(userID)
	if err != nil {
		return err
	}
	w.onSample(sample)
	return nil
}

func (p *PushProvider) Fail(userID string, cause error) error {
	w, err := p.watcher(userID)
	if err != nil {
		return err
	}
	w.onError(cause)
	return nil
}

func (p *PushProvider) watcher(userID string) (*pushWatcher, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	w, ok := p.watchers[userID]
	if !ok {
		return nil, domain.ErrNotTracking
	}
	return w, nil
}
