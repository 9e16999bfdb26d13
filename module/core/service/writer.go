package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nandanugg/collector-tracker/module/core/domain"
)

type snapshotSink interface {
	Persist(ctx context.Context, snap domain.FlushSnapshot) error
}

type WriterOptions struct {
	QueueSize int
	Retries   int
	Timeout   time.Duration
	Backoff   time.Duration
}

// SnapshotWriter decouples the minute flush from persistence. Submit never
// blocks; failed writes are logged here and the minute is dropped once the
// retries run out.
type SnapshotWriter struct {
	sink  snapshotSink
	opts  WriterOptions
	queue chan domain.FlushSnapshot

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewSnapshotWriter(sink snapshotSink, opts WriterOptions) *SnapshotWriter {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	return &SnapshotWriter{
		sink:  sink,
		opts:  opts,
		queue: make(chan domain.FlushSnapshot, opts.QueueSize),
		done:  make(chan struct{}),
	}
}

// Run consumes the queue until Close is called and the queue is drained.
func (w *SnapshotWriter) Run() {
	defer close(w.done)
	for snap := range w.queue {
		w.write(snap)
	}
}

func (w *SnapshotWriter) Submit(snap domain.FlushSnapshot) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		log.Warn().Str("user_id", snap.UserID).Str("time", snap.TimeLabel).Msg("snapshot dropped: writer closed")
		return false
	}

	select {
	case w.queue <- snap:
		return true
	default:
		log.Error().Str("user_id", snap.UserID).Str("time", snap.TimeLabel).Msg("snapshot dropped: write queue full")
		return false
	}
}

// Close stops accepting snapshots and waits for queued writes, bounded by ctx.
func (w *SnapshotWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *SnapshotWriter) write(snap domain.FlushSnapshot) {
	var err error
	for attempt := 0; attempt <= w.opts.Retries; attempt++ {
		if attempt > 0 {
			time.Sleep(w.opts.Backoff)
		}
		ctx, cancel := context.WithTimeout(context.Background(), w.opts.Timeout)
		err = w.sink.Persist(ctx, snap)
		cancel()
		if err == nil {
			log.Debug().Str("user_id", snap.UserID).Str("path", snap.MinutePath()).Float64("distance_m", snap.DistanceMeters).Msg("snapshot persisted")
			return
		}
		log.Warn().Err(err).Str("user_id", snap.UserID).Int("attempt", attempt+1).Msg("snapshot write failed")
	}
	log.Error().Err(err).Str("user_id", snap.UserID).Str("path", snap.MinutePath()).Msg("snapshot lost")
}
