package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nandanugg/collector-tracker/module/core/domain"
)

const publishTimeout = 5 * time.Second

type snapshotQueue interface {
	Submit(snap domain.FlushSnapshot) bool
}

// Driver is the capability pair a session runs on: where fixes come from and
// whether accepted fixes are echoed live to the hosted web content.
type Driver struct {
	Provider  LocationProvider
	Options   ProviderOptions
	LiveFixes bool
}

type SessionConfig struct {
	Tolerance         Tolerance
	MaxAccuracyMeters float64
	StorageRoot       string
	Location          *time.Location
	FlushOnStop       bool
	Now               func() time.Time
}

// Session is one tracking period for one user. It owns the sampler
// subscription, the accumulator and the minute timer.
type Session struct {
	info    domain.Session
	cfg     SessionConfig
	live    bool
	sampler *FixSampler
	agg     *Aggregator
	flusher *MinuteFlusher
	queue   snapshotQueue
	events  fanout

	stopOnce sync.Once
}

func newSession(info domain.Session, cfg SessionConfig, driver Driver, queue snapshotQueue, events fanout) *Session {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	s := &Session{
		info:    info,
		cfg:     cfg,
		live:    driver.LiveFixes,
		sampler: NewFixSampler(driver.Provider, driver.Options, cfg.MaxAccuracyMeters),
		agg:     NewAggregator(cfg.Tolerance),
		queue:   queue,
		events:  events,
	}
	s.flusher = newMinuteFlusher(cfg.Now, realAfterFunc, s.flush)
	return s
}

func (s *Session) Info() domain.Session {
	return s.info
}

func (s *Session) Stats() Stats {
	return s.agg.Stats()
}

func (s *Session) Start(ctx context.Context) error {
	if err := s.sampler.Start(ctx, s.info.UserID, s.onFix, s.onFailure); err != nil {
		return err
	}
	s.flusher.Start()
	return nil
}

// Stop tears the session down. Once it returns no sampler or timer callback
// can touch the accumulator.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.sampler.Stop()
		s.flusher.Stop()
		if s.cfg.FlushOnStop {
			s.flush(s.cfg.Now())
		}
		s.agg.Close()
	})
}

func (s *Session) onFix(fix domain.GeoFix) {
	outcome, d := s.agg.Offer(fix)
	log.Debug().
		Str("user_id", s.info.UserID).
		Str("outcome", outcome.String()).
		Float64("distance_m", d).
		Msg("fix processed")

	if !s.live || (outcome != OutcomeStarted && outcome != OutcomeAccepted) {
		return
	}
	s.publish(domain.NewFixEvent(s.info.UserID, fix.Point()))
}

func (s *Session) onFailure(error) {
	if s.live {
		s.publish(domain.NewFailureEvent(s.info.UserID))
	}
}

func (s *Session) flush(at time.Time) {
	snap, ok := s.snapshot(at)
	if !ok {
		return
	}
	s.queue.Submit(snap)
	s.publish(domain.NewFlushEvent(snap))
}

func (s *Session) snapshot(at time.Time) (domain.FlushSnapshot, bool) {
	if s.info.UserID == "" {
		log.Warn().Str("session_id", s.info.ID).Msg("flush skipped: missing user id")
		return domain.FlushSnapshot{}, false
	}
	path, distance, ok := s.agg.Flush()
	if !ok {
		return domain.FlushSnapshot{}, false
	}

	local := at.In(s.cfg.Location)
	return domain.FlushSnapshot{
		UserID:         s.info.UserID,
		Path:           domain.EncodePath(path),
		DistanceMeters: distance,
		TimeLabel:      domain.TimeLabel(local),
		StoragePath:    domain.DayPath(s.cfg.StorageRoot, s.info.UserID, local),
		FlushedAt:      at,
	}, true
}

func (s *Session) publish(evt domain.Event) {
	if len(s.events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	s.events.Publish(ctx, evt)
}
