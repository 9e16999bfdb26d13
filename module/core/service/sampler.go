package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nandanugg/collector-tracker/module/core/domain"
)

// ProviderOptions is the subscription request sent to a location provider.
type ProviderOptions struct {
	HighAccuracy      bool
	MinInterval       time.Duration
	MinDistanceMeters float64
	MaxAge            time.Duration
	Timeout           time.Duration
}

// LocationProvider delivers raw samples for one user until stop is called.
// Provider errors go to onError; the subscription stays alive.
type LocationProvider interface {
	Watch(ctx context.Context, userID string, opts ProviderOptions, onSample func(domain.RawSample), onError func(error)) (stop func(), err error)
}

var errSamplerStarted = errors.New("sampler already started")

// FixSampler gates raw samples on reported accuracy before they reach the
// aggregator.
type FixSampler struct {
	provider    LocationProvider
	opts        ProviderOptions
	maxAccuracy float64

	mu   sync.Mutex
	stop func()
}

func NewFixSampler(provider LocationProvider, opts ProviderOptions, maxAccuracyMeters float64) *FixSampler {
	return &FixSampler{provider: provider, opts: opts, maxAccuracy: maxAccuracyMeters}
}

func (s *FixSampler) Start(ctx context.Context, userID string, onFix func(domain.GeoFix), onFailure func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return errSamplerStarted
	}

	stop, err := s.provider.Watch(ctx, userID, s.opts,
		func(raw domain.RawSample) {
			fix, ok := s.accept(raw)
			if !ok {
				log.Debug().Str("user_id", userID).Interface("accuracy", raw.Accuracy).Msg("sample dropped: accuracy")
				return
			}
			onFix(fix)
		},
		func(err error) {
			log.Warn().Err(err).Str("user_id", userID).Msg("location provider failure")
			onFailure(err)
		},
	)
	if err != nil {
		return err
	}
	s.stop = stop
	return nil
}

// Stop unsubscribes synchronously.
func (s *FixSampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
		s.stop = func() {}
	}
}

func (s *FixSampler) accept(raw domain.RawSample) (domain.GeoFix, bool) {
	if raw.Accuracy == nil || *raw.Accuracy > s.maxAccuracy {
		return domain.GeoFix{}, false
	}
	ts := raw.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return domain.GeoFix{
		Lat:            raw.Lat,
		Lon:            raw.Lon,
		AccuracyMeters: *raw.Accuracy,
		Timestamp:      ts,
	}, true
}
