package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/nandanugg/collector-tracker/module/core/domain"
	"github.com/nandanugg/collector-tracker/module/core/internal/repository/publisher"
)

// fanout publishes to every publisher; failures are logged and do not stop
// the remaining publishers.
type fanout []publisher.EventPublisher

func (f fanout) Publish(ctx context.Context, evt domain.Event) {
	for _, p := range f {
		if err := p.Publish(ctx, evt); err != nil {
			log.Warn().Err(err).Str("user_id", evt.UserID).Str("kind", string(evt.Kind)).Msg("event publish failed")
		}
	}
}
