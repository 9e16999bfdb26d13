package publisher

import (
	"context"

	"github.com/nandanugg/collector-tracker/module/core/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, evt domain.Event) error
}
