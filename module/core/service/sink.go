package service

import (
	"context"
	"fmt"

	"github.com/nandanugg/collector-tracker/module/core/domain"
	"github.com/nandanugg/collector-tracker/module/core/internal/repository/database"
)

// DocumentSink writes a minute snapshot and folds its distance into the
// day summary.
type DocumentSink struct {
	repo database.DocumentRepository
}

func NewDocumentSink(repo database.DocumentRepository) *DocumentSink {
	return &DocumentSink{repo: repo}
}

func (s *DocumentSink) Persist(ctx context.Context, snap domain.FlushSnapshot) error {
	if err := s.repo.Set(ctx, snap.MinutePath(), map[string]any{
		domain.FieldMinuteDistance: snap.DistanceMeters,
		domain.FieldMinutePath:     snap.Path,
	}); err != nil {
		return fmt.Errorf("write minute %s: %w", snap.MinutePath(), err)
	}

	if err := s.repo.Increment(ctx, snap.StoragePath, domain.FieldTotalDistance, snap.DistanceMeters, map[string]any{
		domain.FieldLastUpdate: snap.TimeLabel,
	}); err != nil {
		return fmt.Errorf("update day total %s: %w", snap.StoragePath, err)
	}
	return nil
}
