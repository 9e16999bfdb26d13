package database

import (
	"context"

	"github.com/nandanugg/collector-tracker/module/core/domain"
)

// DocumentRepository is a hierarchical key-path document store. A document's
// parent is its path with the last segment removed.
type DocumentRepository interface {
	Set(ctx context.Context, path string, body map[string]any) error
	// Increment atomically adds delta to the numeric field and merges fields
	// into the document, creating it when missing.
	Increment(ctx context.Context, path, field string, delta float64, fields map[string]any) error
	Get(ctx context.Context, path string) (*domain.Document, error)
	Children(ctx context.Context, parent string) ([]domain.Document, error)
}
