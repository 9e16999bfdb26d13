package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nandanugg/collector-tracker/module/core/domain"
	"github.com/nandanugg/collector-tracker/module/core/internal/repository/database"
)

var _ database.DocumentRepository = (*DocumentRepo)(nil)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Set(ctx context.Context, path string, body map[string]any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO location_documents (path, parent, body, updated_at) VALUES ($1, $2, $3::jsonb, NOW())
		ON CONFLICT (path) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`,
		path, parentOf(path), string(raw),
	)
	return err
}

// Increment runs as one statement so concurrent writers for the same day
// cannot lose each other's deltas.
func (r *DocumentRepo) Increment(ctx context.Context, path, field string, delta float64, fields map[string]any) error {
	if fields == nil {
		fields = map[string]any{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO location_documents (path, parent, body, updated_at)
		VALUES ($1, $2, $3::jsonb || jsonb_build_object($4::text, $5::float8), NOW())
		ON CONFLICT (path) DO UPDATE SET
			body = location_documents.body || $3::jsonb || jsonb_build_object($4::text, COALESCE((location_documents.body->>$4)::float8, 0) + $5::float8),
			updated_at = NOW()`,
		path, parentOf(path), string(raw), field, delta,
	)
	return err
}

func (r *DocumentRepo) Get(ctx context.Context, path string) (*domain.Document, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT body FROM location_documents WHERE path = $1`, path,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{Path: path}
	if err := json.Unmarshal(raw, &doc.Body); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", path, err)
	}
	return doc, nil
}

func (r *DocumentRepo) Children(ctx context.Context, parent string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT path, body FROM location_documents WHERE parent = $1 ORDER BY path ASC`, parent,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Document
	for rows.Next() {
		var (
			doc domain.Document
			raw []byte
		)
		if err := rows.Scan(&doc.Path, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &doc.Body); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", doc.Path, err)
		}
		results = append(results, doc)
	}
	return results, rows.Err()
}

func parentOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}
