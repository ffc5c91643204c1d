package catalog

import (
	"context"
	"fmt"

	"github.com/openshelf/bookdex/internal/domain/search"
	"github.com/openshelf/bookdex/internal/domain/topic"
)

// Querier is the consumer interface over the relational store.
type Querier interface {
	QueryRows(ctx context.Context, query string, args ...any) ([]map[string]any, error)
	QueryCount(ctx context.Context, query string, args ...any) (int, error)
}

// Repository executes catalog queries against the full-text store.
type Repository struct {
	store Querier
}

// New creates a catalog repository.
func New(store Querier) *Repository {
	return &Repository{store: store}
}

// Search fetches one page of raw rows for a topic and query.
func (r *Repository) Search(ctx context.Context, t topic.Topic, q search.Query) ([]map[string]any, error) {
	data := BuildSearchSQL(t, q)
	rows, err := r.store.QueryRows(ctx, data.SearchSQL, data.SearchArgs...)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", t, err)
	}
	return rows, nil
}

// Count runs the companion count query for pagination.
func (r *Repository) Count(ctx context.Context, t topic.Topic, q search.Query) (int, error) {
	data := BuildSearchSQL(t, q)
	n, err := r.store.QueryCount(ctx, data.CountSQL, data.CountArgs...)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t, err)
	}
	return n, nil
}

// Metadata fetches the full record for one md5, joined with its
// description. Returns nil with no error when the md5 is unknown.
func (r *Repository) Metadata(ctx context.Context, t topic.Topic, md5 string) (map[string]any, error) {
	rows, err := r.store.QueryRows(ctx, BuildMetadataSQL(t), md5)
	if err != nil {
		return nil, fmt.Errorf("metadata %s: %w", t, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
