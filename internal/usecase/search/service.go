package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openshelf/bookdex/internal/domain"
	"github.com/openshelf/bookdex/internal/domain/search"
	"github.com/openshelf/bookdex/internal/domain/topic"
	"github.com/openshelf/bookdex/internal/repository/cache"
	"github.com/openshelf/bookdex/internal/repository/catalog"
)

const cacheNamespace = "search"

// Service executes full-text catalog searches with a cache-aside layer.
type Service struct {
	catalog Catalog
	cache   *cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// New creates a search service. cache may be nil to disable caching.
func New(cat Catalog, c *cache.Cache, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{catalog: cat, cache: c, ttl: ttl, logger: logger}
}

// Search runs one query against one topic. The bool reports whether the
// response was served from cache.
func (s *Service) Search(ctx context.Context, t topic.Topic, q search.Query) (search.Response, bool, error) {
	key := q.CacheKey(t)
	if resp, ok := cache.Get[search.Response](ctx, s.cache, cacheNamespace, key); ok {
		return resp, true, nil
	}

	resp, err := s.query(ctx, t, q)
	if err != nil {
		return search.Response{}, false, err
	}

	cache.Set(ctx, s.cache, cacheNamespace, key, resp, s.ttl)
	return resp, false, nil
}

// query runs the page fetch and the row count concurrently. The count
// only feeds pagination, so its failure degrades to a response without
// pagination instead of failing the search.
func (s *Service) query(ctx context.Context, t topic.Topic, q search.Query) (search.Response, error) {
	var (
		rows     []map[string]any
		rowsErr  error
		count    int
		countErr error
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		count, countErr = s.catalog.Count(ctx, t, q)
	}()
	rows, rowsErr = s.catalog.Search(ctx, t, q)
	<-done

	if rowsErr != nil {
		return search.Response{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, rowsErr)
	}
	if len(rows) == 0 {
		return search.Response{}, fmt.Errorf("%w: no matches in %s for %q", domain.ErrNoResults, t, q.Text)
	}

	entries := catalog.MapRows(t, rows, s.logger)
	if len(entries) == 0 {
		return search.Response{}, fmt.Errorf("%w: %s page for %q held only malformed rows", domain.ErrNoValidRows, t, q.Text)
	}

	resp := search.Response{Results: entries}
	if countErr != nil {
		s.logger.Warn("Count query failed, omitting pagination",
			zap.String("topic", string(t)), zap.Error(countErr))
	} else {
		resp.Pagination = search.NewPagination(q.Page, count, q.ResultsPerPage)
	}
	return resp, nil
}
