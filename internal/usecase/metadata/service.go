package metadata

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openshelf/bookdex/internal/domain"
	"github.com/openshelf/bookdex/internal/domain/book"
	"github.com/openshelf/bookdex/internal/domain/topic"
	"github.com/openshelf/bookdex/internal/repository/cache"
	"github.com/openshelf/bookdex/internal/repository/catalog"
)

// Catalog is the consumer interface over the relational catalog (ISP).
type Catalog interface {
	Metadata(ctx context.Context, t topic.Topic, md5 string) (map[string]any, error)
}

// Mirrors is the consumer interface over the upstream mirror site.
type Mirrors interface {
	DownloadLinks(ctx context.Context, t topic.Topic, md5 string) (book.DownloadLinks, error)
}

// Service resolves per-book metadata and download links, each behind its
// own cache-aside layer.
type Service struct {
	catalog  Catalog
	mirrors  Mirrors
	cache    *cache.Cache
	metaTTL  time.Duration
	linksTTL time.Duration
	logger   *zap.Logger
}

// New creates a metadata service. cache may be nil to disable caching.
func New(cat Catalog, mirrors Mirrors, c *cache.Cache, metaTTL, linksTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		catalog:  cat,
		mirrors:  mirrors,
		cache:    c,
		metaTTL:  metaTTL,
		linksTTL: linksTTL,
		logger:   logger,
	}
}

// Metadata returns the full record for one md5. The bool reports whether
// it was served from cache.
func (s *Service) Metadata(ctx context.Context, t topic.Topic, md5 string) (book.Metadata, bool, error) {
	if !book.ValidMD5(md5) {
		return book.Metadata{}, false, fmt.Errorf("%w: %q", domain.ErrInvalidMD5, md5)
	}

	return cache.Through(ctx, s.cache, "metadata", "metadata:"+md5, s.metaTTL, nil,
		func(ctx context.Context) (book.Metadata, error) {
			row, err := s.catalog.Metadata(ctx, t, md5)
			if err != nil {
				return book.Metadata{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
			}
			if row == nil {
				return book.Metadata{}, fmt.Errorf("%w: no %s record for %s", domain.ErrNotFound, t, md5)
			}
			return catalog.MapMetadata(t, row)
		})
}

// DownloadLinks returns the mirror set for one md5. A set without the
// direct link is still returned but never cached.
func (s *Service) DownloadLinks(ctx context.Context, t topic.Topic, md5 string) (book.DownloadLinks, bool, error) {
	if !book.ValidMD5(md5) {
		return book.DownloadLinks{}, false, fmt.Errorf("%w: %q", domain.ErrInvalidMD5, md5)
	}

	return cache.Through(ctx, s.cache, "download_links", "dlinks:"+md5, s.linksTTL,
		book.DownloadLinks.Valid,
		func(ctx context.Context) (book.DownloadLinks, error) {
			links, err := s.mirrors.DownloadLinks(ctx, t, md5)
			if err != nil {
				s.logger.Warn("Mirror scrape failed",
					zap.String("md5", md5), zap.Error(err))
				return book.DownloadLinks{}, fmt.Errorf("%w: %v", domain.ErrDownloadLinks, err)
			}
			return links, nil
		})
}
