package cover

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/openshelf/bookdex/internal/domain"
	"github.com/openshelf/bookdex/internal/domain/book"
	"github.com/openshelf/bookdex/internal/domain/topic"
	"github.com/openshelf/bookdex/internal/repository/cache"
)

const missingRecordMarker = "No record with such MD5 hash has been found"

// Upstream is the consumer interface over the book site (ISP).
type Upstream interface {
	DetailPage(ctx context.Context, t topic.Topic, md5 string) (*goquery.Document, error)
	Cover(ctx context.Context, md5 string) (string, error)
	BaseURL() string
}

// Service resolves cover image URLs for records whose catalog row carries
// none, scraping the upstream detail page and falling back to the mirror.
type Service struct {
	upstream Upstream
	cache    *cache.Cache
	ttl      time.Duration
	logger   *zap.Logger
}

// New creates a cover service. cache may be nil to disable caching.
func New(upstream Upstream, c *cache.Cache, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{upstream: upstream, cache: c, ttl: ttl, logger: logger}
}

// Resolve returns a cover URL for one md5. The bool reports whether it
// was served from cache.
func (s *Service) Resolve(ctx context.Context, t topic.Topic, md5 string) (string, bool, error) {
	if !book.ValidMD5(md5) {
		return "", false, fmt.Errorf("%w: %q", domain.ErrInvalidMD5, md5)
	}

	key := fmt.Sprintf("%s-%s-temp_cover", md5, t)
	valid := func(url string) bool { return url != "" }
	return cache.Through(ctx, s.cache, "cover", key, s.ttl, valid,
		func(ctx context.Context) (string, error) {
			return s.resolve(ctx, t, md5)
		})
}

// resolve tries the detail page first and the mirror second. Every
// detail-page failure falls through to the mirror tier, including a page
// that positively reports an unknown md5; only dual failure surfaces,
// collapsed into a single error.
func (s *Service) resolve(ctx context.Context, t topic.Topic, md5 string) (string, error) {
	url, err := s.fromDetailPage(ctx, t, md5)
	if err == nil {
		return url, nil
	}
	s.logger.Debug("Detail page yielded no cover, trying mirror",
		zap.String("md5", md5), zap.Error(err))

	url, mirrorErr := s.upstream.Cover(ctx, md5)
	if mirrorErr != nil {
		return "", fmt.Errorf("%w: detail page: %v; mirror: %v",
			domain.ErrCoverUnavailable, err, mirrorErr)
	}
	return url, nil
}

func (s *Service) fromDetailPage(ctx context.Context, t topic.Topic, md5 string) (string, error) {
	doc, err := s.upstream.DetailPage(ctx, t, md5)
	if err != nil {
		return "", err
	}
	if strings.Contains(doc.Text(), missingRecordMarker) {
		return "", fmt.Errorf("detail page reports no %s record for %s", t, md5)
	}

	var src string
	doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if v, ok := sel.Attr("src"); ok && strings.Contains(v, "cover") {
			src = v
			return false
		}
		return true
	})
	if src == "" {
		return "", fmt.Errorf("detail page for %s carries no cover image", md5)
	}
	if strings.HasPrefix(src, "http") {
		return src, nil
	}
	if !strings.HasPrefix(src, "/") {
		src = "/" + src
	}
	return s.upstream.BaseURL() + src, nil
}
