package download

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/openshelf/bookdex/internal/domain"
	"github.com/openshelf/bookdex/internal/domain/book"
	"github.com/openshelf/bookdex/internal/domain/topic"
)

// Links resolves the mirror set for one record.
type Links interface {
	DownloadLinks(ctx context.Context, t topic.Topic, md5 string) (book.DownloadLinks, bool, error)
}

// Fetcher streams one mirror URL.
type Fetcher interface {
	FetchFile(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// Service downloads book files through the mirror chain into a local
// spool directory.
type Service struct {
	links         Links
	fetcher       Fetcher
	dir           string
	mirrorTimeout time.Duration
	logger        *zap.Logger
}

// Result describes one spooled file. The caller owns the file and
// removes it after serving.
type Result struct {
	Path string
	Name string
	Size int64
}

// New creates a download service writing into dir.
func New(links Links, fetcher Fetcher, dir string, mirrorTimeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		links:         links,
		fetcher:       fetcher,
		dir:           dir,
		mirrorTimeout: mirrorTimeout,
		logger:        logger,
	}
}

// Fetch resolves the mirror set for md5 and tries each mirror in
// preference order until one transfer completes. Every mirror gets its
// own bounded timeout so one stalled host cannot eat the whole chain.
func (s *Service) Fetch(ctx context.Context, t topic.Topic, md5 string) (Result, error) {
	links, _, err := s.links.DownloadLinks(ctx, t, md5)
	if err != nil {
		return Result{}, err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("%w: spool dir: %v", domain.ErrDownloadFailed, err)
	}

	var lastErr error
	for _, mirror := range links.Mirrors() {
		result, err := s.tryMirror(ctx, mirror, md5)
		if err != nil {
			s.logger.Warn("Mirror transfer failed, trying next",
				zap.String("md5", md5), zap.String("mirror", mirror), zap.Error(err))
			lastErr = err
			continue
		}
		return result, nil
	}
	return Result{}, fmt.Errorf("%w: all mirrors exhausted for %s: %v",
		domain.ErrDownloadFailed, md5, lastErr)
}

func (s *Service) tryMirror(ctx context.Context, mirror, md5 string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.mirrorTimeout)
	defer cancel()

	body, _, err := s.fetcher.FetchFile(ctx, mirror)
	if err != nil {
		return Result{}, err
	}
	defer body.Close()

	name := md5 + extensionOf(mirror)
	file, err := os.CreateTemp(s.dir, "*-"+name)
	if err != nil {
		return Result{}, fmt.Errorf("create spool file: %w", err)
	}

	written, err := io.Copy(file, body)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(file.Name())
		return Result{}, fmt.Errorf("write spool file: %w", err)
	}

	return Result{Path: filepath.Clean(file.Name()), Name: name, Size: written}, nil
}

// extensionOf extracts a file extension from a mirror URL, if the URL
// path carries one.
func extensionOf(mirror string) string {
	u, err := url.Parse(mirror)
	if err != nil {
		return ""
	}
	return path.Ext(u.Path)
}
