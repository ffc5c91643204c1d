package libgen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/openshelf/bookdex/internal/domain"
	"github.com/openshelf/bookdex/internal/domain/book"
	"github.com/openshelf/bookdex/internal/domain/topic"
	"github.com/openshelf/bookdex/internal/metrics"
)

// Config holds upstream endpoints and fetch policy.
type Config struct {
	// BaseURL hosts the detail pages (and relative cover images).
	BaseURL string
	// MirrorBaseURL hosts the download-link pages.
	MirrorBaseURL string
	// Timeout bounds every upstream fetch.
	Timeout time.Duration
	// UserAgent is sent on every request; the upstream rejects empty agents.
	UserAgent string
}

// Client talks to the upstream book site. The upstream is slow and
// unreliable; every method carries its own bounded timeout and maps
// transport failures to domain.ErrUpstreamDown.
type Client struct {
	http          *http.Client
	files         *http.Client
	baseURL       string
	mirrorBaseURL string
	userAgent     string
	logger        *zap.Logger
}

// New creates an upstream client.
func New(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		// File transfers run longer than page fetches; the caller's
		// context bounds them instead of a client-wide timeout.
		files:         &http.Client{},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		mirrorBaseURL: strings.TrimRight(cfg.MirrorBaseURL, "/"),
		userAgent:     cfg.UserAgent,
		logger:        logger,
	}
}

// BaseURL returns the detail-page host, for resolving relative image paths.
func (c *Client) BaseURL() string { return c.baseURL }

// DetailPage fetches and parses the detail page for one record.
func (c *Client) DetailPage(ctx context.Context, t topic.Topic, md5 string) (*goquery.Document, error) {
	url := c.baseURL + topic.ProfileFor(t).DetailPath + md5
	return c.fetch(ctx, "detail_page", url)
}

// Cover resolves a cover URL through the mirror page for one md5.
func (c *Client) Cover(ctx context.Context, md5 string) (string, error) {
	doc, err := c.fetch(ctx, "cover", c.mirrorBaseURL+"/main/"+md5)
	if err != nil {
		return "", err
	}

	src, ok := doc.Find("img").First().Attr("src")
	if !ok || src == "" {
		return "", fmt.Errorf("no cover image on mirror page for %s", md5)
	}
	if strings.HasPrefix(src, "http") {
		return src, nil
	}
	return c.mirrorBaseURL + src, nil
}

// DownloadLinks scrapes the mirror page for one md5. The page lists the
// direct GET link in its header and the alternate mirrors below it.
func (c *Client) DownloadLinks(ctx context.Context, t topic.Topic, md5 string) (book.DownloadLinks, error) {
	section := "/main/"
	if t == topic.Fiction {
		section = "/fiction/"
	}
	doc, err := c.fetch(ctx, "download_links", c.mirrorBaseURL+section+md5)
	if err != nil {
		return book.DownloadLinks{}, err
	}

	var links book.DownloadLinks
	links.Get, _ = doc.Find("#download h2 a").First().Attr("href")

	doc.Find("#download ul li a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		switch strings.TrimSpace(sel.Text()) {
		case "Cloudflare":
			links.Cloudflare = href
		case "IPFS.io":
			links.IPFS = href
		case "Tor":
			links.Tor = href
		}
	})

	if !links.Valid() {
		return book.DownloadLinks{}, fmt.Errorf("mirror page for %s has no direct link", md5)
	}
	return links, nil
}

// FetchFile streams the body of one mirror URL. The caller owns the
// returned body and must close it; ctx bounds the whole transfer.
func (c *Client) FetchFile(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.files.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return resp.Body, resp.ContentLength, nil
}

// fetch performs one bounded GET and parses the body. Transport errors,
// timeouts, and non-200 statuses all classify as an upstream outage so
// callers can fall through to their next strategy.
func (c *Client) fetch(ctx context.Context, target, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequestDuration.WithLabelValues(target, "error").Observe(time.Since(start).Seconds())
		c.logger.Warn("Upstream fetch failed", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamDown, err)
	}
	defer resp.Body.Close()

	metrics.UpstreamRequestDuration.
		WithLabelValues(target, strconv.Itoa(resp.StatusCode)).
		Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", domain.ErrUpstreamDown, url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}
