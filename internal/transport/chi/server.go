package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/openshelf/bookdex/internal/domain"
	"github.com/openshelf/bookdex/internal/domain/book"
	domsearch "github.com/openshelf/bookdex/internal/domain/search"
	"github.com/openshelf/bookdex/internal/domain/topic"
	"github.com/openshelf/bookdex/internal/logger"
	downloaduc "github.com/openshelf/bookdex/internal/usecase/download"
	healthuc "github.com/openshelf/bookdex/internal/usecase/health"
)

// CachedHeader reports on every successful response whether the payload
// was served from cache. Cache state never leaks into response bodies.
const CachedHeader = "Cached"

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes carried in ErrorResponse.Code.
const (
	CodeBadRequest  = "bad_request"
	CodeNotFound    = "not_found"
	CodeInternal    = "internal_error"
	CodeUnavailable = "upstream_unavailable"
)

// Searcher runs catalog searches.
type Searcher interface {
	Search(ctx context.Context, t topic.Topic, q domsearch.Query) (domsearch.Response, bool, error)
	SearchBoth(ctx context.Context, q domsearch.Query) (domsearch.Response, bool, error)
}

// BookProvider resolves per-book metadata and mirror links.
type BookProvider interface {
	Metadata(ctx context.Context, t topic.Topic, md5 string) (book.Metadata, bool, error)
	DownloadLinks(ctx context.Context, t topic.Topic, md5 string) (book.DownloadLinks, bool, error)
}

// CoverResolver resolves cover image URLs.
type CoverResolver interface {
	Resolve(ctx context.Context, t topic.Topic, md5 string) (string, bool, error)
}

// Downloader spools book files from the mirror chain.
type Downloader interface {
	Fetch(ctx context.Context, t topic.Topic, md5 string) (downloaduc.Result, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the book API over chi.
type Server struct {
	search        Searcher
	books         BookProvider
	covers        CoverResolver
	downloads     Downloader
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher,
	books BookProvider,
	covers CoverResolver,
	downloads Downloader,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:    search,
		books:     books,
		covers:    covers,
		downloads: downloads,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrNoResults, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrInvalidMD5, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeUnavailable),
		sentinelHandler(domain.ErrUpstreamDown, http.StatusServiceUnavailable, CodeUnavailable),
	}
	return s
}

// Mount attaches all API routes to r.
func (s *Server) Mount(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/search", s.SearchAll)
		r.Get("/search/{topic}", s.SearchTopic)
		r.Get("/metadata/{topic}/{md5}", s.GetMetadata)
		r.Get("/cover/{topic}/{md5}", s.GetCover)
		r.Get("/downloads/{topic}/{md5}", s.GetDownloadLinks)
		r.Get("/download/{topic}/{md5}", s.DownloadFile)
		r.Get("/health", s.GetHealth)
	})
}

// SearchTopic handles GET /v1/search/{topic}.
func (s *Server) SearchTopic(w http.ResponseWriter, r *http.Request) {
	t, ok := s.topicParam(w, r)
	if !ok {
		return
	}
	q, ok := s.queryParams(w, r)
	if !ok {
		return
	}

	resp, cached, err := s.search.Search(r.Context(), t, q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeCached(w, cached)
	writeJSON(w, http.StatusOK, resp)
}

// SearchAll handles GET /v1/search: both topics merged by relevance.
func (s *Server) SearchAll(w http.ResponseWriter, r *http.Request) {
	q, ok := s.queryParams(w, r)
	if !ok {
		return
	}

	resp, cached, err := s.search.SearchBoth(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeCached(w, cached)
	writeJSON(w, http.StatusOK, resp)
}

// GetMetadata handles GET /v1/metadata/{topic}/{md5}.
func (s *Server) GetMetadata(w http.ResponseWriter, r *http.Request) {
	t, ok := s.topicParam(w, r)
	if !ok {
		return
	}

	meta, cached, err := s.books.Metadata(r.Context(), t, chi.URLParam(r, "md5"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeCached(w, cached)
	writeJSON(w, http.StatusOK, meta)
}

// GetCover handles GET /v1/cover/{topic}/{md5}.
func (s *Server) GetCover(w http.ResponseWriter, r *http.Request) {
	t, ok := s.topicParam(w, r)
	if !ok {
		return
	}

	url, cached, err := s.covers.Resolve(r.Context(), t, chi.URLParam(r, "md5"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeCached(w, cached)
	writeJSON(w, http.StatusOK, map[string]string{"cover": url})
}

// GetDownloadLinks handles GET /v1/downloads/{topic}/{md5}.
func (s *Server) GetDownloadLinks(w http.ResponseWriter, r *http.Request) {
	t, ok := s.topicParam(w, r)
	if !ok {
		return
	}

	links, cached, err := s.books.DownloadLinks(r.Context(), t, chi.URLParam(r, "md5"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeCached(w, cached)
	writeJSON(w, http.StatusOK, links)
}

// DownloadFile handles GET /v1/download/{topic}/{md5}: spools the file
// through the mirror chain and streams it to the client. The spool file
// is removed once the response is written.
func (s *Server) DownloadFile(w http.ResponseWriter, r *http.Request) {
	t, ok := s.topicParam(w, r)
	if !ok {
		return
	}

	result, err := s.downloads.Fetch(r.Context(), t, chi.URLParam(r, "md5"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	defer func() {
		if err := os.Remove(result.Path); err != nil {
			s.logger.Warn("Failed to remove spool file",
				zap.String("path", result.Path), zap.Error(err))
		}
	}()

	w.Header().Set("Content-Disposition", `attachment; filename="`+result.Name+`"`)
	http.ServeFile(w, r, result.Path)
}

// GetHealth handles GET /v1/health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = string(result)
	}
	writeJSON(w, status, map[string]any{
		"status": string(report.Status),
		"checks": checks,
	})
}

// topicParam parses the {topic} path value, answering the request on failure.
func (s *Server) topicParam(w http.ResponseWriter, r *http.Request) (topic.Topic, bool) {
	t, err := topic.Parse(chi.URLParam(r, "topic"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return "", false
	}
	return t, true
}

// queryParams builds a validated search query from the URL parameters,
// answering the request on failure.
func (s *Server) queryParams(w http.ResponseWriter, r *http.Request) (domsearch.Query, bool) {
	values := r.URL.Query()

	perPage, ok := s.intParam(w, values.Get("results_per_page"), "results_per_page")
	if !ok {
		return domsearch.Query{}, false
	}
	page, ok := s.intParam(w, values.Get("page"), "page")
	if !ok {
		return domsearch.Query{}, false
	}

	q, err := domsearch.NewQuery(
		values.Get("q"),
		domsearch.Criteria(values.Get("criteria")),
		values.Get("language"),
		values.Get("format"),
		perPage,
		page,
	)
	if err != nil {
		s.handleDomainError(w, r, err)
		return domsearch.Query{}, false
	}
	return q, true
}

func (s *Server) intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, name+" must be an integer")
		return 0, false
	}
	return n, true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.From(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

// safeDomainMessage returns a client-facing message: the sentinel text
// for known failures, a generic one otherwise. Internal detail such as
// SQL or hostnames never reaches the client.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrInvalidMD5,
		domain.ErrNoResults,
		domain.ErrNotFound,
		domain.ErrStoreUnavailable,
		domain.ErrUpstreamDown,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func writeCached(w http.ResponseWriter, cached bool) {
	w.Header().Set(CachedHeader, strconv.FormatBool(cached))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
