package search

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/openshelf/bookdex/internal/domain"
	"github.com/openshelf/bookdex/internal/domain/topic"
)

// Criteria restricts the full-text match to a single column group.
type Criteria string

const (
	// CriteriaAny matches against the topic's default column group.
	CriteriaAny Criteria = "any"
	// CriteriaTitle matches against the title column only.
	CriteriaTitle Criteria = "title"
	// CriteriaAuthor matches against the author column only.
	CriteriaAuthor Criteria = "author"
	// CriteriaSeries matches against the series column only.
	CriteriaSeries Criteria = "series"
)

const (
	minQueryLength = 3
	defaultPerPage = 25
	minPerPage     = 25
	maxPerPage     = 100
)

// Query is an immutable, validated search request. Its serialized form
// doubles as the cache key, so field order must stay stable.
type Query struct {
	Text           string   `json:"q"`
	Criteria       Criteria `json:"criteria"`
	Language       string   `json:"language,omitempty"`
	Format         string   `json:"format,omitempty"`
	ResultsPerPage int      `json:"results_per_page"`
	Page           int      `json:"page"`
}

// NewQuery applies defaults and validates the request.
func NewQuery(text string, criteria Criteria, language, format string, perPage, page int) (Query, error) {
	if criteria == "" {
		criteria = CriteriaAny
	}
	if perPage == 0 {
		perPage = defaultPerPage
	}
	if page == 0 {
		page = 1
	}

	q := Query{
		Text:           text,
		Criteria:       criteria,
		Language:       language,
		Format:         format,
		ResultsPerPage: perPage,
		Page:           page,
	}
	if err := q.validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

func (q Query) validate() error {
	// Length is measured in runes so multibyte scripts get the same
	// minimum as ASCII.
	if utf8.RuneCountInString(q.Text) < minQueryLength {
		return fmt.Errorf("%w: query text must be at least %d characters", domain.ErrInvalidQuery, minQueryLength)
	}
	switch q.Criteria {
	case CriteriaAny, CriteriaTitle, CriteriaAuthor, CriteriaSeries:
	default:
		return fmt.Errorf("%w: unknown criteria %q", domain.ErrInvalidQuery, q.Criteria)
	}
	if q.ResultsPerPage < minPerPage || q.ResultsPerPage > maxPerPage {
		return fmt.Errorf("%w: results_per_page must be between %d and %d",
			domain.ErrInvalidQuery, minPerPage, maxPerPage)
	}
	if q.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1", domain.ErrInvalidQuery)
	}
	return nil
}

// CacheKey derives the deterministic cache key for one topic-and-query page.
// json.Marshal emits struct fields in declaration order, which keeps the
// serialization stable across processes.
func (q Query) CacheKey(t topic.Topic) string {
	data, err := json.Marshal(q)
	if err != nil {
		// Query is a plain value type; marshal cannot fail for it.
		panic(fmt.Sprintf("marshal search query: %v", err))
	}
	return fmt.Sprintf("%s-%s-search", data, t)
}
