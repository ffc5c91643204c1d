package search

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/openshelf/bookdex/internal/domain"
	"github.com/openshelf/bookdex/internal/domain/search"
	"github.com/openshelf/bookdex/internal/domain/topic"
)

// outcome captures one topic branch of a combined search.
type outcome struct {
	topic  topic.Topic
	resp   search.Response
	cached bool
	err    error
}

// SearchBoth runs the query against every topic concurrently and merges
// the pages into one relevance-ordered response. A branch failure never
// cancels its sibling; the merged response reports cached only when
// every surviving branch was served from cache.
func (s *Service) SearchBoth(ctx context.Context, q search.Query) (search.Response, bool, error) {
	topics := topic.All()
	outcomes := make([]outcome, len(topics))

	var wg sync.WaitGroup
	for i, t := range topics {
		wg.Add(1)
		go func(i int, t topic.Topic) {
			defer wg.Done()
			resp, cached, err := s.Search(ctx, t, q)
			outcomes[i] = outcome{topic: t, resp: resp, cached: cached, err: err}
		}(i, t)
	}
	wg.Wait()

	var ok []outcome
	for _, o := range outcomes {
		if o.err != nil {
			s.logger.Warn("Topic search failed",
				zap.String("topic", string(o.topic)), zap.Error(o.err))
			continue
		}
		ok = append(ok, o)
	}

	if len(ok) == 0 {
		return search.Response{}, false, worstError(outcomes)
	}

	merged := search.Response{}
	cached := true
	for _, o := range ok {
		merged.Results = append(merged.Results, o.resp.Results...)
		cached = cached && o.cached
		if p := o.resp.Pagination; p != nil {
			if merged.Pagination == nil || p.TotalPages > merged.Pagination.TotalPages {
				merged.Pagination = p
			}
		}
	}

	// A branch can succeed with zero rows (a cached empty page);
	// an empty concatenation is still "no results" to the caller.
	if len(merged.Results) == 0 {
		return search.Response{}, false, fmt.Errorf(
			"%w: no matches on any topic for %q", domain.ErrNoResults, q.Text)
	}
	s.sortByRelevance(merged.Results)

	return merged, cached, nil
}

// worstError picks the branch error to surface when every branch failed.
// Server-side failures outrank client-visible ones; on a tie the earlier
// topic wins.
func worstError(outcomes []outcome) error {
	worst := outcomes[0]
	for _, o := range outcomes[1:] {
		if domain.Severity(o.err) > domain.Severity(worst.err) {
			worst = o
		}
	}
	return worst.err
}

// sortByRelevance orders entries by descending relevance. Entries with
// no relevance score sort last; their presence means the merged page
// mixes scored and unscored rows, which is worth a trace.
func (s *Service) sortByRelevance(entries []search.Entry) {
	unscored := 0
	for _, e := range entries {
		if e.Relevance == nil {
			unscored++
		}
	}
	if unscored > 0 && unscored < len(entries) {
		s.logger.Warn("Merged results mix scored and unscored entries",
			zap.Int("unscored", unscored), zap.Int("total", len(entries)))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		ri, rj := entries[i].Relevance, entries[j].Relevance
		switch {
		case ri == nil:
			return false
		case rj == nil:
			return true
		default:
			return *ri > *rj
		}
	})
}
