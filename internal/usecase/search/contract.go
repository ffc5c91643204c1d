package search

import (
	"context"

	"github.com/openshelf/bookdex/internal/domain/search"
	"github.com/openshelf/bookdex/internal/domain/topic"
)

// Catalog is the consumer interface over the relational catalog (ISP).
type Catalog interface {
	Search(ctx context.Context, t topic.Topic, q search.Query) ([]map[string]any, error)
	Count(ctx context.Context, t topic.Topic, q search.Query) (int, error)
}
