package health

import "context"

// CatalogPinger checks relational catalog availability.
type CatalogPinger interface {
	Ping(ctx context.Context) error
}

// CachePinger checks cache backend availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}
