package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the advisory cache is down but serving works.
	Degraded Status = "degraded"
	// Unhealthy indicates the catalog is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks. The catalog is load-bearing; the
// cache is advisory, so its failure only degrades the report.
type Service struct {
	catalog CatalogPinger
	cache   CachePinger
}

// New creates a Service. cache can be nil.
func New(catalog CatalogPinger, cache CachePinger) *Service {
	return &Service{catalog: catalog, cache: cache}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.catalog.Ping(ctx); err != nil {
		checks["catalog"] = CheckError
		status = Unhealthy
	} else {
		checks["catalog"] = CheckOK
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks["cache"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["cache"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
