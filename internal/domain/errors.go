package domain

import "errors"

var (
	// ErrInvalidQuery signals malformed or out-of-range search parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")
	// ErrInvalidMD5 signals an identifier that is not a 32-hex md5.
	ErrInvalidMD5 = errors.New("invalid md5 identifier")
	// ErrNoResults signals a query that matched nothing.
	ErrNoResults = errors.New("no entries found for the given query")
	// ErrNotFound signals a missing record for a known-shaped identifier.
	ErrNotFound = errors.New("no record with such md5 has been found")
	// ErrNoValidRows signals that raw rows existed but none survived mapping.
	ErrNoValidRows = errors.New("no valid result returned")
	// ErrSchemaMismatch signals a fetched record that failed validation.
	ErrSchemaMismatch = errors.New("record does not match the expected schema")
	// ErrCoverUnavailable signals that every cover resolution channel failed.
	ErrCoverUnavailable = errors.New("could not resolve cover through any channel")
	// ErrDownloadLinks signals missing or incomplete download links.
	ErrDownloadLinks = errors.New("could not retrieve download links")
	// ErrDownloadFailed signals that no mirror yielded downloadable content.
	ErrDownloadFailed = errors.New("could not download from any mirror")
	// ErrStoreUnavailable signals that the catalog store is unreachable.
	ErrStoreUnavailable = errors.New("catalog store unavailable")
	// ErrUpstreamDown signals a detectable outage of the upstream site.
	ErrUpstreamDown = errors.New("upstream source unavailable")
)

// Class partitions errors the way callers need to branch on them:
// fix the request, report an internal failure, or retry later.
type Class int

const (
	// ClassClient covers bad parameters and not-found identifiers (4xx).
	ClassClient Class = iota
	// ClassInternal covers validation and fallback-exhaustion failures (5xx).
	ClassInternal
	// ClassUnavailable covers detectable outages of a backing service (503).
	ClassUnavailable
)

// Classify maps an error chain to its class. Unrecognized errors are internal.
func Classify(err error) Class {
	switch {
	case errors.Is(err, ErrInvalidQuery),
		errors.Is(err, ErrInvalidMD5),
		errors.Is(err, ErrNoResults),
		errors.Is(err, ErrNotFound):
		return ClassClient
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrUpstreamDown):
		return ClassUnavailable
	default:
		return ClassInternal
	}
}

// Severity orders classes for cross-branch error reconciliation:
// unavailable and internal outrank client errors.
func Severity(err error) int {
	switch Classify(err) {
	case ClassUnavailable:
		return 3
	case ClassInternal:
		return 2
	default:
		return 1
	}
}
