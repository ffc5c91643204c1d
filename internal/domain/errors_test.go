package domain

import (
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"invalid query", ErrInvalidQuery, ClassClient},
		{"invalid md5", ErrInvalidMD5, ClassClient},
		{"no results", ErrNoResults, ClassClient},
		{"not found", ErrNotFound, ClassClient},
		{"no valid rows", ErrNoValidRows, ClassInternal},
		{"schema mismatch", ErrSchemaMismatch, ClassInternal},
		{"cover unavailable", ErrCoverUnavailable, ClassInternal},
		{"download links", ErrDownloadLinks, ClassInternal},
		{"store unavailable", ErrStoreUnavailable, ClassUnavailable},
		{"upstream down", ErrUpstreamDown, ClassUnavailable},
		{"unknown", fmt.Errorf("boom"), ClassInternal},
		{"wrapped client", fmt.Errorf("search: %w", ErrNoResults), ClassClient},
		{"wrapped unavailable", fmt.Errorf("query: %w", ErrStoreUnavailable), ClassUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Errorf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestSeverity_Ordering(t *testing.T) {
	if Severity(ErrStoreUnavailable) <= Severity(ErrNoValidRows) {
		t.Error("unavailable should outrank internal")
	}
	if Severity(ErrNoValidRows) <= Severity(ErrNoResults) {
		t.Error("internal should outrank client")
	}
}
