package domain

import "context"

// Service is the matching engine. Reconcile runs all detectors for a period
// and replaces the cached result; CachedResult reads without recomputing.
//
// Contract: the caller must finish ingesting a period before reconciling it;
// the engine does not detect in-flight ingestion.
type Service interface {
	Reconcile(ctx context.Context, period string) (*Result, error)
	CachedResult(period string) (*Result, bool)
}
