package domain

import "context"

type Repository interface {
	Upsert(ctx context.Context, t *Taxpayer) error
	// EnsureExists inserts a stub row for the TIN unless one already exists.
	// Used by invoice ingest so counterparties referenced before their own
	// registration upload still appear in the graph.
	EnsureExists(ctx context.Context, tin string) error
	FindByTIN(ctx context.Context, tin string) (*Taxpayer, error)
	List(ctx context.Context) ([]Taxpayer, error)
	Count(ctx context.Context) (int64, error)

	UpsertReturn(ctx context.Context, r *ReturnHeader) error
	ReturnCounts(ctx context.Context, tin string) (ReturnCounts, error)
	ListSummaries(ctx context.Context, period string) ([]ReturnHeader, error)
	CountReturnsByKind(ctx context.Context, kind ReturnKind) (int64, error)
}
