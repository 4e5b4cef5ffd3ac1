package domain

import "context"

type Repository interface {
	// UpsertAdditive adds one transaction's value to the supplier→buyer edge,
	// creating it when absent. Aggregates are monotonically non-decreasing.
	UpsertAdditive(ctx context.Context, supplierTIN, buyerTIN string, value float64) error
	ListEdges(ctx context.Context) ([]TradeEdge, error)
}

// Detector enumerates circular-trade rings over the edge graph.
type Detector interface {
	FindCircularTrades(ctx context.Context) ([]Cycle, error)
}
