package domain

import "context"

type Repository interface {
	Upsert(ctx context.Context, inv *Invoice) error
	// ListByPeriod returns one source's invoices for a period, ordered by
	// (supplier_tin, invoice_number) so detector output is stable within a run.
	ListByPeriod(ctx context.Context, period string, source Source) ([]Invoice, error)
	// ListInwardForBuyer returns the inward copies drafted for a buyer in a
	// period; the excess-credit detector sums tax components over these.
	ListInwardForBuyer(ctx context.Context, buyerTIN, period string) ([]Invoice, error)
	// CountForTaxpayer counts invoices naming the TIN as supplier or buyer.
	CountForTaxpayer(ctx context.Context, tin string) (int64, error)
	// CountUnmatchedOutward counts outward invoices involving the TIN that have
	// no inward counterpart sharing (supplier_tin, invoice_number, period).
	// The risk scorer falls back to this when no reconciliation results are
	// cached.
	CountUnmatchedOutward(ctx context.Context, tin string) (int64, error)
	Count(ctx context.Context) (int64, error)
	SumTotalValue(ctx context.Context) (float64, error)
}
