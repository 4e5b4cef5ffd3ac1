package domain

import "context"

// Service scores taxpayers. ScoreAll returns every registered taxpayer sorted
// by descending score, TIN ascending on ties, so repeated calls over the same
// data paginate identically.
type Service interface {
	ScoreAll(ctx context.Context) ([]VendorRisk, error)
	ScoreOne(ctx context.Context, tin string) (*VendorRisk, error)
}
