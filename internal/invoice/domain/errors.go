package domain

import "errors"

var (
	ErrInvalidSource = errors.New("invalid_source")
	ErrInvalidPeriod = errors.New("invalid_period")
	ErrEmptyBatch    = errors.New("empty_batch")
)
