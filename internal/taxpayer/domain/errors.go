package domain

import "errors"

var (
	ErrInvalidTIN = errors.New("invalid_tin")
	ErrNotFound   = errors.New("not_found")
)
