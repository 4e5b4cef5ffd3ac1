package domain

import "errors"

var ErrVendorNotFound = errors.New("vendor not found")
