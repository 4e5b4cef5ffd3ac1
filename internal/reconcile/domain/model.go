package domain

import (
	"time"

	"github.com/taxlens/taxlens/internal/config"
)

type MismatchType string

const (
	MissingInInward  MismatchType = "MISSING_IN_INWARD"
	MissingInOutward MismatchType = "MISSING_IN_OUTWARD"
	ValueMismatch    MismatchType = "VALUE_MISMATCH"
	RateMismatch     MismatchType = "RATE_MISMATCH"
	ExcessCredit     MismatchType = "EXCESS_CREDIT"
	DuplicateInvoice MismatchType = "DUPLICATE_INVOICE"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// SeverityThresholds maps an amount difference to a severity band.
type SeverityThresholds struct {
	Critical float64
	High     float64
	Medium   float64
}

func DefaultSeverityThresholds() SeverityThresholds {
	return ThresholdsFromConfig(config.DefaultScoringConfig())
}

func ThresholdsFromConfig(cfg config.ScoringConfig) SeverityThresholds {
	return SeverityThresholds{
		Critical: cfg.SeverityCritical,
		High:     cfg.SeverityHigh,
		Medium:   cfg.SeverityMedium,
	}
}

// ForAmount is the severity function: a pure mapping from amount difference.
func (t SeverityThresholds) ForAmount(amount float64) Severity {
	switch {
	case amount >= t.Critical:
		return SeverityCritical
	case amount >= t.High:
		return SeverityHigh
	case amount >= t.Medium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Mismatch is one reconciliation finding. The JSON field names are consumed by
// downstream report and explanation generators and must not change.
type Mismatch struct {
	ID               string       `json:"id"`
	Type             MismatchType `json:"mismatch_type"`
	Severity         Severity     `json:"severity"`
	SupplierID       string       `json:"supplier_id"`
	BuyerID          string       `json:"buyer_id"`
	InvoiceNumber    string       `json:"invoice_number"`
	Period           string       `json:"period"`
	FieldName        *string      `json:"field_name"`
	ExpectedValue    string       `json:"expected_value"`
	ActualValue      string       `json:"actual_value"`
	AmountDifference float64      `json:"amount_difference"`
	Description      string       `json:"description"`
}

// Result is the full output of one reconciliation run for a period.
type Result struct {
	Period     string               `json:"period"`
	Mismatches []Mismatch           `json:"mismatches"`
	Total      int                  `json:"total"`
	Breakdown  map[MismatchType]int `json:"breakdown"`
	ComputedAt time.Time            `json:"computed_at"`

	runID uint64
}
