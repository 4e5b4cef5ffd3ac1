package domain

import "github.com/taxlens/taxlens/internal/config"

type RiskLevel string

const (
	LevelLow      RiskLevel = "LOW"
	LevelMedium   RiskLevel = "MEDIUM"
	LevelHigh     RiskLevel = "HIGH"
	LevelCritical RiskLevel = "CRITICAL"
)

// LevelForScore maps a composite score to its band using the configured
// cutoffs.
func LevelForScore(score float64, cfg config.ScoringConfig) RiskLevel {
	switch {
	case score >= cfg.LevelCritical:
		return LevelCritical
	case score >= cfg.LevelHigh:
		return LevelHigh
	case score >= cfg.LevelMedium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// VendorRisk is one taxpayer's scored risk profile. Field names are part of
// the API response shape.
type VendorRisk struct {
	TIN               string    `json:"tin"`
	LegalName         string    `json:"legal_name"`
	RiskScore         float64   `json:"risk_score"`
	RiskLevel         RiskLevel `json:"risk_level"`
	FilingRate        float64   `json:"filing_rate"`
	MismatchCount     int64     `json:"mismatch_count"`
	TotalInvoices     int64     `json:"total_invoices"`
	CircularTradeFlag bool      `json:"circular_trade_flag"`
	RiskFactors       []string  `json:"risk_factors"`
}
