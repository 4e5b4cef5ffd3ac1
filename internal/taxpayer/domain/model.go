package domain

import "time"

// Taxpayer is a registered business entity. Rows are upserted on ingest and
// never deleted; the TIN is the jurisdiction-assigned 15-char registration code.
type Taxpayer struct {
	TIN              string `gorm:"primaryKey;size:15;column:tin" json:"tin"`
	LegalName        string `gorm:"type:text" json:"legal_name"`
	TradeName        string `gorm:"type:text" json:"trade_name"`
	JurisdictionCode string `gorm:"size:2" json:"jurisdiction_code"`
	RegistrationType string `gorm:"type:text;default:Regular" json:"registration_type"`
	Status           string `gorm:"type:text;default:Active" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Taxpayer) TableName() string { return "taxpayers" }

// ReturnKind distinguishes the three filings a taxpayer produces per period.
type ReturnKind string

const (
	ReturnOutward ReturnKind = "OUTWARD"
	ReturnInward  ReturnKind = "INWARD"
	ReturnSummary ReturnKind = "SUMMARY"
)

// ReturnHeader is one filing header per taxpayer per period per kind.
// SUMMARY headers carry the aggregate credit figures; the other kinds only
// record that the filing exists.
type ReturnHeader struct {
	TIN    string     `gorm:"primaryKey;size:15;column:tin" json:"tin"`
	Period string     `gorm:"primaryKey;size:6" json:"period"`
	Kind   ReturnKind `gorm:"primaryKey;size:8" json:"kind"`

	FiledAt time.Time `json:"filed_at"`

	// Summary-only aggregates.
	ClaimedCredit   float64 `json:"claimed_credit"`
	AvailableCredit float64 `json:"available_credit"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ReturnHeader) TableName() string { return "return_headers" }

// ReturnCounts aggregates a taxpayer's filings by kind across all periods.
type ReturnCounts struct {
	Outward int64
	Inward  int64
	Summary int64
}
