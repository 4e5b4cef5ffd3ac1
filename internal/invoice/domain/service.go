package domain

import (
	"context"
	"time"
)

// Service ingests filing uploads. The reconciliation contract assumes the
// caller finishes ingesting a period before triggering a run for it.
type Service interface {
	IngestInvoices(ctx context.Context, period string, source Source, records []InvoiceRecord) (int, error)
	IngestTaxpayers(ctx context.Context, records []TaxpayerRecord) (int, error)
	IngestSummaries(ctx context.Context, period string, records []SummaryRecord) (int, error)
}

// InvoiceRecord is one uploaded invoice line. Numeric fields are pointers so a
// missing value is distinguishable from zero: absent numerics are substituted
// with zero, logged, and counted rather than rejected.
type InvoiceRecord struct {
	InvoiceNumber      string     `json:"invoice_number"`
	InvoiceDate        *time.Time `json:"invoice_date"`
	SupplierTIN        string     `json:"supplier_tin"`
	BuyerTIN           string     `json:"buyer_tin"`
	TaxableValue       *float64   `json:"taxable_value"`
	CentralTax         *float64   `json:"central_tax"`
	StateTax           *float64   `json:"state_tax"`
	IntegratedTax      *float64   `json:"integrated_tax"`
	TotalValue         *float64   `json:"total_value"`
	TaxRate            *float64   `json:"tax_rate"`
	ClassificationCode string     `json:"classification_code"`
	PlaceOfSupply      string     `json:"place_of_supply"`
	ReverseCharge      bool       `json:"reverse_charge"`
}

type TaxpayerRecord struct {
	TIN              string `json:"tin"`
	LegalName        string `json:"legal_name"`
	TradeName        string `json:"trade_name"`
	JurisdictionCode string `json:"jurisdiction_code"`
	RegistrationType string `json:"registration_type"`
	Status           string `json:"status"`
}

type SummaryRecord struct {
	TIN             string   `json:"tin"`
	ClaimedCredit   *float64 `json:"claimed_credit"`
	AvailableCredit *float64 `json:"available_credit"`
}
