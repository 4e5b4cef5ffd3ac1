package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Source identifies which filing a stored invoice copy came from. Two copies
// of the same economic invoice may exist, one per source.
type Source string

const (
	SourceOutward Source = "OUTWARD"
	SourceInward  Source = "INWARD"
)

func (s Source) Valid() bool {
	return s == SourceOutward || s == SourceInward
}

// Invoice is one filed invoice line. The matching identity is
// (supplier_tin, invoice_number, period) regardless of source; the unique key
// additionally includes buyer and source so both filing copies can coexist and
// a duplicate filing against a second buyer lands as its own row instead of
// silently replacing the first. The key columns are immutable after creation.
type Invoice struct {
	ID snowflake.ID `gorm:"primaryKey" json:"id"`

	SupplierTIN   string `gorm:"size:15;not null;uniqueIndex:ux_invoices_key,priority:1;index" json:"supplier_tin"`
	BuyerTIN      string `gorm:"size:15;not null;uniqueIndex:ux_invoices_key,priority:2;index" json:"buyer_tin"`
	InvoiceNumber string `gorm:"size:64;not null;uniqueIndex:ux_invoices_key,priority:3" json:"invoice_number"`
	Period        string `gorm:"size:6;not null;uniqueIndex:ux_invoices_key,priority:4;index" json:"period"`
	Source        Source `gorm:"size:8;not null;uniqueIndex:ux_invoices_key,priority:5" json:"source"`

	InvoiceDate time.Time `json:"invoice_date"`

	TaxableValue  float64 `gorm:"not null;default:0" json:"taxable_value"`
	CentralTax    float64 `gorm:"not null;default:0" json:"central_tax"`
	StateTax      float64 `gorm:"not null;default:0" json:"state_tax"`
	IntegratedTax float64 `gorm:"not null;default:0" json:"integrated_tax"`
	TotalValue    float64 `gorm:"not null;default:0" json:"total_value"`
	TaxRate       float64 `gorm:"not null;default:0" json:"tax_rate"`

	ClassificationCode string `gorm:"size:16" json:"classification_code"`
	PlaceOfSupply      string `gorm:"size:64" json:"place_of_supply"`
	ReverseCharge      bool   `gorm:"not null;default:false" json:"reverse_charge"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// TaxTotal is the credit value an inward copy supports.
func (i Invoice) TaxTotal() float64 {
	return i.CentralTax + i.StateTax + i.IntegratedTax
}

// PairKey identifies an invoice for cross-filing pairing, ignoring source.
func (i Invoice) PairKey() string {
	return i.SupplierTIN + "|" + i.InvoiceNumber
}

// CounterpartyKey additionally pins the buyer; used by the missing-counterpart
// detectors so a copy filed against the wrong buyer does not count as present.
func (i Invoice) CounterpartyKey() string {
	return i.SupplierTIN + "|" + i.BuyerTIN + "|" + i.InvoiceNumber
}
