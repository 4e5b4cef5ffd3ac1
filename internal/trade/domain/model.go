package domain

import "time"

// TradeEdge is the directed supplier→buyer aggregate. Volume and Frequency are
// upserted additively on every ingested invoice and never shrink.
type TradeEdge struct {
	SupplierTIN string `gorm:"primaryKey;size:15" json:"supplier_tin"`
	BuyerTIN    string `gorm:"primaryKey;size:15" json:"buyer_tin"`

	Volume    float64 `gorm:"not null;default:0" json:"volume"`
	Frequency int64   `gorm:"not null;default:0" json:"frequency"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (TradeEdge) TableName() string { return "trade_edges" }

// Cycle is one simple directed cycle in the trade graph, reported once in its
// canonical rotation (starting at the lexicographically smallest TIN).
type Cycle struct {
	Members []string `json:"cycle"`
	Length  int      `json:"cycle_length"`
}
