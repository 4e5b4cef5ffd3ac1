package repository

import (
	"context"

	tradedomain "github.com/taxlens/taxlens/internal/trade/domain"
	"github.com/taxlens/taxlens/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) tradedomain.Repository {
	return &repository{db: conn}
}

func (r *repository) UpsertAdditive(ctx context.Context, supplierTIN, buyerTIN string, value float64) error {
	edge := tradedomain.TradeEdge{
		SupplierTIN: supplierTIN,
		BuyerTIN:    buyerTIN,
		Volume:      value,
		Frequency:   1,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "supplier_tin"}, {Name: "buyer_tin"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"volume":    gorm.Expr("volume + ?", value),
			"frequency": gorm.Expr("frequency + 1"),
		}),
	}).Create(&edge).Error
	return db.WrapStoreErr("trade.upsert", err)
}

func (r *repository) ListEdges(ctx context.Context) ([]tradedomain.TradeEdge, error) {
	var edges []tradedomain.TradeEdge
	err := r.db.WithContext(ctx).
		Order("supplier_tin ASC, buyer_tin ASC").
		Find(&edges).Error
	if err != nil {
		return nil, db.WrapStoreErr("trade.list", err)
	}
	return edges, nil
}
