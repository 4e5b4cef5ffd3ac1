package repository

import (
	"context"

	invoicedomain "github.com/taxlens/taxlens/internal/invoice/domain"
	"github.com/taxlens/taxlens/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) invoicedomain.Repository {
	return &repository{db: conn}
}

func (r *repository) Upsert(ctx context.Context, inv *invoicedomain.Invoice) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "supplier_tin"}, {Name: "buyer_tin"}, {Name: "invoice_number"}, {Name: "period"}, {Name: "source"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"invoice_date",
			"taxable_value", "central_tax", "state_tax", "integrated_tax",
			"total_value", "tax_rate",
			"classification_code", "place_of_supply", "reverse_charge",
			"updated_at",
		}),
	}).Create(inv).Error
	return db.WrapStoreErr("invoice.upsert", err)
}

func (r *repository) ListByPeriod(ctx context.Context, period string, source invoicedomain.Source) ([]invoicedomain.Invoice, error) {
	var items []invoicedomain.Invoice
	err := r.db.WithContext(ctx).
		Where("period = ? AND source = ?", period, source).
		Order("supplier_tin ASC, invoice_number ASC").
		Find(&items).Error
	if err != nil {
		return nil, db.WrapStoreErr("invoice.list_by_period", err)
	}
	return items, nil
}

func (r *repository) ListInwardForBuyer(ctx context.Context, buyerTIN, period string) ([]invoicedomain.Invoice, error) {
	var items []invoicedomain.Invoice
	err := r.db.WithContext(ctx).
		Where("buyer_tin = ? AND period = ? AND source = ?", buyerTIN, period, invoicedomain.SourceInward).
		Order("supplier_tin ASC, invoice_number ASC").
		Find(&items).Error
	if err != nil {
		return nil, db.WrapStoreErr("invoice.list_inward", err)
	}
	return items, nil
}

func (r *repository) CountForTaxpayer(ctx context.Context, tin string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("supplier_tin = ? OR buyer_tin = ?", tin, tin).
		Count(&count).Error
	return count, db.WrapStoreErr("invoice.count_for_taxpayer", err)
}

func (r *repository) CountUnmatchedOutward(ctx context.Context, tin string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM invoices o
		 WHERE o.source = ?
		   AND (o.supplier_tin = ? OR o.buyer_tin = ?)
		   AND NOT EXISTS (
		     SELECT 1 FROM invoices i
		     WHERE i.source = ?
		       AND i.supplier_tin = o.supplier_tin
		       AND i.invoice_number = o.invoice_number
		       AND i.period = o.period
		   )`,
		invoicedomain.SourceOutward, tin, tin, invoicedomain.SourceInward,
	).Scan(&count).Error
	return count, db.WrapStoreErr("invoice.count_unmatched", err)
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Count(&count).Error
	return count, db.WrapStoreErr("invoice.count", err)
}

func (r *repository) SumTotalValue(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Select("COALESCE(SUM(total_value), 0)").
		Scan(&total).Error
	return total, db.WrapStoreErr("invoice.sum_total", err)
}
