package repository

import (
	"context"
	"strings"
	"time"

	taxpayerdomain "github.com/taxlens/taxlens/internal/taxpayer/domain"
	"github.com/taxlens/taxlens/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) taxpayerdomain.Repository {
	return &repository{db: conn}
}

func (r *repository) Upsert(ctx context.Context, t *taxpayerdomain.Taxpayer) error {
	if strings.TrimSpace(t.TIN) == "" {
		return taxpayerdomain.ErrInvalidTIN
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tin"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"legal_name", "trade_name", "jurisdiction_code", "registration_type", "status", "updated_at",
		}),
	}).Create(t).Error
	return db.WrapStoreErr("taxpayer.upsert", err)
}

func (r *repository) EnsureExists(ctx context.Context, tin string) error {
	if strings.TrimSpace(tin) == "" {
		return taxpayerdomain.ErrInvalidTIN
	}
	stub := taxpayerdomain.Taxpayer{
		TIN:              tin,
		RegistrationType: "Regular",
		Status:           "Active",
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tin"}},
		DoNothing: true,
	}).Create(&stub).Error
	return db.WrapStoreErr("taxpayer.ensure", err)
}

func (r *repository) FindByTIN(ctx context.Context, tin string) (*taxpayerdomain.Taxpayer, error) {
	var t taxpayerdomain.Taxpayer
	err := r.db.WithContext(ctx).
		Where("tin = ?", tin).
		Limit(1).
		Find(&t).Error
	if err != nil {
		return nil, db.WrapStoreErr("taxpayer.find", err)
	}
	if t.TIN == "" {
		return nil, nil
	}
	return &t, nil
}

func (r *repository) List(ctx context.Context) ([]taxpayerdomain.Taxpayer, error) {
	var items []taxpayerdomain.Taxpayer
	err := r.db.WithContext(ctx).
		Order("tin ASC").
		Find(&items).Error
	if err != nil {
		return nil, db.WrapStoreErr("taxpayer.list", err)
	}
	return items, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&taxpayerdomain.Taxpayer{}).
		Count(&count).Error
	return count, db.WrapStoreErr("taxpayer.count", err)
}

func (r *repository) UpsertReturn(ctx context.Context, ret *taxpayerdomain.ReturnHeader) error {
	if strings.TrimSpace(ret.TIN) == "" {
		return taxpayerdomain.ErrInvalidTIN
	}
	if ret.FiledAt.IsZero() {
		ret.FiledAt = time.Now().UTC()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tin"}, {Name: "period"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"filed_at", "claimed_credit", "available_credit", "updated_at",
		}),
	}).Create(ret).Error
	return db.WrapStoreErr("return.upsert", err)
}

func (r *repository) ReturnCounts(ctx context.Context, tin string) (taxpayerdomain.ReturnCounts, error) {
	var rows []struct {
		Kind  taxpayerdomain.ReturnKind
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&taxpayerdomain.ReturnHeader{}).
		Select("kind, COUNT(*) AS count").
		Where("tin = ?", tin).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return taxpayerdomain.ReturnCounts{}, db.WrapStoreErr("return.counts", err)
	}

	var counts taxpayerdomain.ReturnCounts
	for _, row := range rows {
		switch row.Kind {
		case taxpayerdomain.ReturnOutward:
			counts.Outward = row.Count
		case taxpayerdomain.ReturnInward:
			counts.Inward = row.Count
		case taxpayerdomain.ReturnSummary:
			counts.Summary = row.Count
		}
	}
	return counts, nil
}

func (r *repository) ListSummaries(ctx context.Context, period string) ([]taxpayerdomain.ReturnHeader, error) {
	var items []taxpayerdomain.ReturnHeader
	err := r.db.WithContext(ctx).
		Where("period = ? AND kind = ?", period, taxpayerdomain.ReturnSummary).
		Order("tin ASC").
		Find(&items).Error
	if err != nil {
		return nil, db.WrapStoreErr("return.summaries", err)
	}
	return items, nil
}

func (r *repository) CountReturnsByKind(ctx context.Context, kind taxpayerdomain.ReturnKind) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&taxpayerdomain.ReturnHeader{}).
		Where("kind = ?", kind).
		Count(&count).Error
	return count, db.WrapStoreErr("return.count", err)
}
