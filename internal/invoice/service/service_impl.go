package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/taxlens/taxlens/internal/invoice/domain"
	"github.com/taxlens/taxlens/internal/metrics"
	taxpayerdomain "github.com/taxlens/taxlens/internal/taxpayer/domain"
	tradedomain "github.com/taxlens/taxlens/internal/trade/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Invoices  invoicedomain.Repository
	Taxpayers taxpayerdomain.Repository
	Trades    tradedomain.Repository
	GenID     *snowflake.Node
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

type service struct {
	invoices  invoicedomain.Repository
	taxpayers taxpayerdomain.Repository
	trades    tradedomain.Repository
	genID     *snowflake.Node
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &service{
		invoices:  p.Invoices,
		taxpayers: p.Taxpayers,
		trades:    p.Trades,
		genID:     p.GenID,
		metrics:   p.Metrics,
		log:       p.Logger,
	}
}

func (s *service) IngestInvoices(ctx context.Context, period string, source invoicedomain.Source, records []invoicedomain.InvoiceRecord) (int, error) {
	if !invoicedomain.ValidPeriod(period) {
		return 0, invoicedomain.ErrInvalidPeriod
	}
	if !source.Valid() {
		return 0, invoicedomain.ErrInvalidSource
	}
	if len(records) == 0 {
		return 0, invoicedomain.ErrEmptyBatch
	}

	ingested := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return ingested, err
		}

		inv := invoicedomain.Invoice{
			ID:                 s.genID.Generate(),
			SupplierTIN:        strings.TrimSpace(rec.SupplierTIN),
			BuyerTIN:           strings.TrimSpace(rec.BuyerTIN),
			InvoiceNumber:      strings.TrimSpace(rec.InvoiceNumber),
			Period:             period,
			Source:             source,
			TaxableValue:       s.numeric(rec.TaxableValue, "taxable_value", rec.InvoiceNumber),
			CentralTax:         s.numeric(rec.CentralTax, "central_tax", rec.InvoiceNumber),
			StateTax:           s.numeric(rec.StateTax, "state_tax", rec.InvoiceNumber),
			IntegratedTax:      s.numeric(rec.IntegratedTax, "integrated_tax", rec.InvoiceNumber),
			TotalValue:         s.numeric(rec.TotalValue, "total_value", rec.InvoiceNumber),
			TaxRate:            s.numeric(rec.TaxRate, "tax_rate", rec.InvoiceNumber),
			ClassificationCode: rec.ClassificationCode,
			PlaceOfSupply:      rec.PlaceOfSupply,
			ReverseCharge:      rec.ReverseCharge,
		}
		if rec.InvoiceDate != nil {
			inv.InvoiceDate = *rec.InvoiceDate
		}

		if err := s.invoices.Upsert(ctx, &inv); err != nil {
			return ingested, err
		}
		if err := s.taxpayers.EnsureExists(ctx, inv.SupplierTIN); err != nil {
			return ingested, err
		}
		if err := s.taxpayers.EnsureExists(ctx, inv.BuyerTIN); err != nil {
			return ingested, err
		}
		if err := s.ensureReturnHeader(ctx, &inv); err != nil {
			return ingested, err
		}
		if err := s.trades.UpsertAdditive(ctx, inv.SupplierTIN, inv.BuyerTIN, inv.TotalValue); err != nil {
			return ingested, err
		}

		s.metrics.InvoicesIngested.Inc()
		ingested++
	}

	s.log.Info("invoice batch ingested",
		zap.String("period", period),
		zap.String("source", string(source)),
		zap.Int("records", ingested),
	)
	return ingested, nil
}

// ensureReturnHeader records the filing that carried this invoice: the supplier
// files the outward statement, the inward statement is drafted for the buyer.
func (s *service) ensureReturnHeader(ctx context.Context, inv *invoicedomain.Invoice) error {
	header := taxpayerdomain.ReturnHeader{
		Period:  inv.Period,
		FiledAt: time.Now().UTC(),
	}
	switch inv.Source {
	case invoicedomain.SourceOutward:
		header.TIN = inv.SupplierTIN
		header.Kind = taxpayerdomain.ReturnOutward
	case invoicedomain.SourceInward:
		header.TIN = inv.BuyerTIN
		header.Kind = taxpayerdomain.ReturnInward
	}
	return s.taxpayers.UpsertReturn(ctx, &header)
}

func (s *service) IngestTaxpayers(ctx context.Context, records []invoicedomain.TaxpayerRecord) (int, error) {
	if len(records) == 0 {
		return 0, invoicedomain.ErrEmptyBatch
	}

	ingested := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return ingested, err
		}
		t := taxpayerdomain.Taxpayer{
			TIN:              strings.TrimSpace(rec.TIN),
			LegalName:        rec.LegalName,
			TradeName:        rec.TradeName,
			JurisdictionCode: rec.JurisdictionCode,
			RegistrationType: defaultString(rec.RegistrationType, "Regular"),
			Status:           defaultString(rec.Status, "Active"),
		}
		if err := s.taxpayers.Upsert(ctx, &t); err != nil {
			return ingested, err
		}
		ingested++
	}
	return ingested, nil
}

func (s *service) IngestSummaries(ctx context.Context, period string, records []invoicedomain.SummaryRecord) (int, error) {
	if !invoicedomain.ValidPeriod(period) {
		return 0, invoicedomain.ErrInvalidPeriod
	}
	if len(records) == 0 {
		return 0, invoicedomain.ErrEmptyBatch
	}

	ingested := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return ingested, err
		}
		tin := strings.TrimSpace(rec.TIN)
		if err := s.taxpayers.EnsureExists(ctx, tin); err != nil {
			return ingested, err
		}
		header := taxpayerdomain.ReturnHeader{
			TIN:             tin,
			Period:          period,
			Kind:            taxpayerdomain.ReturnSummary,
			FiledAt:         time.Now().UTC(),
			ClaimedCredit:   s.numeric(rec.ClaimedCredit, "claimed_credit", tin),
			AvailableCredit: s.numeric(rec.AvailableCredit, "available_credit", tin),
		}
		if err := s.taxpayers.UpsertReturn(ctx, &header); err != nil {
			return ingested, err
		}
		ingested++
	}
	return ingested, nil
}

// numeric resolves an optional upload field. Absent values become zero but are
// logged and counted so data quality problems stay visible.
func (s *service) numeric(v *float64, field, ref string) float64 {
	if v != nil {
		return *v
	}
	s.metrics.MalformedRecords.Inc()
	s.log.Warn("missing numeric field substituted with zero",
		zap.String("field", field),
		zap.String("record", ref),
	)
	return 0
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
