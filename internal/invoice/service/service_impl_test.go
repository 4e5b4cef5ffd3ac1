package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	invoicedomain "github.com/taxlens/taxlens/internal/invoice/domain"
	invoicerepo "github.com/taxlens/taxlens/internal/invoice/repository"
	"github.com/taxlens/taxlens/internal/metrics"
	taxpayerdomain "github.com/taxlens/taxlens/internal/taxpayer/domain"
	taxpayerrepo "github.com/taxlens/taxlens/internal/taxpayer/repository"
	tradedomain "github.com/taxlens/taxlens/internal/trade/domain"
	traderepo "github.com/taxlens/taxlens/internal/trade/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc     invoicedomain.Service
	conn    *gorm.DB
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&taxpayerdomain.Taxpayer{},
		&taxpayerdomain.ReturnHeader{},
		&invoicedomain.Invoice{},
		&tradedomain.TradeEdge{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	svc := NewService(ServiceParam{
		Invoices:  invoicerepo.NewRepository(conn),
		Taxpayers: taxpayerrepo.NewRepository(conn),
		Trades:    traderepo.NewRepository(conn),
		GenID:     node,
		Metrics:   m,
		Logger:    zap.NewNop(),
	})
	return &fixture{svc: svc, conn: conn, metrics: m}
}

func ptr(v float64) *float64 { return &v }

func record(supplier, buyer, number string, total float64) invoicedomain.InvoiceRecord {
	return invoicedomain.InvoiceRecord{
		InvoiceNumber: number,
		SupplierTIN:   supplier,
		BuyerTIN:      buyer,
		TaxableValue:  ptr(total),
		CentralTax:    ptr(0),
		StateTax:      ptr(0),
		IntegratedTax: ptr(0),
		TotalValue:    ptr(total),
		TaxRate:       ptr(18),
	}
}

func TestIngestInvoicesBuildsGraph(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.IngestInvoices(ctx, "012025", invoicedomain.SourceOutward, []invoicedomain.InvoiceRecord{
		record("27AAAAA0000A1Z5", "29BBBBB0000B1Z5", "INV-1", 50_000),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var invoiceCount int64
	require.NoError(t, f.conn.Model(&invoicedomain.Invoice{}).Count(&invoiceCount).Error)
	assert.Equal(t, int64(1), invoiceCount)

	// Both counterparties get stub taxpayer rows.
	var taxpayerCount int64
	require.NoError(t, f.conn.Model(&taxpayerdomain.Taxpayer{}).Count(&taxpayerCount).Error)
	assert.Equal(t, int64(2), taxpayerCount)

	// The outward statement is the supplier's filing.
	var header taxpayerdomain.ReturnHeader
	require.NoError(t, f.conn.First(&header).Error)
	assert.Equal(t, "27AAAAA0000A1Z5", header.TIN)
	assert.Equal(t, taxpayerdomain.ReturnOutward, header.Kind)

	var edge tradedomain.TradeEdge
	require.NoError(t, f.conn.First(&edge).Error)
	assert.Equal(t, "27AAAAA0000A1Z5", edge.SupplierTIN)
	assert.Equal(t, "29BBBBB0000B1Z5", edge.BuyerTIN)
	assert.Equal(t, 50_000.0, edge.Volume)
	assert.Equal(t, int64(1), edge.Frequency)
}

func TestIngestInwardFilesForBuyer(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.IngestInvoices(context.Background(), "012025", invoicedomain.SourceInward, []invoicedomain.InvoiceRecord{
		record("27AAAAA0000A1Z5", "29BBBBB0000B1Z5", "INV-1", 10_000),
	})
	require.NoError(t, err)

	var header taxpayerdomain.ReturnHeader
	require.NoError(t, f.conn.First(&header).Error)
	assert.Equal(t, "29BBBBB0000B1Z5", header.TIN)
	assert.Equal(t, taxpayerdomain.ReturnInward, header.Kind)
}

func TestIngestTradeEdgeAccumulates(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.IngestInvoices(context.Background(), "012025", invoicedomain.SourceOutward, []invoicedomain.InvoiceRecord{
		record("27AAAAA0000A1Z5", "29BBBBB0000B1Z5", "INV-1", 10_000),
		record("27AAAAA0000A1Z5", "29BBBBB0000B1Z5", "INV-2", 15_000),
	})
	require.NoError(t, err)

	var edge tradedomain.TradeEdge
	require.NoError(t, f.conn.First(&edge).Error)
	assert.Equal(t, 25_000.0, edge.Volume)
	assert.Equal(t, int64(2), edge.Frequency)
}

func TestIngestMissingNumericSubstitutedWithZero(t *testing.T) {
	f := newFixture(t)

	rec := record("27AAAAA0000A1Z5", "29BBBBB0000B1Z5", "INV-1", 10_000)
	rec.TaxableValue = nil
	rec.CentralTax = nil

	n, err := f.svc.IngestInvoices(context.Background(), "012025", invoicedomain.SourceOutward, []invoicedomain.InvoiceRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var inv invoicedomain.Invoice
	require.NoError(t, f.conn.First(&inv).Error)
	assert.Equal(t, 0.0, inv.TaxableValue)
	assert.Equal(t, 0.0, inv.CentralTax)
	assert.Equal(t, 10_000.0, inv.TotalValue)

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.MalformedRecords))
}

func TestIngestValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := record("27AAAAA0000A1Z5", "29BBBBB0000B1Z5", "INV-1", 10_000)

	_, err := f.svc.IngestInvoices(ctx, "132025", invoicedomain.SourceOutward, []invoicedomain.InvoiceRecord{rec})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPeriod)

	_, err = f.svc.IngestInvoices(ctx, "012025", invoicedomain.Source("SIDEWAYS"), []invoicedomain.InvoiceRecord{rec})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidSource)

	_, err = f.svc.IngestInvoices(ctx, "012025", invoicedomain.SourceOutward, nil)
	assert.ErrorIs(t, err, invoicedomain.ErrEmptyBatch)
}

func TestIngestSummariesRecordsHeader(t *testing.T) {
	f := newFixture(t)

	n, err := f.svc.IngestSummaries(context.Background(), "012025", []invoicedomain.SummaryRecord{
		{TIN: "29BBBBB0000B1Z5", ClaimedCredit: ptr(80_000), AvailableCredit: ptr(75_000)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var header taxpayerdomain.ReturnHeader
	require.NoError(t, f.conn.First(&header).Error)
	assert.Equal(t, taxpayerdomain.ReturnSummary, header.Kind)
	assert.Equal(t, 80_000.0, header.ClaimedCredit)
	assert.Equal(t, 75_000.0, header.AvailableCredit)
}

func TestIngestTaxpayersUpserts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.IngestTaxpayers(ctx, []invoicedomain.TaxpayerRecord{
		{TIN: "27AAAAA0000A1Z5", LegalName: "Acme Traders"},
	})
	require.NoError(t, err)

	_, err = f.svc.IngestTaxpayers(ctx, []invoicedomain.TaxpayerRecord{
		{TIN: "27AAAAA0000A1Z5", LegalName: "Acme Traders Pvt Ltd"},
	})
	require.NoError(t, err)

	var taxpayer taxpayerdomain.Taxpayer
	require.NoError(t, f.conn.First(&taxpayer).Error)
	assert.Equal(t, "Acme Traders Pvt Ltd", taxpayer.LegalName)

	var count int64
	require.NoError(t, f.conn.Model(&taxpayerdomain.Taxpayer{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
