package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taxlens/taxlens/internal/config"
	invoicedomain "github.com/taxlens/taxlens/internal/invoice/domain"
	invoicerepo "github.com/taxlens/taxlens/internal/invoice/repository"
	"github.com/taxlens/taxlens/internal/metrics"
	reconciledomain "github.com/taxlens/taxlens/internal/reconcile/domain"
	taxpayerdomain "github.com/taxlens/taxlens/internal/taxpayer/domain"
	taxpayerrepo "github.com/taxlens/taxlens/internal/taxpayer/repository"
	tradedomain "github.com/taxlens/taxlens/internal/trade/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testPeriod = "012025"

type fixture struct {
	svc       reconciledomain.Service
	cache     *reconciledomain.ResultCache
	invoices  invoicedomain.Repository
	taxpayers taxpayerdomain.Repository
	node      *snowflake.Node
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

	cache := reconciledomain.NewResultCache()
	invoices := invoicerepo.NewRepository(conn)
	taxpayers := taxpayerrepo.NewRepository(conn)

	svc := NewService(ServiceParam{
		Invoices:  invoices,
		Taxpayers: taxpayers,
		Cache:     cache,
		Scoring:   config.NewStaticScoringConfigHolder(config.DefaultScoringConfig()),
		Metrics:   metrics.New(prometheus.NewRegistry()),
		Logger:    zap.NewNop(),
	})

	return &fixture{svc: svc, cache: cache, invoices: invoices, taxpayers: taxpayers, node: node}
}

type invoiceSpec struct {
	source        invoicedomain.Source
	supplier      string
	buyer         string
	number        string
	taxableValue  float64
	centralTax    float64
	stateTax      float64
	integratedTax float64
	totalValue    float64
	taxRate       float64
}

func (f *fixture) seed(t *testing.T, spec invoiceSpec) {
	t.Helper()
	inv := invoicedomain.Invoice{
		ID:            f.node.Generate(),
		SupplierTIN:   spec.supplier,
		BuyerTIN:      spec.buyer,
		InvoiceNumber: spec.number,
		Period:        testPeriod,
		Source:        spec.source,
		TaxableValue:  spec.taxableValue,
		CentralTax:    spec.centralTax,
		StateTax:      spec.stateTax,
		IntegratedTax: spec.integratedTax,
		TotalValue:    spec.totalValue,
		TaxRate:       spec.taxRate,
	}
	require.NoError(t, f.invoices.Upsert(context.Background(), &inv))
}

func (f *fixture) seedSummary(t *testing.T, tin string, claimed, available float64) {
	t.Helper()
	require.NoError(t, f.taxpayers.UpsertReturn(context.Background(), &taxpayerdomain.ReturnHeader{
		TIN:             tin,
		Period:          testPeriod,
		Kind:            taxpayerdomain.ReturnSummary,
		ClaimedCredit:   claimed,
		AvailableCredit: available,
	}))
}

func ofType(res *reconciledomain.Result, mt reconciledomain.MismatchType) []reconciledomain.Mismatch {
	var out []reconciledomain.Mismatch
	for _, m := range res.Mismatches {
		if m.Type == mt {
			out = append(out, m)
		}
	}
	return out
}

func TestReconcileMissingInInward(t *testing.T) {
	f := newFixture(t)
	f.seed(t, invoiceSpec{
		source: invoicedomain.SourceOutward,
		supplier: "27AAAAA0000A1Z5", buyer: "29BBBBB0000B1Z5",
		number: "INV-001", totalValue: 120_000,
	})

	res, err := f.svc.Reconcile(context.Background(), testPeriod)
	require.NoError(t, err)

	require.Equal(t, 1, res.Total)
	m := res.Mismatches[0]
	assert.Equal(t, reconciledomain.MissingInInward, m.Type)
	assert.Equal(t, reconciledomain.SeverityHigh, m.Severity)
	assert.Equal(t, "27AAAAA0000A1Z5", m.SupplierID)
	assert.Equal(t, "29BBBBB0000B1Z5", m.BuyerID)
	assert.Equal(t, "INV-001", m.InvoiceNumber)
	assert.Equal(t, "120000", m.ExpectedValue)
	assert.Equal(t, "NOT FOUND", m.ActualValue)
	assert.Equal(t, 120_000.0, m.AmountDifference)
	assert.Nil(t, m.FieldName)
	assert.NotEmpty(t, m.ID)
}

func TestReconcileMissingInOutward(t *testing.T) {
	f := newFixture(t)
	f.seed(t, invoiceSpec{
		source: invoicedomain.SourceInward,
		supplier: "27AAAAA0000A1Z5", buyer: "29BBBBB0000B1Z5",
		number: "INV-002", totalValue: 5_000,
	})

	res, err := f.svc.Reconcile(context.Background(), testPeriod)
	require.NoError(t, err)

	require.Equal(t, 1, res.Total)
	m := res.Mismatches[0]
	assert.Equal(t, reconciledomain.MissingInOutward, m.Type)
	assert.Equal(t, reconciledomain.SeverityLow, m.Severity)
	assert.Equal(t, 5_000.0, m.AmountDifference)
}

func TestReconcileMatchedPairProducesNothing(t *testing.T) {
	f := newFixture(t)
	for _, src := range []invoicedomain.Source{invoicedomain.SourceOutward, invoicedomain.SourceInward} {
		f.seed(t, invoiceSpec{
			source: src,
			supplier: "27AAAAA0000A1Z5", buyer: "29BBBBB0000B1Z5",
			number: "INV-003", taxableValue: 100_000, centralTax: 9_000, stateTax: 9_000,
			totalValue: 118_000, taxRate: 18,
		})
	}

	res, err := f.svc.Reconcile(context.Background(), testPeriod)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
}

func TestReconcileValueMismatchPerField(t *testing.T) {
	f := newFixture(t)
	f.seed(t, invoiceSpec{
		source: invoicedomain.SourceOutward,
		supplier: "27AAAAA0000A1Z5", buyer: "29BBBBB0000B1Z5",
		number: "INV-004", taxableValue: 100_000, centralTax: 9_000,
		totalValue: 118_000, taxRate: 18,
	})
	f.seed(t, invoiceSpec{
		source: invoicedomain.SourceInward,
		supplier: "27AAAAA0000A1Z5", buyer: "29BBBBB0000B1Z5",
		number: "INV-004", taxableValue: 85_000, centralTax: 7_650,
		totalValue: 118_000, taxRate: 18,
	})

	res, err := f.svc.Reconcile(context.Background(), testPeriod)
	require.NoError(t, err)

	values := ofType(res, reconciledomain.ValueMismatch)
	require.Len(t, values, 2)
	assert.Equal(t, res.Total, len(values))

	byField := map[string]reconciledomain.Mismatch{}
	for _, m := range values {
		require.NotNil(t, m.FieldName)
		byField[*m.FieldName] = m
	}

	taxable := byField["taxable_value"]
	assert.Equal(t, "100000", taxable.ExpectedValue)
	assert.Equal(t, "85000", taxable.ActualValue)
	assert.Equal(t, 15_000.0, taxable.AmountDifference)
	assert.Equal(t, reconciledomain.SeverityMedium, taxable.Severity)

	central := byField["central_tax"]
	assert.Equal(t, 1_350.0, central.AmountDifference)
	assert.Equal(t, reconciledomain.SeverityLow, central.Severity)
}

func TestReconcileRateMismatchFixedHighSeverity(t *testing.T) {
	f := newFixture(t)
	f.seed(t, invoiceSpec{
		source: invoicedomain.SourceOutward,
		supplier: "27AAAAA0000A1Z5", buyer: "29BBBBB0000B1Z5",
		number: "INV-005", totalValue: 1_180, taxRate: 18,
	})
	f.seed(t, invoiceSpec{
		source: invoicedomain.SourceInward,
		supplier: "27AAAAA0000A1Z5", buyer: "29BBBBB0000B1Z5",
		number: "INV-005", totalValue: 1_180, taxRate: 12,
	})

	res, err := f.svc.Reconcile(context.Background(), testPeriod)
	require.NoError(t, err)

	rates := ofType(res, reconciledomain.RateMismatch)
	require.Len(t, rates, 1)
	m := rates[0]
	assert.Equal(t, reconciledomain.SeverityHigh, m.Severity)
	assert.Equal(t, "18", m.ExpectedValue)
	assert.Equal(t, "12", m.ActualValue)
	require.NotNil(t, m.FieldName)
	assert.Equal(t, "tax_rate", *m.FieldName)
}

func TestReconcileExcessCreditFromInwardInvoices(t *testing.T) {
	f := newFixture(t)
	buyer := "29BBBBB0000B1Z5"
	f.seed(t, invoiceSpec{
		source: invoicedomain.SourceOutward,
		supplier: "27AAAAA0000A1Z5", buyer: buyer,
		number: "INV-006", centralTax: 30_000, stateTax: 30_000, totalValue: 400_000,
	})
	f.seed(t, invoiceSpec{
		source: invoicedomain.SourceInward,
		supplier: "27AAAAA0000A1Z5", buyer: buyer,
		number: "INV-006", centralTax: 30_000, stateTax: 30_000, totalValue: 400_000,
	})
	f.seedSummary(t, buyer, 100_000, 0)

	res, err := f.svc.Reconcile(context.Background(), testPeriod)
	require.NoError(t, err)

	excess := ofType(res, reconciledomain.ExcessCredit)
	require.Len(t, excess, 1)
	m := excess[0]
	assert.Equal(t, "", m.SupplierID)
	assert.Equal(t, buyer, m.BuyerID)
	assert.Equal(t, "AGGREGATE", m.InvoiceNumber)
	assert.Equal(t, "60000", m.ExpectedValue)
	assert.Equal(t, "100000", m.ActualValue)
	assert.Equal(t, 40_000.0, m.AmountDifference)
	assert.Equal(t, reconciledomain.SeverityMedium, m.Severity)
}

func TestReconcileExcessCreditFallsBackToSelfReported(t *testing.T) {
	f := newFixture(t)
	buyer := "29BBBBB0000B1Z5"
	f.seedSummary(t, buyer, 50_000, 20_000)

	res, err := f.svc.Reconcile(context.Background(), testPeriod)
	require.NoError(t, err)

	excess := ofType(res, reconciledomain.ExcessCredit)
	require.Len(t, excess, 1)
	assert.Equal(t, 30_000.0, excess[0].AmountDifference)
}

func TestReconcileClaimWithinAvailableNotFlagged(t *testing.T) {
	f := newFixture(t)
	f.seedSummary(t, "29BBBBB0000B1Z5", 20_000, 20_000)

	res, err := f.svc.Reconcile(context.Background(), testPeriod)
	require.NoError(t, err)
	assert.Empty(t, ofType(res, reconciledomain.ExcessCredit))
}

func TestReconcileDuplicateInvoice(t *testing.T) {
	f := newFixture(t)
	supplier := "27AAAAA0000A1Z5"
	for _, buyer := range []string{"29BBBBB0000B1Z5", "33CCCCC0000C1Z5", "07DDDDD0000D1Z5"} {
		f.seed(t, invoiceSpec{
			source: invoicedomain.SourceOutward,
			supplier: supplier, buyer: buyer,
			number: "INV-DUP", totalValue: 10_000,
		})
	}

	res, err := f.svc.Reconcile(context.Background(), testPeriod)
	require.NoError(t, err)

	dups := ofType(res, reconciledomain.DuplicateInvoice)
	require.Len(t, dups, 1)
	m := dups[0]
	assert.Equal(t, supplier, m.SupplierID)
	assert.Equal(t, "", m.BuyerID)
	assert.Equal(t, "INV-DUP", m.InvoiceNumber)
	assert.Equal(t, "1-2 occurrences", m.ExpectedValue)
	assert.Equal(t, "3", m.ActualValue)
	assert.Equal(t, 0.0, m.AmountDifference)
	assert.Equal(t, reconciledomain.SeverityHigh, m.Severity)
}

func TestReconcileTwoOccurrencesNotDuplicate(t *testing.T) {
	f := newFixture(t)
	for _, buyer := range []string{"29BBBBB0000B1Z5", "33CCCCC0000C1Z5"} {
		f.seed(t, invoiceSpec{
			source: invoicedomain.SourceOutward,
			supplier: "27AAAAA0000A1Z5", buyer: buyer,
			number: "INV-TWICE", totalValue: 10_000,
		})
	}

	res, err := f.svc.Reconcile(context.Background(), testPeriod)
	require.NoError(t, err)
	assert.Empty(t, ofType(res, reconciledomain.DuplicateInvoice))
}

func TestReconcileIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seed(t, invoiceSpec{
		source: invoicedomain.SourceOutward,
		supplier: "27AAAAA0000A1Z5", buyer: "29BBBBB0000B1Z5",
		number: "INV-007", totalValue: 50_000,
	})

	first, err := f.svc.Reconcile(context.Background(), testPeriod)
	require.NoError(t, err)
	second, err := f.svc.Reconcile(context.Background(), testPeriod)
	require.NoError(t, err)

	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, first.Breakdown, second.Breakdown)

	cached, ok := f.svc.CachedResult(testPeriod)
	require.True(t, ok)
	assert.Same(t, second, cached)
}

func TestReconcileBreakdownCountsByType(t *testing.T) {
	f := newFixture(t)
	f.seed(t, invoiceSpec{
		source: invoicedomain.SourceOutward,
		supplier: "27AAAAA0000A1Z5", buyer: "29BBBBB0000B1Z5",
		number: "INV-A", totalValue: 10_000,
	})
	f.seed(t, invoiceSpec{
		source: invoicedomain.SourceInward,
		supplier: "27AAAAA0000A1Z5", buyer: "29BBBBB0000B1Z5",
		number: "INV-B", totalValue: 20_000,
	})

	res, err := f.svc.Reconcile(context.Background(), testPeriod)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Breakdown[reconciledomain.MissingInInward])
	assert.Equal(t, 1, res.Breakdown[reconciledomain.MissingInOutward])
}

func TestReconcileCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Reconcile(ctx, testPeriod)
	require.Error(t, err)

	_, ok := f.svc.CachedResult(testPeriod)
	assert.False(t, ok)
}
