package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taxlens/taxlens/internal/config"
	invoicedomain "github.com/taxlens/taxlens/internal/invoice/domain"
	"github.com/taxlens/taxlens/internal/metrics"
	reconciledomain "github.com/taxlens/taxlens/internal/reconcile/domain"
	taxpayerdomain "github.com/taxlens/taxlens/internal/taxpayer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Invoices  invoicedomain.Repository
	Taxpayers taxpayerdomain.Repository
	Cache     *reconciledomain.ResultCache
	Scoring   *config.ScoringConfigHolder
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

type service struct {
	invoices  invoicedomain.Repository
	taxpayers taxpayerdomain.Repository
	cache     *reconciledomain.ResultCache
	scoring   *config.ScoringConfigHolder
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewService(p ServiceParam) reconciledomain.Service {
	return &service{
		invoices:  p.Invoices,
		taxpayers: p.Taxpayers,
		cache:     p.Cache,
		scoring:   p.Scoring,
		metrics:   p.Metrics,
		log:       p.Logger,
	}
}

type detectorFn func(ctx context.Context, period string, thresholds reconciledomain.SeverityThresholds) ([]reconciledomain.Mismatch, error)

// Reconcile runs all detectors for a period and replaces the cached result.
// Detectors run concurrently into per-detector buffers merged in fixed order,
// so output is stable within a run. Any store failure aborts the whole run and
// nothing is cached.
func (s *service) Reconcile(ctx context.Context, period string) (*reconciledomain.Result, error) {
	tok, release := s.cache.BeginRun(period)
	defer release()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	thresholds := reconciledomain.ThresholdsFromConfig(s.scoring.Get())
	detectors := []detectorFn{
		s.detectMissing,
		s.detectValueAndRate,
		s.detectExcessCredit,
		s.detectDuplicates,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	buffers := make([][]reconciledomain.Mismatch, len(detectors))
	errs := make([]error, len(detectors))

	var wg sync.WaitGroup
	for i, detect := range detectors {
		wg.Add(1)
		go func(i int, detect detectorFn) {
			defer wg.Done()
			found, err := detect(runCtx, period, thresholds)
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			buffers[i] = found
		}(i, detect)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			s.metrics.ReconcileRuns.WithLabelValues("failed").Inc()
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		s.metrics.ReconcileRuns.WithLabelValues("aborted").Inc()
		return nil, err
	}

	result := &reconciledomain.Result{
		Period:     period,
		Mismatches: []reconciledomain.Mismatch{},
		Breakdown:  make(map[reconciledomain.MismatchType]int),
		ComputedAt: time.Now().UTC(),
	}
	for _, buf := range buffers {
		result.Mismatches = append(result.Mismatches, buf...)
	}
	result.Total = len(result.Mismatches)
	for _, m := range result.Mismatches {
		result.Breakdown[m.Type]++
		s.metrics.MismatchesFound.WithLabelValues(string(m.Type)).Inc()
	}

	if !s.cache.Commit(tok, result) {
		// A newer run for the period started after this one was abandoned.
		s.metrics.ReconcileRuns.WithLabelValues("stale").Inc()
		return result, nil
	}

	s.metrics.ReconcileRuns.WithLabelValues("completed").Inc()
	s.log.Info("reconciliation run complete",
		zap.String("period", period),
		zap.Int("mismatches", result.Total),
	)
	return result, nil
}

func (s *service) CachedResult(period string) (*reconciledomain.Result, bool) {
	return s.cache.Get(period)
}

// detectMissing finds invoices filed on one side with no counterpart sharing
// (supplier, buyer, invoice number) on the other side of the period.
func (s *service) detectMissing(ctx context.Context, period string, thresholds reconciledomain.SeverityThresholds) ([]reconciledomain.Mismatch, error) {
	outward, err := s.invoices.ListByPeriod(ctx, period, invoicedomain.SourceOutward)
	if err != nil {
		return nil, err
	}
	inward, err := s.invoices.ListByPeriod(ctx, period, invoicedomain.SourceInward)
	if err != nil {
		return nil, err
	}

	outwardKeys := make(map[string]bool, len(outward))
	for _, inv := range outward {
		outwardKeys[inv.CounterpartyKey()] = true
	}
	inwardKeys := make(map[string]bool, len(inward))
	for _, inv := range inward {
		inwardKeys[inv.CounterpartyKey()] = true
	}

	var found []reconciledomain.Mismatch
	for _, inv := range outward {
		if inwardKeys[inv.CounterpartyKey()] {
			continue
		}
		found = append(found, reconciledomain.Mismatch{
			ID:               uuid.NewString(),
			Type:             reconciledomain.MissingInInward,
			Severity:         thresholds.ForAmount(inv.TotalValue),
			SupplierID:       inv.SupplierTIN,
			BuyerID:          inv.BuyerTIN,
			InvoiceNumber:    inv.InvoiceNumber,
			Period:           period,
			ExpectedValue:    fmtAmount(inv.TotalValue),
			ActualValue:      "NOT FOUND",
			AmountDifference: inv.TotalValue,
			Description: fmt.Sprintf(
				"Invoice %s filed in the supplier's outward statement but not reflected in the buyer's inward statement. Buyer cannot claim credit of %s.",
				inv.InvoiceNumber, fmtAmount(inv.TotalValue)),
		})
	}
	for _, inv := range inward {
		if outwardKeys[inv.CounterpartyKey()] {
			continue
		}
		found = append(found, reconciledomain.Mismatch{
			ID:               uuid.NewString(),
			Type:             reconciledomain.MissingInOutward,
			Severity:         thresholds.ForAmount(inv.TotalValue),
			SupplierID:       inv.SupplierTIN,
			BuyerID:          inv.BuyerTIN,
			InvoiceNumber:    inv.InvoiceNumber,
			Period:           period,
			ExpectedValue:    fmtAmount(inv.TotalValue),
			ActualValue:      "NOT FOUND",
			AmountDifference: inv.TotalValue,
			Description: fmt.Sprintf(
				"Invoice %s appears in the buyer's inward statement but is missing from the supplier's outward filing.",
				inv.InvoiceNumber),
		})
	}
	return found, nil
}

// detectValueAndRate compares field values on invoice pairs present on both
// sides. One record is emitted per differing field; rate differences carry a
// fixed HIGH severity.
func (s *service) detectValueAndRate(ctx context.Context, period string, thresholds reconciledomain.SeverityThresholds) ([]reconciledomain.Mismatch, error) {
	outward, err := s.invoices.ListByPeriod(ctx, period, invoicedomain.SourceOutward)
	if err != nil {
		return nil, err
	}
	inward, err := s.invoices.ListByPeriod(ctx, period, invoicedomain.SourceInward)
	if err != nil {
		return nil, err
	}

	inwardByKey := make(map[string]invoicedomain.Invoice, len(inward))
	for _, inv := range inward {
		if _, exists := inwardByKey[inv.CounterpartyKey()]; !exists {
			inwardByKey[inv.CounterpartyKey()] = inv
		}
	}

	type taxField struct {
		name string
		get  func(invoicedomain.Invoice) float64
	}
	fields := []taxField{
		{"taxable_value", func(i invoicedomain.Invoice) float64 { return i.TaxableValue }},
		{"central_tax", func(i invoicedomain.Invoice) float64 { return i.CentralTax }},
		{"state_tax", func(i invoicedomain.Invoice) float64 { return i.StateTax }},
		{"integrated_tax", func(i invoicedomain.Invoice) float64 { return i.IntegratedTax }},
	}

	var found []reconciledomain.Mismatch
	for _, out := range outward {
		in, ok := inwardByKey[out.CounterpartyKey()]
		if !ok {
			continue
		}

		for _, f := range fields {
			expected := f.get(out)
			actual := f.get(in)
			// Exact comparison, no tolerance: a small difference can be real
			// fraud, not rounding noise.
			if expected == actual {
				continue
			}
			diff := math.Abs(expected - actual)
			name := f.name
			found = append(found, reconciledomain.Mismatch{
				ID:               uuid.NewString(),
				Type:             reconciledomain.ValueMismatch,
				Severity:         thresholds.ForAmount(diff),
				SupplierID:       out.SupplierTIN,
				BuyerID:          out.BuyerTIN,
				InvoiceNumber:    out.InvoiceNumber,
				Period:           period,
				FieldName:        &name,
				ExpectedValue:    fmtAmount(expected),
				ActualValue:      fmtAmount(actual),
				AmountDifference: diff,
				Description: fmt.Sprintf(
					"Value mismatch in %s: outward filing shows %s but inward statement shows %s for invoice %s.",
					f.name, fmtAmount(expected), fmtAmount(actual), out.InvoiceNumber),
			})
		}

		if out.TaxRate != in.TaxRate {
			name := "tax_rate"
			found = append(found, reconciledomain.Mismatch{
				ID:               uuid.NewString(),
				Type:             reconciledomain.RateMismatch,
				Severity:         reconciledomain.SeverityHigh,
				SupplierID:       out.SupplierTIN,
				BuyerID:          out.BuyerTIN,
				InvoiceNumber:    out.InvoiceNumber,
				Period:           period,
				FieldName:        &name,
				ExpectedValue:    fmtAmount(out.TaxRate),
				ActualValue:      fmtAmount(in.TaxRate),
				AmountDifference: math.Abs(out.TotalValue - in.TotalValue),
				Description: fmt.Sprintf(
					"Tax rate mismatch: outward filing shows %s%% but inward statement shows %s%% for invoice %s.",
					fmtAmount(out.TaxRate), fmtAmount(in.TaxRate), out.InvoiceNumber),
			})
		}
	}
	return found, nil
}

// detectExcessCredit compares each summary return's claimed credit against the
// credit supported by the taxpayer's inward invoices for the period. When no
// inward invoices exist the summary's self-reported available figure is used.
func (s *service) detectExcessCredit(ctx context.Context, period string, thresholds reconciledomain.SeverityThresholds) ([]reconciledomain.Mismatch, error) {
	summaries, err := s.taxpayers.ListSummaries(ctx, period)
	if err != nil {
		return nil, err
	}

	var found []reconciledomain.Mismatch
	for _, summary := range summaries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		inward, err := s.invoices.ListInwardForBuyer(ctx, summary.TIN, period)
		if err != nil {
			return nil, err
		}

		available := summary.AvailableCredit
		if len(inward) > 0 {
			available = 0
			for _, inv := range inward {
				available += inv.TaxTotal()
			}
		}

		if summary.ClaimedCredit <= available {
			continue
		}

		diff := summary.ClaimedCredit - available
		name := "claimed_credit"
		found = append(found, reconciledomain.Mismatch{
			ID:               uuid.NewString(),
			Type:             reconciledomain.ExcessCredit,
			Severity:         thresholds.ForAmount(diff),
			SupplierID:       "",
			BuyerID:          summary.TIN,
			InvoiceNumber:    "AGGREGATE",
			Period:           period,
			FieldName:        &name,
			ExpectedValue:    fmtAmount(available),
			ActualValue:      fmtAmount(summary.ClaimedCredit),
			AmountDifference: diff,
			Description: fmt.Sprintf(
				"Excess credit claimed: summary return claims %s but inward statements only support %s. Excess: %s.",
				fmtAmount(summary.ClaimedCredit), fmtAmount(available), fmtAmount(diff)),
		})
	}
	return found, nil
}

// detectDuplicates flags outward invoice numbers filed more than twice by the
// same supplier within the period.
func (s *service) detectDuplicates(ctx context.Context, period string, _ reconciledomain.SeverityThresholds) ([]reconciledomain.Mismatch, error) {
	outward, err := s.invoices.ListByPeriod(ctx, period, invoicedomain.SourceOutward)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(outward))
	for _, inv := range outward {
		counts[inv.PairKey()]++
	}

	var found []reconciledomain.Mismatch
	reported := make(map[string]bool)
	for _, inv := range outward {
		key := inv.PairKey()
		if counts[key] <= 2 || reported[key] {
			continue
		}
		reported[key] = true
		name := "invoice_number"
		found = append(found, reconciledomain.Mismatch{
			ID:               uuid.NewString(),
			Type:             reconciledomain.DuplicateInvoice,
			Severity:         reconciledomain.SeverityHigh,
			SupplierID:       inv.SupplierTIN,
			BuyerID:          "",
			InvoiceNumber:    inv.InvoiceNumber,
			Period:           period,
			FieldName:        &name,
			ExpectedValue:    "1-2 occurrences",
			ActualValue:      strconv.Itoa(counts[key]),
			AmountDifference: 0,
			Description: fmt.Sprintf(
				"Invoice %s from %s appears %d times in the period's outward filings - possible duplicate filing.",
				inv.InvoiceNumber, inv.SupplierTIN, counts[key]),
		})
	}
	return found, nil
}

func fmtAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
