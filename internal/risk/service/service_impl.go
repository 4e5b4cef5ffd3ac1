package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/taxlens/taxlens/internal/cache"
	"github.com/taxlens/taxlens/internal/config"
	invoicedomain "github.com/taxlens/taxlens/internal/invoice/domain"
	reconciledomain "github.com/taxlens/taxlens/internal/reconcile/domain"
	riskdomain "github.com/taxlens/taxlens/internal/risk/domain"
	taxpayerdomain "github.com/taxlens/taxlens/internal/taxpayer/domain"
	tradedomain "github.com/taxlens/taxlens/internal/trade/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	cycleMembersKey = "cycle-members"
	cycleMembersTTL = 45 * time.Second

	lowFilingRateCutoff  = 50.0
	highMismatchCutoff   = 5
	mismatchRatePctLimit = 30.0
)

type ServiceParam struct {
	fx.In

	Taxpayers taxpayerdomain.Repository
	Invoices  invoicedomain.Repository
	Results   *reconciledomain.ResultCache
	Cycles    tradedomain.Detector
	Scoring   *config.ScoringConfigHolder
	Logger    *zap.Logger
}

type service struct {
	taxpayers taxpayerdomain.Repository
	invoices  invoicedomain.Repository
	results   *reconciledomain.ResultCache
	cycles    tradedomain.Detector
	scoring   *config.ScoringConfigHolder
	log       *zap.Logger

	// Cycle membership is recomputed at most once per TTL; enumerating rings
	// is the expensive part of a full vendor listing.
	membership cache.Cache[string, map[string]bool]
}

func NewService(p ServiceParam) riskdomain.Service {
	return &service{
		taxpayers:  p.Taxpayers,
		invoices:   p.Invoices,
		results:    p.Results,
		cycles:     p.Cycles,
		scoring:    p.Scoring,
		log:        p.Logger,
		membership: cache.NewTTLCache[string, map[string]bool](),
	}
}

func (s *service) ScoreAll(ctx context.Context) ([]riskdomain.VendorRisk, error) {
	taxpayers, err := s.taxpayers.List(ctx)
	if err != nil {
		return nil, err
	}

	members, err := s.cycleMembers(ctx)
	if err != nil {
		return nil, err
	}

	cfg := s.scoring.Get()
	scored := make([]riskdomain.VendorRisk, 0, len(taxpayers))
	for _, t := range taxpayers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := s.score(ctx, t, members[t.TIN], cfg)
		if err != nil {
			return nil, err
		}
		scored = append(scored, *v)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].RiskScore != scored[j].RiskScore {
			return scored[i].RiskScore > scored[j].RiskScore
		}
		return scored[i].TIN < scored[j].TIN
	})
	return scored, nil
}

func (s *service) ScoreOne(ctx context.Context, tin string) (*riskdomain.VendorRisk, error) {
	t, err := s.taxpayers.FindByTIN(ctx, tin)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, riskdomain.ErrVendorNotFound
	}

	members, err := s.cycleMembers(ctx)
	if err != nil {
		return nil, err
	}
	return s.score(ctx, *t, members[tin], s.scoring.Get())
}

// score builds one vendor profile. Each component is normalized to [0, 100]
// before weighting so the composite stays inside the scale whatever the data
// volume is.
func (s *service) score(ctx context.Context, t taxpayerdomain.Taxpayer, inCycle bool, cfg config.ScoringConfig) (*riskdomain.VendorRisk, error) {
	counts, err := s.taxpayers.ReturnCounts(ctx, t.TIN)
	if err != nil {
		return nil, err
	}
	totalInvoices, err := s.invoices.CountForTaxpayer(ctx, t.TIN)
	if err != nil {
		return nil, err
	}
	mismatches, err := s.mismatchCount(ctx, t.TIN)
	if err != nil {
		return nil, err
	}

	// Inward statements are drafted from counterparties' filings, so only the
	// outward and summary returns count toward the vendor's own compliance.
	filed := counts.Outward + counts.Summary
	expected := float64(2 * cfg.ExpectedFilings)
	filingRate := math.Min(100, float64(filed)/expected*100)

	mismatchRate := float64(mismatches) / math.Max(float64(totalInvoices), 1) * 100

	filingComponent := 100 - filingRate
	rateComponent := math.Min(100, mismatchRate)
	circularComponent := 0.0
	if inCycle {
		circularComponent = 100
	}
	volumeComponent := math.Min(100, float64(mismatches)*5)

	score := cfg.WeightFiling*filingComponent +
		cfg.WeightMismatchRate*rateComponent +
		cfg.WeightCircular*circularComponent +
		cfg.WeightVolume*volumeComponent
	score = math.Round(score*10) / 10
	score = math.Max(0, math.Min(100, score))

	var factors []string
	if filingRate < lowFilingRateCutoff {
		factors = append(factors, "Low filing compliance")
	}
	if mismatches > highMismatchCutoff {
		factors = append(factors, "High mismatch frequency")
	}
	if inCycle {
		factors = append(factors, "Involved in circular trading pattern")
	}
	if mismatchRate > mismatchRatePctLimit {
		factors = append(factors, "Mismatch rate exceeds 30%")
	}
	if factors == nil {
		factors = []string{}
	}

	return &riskdomain.VendorRisk{
		TIN:               t.TIN,
		LegalName:         t.LegalName,
		RiskScore:         score,
		RiskLevel:         riskdomain.LevelForScore(score, cfg),
		FilingRate:        math.Round(filingRate*10) / 10,
		MismatchCount:     mismatches,
		TotalInvoices:     totalInvoices,
		CircularTradeFlag: inCycle,
		RiskFactors:       factors,
	}, nil
}

// mismatchCount counts cached missing-counterpart findings that involve the
// TIN. When no reconciliation run has been cached yet it falls back to a
// direct store query so fresh deployments still rank vendors.
func (s *service) mismatchCount(ctx context.Context, tin string) (int64, error) {
	snapshot := s.results.Snapshot()
	if len(snapshot) == 0 {
		return s.invoices.CountUnmatchedOutward(ctx, tin)
	}

	var count int64
	for _, res := range snapshot {
		for _, m := range res.Mismatches {
			if m.Type != reconciledomain.MissingInInward {
				continue
			}
			if m.SupplierID == tin || m.BuyerID == tin {
				count++
			}
		}
	}
	return count, nil
}

func (s *service) cycleMembers(ctx context.Context) (map[string]bool, error) {
	if members, ok := s.membership.Get(cycleMembersKey); ok {
		return members, nil
	}

	cycles, err := s.cycles.FindCircularTrades(ctx)
	if err != nil {
		return nil, err
	}
	members := make(map[string]bool)
	for _, c := range cycles {
		for _, tin := range c.Members {
			members[tin] = true
		}
	}
	s.membership.Set(cycleMembersKey, members, cycleMembersTTL)
	s.log.Debug("cycle membership refreshed", zap.Int("members", len(members)))
	return members, nil
}
