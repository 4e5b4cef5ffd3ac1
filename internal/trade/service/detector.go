package service

import (
	"context"
	"sort"
	"strings"

	"github.com/taxlens/taxlens/internal/config"
	tradedomain "github.com/taxlens/taxlens/internal/trade/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type DetectorParam struct {
	fx.In

	Repository tradedomain.Repository
	Scoring    *config.ScoringConfigHolder
	Logger     *zap.Logger
}

type detector struct {
	repo    tradedomain.Repository
	scoring *config.ScoringConfigHolder
	log     *zap.Logger
}

func NewDetector(p DetectorParam) tradedomain.Detector {
	return &detector{repo: p.Repository, scoring: p.Scoring, log: p.Logger}
}

// FindCircularTrades enumerates simple directed cycles of bounded length in the
// trade graph. Every cycle is reported exactly once: the search from a start
// node only walks nodes lexicographically greater than the start, so each cycle
// surfaces in the single rotation anchored at its smallest TIN.
func (d *detector) FindCircularTrades(ctx context.Context) ([]tradedomain.Cycle, error) {
	edges, err := d.repo.ListEdges(ctx)
	if err != nil {
		return nil, err
	}

	cfg := d.scoring.Get()

	adjacency := make(map[string][]string)
	for _, e := range edges {
		if e.SupplierTIN == e.BuyerTIN {
			continue
		}
		adjacency[e.SupplierTIN] = append(adjacency[e.SupplierTIN], e.BuyerTIN)
	}
	starts := make([]string, 0, len(adjacency))
	for tin := range adjacency {
		starts = append(starts, tin)
		sort.Strings(adjacency[tin])
	}
	sort.Strings(starts)

	search := cycleSearch{
		adjacency: adjacency,
		minLen:    cfg.CycleMinLength,
		maxLen:    cfg.CycleMaxLength,
		onPath:    make(map[string]bool),
	}

	var cycles []tradedomain.Cycle
	for _, start := range starts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		search.start = start
		search.path = search.path[:0]
		cycles = search.walk(start, cycles)
	}

	sort.Slice(cycles, func(i, j int) bool {
		if cycles[i].Length != cycles[j].Length {
			return cycles[i].Length < cycles[j].Length
		}
		return strings.Join(cycles[i].Members, "|") < strings.Join(cycles[j].Members, "|")
	})

	d.log.Debug("circular trade scan complete",
		zap.Int("edges", len(edges)),
		zap.Int("cycles", len(cycles)),
	)
	return cycles, nil
}

type cycleSearch struct {
	adjacency map[string][]string
	start     string
	minLen    int
	maxLen    int
	path      []string
	onPath    map[string]bool
}

func (s *cycleSearch) walk(node string, cycles []tradedomain.Cycle) []tradedomain.Cycle {
	s.path = append(s.path, node)
	s.onPath[node] = true

	for _, next := range s.adjacency[node] {
		if next == s.start {
			if len(s.path) >= s.minLen {
				members := make([]string, len(s.path))
				copy(members, s.path)
				cycles = append(cycles, tradedomain.Cycle{Members: members, Length: len(members)})
			}
			continue
		}
		// Restricting the walk to TINs above the start keeps the start the
		// smallest member of every reported cycle.
		if next < s.start || s.onPath[next] {
			continue
		}
		if len(s.path) >= s.maxLen {
			continue
		}
		cycles = s.walk(next, cycles)
	}

	s.onPath[node] = false
	s.path = s.path[:len(s.path)-1]
	return cycles
}
