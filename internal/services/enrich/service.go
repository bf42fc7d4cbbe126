// Package enrich joins normalized transactions with instrument master data.
package enrich

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/models"
)

// UnmatchedPolicy decides what happens to transactions whose ISIN has no
// master record.
type UnmatchedPolicy string

const (
	// PolicyDrop excludes them silently (inner join).
	PolicyDrop UnmatchedPolicy = "drop"
	// PolicyWarn excludes them and logs the ISINs.
	PolicyWarn UnmatchedPolicy = "warn"
	// PolicyFail rejects the whole join.
	PolicyFail UnmatchedPolicy = "fail"
)

// ParsePolicy maps the configuration string, defaulting to PolicyDrop.
func ParsePolicy(s string) (UnmatchedPolicy, error) {
	switch UnmatchedPolicy(s) {
	case "", PolicyDrop:
		return PolicyDrop, nil
	case PolicyWarn, PolicyFail:
		return UnmatchedPolicy(s), nil
	}
	return "", fmt.Errorf("unknown unmatched policy %q", s)
}

// Service joins transactions with master data
type Service struct {
	policy UnmatchedPolicy
	logger *common.Logger
}

// NewService creates a new joiner
func NewService(policy UnmatchedPolicy, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{policy: policy, logger: logger}
}

// DedupInstruments keeps the first record per ISIN. The join below relies on
// it to never fan a transaction out into several holdings.
func DedupInstruments(master []models.Instrument) []models.Instrument {
	seen := make(map[string]bool, len(master))
	out := make([]models.Instrument, 0, len(master))
	for _, m := range master {
		if seen[m.ISIN] {
			continue
		}
		seen[m.ISIN] = true
		out = append(out, m)
	}
	return out
}

// Enrich inner-joins txs with the deduplicated master on ISIN. It returns
// the holdings and the distinct ISINs that found no master record. Every
// holding has a non-empty region.
func (s *Service) Enrich(txs []models.Transaction, master []models.Instrument) ([]models.Holding, []string, error) {
	byISIN := make(map[string]models.Instrument)
	for _, m := range DedupInstruments(master) {
		byISIN[m.ISIN] = m
	}

	var holdings []models.Holding
	var noRegion []string
	unmatched := make(map[string]bool)
	for _, tx := range txs {
		m, ok := byISIN[tx.ISIN]
		if !ok {
			unmatched[tx.ISIN] = true
			continue
		}
		if m.Region == "" {
			noRegion = append(noRegion, tx.ISIN)
			continue
		}
		holdings = append(holdings, models.Holding{
			Transaction:  tx,
			Type:         m.Type,
			Region:       m.Region,
			Replication:  m.Replication,
			Distribution: m.Distribution,
			TER:          m.TER,
			Quantity:     tx.Quantity(),
		})
	}

	if len(noRegion) > 0 {
		return nil, nil, models.ReferentialError("region_resolved", models.ColRegion,
			"master data has no region", uniqueSorted(noRegion)...)
	}

	missing := make([]string, 0, len(unmatched))
	for isin := range unmatched {
		missing = append(missing, isin)
	}
	sort.Strings(missing)

	if len(missing) > 0 {
		switch s.policy {
		case PolicyFail:
			return nil, nil, models.ReferentialError("master_data_coverage", models.ColISIN,
				"transactions without master data", missing...)
		case PolicyWarn:
			s.logger.Warn().Strs("isins", missing).Msg("Transactions without master data excluded")
		default:
			s.logger.Debug().Strs("isins", missing).Msg("Transactions without master data dropped")
		}
	}

	return holdings, missing, nil
}

// CurrentPortfolio returns the holdings of the last executed batch, the ones
// whose Index equals the maximum observed.
func CurrentPortfolio(holdings []models.Holding) []models.Holding {
	if len(holdings) == 0 {
		return nil
	}
	last := holdings[0].Index
	for _, h := range holdings[1:] {
		if h.Index > last {
			last = h.Index
		}
	}
	var out []models.Holding
	for _, h := range holdings {
		if h.Index == last {
			out = append(out, h)
		}
	}
	return out
}

// TotalExecutionCost sums the investment of the given holdings.
func TotalExecutionCost(holdings []models.Holding) float64 {
	var sum float64
	for _, h := range holdings {
		sum += h.Investment
	}
	return sum
}

// SavingsPlanCost prices the yearly fund cost of a monthly savings plan. Each
// position costs 12 × investment × TER%; the average TER is that cost over
// twelve months of plan volume. Positions are grouped per fund and sorted by
// investment, largest first.
func SavingsPlanCost(current []models.Holding) models.SavingsPlan {
	twelve := decimal.NewFromInt(12)
	hundred := decimal.NewFromInt(100)

	byISIN := make(map[string]int)
	var positions []models.PlanPosition
	var invested, orderCost, yearly []decimal.Decimal
	for _, h := range current {
		i, ok := byISIN[h.ISIN]
		if !ok {
			i = len(positions)
			byISIN[h.ISIN] = i
			positions = append(positions, models.PlanPosition{Name: h.Name, ISIN: h.ISIN, TER: h.TER})
			invested = append(invested, decimal.Zero)
			orderCost = append(orderCost, decimal.Zero)
			yearly = append(yearly, decimal.Zero)
		}
		inv := decimal.NewFromFloat(h.Investment)
		invested[i] = invested[i].Add(inv)
		orderCost[i] = orderCost[i].Add(decimal.NewFromFloat(h.OrderCost))
		yearly[i] = yearly[i].Add(twelve.Mul(inv).Mul(decimal.NewFromFloat(h.TER)).Div(hundred))
	}

	total, cost := decimal.Zero, decimal.Zero
	for i := range positions {
		total = total.Add(invested[i])
		cost = cost.Add(yearly[i])
		positions[i].Investment = invested[i].Round(2).InexactFloat64()
		positions[i].OrderCost = orderCost[i].Round(2).InexactFloat64()
		positions[i].YearlyCost = yearly[i].Round(2).InexactFloat64()
	}
	sort.SliceStable(positions, func(i, j int) bool {
		if positions[i].Investment != positions[j].Investment {
			return positions[i].Investment > positions[j].Investment
		}
		return positions[i].ISIN < positions[j].ISIN
	})

	plan := models.SavingsPlan{
		Monthly:    total.Round(2).InexactFloat64(),
		YearlyCost: cost.Round(2).InexactFloat64(),
		Positions:  positions,
	}
	if !total.IsZero() {
		plan.AverageTER = cost.Div(twelve.Mul(total)).Mul(hundred).Round(3).InexactFloat64()
	}
	return plan
}

// JoinRegionMap left-joins the static type/region map onto scraped profiles
// and returns the master records. The scraped name wins over the map's.
func JoinRegionMap(profiles []models.FundProfile, regions []models.RegionMapping) []models.Instrument {
	byISIN := make(map[string]models.RegionMapping, len(regions))
	for _, r := range regions {
		if _, ok := byISIN[r.ISIN]; !ok {
			byISIN[r.ISIN] = r
		}
	}
	out := make([]models.Instrument, 0, len(profiles))
	for _, p := range profiles {
		r := byISIN[p.ISIN]
		name := p.Name
		if name == "" {
			name = r.Name
		}
		out = append(out, models.Instrument{
			ISIN:         p.ISIN,
			Name:         name,
			Type:         r.Type,
			Region:       models.CanonicalRegion(r.Region),
			Replication:  models.ParseReplication(p.Replication),
			Distribution: models.ParseDistribution(p.Distribution),
			TER:          p.TER,
		})
	}
	return out
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
