// Package normalize turns raw spreadsheet exports into canonical records.
package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/models"
)

// canonicalColumns must all be present after renaming the transaction export.
var canonicalColumns = []string{
	models.ColIndex, models.ColDate, models.ColPrice, models.ColInvestment,
	models.ColOrderCost, models.ColProvider, models.ColName, models.ColISIN,
}

// TransactionSchema describes the transaction export.
type TransactionSchema struct {
	Columns         map[string]string // source header -> canonical column
	KindColumn      string
	ExpectedKind    string
	CommentColumn   string
	RecurringLabel  string
	DividendLabel   string
	IgnoredComments []string
	DateLayout      string
}

// SchemaFromConfig builds the schema from the [normalizer] section.
func SchemaFromConfig(cfg common.NormalizerConfig) TransactionSchema {
	return TransactionSchema{
		Columns:         cfg.Columns,
		KindColumn:      cfg.KindColumn,
		ExpectedKind:    cfg.ExpectedKind,
		CommentColumn:   cfg.CommentColumn,
		RecurringLabel:  cfg.RecurringLabel,
		DividendLabel:   cfg.DividendLabel,
		IgnoredComments: cfg.IgnoredComments,
		DateLayout:      cfg.DateLayout,
	}
}

// DefaultSchema matches the default configuration.
func DefaultSchema() TransactionSchema {
	return SchemaFromConfig(common.NewDefaultConfig().Normalizer)
}

// instrumentColumns renames the master data export.
var instrumentColumns = map[string]string{
	"Replikationsmethode": models.ColReplication,
	"Replicationmethod":   models.ColReplication,
	"Ausschüttung":        models.ColDistribution,
	"Distributing":        models.ColDistribution,
	"TER%":                models.ColTER,
}

// Service normalizes source tables
type Service struct {
	schema TransactionSchema
	logger *common.Logger
}

// NewService creates a new normalizer
func NewService(schema TransactionSchema, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{schema: schema, logger: logger}
}

// Transactions splits the transaction export into recurring buys and
// dividends. Every violated check is fatal and no partial output is
// returned. Investment and OrderCost of buys come back as positive magnitudes.
func (s *Service) Transactions(raw models.RawTable) ([]models.Transaction, []models.Transaction, error) {
	sc := s.schema
	t := raw.Rename(sc.Columns)

	required := append(append([]string(nil), canonicalColumns...), sc.KindColumn, sc.CommentColumn)
	if missing := t.MissingColumns(required...); len(missing) > 0 {
		return nil, nil, models.SchemaError("canonical_columns", "", "columns missing after rename", missing...)
	}
	if len(t.Rows) == 0 {
		return nil, nil, nil
	}

	kinds := distinct(t.Rows, sc.KindColumn)
	if len(kinds) != 1 {
		return nil, nil, models.SchemaError("single_investment_kind", sc.KindColumn,
			fmt.Sprintf("want exactly one investment kind, found %d", len(kinds)), kinds...)
	}
	if kinds[0] != sc.ExpectedKind {
		return nil, nil, models.SchemaError("expected_investment_kind", sc.KindColumn,
			fmt.Sprintf("want %q", sc.ExpectedKind), kinds[0])
	}

	ignored := make(map[string]bool, len(sc.IgnoredComments))
	for _, c := range sc.IgnoredComments {
		ignored[c] = true
	}

	type indexedRow struct {
		n   int
		row models.RawRow
	}
	var kept []indexedRow
	dropped := 0
	for i, row := range t.Rows {
		if row.Empty(models.ColInvestment) || ignored[row.Get(sc.CommentColumn)] {
			dropped++
			continue
		}
		kept = append(kept, indexedRow{n: i + 1, row: row})
	}

	var unexpected []string
	seen := make(map[string]bool)
	for _, r := range kept {
		c := r.row.Get(sc.CommentColumn)
		if c != sc.RecurringLabel && c != sc.DividendLabel && !seen[c] {
			seen[c] = true
			unexpected = append(unexpected, c)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return nil, nil, models.SchemaError("expected_comments", sc.CommentColumn,
			fmt.Sprintf("want one of %q, %q", sc.RecurringLabel, sc.DividendLabel), unexpected...)
	}

	var buys, dividends []models.Transaction
	var positive []string
	for _, r := range kept {
		if r.row.Get(sc.CommentColumn) == sc.DividendLabel {
			tx, err := s.parseRow(r.row, r.n, models.KindDividend, true)
			if err != nil {
				return nil, nil, err
			}
			dividends = append(dividends, tx)
			continue
		}

		if r.row.Empty(models.ColDate) {
			dropped++
			continue
		}
		tx, err := s.parseRow(r.row, r.n, models.KindRecurringBuy, false)
		if err != nil {
			return nil, nil, err
		}
		if tx.Investment > 0 {
			positive = append(positive, fmt.Sprintf("row %d", r.n))
		}
		buys = append(buys, tx)
	}
	if len(positive) > 0 {
		return nil, nil, models.ConsistencyError("non_positive_investment", models.ColInvestment,
			"recurring buys must be recorded as outflows", positive...)
	}

	for i := range buys {
		buys[i].Investment = -buys[i].Investment
		buys[i].OrderCost = -buys[i].OrderCost
	}

	s.logger.Info().
		Int("buys", len(buys)).
		Int("dividends", len(dividends)).
		Int("dropped", dropped).
		Msg("Transactions normalized")

	return buys, dividends, nil
}

// parseRow converts one renamed row. lenient leaves empty date, index, price
// and cost at zero instead of failing.
func (s *Service) parseRow(row models.RawRow, n int, kind models.TransactionKind, lenient bool) (models.Transaction, error) {
	tx := models.Transaction{
		Provider: row.Get(models.ColProvider),
		Name:     row.Get(models.ColName),
		ISIN:     row.Get(models.ColISIN),
		Kind:     kind,
		Row:      n,
	}
	key := fmt.Sprintf("row %d", n)

	if !(lenient && row.Empty(models.ColDate)) {
		d, err := parseDate(s.schema.DateLayout, row.Get(models.ColDate))
		if err != nil {
			return tx, models.SchemaError("parse_date", models.ColDate, err.Error(), key)
		}
		tx.Date = d
	}

	if !(lenient && row.Empty(models.ColIndex)) {
		idx, err := parseIndex(row.Get(models.ColIndex))
		if err != nil {
			return tx, models.SchemaError("parse_index", models.ColIndex, err.Error(), key)
		}
		tx.Index = idx
	}

	var err error
	if tx.Investment, err = common.ParseDecimal(row.Get(models.ColInvestment)); err != nil {
		return tx, models.SchemaError("parse_investment", models.ColInvestment, err.Error(), key)
	}
	if !(lenient && row.Empty(models.ColPrice)) {
		if tx.Price, err = common.ParseDecimal(row.Get(models.ColPrice)); err != nil {
			return tx, models.SchemaError("parse_price", models.ColPrice, err.Error(), key)
		}
	}
	if !row.Empty(models.ColOrderCost) {
		if tx.OrderCost, err = common.ParseDecimal(row.Get(models.ColOrderCost)); err != nil {
			return tx, models.SchemaError("parse_order_cost", models.ColOrderCost, err.Error(), key)
		}
	}
	return tx, nil
}

// Denormalize restores the source sign convention and row order of both
// streams, giving back the filtered export the split started from.
func Denormalize(buys, dividends []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, 0, len(buys)+len(dividends))
	for _, b := range buys {
		b.Investment = -b.Investment
		b.OrderCost = -b.OrderCost
		out = append(out, b)
	}
	out = append(out, dividends...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}

// Instruments normalizes the instrument master export.
func (s *Service) Instruments(raw models.RawTable) ([]models.Instrument, error) {
	t := raw.Rename(instrumentColumns)
	required := []string{
		models.ColType, models.ColName, models.ColISIN, models.ColRegion,
		models.ColReplication, models.ColDistribution, models.ColTER,
	}
	if missing := t.MissingColumns(required...); len(missing) > 0 {
		return nil, models.SchemaError("instrument_columns", "", "columns missing after rename", missing...)
	}

	out := make([]models.Instrument, 0, len(t.Rows))
	for i, row := range t.Rows {
		inst := models.Instrument{
			ISIN:         row.Get(models.ColISIN),
			Name:         row.Get(models.ColName),
			Type:         row.Get(models.ColType),
			Region:       models.CanonicalRegion(row.Get(models.ColRegion)),
			Replication:  models.ParseReplication(row.Get(models.ColReplication)),
			Distribution: models.ParseDistribution(row.Get(models.ColDistribution)),
		}
		if !row.Empty(models.ColTER) {
			ter, err := common.ParseDecimal(strings.TrimSuffix(row.Get(models.ColTER), "%"))
			if err != nil {
				return nil, models.SchemaError("parse_ter", models.ColTER, err.Error(), fmt.Sprintf("row %d", i+1))
			}
			inst.TER = ter
		}
		out = append(out, inst)
	}

	s.logger.Debug().Int("instruments", len(out)).Msg("Instrument master normalized")
	return out, nil
}

// Prices normalizes a price export or the stored price history.
func (s *Service) Prices(raw models.RawTable) ([]models.PriceObservation, error) {
	if missing := raw.MissingColumns(models.ColISIN, models.ColPrice, models.ColCurrency, models.ColDate); len(missing) > 0 {
		return nil, models.SchemaError("price_columns", "", "columns missing", missing...)
	}
	out := make([]models.PriceObservation, 0, len(raw.Rows))
	for i, row := range raw.Rows {
		key := fmt.Sprintf("row %d", i+1)
		p, err := common.ParseDecimal(row.Get(models.ColPrice))
		if err != nil {
			return nil, models.SchemaError("parse_price", models.ColPrice, err.Error(), key)
		}
		d, err := models.ParseFlexibleDate(row.Get(models.ColDate))
		if err != nil {
			return nil, models.SchemaError("parse_date", models.ColDate, err.Error(), key)
		}
		out = append(out, models.PriceObservation{
			ISIN:     row.Get(models.ColISIN),
			Name:     row.Get(models.ColName),
			Price:    p,
			Currency: row.Get(models.ColCurrency),
			Date:     d,
			BatchID:  row.Get("BatchID"),
		})
	}
	return out, nil
}

// RegionMappings reads the hand-maintained ISIN to type/region sheet.
func (s *Service) RegionMappings(raw models.RawTable) ([]models.RegionMapping, error) {
	if missing := raw.MissingColumns(models.ColISIN, models.ColType, models.ColRegion); len(missing) > 0 {
		return nil, models.SchemaError("region_map_columns", "", "columns missing", missing...)
	}
	out := make([]models.RegionMapping, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		out = append(out, models.RegionMapping{
			ISIN:   row.Get(models.ColISIN),
			Name:   row.Get(models.ColName),
			Type:   row.Get(models.ColType),
			Region: row.Get(models.ColRegion),
		})
	}
	return out, nil
}

func distinct(rows []models.RawRow, col string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		if r.Empty(col) {
			continue
		}
		v := r.Get(col)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func parseDate(layout, s string) (models.Date, error) {
	if layout != "" {
		if d, err := models.ParseDate(layout, s); err == nil {
			return d, nil
		}
	}
	return models.ParseFlexibleDate(s)
}

// parseIndex accepts "7" and the "7.0" spreadsheets produce for numeric cells.
func parseIndex(s string) (int, error) {
	if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("index %q is not an integer", s)
	}
	return int(f), nil
}

// CryptoHoldings reads the exchange/symbol/amount sheet of coin holdings.
// Amounts accept a decimal comma.
func (s *Service) CryptoHoldings(raw models.RawTable) ([]models.CryptoHolding, error) {
	if missing := raw.MissingColumns(models.CryptoExchange, models.CryptoSymbol, models.CryptoAmount); len(missing) > 0 {
		return nil, models.SchemaError("crypto_holding_columns", "", "columns missing", missing...)
	}
	out := make([]models.CryptoHolding, 0, len(raw.Rows))
	for i, row := range raw.Rows {
		if row.Empty(models.CryptoSymbol) {
			continue
		}
		amount, err := common.ParseDecimal(row.Get(models.CryptoAmount))
		if err != nil {
			return nil, models.SchemaError("parse_amount", models.CryptoAmount, err.Error(), fmt.Sprintf("row %d", i+1))
		}
		out = append(out, models.CryptoHolding{
			Exchange: row.Get(models.CryptoExchange),
			Symbol:   strings.ToUpper(row.Get(models.CryptoSymbol)),
			Amount:   amount,
		})
	}
	return out, nil
}
