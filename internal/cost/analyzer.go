// Package cost aggregates per-prediction cost records from score results:
// headline totals, grouped five-number summaries, and per-item averages.
// Monetary arithmetic is fixed decimal throughout; outputs serialize money
// as decimal strings.
package cost

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/AnthusAI/plexus-feedback/pkg/dashboard"
)

// GroupBy selects the grouping dimension for the breakdown.
type GroupBy string

const (
	GroupNone           GroupBy = ""
	GroupScorecard      GroupBy = "scorecard"
	GroupScore          GroupBy = "score"
	GroupScorecardScore GroupBy = "scorecard_score"
)

// ParseGroupBy validates a user-supplied grouping dimension.
func ParseGroupBy(s string) (GroupBy, error) {
	switch GroupBy(strings.ToLower(strings.TrimSpace(s))) {
	case GroupNone:
		return GroupNone, nil
	case GroupScorecard:
		return GroupScorecard, nil
	case GroupScore:
		return GroupScore, nil
	case GroupScorecardScore:
		return GroupScorecardScore, nil
	default:
		return GroupNone, eris.New("cost: group_by must be scorecard, score, or scorecard_score")
	}
}

// Mode selects how much of the aggregation is reported.
type Mode string

const (
	ModeSummary Mode = "summary"
	ModeDetail  Mode = "detail"
)

// ParseMode validates a user-supplied analysis mode. Empty means summary.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSummary:
		return ModeSummary, nil
	case ModeDetail:
		return ModeDetail, nil
	default:
		return ModeSummary, eris.New("cost: mode must be summary or detail")
	}
}

// Record is one cost-bearing score result.
type Record struct {
	ItemID      string `json:"item_id,omitempty" yaml:"item_id,omitempty"`
	ScorecardID string `json:"scorecard_id,omitempty" yaml:"scorecard_id,omitempty"`
	ScoreID     string `json:"score_id,omitempty" yaml:"score_id,omitempty"`

	TotalCost  decimal.Decimal `json:"-" yaml:"-"`
	InputCost  decimal.Decimal `json:"-" yaml:"-"`
	OutputCost decimal.Decimal `json:"-" yaml:"-"`

	PromptTokens     int64 `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens" yaml:"completion_tokens"`
	CachedTokens     int64 `json:"cached_tokens" yaml:"cached_tokens"`
	LLMCalls         int64 `json:"llm_calls" yaml:"llm_calls"`
}

// Query selects score results for aggregation.
type Query struct {
	AccountID   string
	ScorecardID string
	ScoreID     string

	// Hours overrides Days when positive. With both zero the window is the
	// last 24 hours. Explicit Start/End override both and bypass the cache.
	Days  int
	Hours int
	Start time.Time
	End   time.Time

	GroupBy GroupBy

	// Mode selects summary (aggregates only) or detail (aggregates plus the
	// individual cost records). Breakdown forces per-group rows in summary
	// mode even without an explicit GroupBy. Both are presentation options
	// and do not participate in the parameter cache key.
	Mode      Mode
	Breakdown bool
}

// Totals is the headline aggregate over all cost records.
type Totals struct {
	Count            int    `json:"count" yaml:"count"`
	TotalCost        string `json:"total_cost" yaml:"total_cost"`
	InputCost        string `json:"input_cost" yaml:"input_cost"`
	OutputCost       string `json:"output_cost" yaml:"output_cost"`
	PromptTokens     int64  `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens" yaml:"completion_tokens"`
	CachedTokens     int64  `json:"cached_tokens" yaml:"cached_tokens"`
	LLMCalls         int64  `json:"llm_calls" yaml:"llm_calls"`
	AverageCost      string `json:"average_cost" yaml:"average_cost"`
}

// Group is one breakdown row.
type Group struct {
	Key         string       `json:"group" yaml:"group"`
	ScorecardID string       `json:"scorecard_id,omitempty" yaml:"scorecard_id,omitempty"`
	ScoreID     string       `json:"score_id,omitempty" yaml:"score_id,omitempty"`
	Count       int          `json:"count" yaml:"count"`
	TotalCost   string       `json:"total_cost" yaml:"total_cost"`
	Cost        DecimalStats `json:"cost" yaml:"cost"`
	Calls       FloatStats   `json:"calls" yaml:"calls"`
}

// ItemStats reports item-level aggregation over records carrying an item id.
type ItemStats struct {
	DistinctItems      int    `json:"distinct_items" yaml:"distinct_items"`
	AverageCostPerItem string `json:"average_cost_per_item" yaml:"average_cost_per_item"`
}

// DetailRecord is one cost record as reported in detail mode.
type DetailRecord struct {
	ItemID      string `json:"item_id,omitempty" yaml:"item_id,omitempty"`
	ScorecardID string `json:"scorecard_id,omitempty" yaml:"scorecard_id,omitempty"`
	ScoreID     string `json:"score_id,omitempty" yaml:"score_id,omitempty"`
	TotalCost   string `json:"total_cost" yaml:"total_cost"`
	InputCost   string `json:"input_cost" yaml:"input_cost"`
	OutputCost  string `json:"output_cost" yaml:"output_cost"`
	LLMCalls    int64  `json:"llm_calls" yaml:"llm_calls"`
}

// Analysis is the structured result of one cost aggregation.
type Analysis struct {
	AccountID   string         `json:"account_id" yaml:"account_id"`
	ScorecardID string         `json:"scorecard_id,omitempty" yaml:"scorecard_id,omitempty"`
	ScoreID     string         `json:"score_id,omitempty" yaml:"score_id,omitempty"`
	StartDate   string         `json:"start_date" yaml:"start_date"`
	EndDate     string         `json:"end_date" yaml:"end_date"`
	GroupBy     GroupBy        `json:"group_by,omitempty" yaml:"group_by,omitempty"`
	Totals      Totals         `json:"totals" yaml:"totals"`
	Groups      []Group        `json:"groups,omitempty" yaml:"groups,omitempty"`
	Items       *ItemStats     `json:"items,omitempty" yaml:"items,omitempty"`
	Records     []DetailRecord `json:"records,omitempty" yaml:"records,omitempty"`
	Message     string         `json:"message,omitempty" yaml:"message,omitempty"`
}

// cacheKey is the single-entry parameter cache key. A window given as
// days/hours is cacheable; explicit date bounds are not.
type cacheKey struct {
	accountID   string
	days        int
	hours       int
	scorecardID string
	scoreID     string
}

// Analyzer aggregates cost records with a single-entry parameter cache. The
// cache is owned by the value; concurrent analyzers each carry their own.
type Analyzer struct {
	client dashboard.Client

	mu      sync.Mutex
	key     cacheKey
	cached  []Record
	hasData bool
}

// NewAnalyzer creates a cost analyzer over the given client.
func NewAnalyzer(client dashboard.Client) *Analyzer {
	return &Analyzer{client: client}
}

// Analyze loads cost-bearing score results for the query window through the
// narrowest index and aggregates them. Two calls with identical parameters
// reuse the loaded records; any parameter change invalidates the cache.
func (a *Analyzer) Analyze(ctx context.Context, q Query) (*Analysis, error) {
	start, end := q.window(time.Now())

	records, err := a.load(ctx, q, start, end)
	if err != nil {
		return nil, err
	}

	groupBy := q.GroupBy
	if q.Breakdown && groupBy == GroupNone {
		groupBy = GroupScorecardScore
	}

	result := &Analysis{
		AccountID:   q.AccountID,
		ScorecardID: q.ScorecardID,
		ScoreID:     q.ScoreID,
		StartDate:   start.Format(time.RFC3339),
		EndDate:     end.Format(time.RFC3339),
		GroupBy:     groupBy,
		Totals:      totals(records),
	}

	if groupBy != GroupNone {
		result.Groups = groupRecords(records, groupBy)
	}
	result.Items = itemStats(records)
	if q.Mode == ModeDetail {
		result.Records = detailRecords(records)
	}

	if len(records) == 0 {
		result.Message = "No cost records matched the requested window"
	}
	return result, nil
}

func (q Query) window(now time.Time) (time.Time, time.Time) {
	if !q.Start.IsZero() || !q.End.IsZero() {
		start, end := q.Start, q.End
		if end.IsZero() {
			end = now.UTC()
		}
		return start.UTC(), end.UTC()
	}
	end := now.UTC()
	switch {
	case q.Hours > 0:
		return end.Add(-time.Duration(q.Hours) * time.Hour), end
	case q.Days > 0:
		return end.AddDate(0, 0, -q.Days), end
	default:
		return end.Add(-24 * time.Hour), end
	}
}

func (q Query) cacheable() bool {
	return q.Start.IsZero() && q.End.IsZero()
}

func (a *Analyzer) load(ctx context.Context, q Query, start, end time.Time) ([]Record, error) {
	key := cacheKey{
		accountID:   q.AccountID,
		days:        q.Days,
		hours:       q.Hours,
		scorecardID: q.ScorecardID,
		scoreID:     q.ScoreID,
	}

	if q.cacheable() {
		a.mu.Lock()
		if a.hasData && a.key == key {
			records := a.cached
			a.mu.Unlock()
			zap.L().Debug("cost cache hit", zap.Int("records", len(records)))
			return records, nil
		}
		a.mu.Unlock()
	}

	records, err := a.fetch(ctx, q, start, end)
	if err != nil {
		return nil, err
	}

	if q.cacheable() {
		a.mu.Lock()
		a.key = key
		a.cached = records
		a.hasData = true
		a.mu.Unlock()
	}
	return records, nil
}

func (a *Analyzer) fetch(ctx context.Context, q Query, start, end time.Time) ([]Record, error) {
	var records []Record
	nextToken := ""
	for {
		page, err := a.client.ListScoreResults(ctx, dashboard.ScoreResultQuery{
			AccountID:   q.AccountID,
			ScorecardID: q.ScorecardID,
			ScoreID:     q.ScoreID,
			Start:       start,
			End:         end,
			NextToken:   nextToken,
		})
		if err != nil {
			return nil, eris.Wrap(err, "cost: list score results")
		}
		for _, sr := range page.Items {
			if rec, ok := parseRecord(sr); ok {
				records = append(records, rec)
			}
		}
		if page.NextToken == "" {
			return records, nil
		}
		nextToken = page.NextToken
	}
}

// parseRecord extracts the cost substructure, accepting both the top-level
// cost field and metadata.cost. Records without either are discarded.
func parseRecord(sr dashboard.ScoreResult) (Record, bool) {
	m := sr.CostMap()
	if m == nil {
		return Record{}, false
	}
	return Record{
		ItemID:           sr.ItemID,
		ScorecardID:      sr.ScorecardID,
		ScoreID:          sr.ScoreID,
		TotalCost:        decFrom(m["total_cost"]),
		InputCost:        decFrom(m["input_cost"]),
		OutputCost:       decFrom(m["output_cost"]),
		PromptTokens:     intFrom(m["prompt_tokens"]),
		CompletionTokens: intFrom(m["completion_tokens"]),
		CachedTokens:     intFrom(m["cached_tokens"]),
		LLMCalls:         intFrom(m["llm_calls"]),
	}, true
}

// decFrom converts a loosely typed JSON value into fixed decimal. Strings
// parse exactly; floats go through the decimal constructor.
func decFrom(v any) decimal.Decimal {
	switch x := v.(type) {
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		return decimal.NewFromFloat(x)
	case int64:
		return decimal.NewFromInt(x)
	case int:
		return decimal.NewFromInt(int64(x))
	default:
		return decimal.Zero
	}
}

func intFrom(v any) int64 {
	switch x := v.(type) {
	case float64:
		return int64(x)
	case int64:
		return x
	case int:
		return int64(x)
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return 0
		}
		return d.IntPart()
	default:
		return 0
	}
}

func totals(records []Record) Totals {
	t := Totals{Count: len(records)}
	total, input, output := decimal.Zero, decimal.Zero, decimal.Zero
	for _, r := range records {
		total = total.Add(r.TotalCost)
		input = input.Add(r.InputCost)
		output = output.Add(r.OutputCost)
		t.PromptTokens += r.PromptTokens
		t.CompletionTokens += r.CompletionTokens
		t.CachedTokens += r.CachedTokens
		t.LLMCalls += r.LLMCalls
	}
	t.TotalCost = total.String()
	t.InputCost = input.String()
	t.OutputCost = output.String()
	if len(records) > 0 {
		t.AverageCost = total.Div(decimal.NewFromInt(int64(len(records)))).Round(10).String()
	} else {
		t.AverageCost = decimal.Zero.String()
	}
	return t
}

func groupRecords(records []Record, by GroupBy) []Group {
	keyFor := func(r Record) (key, scorecardID, scoreID string) {
		switch by {
		case GroupScorecard:
			return r.ScorecardID, r.ScorecardID, ""
		case GroupScore:
			return r.ScoreID, "", r.ScoreID
		default:
			return r.ScorecardID + "/" + r.ScoreID, r.ScorecardID, r.ScoreID
		}
	}

	buckets := map[string][]Record{}
	meta := map[string][2]string{}
	for _, r := range records {
		key, scID, sID := keyFor(r)
		buckets[key] = append(buckets[key], r)
		meta[key] = [2]string{scID, sID}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make([]Group, 0, len(keys))
	for _, k := range keys {
		bucket := buckets[k]
		costs := make([]decimal.Decimal, len(bucket))
		calls := make([]float64, len(bucket))
		total := decimal.Zero
		for i, r := range bucket {
			costs[i] = r.TotalCost
			calls[i] = float64(r.LLMCalls)
			total = total.Add(r.TotalCost)
		}
		groups = append(groups, Group{
			Key:         k,
			ScorecardID: meta[k][0],
			ScoreID:     meta[k][1],
			Count:       len(bucket),
			TotalCost:   total.String(),
			Cost:        decimalStats(costs),
			Calls:       floatStats(calls),
		})
	}
	return groups
}

func detailRecords(records []Record) []DetailRecord {
	out := make([]DetailRecord, len(records))
	for i, r := range records {
		out[i] = DetailRecord{
			ItemID:      r.ItemID,
			ScorecardID: r.ScorecardID,
			ScoreID:     r.ScoreID,
			TotalCost:   r.TotalCost.String(),
			InputCost:   r.InputCost.String(),
			OutputCost:  r.OutputCost.String(),
			LLMCalls:    r.LLMCalls,
		}
	}
	return out
}

// itemStats counts distinct item ids among cost-bearing records. Records
// without an item id do not contribute to the distinct count.
func itemStats(records []Record) *ItemStats {
	if len(records) == 0 {
		return nil
	}
	items := map[string]struct{}{}
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.TotalCost)
		if r.ItemID != "" {
			items[r.ItemID] = struct{}{}
		}
	}
	if len(items) == 0 {
		return &ItemStats{DistinctItems: 0, AverageCostPerItem: decimal.Zero.String()}
	}
	avg := total.Div(decimal.NewFromInt(int64(len(items)))).Round(10)
	return &ItemStats{
		DistinctItems:      len(items),
		AverageCostPerItem: avg.String(),
	}
}

// FanOut runs the analyzer per scorecard and ranks by total cost descending.
type FanOutEntry struct {
	ScorecardID   string    `json:"scorecard_id" yaml:"scorecard_id"`
	ScorecardName string    `json:"scorecard_name" yaml:"scorecard_name"`
	Analysis      *Analysis `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Error         string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// SortEntries orders fan-out entries by total cost descending; failures last.
func SortEntries(entries []FanOutEntry) {
	value := func(e FanOutEntry) (decimal.Decimal, bool) {
		if e.Error != "" || e.Analysis == nil {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(e.Analysis.Totals.TotalCost)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	sort.SliceStable(entries, func(i, j int) bool {
		vi, oki := value(entries[i])
		vj, okj := value(entries[j])
		if oki != okj {
			return oki
		}
		return vi.GreaterThan(vj)
	})
}

// AnalyzeAll fans the analyzer out across every scorecard in the account.
// Each scorecard gets its own Analyzer so the single-entry caches do not
// thrash; a failure records a placeholder entry and the batch continues.
func AnalyzeAll(ctx context.Context, client dashboard.Client, q Query, concurrency int, run func(ctx context.Context, scorecardID string) (*Analysis, error)) ([]FanOutEntry, error) {
	scorecards, err := client.ListScorecards(ctx, q.AccountID)
	if err != nil {
		return nil, eris.Wrap(err, "cost: list scorecards")
	}

	if concurrency <= 0 {
		concurrency = 4
	}
	sem := make(chan struct{}, concurrency)
	entries := make([]FanOutEntry, len(scorecards))

	var wg sync.WaitGroup
	for i := range scorecards {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			sc := scorecards[i]
			entry := FanOutEntry{ScorecardID: sc.ID, ScorecardName: sc.Name}
			analysis, err := run(ctx, sc.ID)
			if err != nil {
				zap.L().Warn("scorecard cost analysis failed",
					zap.String("scorecard", sc.Name),
					zap.Error(err),
				)
				entry.Error = err.Error()
			} else {
				entry.Analysis = analysis
			}
			entries[i] = entry
		}()
	}
	wg.Wait()

	SortEntries(entries)
	return entries, nil
}
