package skinledger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// State is the progress of a row through a run.
type State int

const (
	NotStarted State = iota
	CacheHit
	Queried
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case CacheHit:
		return "cache hit"
	case Queried:
		return "queried"
	case Success:
		return "success"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome is the final state of one row after a run.
type Outcome struct {
	Index  int
	Key    string
	State  State // Success or Failed
	Cached bool  // resolved from the run cache
	Err    error // why the price was unavailable
}

// Report summarizes a run.
type Report struct {
	Time     time.Time
	Outcomes []Outcome
	Queries  int // calls made to the price source

	ProfitBefore Money // expected profit before any row changed
	ProfitAfter  Money
	ProfitChange Percent
}

// Updated returns the number of rows refreshed.
func (r Report) Updated() (n int) {
	for _, o := range r.Outcomes {
		if o.State == Success {
			n++
		}
	}
	return n
}

// Failed returns the outcomes of the rows that could not be refreshed.
func (r Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.State == Failed {
			failed = append(failed, o)
		}
	}
	return failed
}

// Run is the context of a single reconciliation: the price source selected
// for it, the valuations resolved so far and the clock.
//
// A Run must not be reused: its cache is only valid for the rows it was
// created for.
type Run struct {
	source PriceSource
	cache  *Cache
	log    zerolog.Logger

	// Now returns the time stamped on the ledger. Defaults to time.Now.
	Now func() time.Time

	queries int
}

// NewRun returns a Run querying source.
func NewRun(source PriceSource, log zerolog.Logger) *Run {
	return &Run{
		source: source,
		cache:  NewCache(),
		log:    log,
		Now:    time.Now,
	}
}

// Reconcile refreshes the current value of every row in place.
//
// Rows are processed one at a time. A row whose price is unavailable keeps
// its value and change and is flagged UpdatedNo. An inaccessible source
// returns an error before any row is modified. A cancelled ctx stops the
// run with an error, leaving rows partly modified: they must not be saved.
func (r *Run) Reconcile(ctx context.Context, rows []Row) (Report, error) {
	if c, ok := r.source.(Checker); ok {
		if err := c.Check(ctx); err != nil {
			return Report{}, fmt.Errorf("%w: %w", ErrInaccessible, err)
		}
	}

	report := Report{ProfitBefore: ExpectedProfit(rows)}

	for i := range rows {
		row := &rows[i]
		outcome := r.reconcileRow(ctx, row)
		if err := ctx.Err(); err != nil {
			r.log.Warn().Int("row", row.Index).Msg("reconciliation interrupted")
			return Report{}, fmt.Errorf("run interrupted: %w", err)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	report.Queries = r.queries
	report.ProfitAfter = ExpectedProfit(rows)
	report.ProfitChange = PercentChange(report.ProfitBefore, report.ProfitAfter)
	report.Time = r.Now()
	r.log.Info().
		Int("rows", len(rows)).
		Int("updated", report.Updated()).
		Int("queries", report.Queries).
		Str("expected_profit", report.ProfitAfter.String()).
		Msg("reconciliation done")
	return report, nil
}

// reconcileRow moves a single row to Success or Failed.
func (r *Run) reconcileRow(ctx context.Context, row *Row) Outcome {
	key := row.Key()
	out := Outcome{Index: row.Index, Key: key, State: NotStarted}
	log := r.log.With().Int("row", row.Index).Str("key", key).Logger()

	if v, ok := r.cache.Get(key); ok {
		out.State, out.Cached = CacheHit, true
		apply(row, v)
		out.State = Success
		log.Debug().Msg("resolved from cache")
		return out
	}

	out.State = Queried
	r.queries++
	value, err := r.source.Quote(ctx, key)
	if err != nil {
		row.Updated = UpdatedNo
		out.State, out.Err = Failed, err
		log.Warn().Err(err).Msg("value not updated")
		return out
	}

	// the change is against the value stored before this run.
	change := PercentChange(row.CurrentValue, value)
	r.cache.Put(key, value, change)
	v, _ := r.cache.Get(key)
	apply(row, v)
	out.State = Success
	log.Debug().Str("value", value.String()).Str("change", change.SignedString()).Msg("value updated")
	return out
}

func apply(row *Row, v Valuation) {
	row.CurrentValue = v.Value
	row.Change = v.Change
	row.Updated = UpdatedYes
}
