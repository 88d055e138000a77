package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/etnz/skinledger"
	"github.com/etnz/skinledger/config"
	"github.com/etnz/skinledger/cstrader"
	"github.com/etnz/skinledger/fx"
	"github.com/etnz/skinledger/history"
	"github.com/etnz/skinledger/renderer"
	"github.com/etnz/skinledger/steam"
	"github.com/etnz/skinledger/store"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type updateCmd struct {
	mode     string
	retries  int
	throttle time.Duration
	rate     string
	dryRun   bool
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "refresh the current value of every ledger row" }
func (*updateCmd) Usage() string {
	return `skl update [-mode live|24h|7d] [-retries N] [-throttle D] [-rate R] [-dry-run]

Prices every row of the ledger, writes the new current values, their change
and the expected profit change, saves the workbook (and its mirror) and
records the run in the history.

Modes:
  - live: one Steam market request per distinct item.
  - 24h:  the bulk price index, average of the last 24 hours.
  - 7d:   the bulk price index, average of the last 7 days.

Snapshot prices are in USD and converted with -rate, or the configured
rate, or the rate of the day.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.mode, "mode", string(skinledger.ModeLive), "price source: live, 24h or 7d")
	f.IntVar(&c.retries, "retries", 0, "attempts per item in live mode (0: configured value)")
	f.DurationVar(&c.throttle, "throttle", -1, "minimum delay between market requests (negative: configured value)")
	f.StringVar(&c.rate, "rate", "", "USD conversion rate of snapshot prices")
	f.BoolVar(&c.dryRun, "dry-run", false, "print the report without saving anything")
}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "Error: no arguments expected")
		return subcommands.ExitUsageError
	}
	mode, err := skinledger.ParseMode(c.mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	cfg, log, status := setup()
	if status != subcommands.ExitSuccess {
		return status
	}
	if c.retries > 0 {
		cfg.Steam.Retries = c.retries
	}
	if c.throttle >= 0 {
		cfg.Steam.Throttle = c.throttle
	}
	if c.rate != "" {
		cfg.Snapshot.FxRate = c.rate
	}

	run, err := update(ctx, cfg, mode, c.dryRun, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderRun(run))
	return subcommands.ExitSuccess
}

// update reconciles the ledger in mode and saves it, unless dryRun is set.
// The ledger is left untouched when the price source is inaccessible.
func update(ctx context.Context, cfg *config.Config, mode skinledger.Mode, dryRun bool, log zerolog.Logger) (history.Run, error) {
	w, err := store.Open(cfg.Workbook, cfg.Currency)
	if err != nil {
		return history.Run{}, err
	}
	defer w.Close()
	w.SetLogger(log)

	rows, err := w.Rows()
	if err != nil {
		return history.Run{}, fmt.Errorf("invalid ledger %q: %w", cfg.Workbook, err)
	}

	source, err := newSource(ctx, cfg, mode, log)
	if err != nil {
		return history.Run{}, err
	}
	report, err := skinledger.NewRun(source, log).Reconcile(ctx, rows)
	if err != nil {
		return history.Run{}, err
	}

	if err := w.WriteValuations(rows); err != nil {
		return history.Run{}, fmt.Errorf("could not write valuations: %w", err)
	}
	if err := w.WriteSummary(report.ProfitChange, report.Time); err != nil {
		return history.Run{}, fmt.Errorf("could not write summary: %w", err)
	}
	run := history.FromReport(mode, report)
	if dryRun {
		log.Info().Msg("dry run: nothing saved")
		return run, nil
	}
	if err := w.SaveAs(cfg.Workbook, cfg.Mirror); err != nil {
		return run, err
	}

	db, err := history.Open(cfg.History)
	if err != nil {
		return run, err
	}
	defer db.Close()
	if err := db.Record(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

// newSource returns the price source of mode. Snapshot sources download
// their index first: a failure makes them inaccessible.
func newSource(ctx context.Context, cfg *config.Config, mode skinledger.Mode, log zerolog.Logger) (skinledger.PriceSource, error) {
	if !mode.IsSnapshot() {
		if err := cfg.ValidateSteam(); err != nil {
			return nil, err
		}
		return steam.New(steam.Config{
			URL:      cfg.Steam.URL,
			AppID:    cfg.Steam.AppID,
			Currency: cfg.Steam.Currency,
			Symbol:   cfg.Currency,
			Retries:  cfg.Steam.Retries,
			Throttle: cfg.Steam.Throttle,
		}, log), nil
	}

	field, err := cstrader.FieldFor(mode)
	if err != nil {
		return nil, err
	}
	client := skinledger.NewCachingClient(cstrader.Window, log)
	rate, err := conversionRate(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	index, err := cstrader.Fetch(ctx, client, cfg.Snapshot.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", skinledger.ErrInaccessible, err)
	}
	return cstrader.New(index, field, rate, cfg.Currency, log), nil
}

// conversionRate returns the configured rate, or fetches the rate of the day.
func conversionRate(ctx context.Context, cfg *config.Config, log zerolog.Logger) (decimal.Decimal, error) {
	if cfg.Snapshot.FxRate != "" {
		return fx.Parse(cfg.Snapshot.FxRate)
	}
	if cfg.Snapshot.FxURL == "" {
		return decimal.Decimal{}, errors.New("no conversion rate: set -rate or snapshot.fx_rate")
	}
	path := cfg.Snapshot.FxPath
	if path == "" {
		path = fx.PathFor(cfg.Currency)
	}
	rate, err := fx.Rate(ctx, skinledger.NewCachingClient(24*time.Hour, log), cfg.Snapshot.FxURL, path)
	if err != nil {
		return decimal.Decimal{}, err
	}
	log.Info().Str("rate", rate.String()).Str("currency", cfg.Currency).Msg("conversion rate of the day")
	return rate, nil
}
