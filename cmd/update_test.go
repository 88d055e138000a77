package cmd

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/etnz/skinledger"
	"github.com/etnz/skinledger/config"
	"github.com/etnz/skinledger/history"
	"github.com/etnz/skinledger/store"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// newLedger writes a ledger of three rows, the first and the last for the
// same item, the last one sold.
func newLedger(t *testing.T, dir string) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows := [][]any{
		{"Date", "Item", "Condition", "Purchase Platform", "Purchase Price", "Current Value", "Change", "Difference", "Sold Price", "Updated"},
		{"01/02/2024", "AK-47 | Redline", "Field-Tested", "Steam", 5, 4, 0, -1, "N/A", "n"},
		{"15/03/2024", "Glove Case", "", "Steam", 2, 4, 0, 2, "N/A", "n"},
		{"20/03/2024", "AK-47 | Redline", "Field-Tested", "Steam", 6, 4, 0, -2, 7, "n"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(dir, "ledger.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Workbook = newLedger(t, dir)
	cfg.Mirror = filepath.Join(dir, "mirror", "ledger.xlsx")
	cfg.History = filepath.Join(dir, ".skl", "history.db")
	cfg.Steam.Throttle = 0
	if err := os.MkdirAll(filepath.Dir(cfg.Mirror), 0755); err != nil {
		t.Fatal(err)
	}
	return cfg
}

// checkCells opens the workbook at path and checks the displayed value of cells.
func checkCells(t *testing.T, path string, want map[string]string) {
	t.Helper()
	w, err := store.Open(path, "GBP")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	for c, v := range want {
		if got, err := w.Value(c); err != nil || got != v {
			t.Errorf("%s: cell %s = %q (%v), want %q", filepath.Base(path), c, got, err, v)
		}
	}
}

func TestUpdate_Live(t *testing.T) {
	cfg := testConfig(t)
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("market_hash_name")
		requests = append(requests, name)
		switch name {
		case "AK-47 | Redline (Field-Tested)":
			w.Write([]byte(`{"success":true,"lowest_price":"£5.00","median_price":"£5.20"}`))
		default:
			w.Write([]byte(`{"success":false}`))
		}
	}))
	defer srv.Close()
	cfg.Steam.URL = srv.URL

	run, err := update(context.Background(), cfg, skinledger.ModeLive, false, zerolog.Nop())
	if err != nil {
		t.Fatalf("update() unexpected error: %v", err)
	}
	if len(requests) != 2 {
		t.Errorf("update() made %d requests %q, want 2", len(requests), requests)
	}
	if run.Rows != 3 || run.Updated != 2 || run.Queries != 2 || len(run.Failures) != 1 || run.Failures[0].Row != 3 {
		t.Errorf("update() = %+v", run)
	}
	if !run.ProfitBefore.Equal(skinledger.M(0.85, "GBP")) || !run.ProfitAfter.Equal(skinledger.M(1.7, "GBP")) || !run.Change.Equal(1) {
		t.Errorf("update() profit %s -> %s (%s)", run.ProfitBefore, run.ProfitAfter, run.Change)
	}

	want := map[string]string{
		"F2": "5", "G2": "0.25", "J2": "y",
		"F3": "4", "G3": "0", "J3": "n",
		"F4": "5", "G4": "0.25", "J4": "y",
		"I4": "7", "M1": "1",
	}
	checkCells(t, cfg.Workbook, want)
	checkCells(t, cfg.Mirror, want)

	db, err := history.Open(cfg.History)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	runs, err := db.Latest(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID || runs[0].Mode != skinledger.ModeLive {
		t.Errorf("history = %+v, want the run %s", runs, run.ID)
	}
}

func TestUpdate_Snapshot(t *testing.T) {
	cfg := testConfig(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"AK-47 | Redline (Field-Tested)": {"steam": {"last_24h": 10, "last_7d": 8}},
			"Glove Case": {"steam": {"last_24h": 0.01, "last_7d": 0.02}}
		}`))
	}))
	defer srv.Close()
	cfg.Snapshot.URL = srv.URL
	cfg.Snapshot.FxRate = "0.5"

	run, err := update(context.Background(), cfg, skinledger.Mode24h, false, zerolog.Nop())
	if err != nil {
		t.Fatalf("update() unexpected error: %v", err)
	}
	if run.Updated != 3 || len(run.Failures) != 0 || run.Mode != skinledger.Mode24h {
		t.Errorf("update() = %+v", run)
	}
	checkCells(t, cfg.Workbook, map[string]string{
		"F2": "5", "J2": "y",
		"F3": "0.03", "J3": "y",
		"F4": "5", "J4": "y",
	})
}

func TestUpdate_Inaccessible(t *testing.T) {
	cfg := testConfig(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	cfg.Snapshot.URL = srv.URL
	cfg.Snapshot.FxRate = "0.5"

	_, err := update(context.Background(), cfg, skinledger.Mode7d, false, zerolog.Nop())
	if !errors.Is(err, skinledger.ErrInaccessible) {
		t.Fatalf("update() error = %v, want ErrInaccessible", err)
	}
	checkCells(t, cfg.Workbook, map[string]string{"F2": "4", "J2": "n", "F4": "4"})
	if _, err := os.Stat(cfg.Mirror); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("mirror saved after a failed run: %v", err)
	}
	if _, err := os.Stat(cfg.History); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("failed run recorded: %v", err)
	}
}

func TestUpdate_Interrupted(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		w.Write([]byte(`{"success":true,"lowest_price":"£9.00"}`))
	}))
	defer srv.Close()
	cfg.Steam.URL = srv.URL

	if _, err := update(ctx, cfg, skinledger.ModeLive, false, zerolog.Nop()); !errors.Is(err, context.Canceled) {
		t.Fatalf("update() error = %v, want context.Canceled", err)
	}
	checkCells(t, cfg.Workbook, map[string]string{"F2": "4", "J2": "n", "F3": "4", "J3": "n"})
	if _, err := os.Stat(cfg.Mirror); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("mirror saved after an interrupted run: %v", err)
	}
	if _, err := os.Stat(cfg.History); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("interrupted run recorded: %v", err)
	}
}

func TestUpdate_LiveCurrencyMismatch(t *testing.T) {
	cfg := testConfig(t)
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"success":true,"lowest_price":"4,22€"}`))
	}))
	defer srv.Close()
	cfg.Steam.URL = srv.URL
	cfg.Currency = "EUR"

	if _, err := update(context.Background(), cfg, skinledger.ModeLive, false, zerolog.Nop()); err == nil {
		t.Fatal("update() expected an error for GBP quotes in a EUR ledger")
	}
	if hits != 0 {
		t.Errorf("market queried %d times", hits)
	}
	checkCells(t, cfg.Workbook, map[string]string{"F2": "4", "J2": "n"})
}

func TestUpdate_DryRun(t *testing.T) {
	cfg := testConfig(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"lowest_price":"£9.00"}`))
	}))
	defer srv.Close()
	cfg.Steam.URL = srv.URL

	run, err := update(context.Background(), cfg, skinledger.ModeLive, true, zerolog.Nop())
	if err != nil {
		t.Fatalf("update() unexpected error: %v", err)
	}
	if run.Updated != 3 {
		t.Errorf("update() updated %d rows, want 3", run.Updated)
	}
	checkCells(t, cfg.Workbook, map[string]string{"F2": "4", "J2": "n"})
	if _, err := os.Stat(cfg.History); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("dry run recorded: %v", err)
	}
}

func TestConversionRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"success","base_code":"USD","rates":{"USD":1,"GBP":0.79}}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Snapshot.FxURL = srv.URL
	rate, err := conversionRate(context.Background(), cfg, zerolog.Nop())
	if err != nil || rate.String() != "0.79" {
		t.Errorf("conversionRate() = %s, %v, want 0.79", rate, err)
	}

	cfg.Snapshot.FxRate = "0,8"
	if rate, err := conversionRate(context.Background(), cfg, zerolog.Nop()); err != nil || rate.String() != "0.8" {
		t.Errorf("conversionRate() = %s, %v, want 0.8", rate, err)
	}

	cfg.Snapshot.FxRate = "-1"
	if _, err := conversionRate(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Error("conversionRate() accepted a negative rate")
	}
}
