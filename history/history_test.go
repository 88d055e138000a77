package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/skinledger"
	"github.com/google/go-cmp/cmp"
)

func TestFromReport(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 5, 0, 0, time.UTC)
	report := skinledger.Report{
		Time: at,
		Outcomes: []skinledger.Outcome{
			{Index: 2, Key: "AK-47 | Redline (Field-Tested)", State: skinledger.Success},
			{Index: 3, Key: "Glove Case", State: skinledger.Failed, Err: errors.New("no lowest price")},
			{Index: 4, Key: "AK-47 | Redline (Field-Tested)", State: skinledger.Success, Cached: true},
		},
		Queries:      2,
		ProfitBefore: skinledger.M(1, "GBP"),
		ProfitAfter:  skinledger.M(1.5, "GBP"),
		ProfitChange: 0.5,
	}
	run := FromReport(skinledger.ModeLive, report)
	if run.ID == "" {
		t.Error("FromReport() has no ID")
	}
	if run.Rows != 3 || run.Updated != 2 || run.Queries != 2 || !run.At.Equal(at) {
		t.Errorf("FromReport() = %+v", run)
	}
	want := []Failure{{Row: 3, Key: "Glove Case", Reason: "no lowest price"}}
	if diff := cmp.Diff(want, run.Failures); diff != "" {
		t.Errorf("FromReport() failures mismatch (-want +got):\n%s", diff)
	}
	if other := FromReport(skinledger.ModeLive, report); other.ID == run.ID {
		t.Errorf("FromReport() reused ID %s", run.ID)
	}
}

func TestRecordLatest(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	defer db.Close()

	first := Run{
		ID:           "first",
		At:           time.Date(2025, 3, 1, 9, 5, 0, 0, time.UTC),
		Mode:         skinledger.Mode24h,
		Rows:         10,
		Updated:      10,
		Queries:      7,
		ProfitBefore: skinledger.M(6.0435, "GBP"),
		ProfitAfter:  skinledger.M(7.7435, "GBP"),
		Change:       0.2813,
	}
	second := Run{
		ID:           "second",
		At:           first.At.Add(24 * time.Hour),
		Mode:         skinledger.ModeLive,
		Rows:         10,
		Updated:      9,
		Queries:      9,
		ProfitBefore: skinledger.M(7.7435, "GBP"),
		ProfitAfter:  skinledger.M(7.5, "GBP"),
		Change:       -0.0314,
		Failures:     []Failure{{Row: 5, Key: "Glove Case", Reason: "price unavailable"}},
	}
	for _, r := range []Run{first, second} {
		if err := db.Record(ctx, r); err != nil {
			t.Fatalf("Record(%s) unexpected error: %v", r.ID, err)
		}
	}
	if err := db.Record(ctx, first); err == nil {
		t.Error("Record() accepted a duplicate run")
	}

	runs, err := db.Latest(ctx, 5)
	if err != nil {
		t.Fatalf("Latest() unexpected error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Latest() got %d runs, want 2", len(runs))
	}
	for i, want := range []Run{second, first} {
		got := runs[i]
		if got.ID != want.ID || !got.At.Equal(want.At) || got.Mode != want.Mode ||
			got.Rows != want.Rows || got.Updated != want.Updated || got.Queries != want.Queries ||
			!got.ProfitBefore.Equal(want.ProfitBefore) || !got.ProfitAfter.Equal(want.ProfitAfter) ||
			got.ProfitAfter.Currency() != "GBP" || !got.Change.Equal(want.Change) {
			t.Errorf("Latest()[%d] = %+v, want %+v", i, got, want)
		}
		if diff := cmp.Diff(want.Failures, got.Failures); diff != "" {
			t.Errorf("Latest()[%d] failures mismatch (-want +got):\n%s", i, diff)
		}
	}

	runs, err = db.Latest(ctx, 1)
	if err != nil || len(runs) != 1 || runs[0].ID != "second" {
		t.Errorf("Latest(1) = %v, %v", runs, err)
	}
}
