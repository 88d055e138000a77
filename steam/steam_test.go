package steam

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/etnz/skinledger"
	"github.com/rs/zerolog"
)

// market serves the payloads in order, one per request, and records the
// requested item names.
type market struct {
	payloads []string
	status   int
	names    []string
}

func (m *market) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.names = append(m.names, r.URL.Query().Get("market_hash_name"))
	if m.status != 0 {
		w.WriteHeader(m.status)
		return
	}
	i := len(m.names) - 1
	if i >= len(m.payloads) {
		i = len(m.payloads) - 1
	}
	w.Write([]byte(m.payloads[i]))
}

func newSource(t *testing.T, m *market, retries int) *Source {
	t.Helper()
	srv := httptest.NewServer(m)
	t.Cleanup(srv.Close)
	return New(Config{URL: srv.URL, AppID: 730, Currency: 2, Symbol: "GBP", Retries: retries, Client: srv.Client()}, zerolog.Nop())
}

func TestQuote(t *testing.T) {
	testCases := []struct {
		name     string
		payloads []string
		retries  int
		want     string // empty for unavailable
		requests int
	}{
		{
			name:     "lowest price",
			payloads: []string{`{"success":true,"lowest_price":"£4.22","volume":"250","median_price":"£4.37"}`},
			want:     "4.22",
			requests: 1,
		},
		{
			name:     "thousands separator",
			payloads: []string{`{"success":true,"lowest_price":"£1,204.50"}`},
			want:     "1204.5",
			requests: 1,
		},
		{
			name:     "no lowest price falls back to median",
			payloads: []string{`{"success":true,"volume":"3","median_price":"£0.87"}`},
			want:     "0.87",
			requests: 1,
		},
		{
			name:     "malformed success falls back to median",
			payloads: []string{`{"success":"maybe","median_price":"£2.10"}`},
			want:     "2.1",
			requests: 1,
		},
		{
			name:     "unreadable lowest price falls back to median",
			payloads: []string{`{"success":true,"lowest_price":"£--","median_price":"£2.10"}`},
			want:     "2.1",
			requests: 1,
		},
		{
			name:     "no success is unavailable with a single attempt",
			payloads: []string{`{"success":false}`},
			requests: 1,
		},
		{
			name:     "no success is retried",
			payloads: []string{`{"success":false}`, `{"success":true,"lowest_price":"£0.05"}`},
			retries:  3,
			want:     "0.05",
			requests: 2,
		},
		{
			name:     "retry budget exhausted",
			payloads: []string{`{"success":false}`},
			retries:  3,
			requests: 3,
		},
		{
			name:     "no price at all",
			payloads: []string{`{"success":true,"volume":"0"}`},
			retries:  2,
			requests: 2,
		},
		{
			name:     "not json",
			payloads: []string{`<html>busy</html>`},
			requests: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := &market{payloads: tc.payloads}
			s := newSource(t, m, tc.retries)

			got, err := s.Quote(context.Background(), "AK-47 | Redline (Field-Tested)")
			if len(m.names) != tc.requests {
				t.Errorf("got %d requests, want %d", len(m.names), tc.requests)
			}
			if tc.want == "" {
				if !errors.Is(err, skinledger.ErrUnavailable) {
					t.Fatalf("Quote() error = %v, want ErrUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Quote() unexpected error = %v", err)
			}
			if got.Decimal().String() != tc.want {
				t.Errorf("Quote() = %s, want %s", got.Decimal(), tc.want)
			}
			if got.Currency() != "GBP" {
				t.Errorf("Quote() currency = %q, want GBP", got.Currency())
			}
		})
	}
}

func TestQuote_HTTPError(t *testing.T) {
	m := &market{status: http.StatusTooManyRequests}
	s := newSource(t, m, 2)

	_, err := s.Quote(context.Background(), "Glove Case")
	if !errors.Is(err, skinledger.ErrUnavailable) {
		t.Fatalf("Quote() error = %v, want ErrUnavailable", err)
	}
	if len(m.names) != 2 {
		t.Errorf("got %d requests, want 2", len(m.names))
	}
}

func TestQuote_ItemNameEscaping(t *testing.T) {
	m := &market{payloads: []string{`{"success":true,"lowest_price":"£1.00"}`}}
	s := newSource(t, m, 1)

	const name = "StatTrak™ M4A1-S | Hyper Beast (Minimal Wear) & co"
	if _, err := s.Quote(context.Background(), name); err != nil {
		t.Fatalf("Quote() unexpected error = %v", err)
	}
	if m.names[0] != name {
		t.Errorf("server got name %q, want %q", m.names[0], name)
	}
}

func TestQuote_Throttle(t *testing.T) {
	const throttle = 50 * time.Millisecond
	var (
		mu     sync.Mutex
		starts []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		w.Write([]byte(`{"success":true,"lowest_price":"£1.00"}`))
	}))
	defer srv.Close()
	src := New(Config{URL: srv.URL, AppID: 730, Currency: 2, Symbol: "GBP", Throttle: throttle, Client: srv.Client()}, zerolog.Nop())

	begin := time.Now()
	for _, key := range []string{"Glove Case", "Clutch Case", "Prisma Case"} {
		if _, err := src.Quote(context.Background(), key); err != nil {
			t.Fatalf("Quote(%q) unexpected error: %v", key, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(starts) != 3 {
		t.Fatalf("server got %d requests, want 3", len(starts))
	}
	if d := starts[0].Sub(begin); d >= throttle {
		t.Errorf("first request delayed by %v", d)
	}
	// a little slack for the clock granularity of the limiter.
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < throttle-5*time.Millisecond {
			t.Errorf("request %d started %v after the previous one, want at least %v", i+1, gap, throttle)
		}
	}
}
