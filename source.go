package skinledger

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnavailable reports that a price could not be resolved for one item
	// this run. It never stops a run.
	ErrUnavailable = errors.New("price unavailable")

	// ErrInaccessible reports that the upstream source as a whole cannot be
	// used. A run stops before touching any row.
	ErrInaccessible = errors.New("upstream source inaccessible")
)

// PriceSource quotes the current market value of an item by its lookup key.
//
// A non nil error means the value is unavailable for that key this run.
type PriceSource interface {
	Quote(ctx context.Context, key string) (Money, error)
}

// Checker is implemented by price sources that can tell, before a run,
// whether they can serve any quote at all.
type Checker interface {
	Check(ctx context.Context) error
}

// Mode selects the price source of a run.
type Mode string

const (
	ModeLive Mode = "live" // one market query per item
	Mode24h  Mode = "24h"  // snapshot index, last 24 hours average
	Mode7d   Mode = "7d"   // snapshot index, last 7 days average
)

// ParseMode parses a run mode. The menu letters of the historical tool
// (a, b, c) are accepted too.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "live", "a":
		return ModeLive, nil
	case "24h", "b":
		return Mode24h, nil
	case "7d", "c":
		return Mode7d, nil
	}
	return "", fmt.Errorf("invalid mode %q: want one of live, 24h, 7d", s)
}

func (m Mode) String() string { return string(m) }

// IsSnapshot reports whether the mode uses the snapshot index.
func (m Mode) IsSnapshot() bool { return m == Mode24h || m == Mode7d }
