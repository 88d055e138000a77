// Package cstrader quotes item prices from the CSGO Trader bulk price index,
// a snapshot of every market item regenerated every 8 hours.
package cstrader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/skinledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultURL is the latest bulk price index.
const DefaultURL = "https://prices.csgotrader.app/latest/prices_v6.json"

// Window is how long a downloaded index is reused.
const Window = 8 * time.Hour

// Floor is the minimum listing price on the market.
var Floor = decimal.RequireFromString("0.03")

// Field paths of the supported aggregates, in each item record.
const (
	Last24h = "$.steam.last_24h"
	Last7d  = "$.steam.last_7d"
)

// FieldFor returns the field path used by a snapshot run mode.
func FieldFor(mode skinledger.Mode) (string, error) {
	switch mode {
	case skinledger.Mode24h:
		return Last24h, nil
	case skinledger.Mode7d:
		return Last7d, nil
	}
	return "", fmt.Errorf("mode %q does not use the snapshot index", mode)
}

// Index is the bulk price table, by item name.
//
//	"<item_name>": {
//	  "steam": {
//	    "last_24h": 0.03,
//	    "last_7d": 0.03,
//	    "last_30d": 0.03,
//	    "last_90d": 0.03
//	  },
//	  "csgotm": "0.006",
//	  "skinport": { "suggested_price": 0.03, "starting_at": 0.02 },
//	  ...
//	}
type Index map[string]any

// Fetch downloads the index. Use skinledger.NewCachingClient(Window, ...) to
// avoid downloading it more than once per regeneration.
func Fetch(ctx context.Context, client *http.Client, addr string) (Index, error) {
	var index Index
	if err := skinledger.GetJSON(ctx, client, addr, &index); err != nil {
		return nil, fmt.Errorf("failed to fetch price index: %w", err)
	}
	return index, nil
}

// Source quotes items from an Index, converted into the ledger currency.
type Source struct {
	index    Index
	field    string
	rate     decimal.Decimal // ledger currency per USD
	currency string
	log      zerolog.Logger
}

// New returns a Source reading field (Last24h or Last7d) in index, and
// multiplying it by rate to get a value in currency.
func New(index Index, field string, rate decimal.Decimal, currency string, log zerolog.Logger) *Source {
	return &Source{
		index:    index,
		field:    field,
		rate:     rate,
		currency: currency,
		log:      log.With().Str("source", "cstrader").Str("field", field).Logger(),
	}
}

// Check reports an empty index: nothing could be quoted from it.
func (s *Source) Check(context.Context) error {
	if len(s.index) == 0 {
		return errors.New("price index is empty")
	}
	return nil
}

// Quote returns the converted price of item key, never below Floor.
func (s *Source) Quote(_ context.Context, key string) (skinledger.Money, error) {
	record, ok := s.index[key]
	if !ok {
		return skinledger.Money{}, fmt.Errorf("%w: %q is not in the price index", skinledger.ErrUnavailable, key)
	}
	jval, err := jsonpath.Get(s.field, record)
	if err != nil {
		return skinledger.Money{}, fmt.Errorf("%w: %q has no %s: %v", skinledger.ErrUnavailable, key, s.field, err)
	}
	// jsonpath is never clear about whether it returns a list of 1 answer or
	// a single answer: keep the first one if any.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	price, err := toDecimal(jval)
	if err != nil {
		return skinledger.Money{}, fmt.Errorf("%w: %q %s: %v", skinledger.ErrUnavailable, key, s.field, err)
	}

	value := price.Mul(s.rate)
	if value.LessThan(Floor) {
		s.log.Debug().Str("key", key).Str("value", value.String()).Msg("below floor")
		value = Floor
	}
	return skinledger.M(value, s.currency), nil
}

// toDecimal reads a price the index gives either as a number or as a string.
func toDecimal(jval any) (decimal.Decimal, error) {
	switch v := jval.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("invalid price string %q", v)
		}
		return d, nil
	case nil:
		return decimal.Decimal{}, errors.New("no price")
	}
	return decimal.Decimal{}, fmt.Errorf("not a price: %v", jval)
}
