// Package fx retrieves the USD conversion rate applied to snapshot prices.
package fx

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/skinledger"
	"github.com/shopspring/decimal"
)

// DefaultURL serves the latest rates for one USD.
//
//	{
//	  "result": "success",
//	  "base_code": "USD",
//	  "rates": { "USD": 1, "EUR": 0.92, "GBP": 0.79, ... }
//	}
const DefaultURL = "https://open.er-api.com/v6/latest/USD"

// PathFor returns the jsonpath of the currency's rate in a DefaultURL payload.
func PathFor(currency string) string { return "$.rates." + strings.ToUpper(currency) }

// Rate fetches the rate found at path in the JSON payload served at addr.
func Rate(ctx context.Context, client *http.Client, addr, path string) (decimal.Decimal, error) {
	var jobj any
	if err := skinledger.GetJSON(ctx, client, addr, &jobj); err != nil {
		return decimal.Decimal{}, fmt.Errorf("error retrieving conversion rate: %w", err)
	}
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("error parsing conversion rate %q: %w", path, err)
	}
	// keep the first answer if jsonpath returned a list.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	var rate decimal.Decimal
	switch v := jval.(type) {
	case float64:
		rate = decimal.NewFromFloat(v)
	case string:
		rate, err = Parse(v)
		if err != nil {
			return decimal.Decimal{}, err
		}
	default:
		return decimal.Decimal{}, fmt.Errorf("conversion rate %q is not a number: %v", path, jval)
	}
	if !rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("conversion rate %q is not positive: %s", path, rate)
	}
	return rate, nil
}

// Parse reads a rate given by hand, like "0.79" or "0,79".
func Parse(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	rate, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid conversion rate %q: %w", s, err)
	}
	if !rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("conversion rate must be positive, got %s", rate)
	}
	return rate, nil
}
