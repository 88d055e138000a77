// Package steam quotes item prices live from the Steam Community Market.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/etnz/skinledger"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultURL is the market price overview endpoint.
const DefaultURL = "https://steamcommunity.com/market/priceoverview/"

// Config configures a Source.
type Config struct {
	URL      string // defaults to DefaultURL
	AppID    int    // game of the items, 730 for CS2
	Currency int    // market currency code, 2 for GBP
	Symbol   string // ISO code of Currency, e.g. "GBP"

	// Retries is the number of attempts per item. Values below 1 mean 1.
	Retries int
	// Throttle is the minimum delay between the starts of two requests,
	// retries included. The first request is not delayed, and the delay
	// runs from the previous start, not from its response. The market
	// answers 429 when queried more than about 20 times a minute.
	Throttle time.Duration

	Client *http.Client // defaults to http.DefaultClient
}

// Source quotes one item per request.
type Source struct {
	cfg     Config
	limiter *rate.Limiter
	log     zerolog.Logger
}

// New returns a Source for cfg.
func New(cfg Config, log zerolog.Logger) *Source {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Retries < 1 {
		cfg.Retries = 1
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	limit := rate.Inf
	if cfg.Throttle > 0 {
		limit = rate.Every(cfg.Throttle)
	}
	return &Source{
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		log:     log.With().Str("source", "steam").Logger(),
	}
}

// overview is the payload of the price overview endpoint.
//
//	{
//	   "success": true,
//	   "lowest_price": "£4.22",
//	   "volume": "250",
//	   "median_price": "£4.37"
//	}
//
// On failure it is just {"success": false}. Fields are read one by one so
// that a malformed one does not hide the others.
type overview map[string]any

// success returns the success indicator, ok is false when it is absent or
// not a boolean.
func (o overview) success() (success, ok bool) {
	success, ok = o["success"].(bool)
	return
}

// price returns the named price field, ok is false when it is absent or not
// a string.
func (o overview) price(field string) (string, bool) {
	s, ok := o[field].(string)
	return s, ok
}

// Quote returns the lowest listing price of the item named key.
//
// An attempt whose payload reports success=false is retried. A payload that
// cannot be read falls back to the median price when there is one. When no
// attempt gives a price, the error wraps skinledger.ErrUnavailable.
func (s *Source) Quote(ctx context.Context, key string) (skinledger.Money, error) {
	log := s.log.With().Str("key", key).Logger()
	var last error
	for attempt := 1; attempt <= s.cfg.Retries; attempt++ {
		value, err := s.attempt(ctx, key)
		if err == nil {
			return value, nil
		}
		last = err
		log.Debug().Err(err).Int("attempt", attempt).Msg("attempt failed")
		if ctx.Err() != nil {
			break
		}
	}
	return skinledger.Money{}, fmt.Errorf("%w: %q after %d attempt(s): %w", skinledger.ErrUnavailable, key, s.cfg.Retries, last)
}

// attempt issues a single throttled request.
func (s *Source) attempt(ctx context.Context, key string) (skinledger.Money, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return skinledger.Money{}, err
	}

	body, err := s.get(ctx, key)
	if err != nil {
		return skinledger.Money{}, err
	}

	var payload overview
	if err := json.Unmarshal(body, &payload); err != nil {
		return skinledger.Money{}, fmt.Errorf("malformed payload: %w", err)
	}

	success, ok := payload.success()
	if !ok {
		return s.fallback(payload, fmt.Errorf("no success indicator in payload"))
	}
	if !success {
		return skinledger.Money{}, fmt.Errorf("market reported no success")
	}
	lowest, ok := payload.price("lowest_price")
	if !ok {
		return s.fallback(payload, fmt.Errorf("no lowest_price in payload"))
	}
	value, err := skinledger.ParseMoney(lowest, s.cfg.Symbol)
	if err != nil {
		return s.fallback(payload, err)
	}
	return value, nil
}

// fallback reads the median price of a payload whose lowest price could not
// be read.
func (s *Source) fallback(payload overview, cause error) (skinledger.Money, error) {
	median, ok := payload.price("median_price")
	if !ok {
		return skinledger.Money{}, cause
	}
	value, err := skinledger.ParseMoney(median, s.cfg.Symbol)
	if err != nil {
		return skinledger.Money{}, fmt.Errorf("%w, and median_price: %w", cause, err)
	}
	s.log.Debug().Err(cause).Msg("using median_price")
	return value, nil
}

func (s *Source) get(ctx context.Context, key string) ([]byte, error) {
	// spaces must be %20, the market does not read '+' as a space.
	name := strings.ReplaceAll(url.QueryEscape(key), "+", "%20")
	addr := fmt.Sprintf("%s?currency=%d&appid=%d&market_hash_name=%s", s.cfg.URL, s.cfg.Currency, s.cfg.AppID, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot http GET %v%v: %v", req.URL.Host, req.URL.Path, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
