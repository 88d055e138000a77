package inventory

import (
	"context"
	"fmt"

	"github.com/etnz/skinledger"
	"github.com/rs/zerolog"
)

// PageSize is the number of item slots per inventory page.
const PageSize = 25

// Page is an opened inventory page.
type Page interface {
	// Slots returns the number of item slots loaded so far, across pages.
	Slots(ctx context.Context) (int, error)
	// Empty reports whether slot i holds no item.
	Empty(ctx context.Context, i int) (bool, error)
	// Select shows the details of slot i and returns its item.
	Select(ctx context.Context, i int) (Item, error)
	// Next moves to the next page, ok is false on the last one.
	Next(ctx context.Context) (ok bool, err error)
}

// Scrape reads every item of the inventory, page by page, until the first
// empty slot or the last page.
//
// An inventory without any slot is private or unavailable: the error wraps
// skinledger.ErrInaccessible.
func Scrape(ctx context.Context, page Page, log zerolog.Logger) ([]Item, error) {
	var items []Item
	processed := 0
	for {
		n, err := page.Slots(ctx)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: the inventory is private or unavailable", skinledger.ErrInaccessible)
		}
		if processed >= n {
			return items, nil // nothing new was loaded
		}

		for ; processed < n; processed++ {
			empty, err := page.Empty(ctx, processed)
			if err != nil {
				return nil, err
			}
			if empty {
				return items, nil
			}

			item, err := page.Select(ctx, processed)
			if err != nil {
				return nil, fmt.Errorf("could not read slot %d: %w", processed+1, err)
			}
			log.Info().Int("slot", processed+1).Str("item", item.Name).Strs("tags", item.Tags).Msg("scraped")
			items = append(items, item)

			// the last slot of a page: move on if there is another page.
			if (processed+1)%PageSize == 0 {
				ok, err := page.Next(ctx)
				if err != nil {
					return nil, err
				}
				if !ok {
					return items, nil
				}
				processed++
				break
			}
		}
	}
}
