// Package inventory imports the marketable items of a public Steam inventory
// into the ledger.
package inventory

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/etnz/skinledger"
)

// GameFragment selects the CS2 inventory on an inventory page.
const GameFragment = "#730"

var inventoryURL = regexp.MustCompile(`^https://steamcommunity\.com/(id|profiles)/[\w-]+/inventory/`)

// PageURL validates a public inventory URL and returns the address of its
// CS2 inventory.
func PageURL(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !inventoryURL.MatchString(s) {
		return "", fmt.Errorf("invalid inventory URL %q: want https://steamcommunity.com/id/<name>/inventory/", s)
	}
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	return s + GameFragment, nil
}

// Item is an inventory item as displayed in the item details.
type Item struct {
	Name string
	// Tags are the item descriptors, e.g.
	//
	//	Pistol, P250, The Breakout Collection, Normal, Restricted, Factory New, Tradable, Marketable
	//	Container, The Clutch Collection, Normal, Base Grade, Tradable, Marketable
	Tags []string
}

// ParseTags splits a descriptor line on commas.
func ParseTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		tags = append(tags, strings.TrimSpace(t))
	}
	return tags
}

// Marketable reports whether the item can be sold on the market, and so has a value.
func (it Item) Marketable() bool {
	return len(it.Tags) > 0 && it.Tags[len(it.Tags)-1] == "Marketable"
}

// Condition returns the wear of items in one of the wearables categories,
// empty for anything else.
func (it Item) Condition(wearables []string) string {
	if len(it.Tags) == 0 || !slices.Contains(wearables, it.Tags[0]) {
		return ""
	}
	category := it.Tags[0]
	// knives and gloves have fewer descriptors before the wear.
	wear := 5
	switch {
	case category == "Knife" && len(it.Tags) >= 9:
		wear = 6
	case category == "Gloves":
		wear = 3
	case category == "Knife":
		wear = 4
	}
	if wear >= len(it.Tags) {
		return ""
	}
	return it.Tags[wear]
}

// Colour returns the #RRGGBB colour of the first tag found in rarities,
// empty if none.
func (it Item) Colour(rarities map[string]string) string {
	for _, t := range it.Tags {
		if c, ok := rarities[t]; ok {
			return c
		}
	}
	return ""
}

// Appender adds a row to the ledger, its item name in colour.
type Appender interface {
	Append(r skinledger.Row, colour string) (int, error)
}

// Options configures Import.
type Options struct {
	Date      time.Time // acquisition date of the new rows
	Currency  string
	Wearables []string
	Rarities  map[string]string
}

// Import appends a row for every marketable item, in order. It returns the
// number of rows added.
func Import(items []Item, ledger Appender, opts Options) (int, error) {
	n := 0
	for _, it := range items {
		if !it.Marketable() {
			continue
		}
		r := skinledger.NewRow(opts.Date, it.Name, it.Condition(opts.Wearables), opts.Currency)
		if _, err := ledger.Append(r, it.Colour(opts.Rarities)); err != nil {
			return n, fmt.Errorf("could not add %q: %w", it.Name, err)
		}
		n++
	}
	return n, nil
}
