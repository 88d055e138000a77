package skinledger

import (
	"strings"
	"time"
)

// NotSold is the sold price sentinel written in the ledger for items still held.
const NotSold = "N/A"

// Updated flag values.
const (
	UpdatedYes = "y"
	UpdatedNo  = "n"
)

// Row is one ledger entry.
type Row struct {
	Index     int       // 1-based sheet row of the entry
	Date      time.Time // acquisition date
	Item      string
	Condition string // wear, empty for items without one
	Platform  string

	PurchasePrice Money
	CurrentValue  Money
	Change        Percent // change of CurrentValue at its last refresh
	Sold          *Money  // nil while the item is not sold
	Updated       string  // UpdatedYes or UpdatedNo
}

// NewRow returns the ledger entry of an item just acquired on the market:
// bought and valued at the minimum listing price, not sold and not yet
// refreshed.
func NewRow(date time.Time, item, condition, currency string) Row {
	return Row{
		Date:          date,
		Item:          item,
		Condition:     condition,
		Platform:      DefaultPlatform,
		PurchasePrice: M(0.03, currency),
		CurrentValue:  M(0.03, currency),
		Updated:       UpdatedNo,
	}
}

// DefaultPlatform is the purchase platform of imported items.
const DefaultPlatform = "Steam"

// Key returns the marketplace name used to look up the row's price.
//
// Items with a condition are listed as "<item> (<condition>)".
func (r Row) Key() string {
	item := strings.TrimSpace(r.Item)
	condition := strings.TrimSpace(r.Condition)
	if condition == "" {
		return item
	}
	return item + " (" + condition + ")"
}

// IsSold reports whether the row has a concrete sale amount.
func (r Row) IsSold() bool { return r.Sold != nil }

// Difference is the current value minus the purchase price.
func (r Row) Difference() Money { return r.CurrentValue.Sub(r.PurchasePrice) }
