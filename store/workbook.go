// Package store reads and writes the ledger workbook.
//
// Only the cells owned by the tool are ever written: the formatting, the
// formulas and any other cell the user added are left as they are.
package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/skinledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Columns of a ledger row. Row 1 holds the headers.
const (
	ColDate       = "A"
	ColItem       = "B"
	ColCondition  = "C"
	ColPlatform   = "D"
	ColPurchase   = "E"
	ColCurrent    = "F"
	ColChange     = "G"
	ColDifference = "H" // =F-E
	ColSold       = "I"
	ColUpdated    = "J"

	columns = 10 // A to J
)

// Summary cells.
const (
	CellExpectedProfit = "L1" // =SUMIFS(H:H, I:I, "N/A") * 0.85, owned by the user
	CellProfitChange   = "M1"
	CellLastCheck      = "L3"
)

// Formats of the dates written in the workbook.
const (
	DateFormat      = "02/01/2006"
	LastCheckFormat = "02/01/2006 at 15:04"
)

// Workbook is an opened ledger workbook.
type Workbook struct {
	f        *excelize.File
	sheet    string // the active sheet
	currency string
	log      zerolog.Logger
}

// Open opens the workbook at path. Amounts are read in currency.
func Open(path, currency string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open workbook %q: %w", path, err)
	}
	return newWorkbook(f, currency), nil
}

// New wraps an in-memory excelize file.
func New(f *excelize.File, currency string) *Workbook {
	return newWorkbook(f, currency)
}

func newWorkbook(f *excelize.File, currency string) *Workbook {
	return &Workbook{
		f:        f,
		sheet:    f.GetSheetName(f.GetActiveSheetIndex()),
		currency: currency,
		log:      zerolog.Nop(),
	}
}

// SetLogger sets the logger for what is read leniently. It is silent by default.
func (w *Workbook) SetLogger(log zerolog.Logger) { w.log = log }

// Close releases the workbook.
func (w *Workbook) Close() error { return w.f.Close() }

func cell(col string, row int) string { return col + strconv.Itoa(row) }

func (w *Workbook) raw(col string, row int) (string, error) {
	v, err := w.f.GetCellValue(w.sheet, cell(col, row), excelize.Options{RawCellValue: true})
	return strings.TrimSpace(v), err
}

// lastRow returns the sheet row of the last ledger entry, 1 when there is none.
func (w *Workbook) lastRow() (int, error) {
	n := 1
	for {
		item, err := w.raw(ColItem, n+1)
		if err != nil {
			return 0, err
		}
		if item == "" {
			return n, nil
		}
		n++
	}
}

// Rows reads every ledger entry, from row 2 to the first row without an item.
func (w *Workbook) Rows() ([]skinledger.Row, error) {
	last, err := w.lastRow()
	if err != nil {
		return nil, err
	}
	var rows []skinledger.Row
	var errs error
	for i := 2; i <= last; i++ {
		r, err := w.row(i)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("row %d: %w", i, err))
			continue
		}
		rows = append(rows, r)
	}
	return rows, errs
}

func (w *Workbook) row(i int) (skinledger.Row, error) {
	values := make(map[string]string, columns)
	for _, col := range []string{ColDate, ColItem, ColCondition, ColPlatform, ColPurchase, ColCurrent, ColChange, ColSold, ColUpdated} {
		v, err := w.raw(col, i)
		if err != nil {
			return skinledger.Row{}, err
		}
		values[col] = v
	}

	r := skinledger.Row{
		Index:     i,
		Item:      values[ColItem],
		Condition: values[ColCondition],
		Platform:  values[ColPlatform],
		Updated:   values[ColUpdated],
	}
	var errs error
	var err error
	if r.Date, err = parseDate(values[ColDate]); err != nil {
		errs = errors.Join(errs, err)
	}
	if r.PurchasePrice, err = w.money(values[ColPurchase]); err != nil {
		errs = errors.Join(errs, fmt.Errorf("purchase price: %w", err))
	}
	if r.CurrentValue, err = w.money(values[ColCurrent]); err != nil {
		errs = errors.Join(errs, fmt.Errorf("current value: %w", err))
	}
	if v := values[ColChange]; v != "" {
		change, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("invalid change %q", v))
		}
		r.Change = skinledger.Percent(change)
	}
	if sold := values[ColSold]; sold != skinledger.NotSold {
		// anything but the sentinel is a sale, even when the amount is unreadable.
		amount, err := w.money(sold)
		if err != nil {
			w.log.Debug().Int("row", i).Str("sold", sold).Err(err).Msg("unreadable sold price, row counted as sold")
		}
		r.Sold = &amount
	}
	return r, errs
}

func (w *Workbook) money(v string) (skinledger.Money, error) {
	if v == "" {
		return skinledger.M(0, w.currency), nil
	}
	return skinledger.ParseMoney(v, w.currency)
}

// parseDate reads a date written by the tool (dd/mm/yyyy) or typed in
// the sheet (a serial number).
func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(DateFormat, v); err == nil {
		return t, nil
	}
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", v)
	}
	return excelize.ExcelDateToTime(serial, false)
}

// WriteValuations writes the current value, change and updated flag of
// every row. Other cells are not touched.
func (w *Workbook) WriteValuations(rows []skinledger.Row) error {
	for _, r := range rows {
		if r.Index < 2 {
			return fmt.Errorf("invalid row index %d for %q", r.Index, r.Item)
		}
		if err := w.f.SetCellValue(w.sheet, cell(ColCurrent, r.Index), r.CurrentValue.Float64()); err != nil {
			return err
		}
		if err := w.f.SetCellValue(w.sheet, cell(ColChange, r.Index), float64(r.Change)); err != nil {
			return err
		}
		if err := w.f.SetCellValue(w.sheet, cell(ColUpdated, r.Index), r.Updated); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary writes the expected profit change and the time of the run.
func (w *Workbook) WriteSummary(change skinledger.Percent, at time.Time) error {
	if err := w.f.SetCellValue(w.sheet, CellProfitChange, float64(change)); err != nil {
		return err
	}
	return w.f.SetCellValue(w.sheet, CellLastCheck, at.Format(LastCheckFormat))
}

// Append adds r after the last row, styled like the header row. A non empty
// colour (#RRGGBB) is applied to the item name. It returns r's sheet row.
func (w *Workbook) Append(r skinledger.Row, colour string) (int, error) {
	last, err := w.lastRow()
	if err != nil {
		return 0, err
	}
	n := last + 1

	for col := 1; col <= columns; col++ {
		header, _ := excelize.CoordinatesToCellName(col, 1)
		target, _ := excelize.CoordinatesToCellName(col, n)
		style, err := w.f.GetCellStyle(w.sheet, header)
		if err != nil {
			return 0, err
		}
		if err := w.f.SetCellStyle(w.sheet, target, target, style); err != nil {
			return 0, err
		}
	}

	sold := any(skinledger.NotSold)
	if r.Sold != nil {
		sold = r.Sold.Float64()
	}
	values := []struct {
		col   string
		value any
	}{
		{ColDate, r.Date.Format(DateFormat)},
		{ColItem, r.Item},
		{ColCondition, r.Condition},
		{ColPlatform, r.Platform},
		{ColPurchase, r.PurchasePrice.Float64()},
		{ColCurrent, r.CurrentValue.Float64()},
		{ColChange, float64(r.Change)},
		{ColDifference, r.Difference().Float64()},
		{ColSold, sold},
		{ColUpdated, r.Updated},
	}
	for _, v := range values {
		if err := w.f.SetCellValue(w.sheet, cell(v.col, n), v.value); err != nil {
			return 0, err
		}
	}

	if colour != "" {
		if err := w.colourItem(n, colour); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// colourItem sets the item name font: bold, in colour.
func (w *Workbook) colourItem(n int, colour string) error {
	argb, err := ARGB(colour)
	if err != nil {
		return err
	}
	name := cell(ColItem, n)
	id, err := w.f.GetCellStyle(w.sheet, name)
	if err != nil {
		return err
	}
	style, err := w.f.GetStyle(id)
	if err != nil {
		return err
	}
	style.Font = &excelize.Font{Color: argb, Bold: true, Family: "Open Sans", Size: 10}
	id, err = w.f.NewStyle(style)
	if err != nil {
		return err
	}
	return w.f.SetCellStyle(w.sheet, name, name, id)
}

// ARGB converts a #RRGGBB colour to the opaque AARRGGBB form used in workbooks.
func ARGB(rgb string) (string, error) {
	hex := strings.TrimPrefix(rgb, "#")
	if len(hex) != 6 {
		return "", fmt.Errorf("invalid colour %q", rgb)
	}
	if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
		return "", fmt.Errorf("invalid colour %q", rgb)
	}
	return "FF" + strings.ToUpper(hex), nil
}

// ApplyDifferenceFormula sets the difference formula (=F-E) on every row.
func (w *Workbook) ApplyDifferenceFormula() error {
	last, err := w.lastRow()
	if err != nil {
		return err
	}
	for i := 2; i <= last; i++ {
		formula := fmt.Sprintf("%s%d-%s%d", ColCurrent, i, ColPurchase, i)
		if err := w.f.SetCellFormula(w.sheet, cell(ColDifference, i), formula); err != nil {
			return err
		}
	}
	return nil
}

// SaveAs saves the workbook to every non empty path.
func (w *Workbook) SaveAs(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := w.f.SaveAs(p); err != nil {
			return fmt.Errorf("could not save workbook to %q: %w", p, err)
		}
	}
	return nil
}

// Decimal reads a raw cell as a decimal, used by tests and reports.
func (w *Workbook) Decimal(c string) (decimal.Decimal, error) {
	v, err := w.f.GetCellValue(w.sheet, c, excelize.Options{RawCellValue: true})
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(strings.TrimSpace(v))
}

// Value reads a cell as displayed.
func (w *Workbook) Value(c string) (string, error) {
	return w.f.GetCellValue(w.sheet, c)
}
