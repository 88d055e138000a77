package skinledger

import "fmt"

// Percent is a relative change expressed as a fraction: 0.5 is +50%.
//
// It is persisted as a fraction because the workbook percentage format does
// the multiplication by 100.
type Percent float64

func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p)*100)
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", float64(p)*100)
	if res == "+0.00%" || res == "-0.00%" {
		return "-"
	}
	return res
}
