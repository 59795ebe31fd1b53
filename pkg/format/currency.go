// Package format provides string formatting helpers for monetary values.
package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Euro returns a currency string with a euro sign and thousands separators
// (e.g., "-€1,234.56").
func Euro(amount float64) string {
	if amount < 0 {
		return printer.Sprintf("-€%.2f", math.Abs(amount))
	}
	return printer.Sprintf("€%.2f", amount)
}

// NumericCurrency returns a currency string without a currency symbol but
// with separators (e.g., "-1,234.56").
func NumericCurrency(amount float64) string {
	if amount < 0 {
		return printer.Sprintf("-%.2f", math.Abs(amount))
	}
	return printer.Sprintf("%.2f", amount)
}
