package templates

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Money formats an amount with thousands separators and two decimals.
func Money(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// Percent formats a decimal rate as a percentage.
func Percent(rate float64, decimals int) string {
	return printer.Sprintf("%.*f%%", decimals, rate*100)
}

// Decimal formats v with a fixed number of decimals.
func Decimal(v float64, decimals int) string {
	return printer.Sprintf("%.*f", decimals, v)
}

// Count formats an integer with thousands separators.
func Count(n int) string {
	return printer.Sprintf("%d", n)
}
