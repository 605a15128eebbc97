package notifications

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatPrice renders amount with two decimals followed by the currency code,
// e.g. "20.00 USD". Unknown codes are kept as given.
func FormatPrice(amount float64, code string) string {
	code = strings.TrimSpace(code)
	if unit, err := currency.ParseISO(code); err == nil {
		code = unit.String()
	}
	formatted := printer.Sprintf("%.2f", amount)
	if code == "" {
		return formatted
	}
	return formatted + " " + code
}

// FormatDollars renders amount as it appears in a vouch, e.g. "$20.5".
func FormatDollars(amount float64) string {
	s := printer.Sprintf("%.2f", amount)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "" {
		s = "0"
	}
	return "$" + s
}
