// Package currency holds the static catalog of currencies an invoice can be
// issued in.
package currency

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/invoicer/internal/decimal"
)

// Default is the currency of a new draft.
const Default = "USD"

// Currency describes one catalog entry.
type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

var catalog = map[string]Currency{
	"USD": {Code: "USD", Symbol: "$", Name: "US Dollar"},
	"EUR": {Code: "EUR", Symbol: "€", Name: "Euro"},
	"GBP": {Code: "GBP", Symbol: "£", Name: "British Pound"},
	"JPY": {Code: "JPY", Symbol: "¥", Name: "Japanese Yen"},
	"CNY": {Code: "CNY", Symbol: "¥", Name: "Chinese Yuan"},
	"CAD": {Code: "CAD", Symbol: "CA$", Name: "Canadian Dollar"},
	"AUD": {Code: "AUD", Symbol: "A$", Name: "Australian Dollar"},
	"NZD": {Code: "NZD", Symbol: "NZ$", Name: "New Zealand Dollar"},
	"CHF": {Code: "CHF", Symbol: "CHF", Name: "Swiss Franc"},
	"SEK": {Code: "SEK", Symbol: "kr", Name: "Swedish Krona"},
	"SGD": {Code: "SGD", Symbol: "S$", Name: "Singapore Dollar"},
	"HKD": {Code: "HKD", Symbol: "HK$", Name: "Hong Kong Dollar"},
	"INR": {Code: "INR", Symbol: "₹", Name: "Indian Rupee"},
	"THB": {Code: "THB", Symbol: "฿", Name: "Thai Baht"},
	"VND": {Code: "VND", Symbol: "₫", Name: "Vietnamese Dong"},
	"MYR": {Code: "MYR", Symbol: "RM", Name: "Malaysian Ringgit"},
	"KRW": {Code: "KRW", Symbol: "₩", Name: "South Korean Won"},
	"BRL": {Code: "BRL", Symbol: "R$", Name: "Brazilian Real"},
	"MXN": {Code: "MXN", Symbol: "MX$", Name: "Mexican Peso"},
	"ZAR": {Code: "ZAR", Symbol: "R", Name: "South African Rand"},
}

// Lookup returns the catalog entry for code. Codes are case-insensitive.
func Lookup(code string) (Currency, bool) {
	c, ok := catalog[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// IsKnown reports whether code is in the catalog.
func IsKnown(code string) bool {
	_, ok := Lookup(code)
	return ok
}

// Symbol returns the symbol for code, or the code itself when unknown.
func Symbol(code string) string {
	if c, ok := Lookup(code); ok {
		return c.Symbol
	}
	return code
}

// All returns the catalog sorted by code.
func All() []Currency {
	out := make([]Currency, 0, len(catalog))
	for _, c := range catalog {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Code < out[j].Code
	})
	return out
}

// Format renders amount with the currency symbol and two decimals.
// Negative amounts keep the sign in front of the symbol.
func Format(amount decimal.Decimal, code string) string {
	sym := Symbol(code)
	if amount.IsNegative() {
		return "-" + sym + money.Fixed2(amount.Neg())
	}
	return sym + money.Fixed2(amount)
}
