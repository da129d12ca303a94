package constants

import "strings"

type Currency string

const (
	USD Currency = "USD"
	THB Currency = "THB"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	SGD Currency = "SGD"
	MYR Currency = "MYR"
	KRW Currency = "KRW"
)

// DefaultCurrency is used whenever a record carries no usable currency.
const DefaultCurrency = USD

var allCurrencies = []Currency{USD, THB, EUR, GBP, SGD, MYR, KRW}

// CurrencyGlyph maps a symbol seen on menus to its ISO code.
type CurrencyGlyph struct {
	Glyph string
	Code  Currency
}

// Longer glyphs must be tried before the bare "$".
var currencyGlyphs = []CurrencyGlyph{
	{"US$", USD},
	{"S$", SGD},
	{"RM", MYR},
	{"฿", THB},
	{"£", GBP},
	{"€", EUR},
	{"₩", KRW},
	{"$", USD},
}

// CurrencyGlyphs returns the glyph table, longest glyph first.
func CurrencyGlyphs() []CurrencyGlyph {
	return append([]CurrencyGlyph(nil), currencyGlyphs...)
}

func CurrencyCodes() []string {
	out := make([]string, len(allCurrencies))
	for i, c := range allCurrencies {
		out[i] = string(c)
	}
	return out
}

// CanonicalizeCurrency uppercases the input, maps a known glyph to its code
// and reports whether the result is in the allow-list.
func CanonicalizeCurrency(input string) (Currency, bool) {
	s := strings.ToUpper(strings.TrimSpace(input))
	if s == "" {
		return DefaultCurrency, false
	}
	for _, g := range currencyGlyphs {
		if s == g.Glyph {
			return g.Code, true
		}
	}
	for _, c := range allCurrencies {
		if s == string(c) {
			return c, true
		}
	}
	return DefaultCurrency, false
}
