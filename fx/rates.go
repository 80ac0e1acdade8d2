// Package fx backs the exchange-rates view with a fixed indicative rate
// table. Quotes are estimates for display only; nothing here moves money.
package fx

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Rate is an indicative conversion rate between two currencies.
type Rate struct {
	Base  string          `json:"base"`
	Quote string          `json:"quote"`
	Rate  decimal.Decimal `json:"rate"`
}

// Table resolves indicative rates by currency pair.
type Table struct {
	rates map[string]Rate
}

// DefaultTable returns the demo rate table (SGD to USD at 0.74).
func DefaultTable() *Table {
	t := NewTable()
	t.Set("SGD", "USD", decimal.NewFromFloat(0.74))
	return t
}

// NewTable returns an empty rate table.
func NewTable() *Table {
	return &Table{rates: make(map[string]Rate)}
}

// Set registers an indicative rate for base/quote.
func (t *Table) Set(base, quote string, rate decimal.Decimal) {
	t.rates[pairKey(base, quote)] = Rate{Base: base, Quote: quote, Rate: rate}
}

// Quote converts amount from base to quote currency. Unknown pairs error;
// the amount is rounded to two decimal places for display.
func (t *Table) Quote(amount decimal.Decimal, base, quote string) (decimal.Decimal, error) {
	r, ok := t.rates[pairKey(base, quote)]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for %s/%s", base, quote)
	}
	return amount.Mul(r.Rate).Round(2), nil
}

// Rates lists all registered rates.
func (t *Table) Rates() []Rate {
	out := make([]Rate, 0, len(t.rates))
	for _, r := range t.rates {
		out = append(out, r)
	}
	return out
}

func pairKey(base, quote string) string {
	return base + "/" + quote
}
