// Package rates provides currency conversion for displaying prices in a
// customer's currency. Conversion is advisory; orders always settle in the
// product's own currency.
package rates

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCurrency is returned when no rate exists for a currency pair.
var ErrUnknownCurrency = errors.New("unknown currency")

// Provider resolves exchange rates between ISO 4217 currency codes.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Rate returns how many units of "to" one unit of "from" buys.
	Rate(ctx context.Context, from, to string) (float64, error)
}

// Convert converts an amount in minor units between currencies, rounding
// toward zero.
func Convert(ctx context.Context, p Provider, amountCents int64, from, to string) (int64, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return amountCents, nil
	}
	rate, err := p.Rate(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("convert %s to %s: %w", from, to, err)
	}
	return int64(float64(amountCents) * rate), nil
}

// StaticProvider serves rates from a fixed table keyed by base currency.
type StaticProvider struct {
	base  string
	table map[string]float64 // code -> units per 1 base unit
}

// NewStaticProvider builds a provider with a fixed rate table. The base
// currency always resolves to 1.
func NewStaticProvider(base string, table map[string]float64) *StaticProvider {
	normalized := make(map[string]float64, len(table)+1)
	for code, rate := range table {
		normalized[strings.ToUpper(code)] = rate
	}
	base = strings.ToUpper(base)
	normalized[base] = 1
	return &StaticProvider{base: base, table: normalized}
}

// DefaultStaticProvider returns a USD-based provider with a small built-in
// table, used when no rates source is configured.
func DefaultStaticProvider() *StaticProvider {
	return NewStaticProvider("USD", map[string]float64{
		"EUR": 0.92,
		"GBP": 0.79,
		"JPY": 147.0,
		"CAD": 1.36,
		"AUD": 1.52,
	})
}

func (p *StaticProvider) Rate(ctx context.Context, from, to string) (float64, error) {
	fromRate, ok := p.table[from]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, from)
	}
	toRate, ok := p.table[to]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, to)
	}
	// Cross rate through the base currency.
	return toRate / fromRate, nil
}
