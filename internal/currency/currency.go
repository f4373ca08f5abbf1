// Package currency maps printed currency symbols to the ISO 4217 codes the
// service stores.
package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
)

// ErrUnknownSymbol is returned when a symbol maps to no supported currency
var ErrUnknownSymbol = errors.New("unknown currency symbol")

// Supported lists the currencies positions and prices may be recorded in.
// The order is the tie-break priority for symbols shared by several codes:
// "$" resolves to USD, "kr" to SEK.
var Supported = []string{
	"USD", "EUR", "GBP", "JPY", "CHF", "CAD",
	"AUD", "SEK", "NOK", "DKK", "PLN", "MXN",
}

// Resolver converts between symbols and codes of the supported set
type Resolver struct {
	order   []string
	symbols map[string]string // code -> symbol
	codes   map[string]string // symbol -> code
}

// NewResolver builds a resolver over the given codes, in priority order.
// With no codes it uses Supported.
func NewResolver(codes ...string) (*Resolver, error) {
	if len(codes) == 0 {
		codes = Supported
	}

	r := &Resolver{
		symbols: make(map[string]string, len(codes)),
		codes:   make(map[string]string, len(codes)),
	}
	for _, code := range codes {
		cur := money.GetCurrency(code)
		if cur == nil {
			return nil, fmt.Errorf("currency %s is not known", code)
		}
		if _, dup := r.symbols[cur.Code]; dup {
			continue
		}
		r.order = append(r.order, cur.Code)
		r.symbols[cur.Code] = cur.Grapheme
		if _, taken := r.codes[cur.Grapheme]; !taken {
			r.codes[cur.Grapheme] = cur.Code
		}
	}
	return r, nil
}

// Default is the resolver over Supported
var Default = mustResolver()

func mustResolver() *Resolver {
	r, err := NewResolver()
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the code for a printed symbol such as "$" or "€".
// ISO codes are accepted as well, case-insensitively.
func (r *Resolver) Resolve(symbol string) (string, error) {
	s := strings.TrimSpace(symbol)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrUnknownSymbol)
	}
	if code, ok := r.codes[s]; ok {
		return code, nil
	}
	if code := strings.ToUpper(s); r.Supported(code) {
		return code, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSymbol, s)
}

// Symbol returns the printed symbol of a supported code, or "" if unsupported
func (r *Resolver) Symbol(code string) string {
	return r.symbols[strings.ToUpper(code)]
}

// Supported reports whether code belongs to the resolver's set
func (r *Resolver) Supported(code string) bool {
	_, ok := r.symbols[code]
	return ok
}

// Codes returns the supported codes in priority order
func (r *Resolver) Codes() []string {
	return append([]string(nil), r.order...)
}
