package importer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-monitor/internal/currency"
	"github.com/trogers1052/portfolio-monitor/internal/models"
)

var dateLayouts = []string{models.DateLayout, "2006/01/02", "02.01.2006"}

// Validator turns raw rows into typed positions
type Validator struct {
	currencies *currency.Resolver
}

// NewValidator creates a validator resolving currency symbols with res
func NewValidator(res *currency.Resolver) *Validator {
	return &Validator{currencies: res}
}

// ValidateRow checks every field of row. It returns either a complete position
// or a RowError listing all offending fields, never both.
func (v *Validator) ValidateRow(row Row) (*models.Position, *RowError) {
	var fields []FieldError
	fail := func(field, format string, args ...any) {
		fields = append(fields, FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	ticker := strings.ToUpper(row.Ticker)
	switch {
	case ticker == "":
		fail(ColTicker, "is required")
	case len(ticker) > models.MaxTickerLength:
		fail(ColTicker, "must be at most %d characters", models.MaxTickerLength)
	}

	quantity, err := parseAmount(row.Quantity)
	if err != nil {
		fail(ColQuantity, "%v, got %q", err, row.Quantity)
	}

	date, ok := ParseDate(row.Date)
	if !ok {
		fail(ColDate, "must be a date like 2024-01-05, got %q", row.Date)
	}

	price, err := parseAmount(row.Price)
	if err != nil {
		fail(ColPrice, "%v, got %q", err, row.Price)
	}

	code, err := v.currencies.Resolve(row.Currency)
	if err != nil {
		fail(ColCurrency, "unsupported currency %q, expected a symbol or one of %s", row.Currency, strings.Join(v.currencies.Codes(), ", "))
	}

	txType, ok := ParseTransactionType(row.Type)
	if !ok {
		fail(ColType, "must be one of b, s, buy, sell, got %q", row.Type)
	}

	if len(fields) > 0 {
		return nil, &RowError{Row: row.Index, Content: row.Content, Fields: fields}
	}

	return &models.Position{
		CompanyTicker: ticker,
		Type:          txType,
		Quantity:      quantity,
		Date:          date,
		Price:         price,
		Currency:      code,
	}, nil
}

// ParseDate accepts the supported upload date layouts
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseTransactionType accepts b, s, buy and sell in any case
func ParseTransactionType(s string) (models.TransactionType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "buy":
		s = string(models.TransactionBuy)
	case "sell":
		s = string(models.TransactionSell)
	}
	t := models.TransactionType(s)
	return t, t.Valid()
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errors.New("must be a number greater than 0")
	}
	if err := models.CheckAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}
