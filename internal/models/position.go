package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the side of a position transaction
type TransactionType string

// Transaction type constants
const (
	TransactionBuy  TransactionType = "b"
	TransactionSell TransactionType = "s"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	return t == TransactionBuy || t == TransactionSell
}

// Amount bounds of the NUMERIC(18,6) quantity, price and close columns
const (
	AmountScale         = 6
	AmountIntegerDigits = 12
)

var maxAmount = decimal.New(1, AmountIntegerDigits)

// CheckAmount reports why d cannot be stored as a quantity, price or close
func CheckAmount(d decimal.Decimal) error {
	switch {
	case !d.IsPositive():
		return errors.New("must be greater than 0")
	case !d.LessThan(maxAmount):
		return fmt.Errorf("must be less than %s", maxAmount)
	case !d.Equal(d.Truncate(AmountScale)):
		return fmt.Errorf("must have at most %d decimal places", AmountScale)
	}
	return nil
}

// DateLayout is the wire and storage layout of position and price dates
const DateLayout = "2006-01-02"

// Position represents a single buy or sell transaction inside a portfolio.
// Several positions may exist for the same (portfolio, company) pair.
type Position struct {
	ID            int             `json:"id"`
	PortfolioID   int             `json:"portfolio_id"`
	CompanyTicker string          `json:"company_ticker"`
	Type          TransactionType `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	Date          time.Time       `json:"date"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Company       *Company        `json:"company,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PositionUpdate carries a partial position update; nil fields are left untouched
type PositionUpdate struct {
	PortfolioID   *int             `json:"portfolio_id,omitempty"`
	CompanyTicker *string          `json:"company_ticker,omitempty"`
	Type          *TransactionType `json:"type,omitempty"`
	Quantity      *decimal.Decimal `json:"quantity,omitempty"`
	Date          *time.Time       `json:"date,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
}
