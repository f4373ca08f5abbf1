package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Price represents the end-of-day close of a company on a market date
type Price struct {
	CompanyTicker string          `json:"company_ticker"`
	MarketDate    time.Time       `json:"market_date"`
	Close         decimal.Decimal `json:"close"`
	Currency      string          `json:"currency"`
	CreatedAt     time.Time       `json:"created_at"`
}
