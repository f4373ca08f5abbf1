package models

import "time"

// Field bounds shared by the validator, the handlers and the schema
const (
	MaxTickerLength        = 12
	MaxCompanyNameLength   = 100
	MaxSectorLength        = 50
	MaxPortfolioNameLength = 30
)

// Company represents a listed company identified by its ticker
type Company struct {
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	Sector    *string   `json:"sector,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CompanyUpdate carries a partial company update; nil fields are left untouched
type CompanyUpdate struct {
	Name   *string `json:"name,omitempty"`
	Sector *string `json:"sector,omitempty"`
}
