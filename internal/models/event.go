package models

import "time"

// Event type constants
const (
	EventCompanyCreated    = "COMPANY_CREATED"
	EventCompanyDeleted    = "COMPANY_DELETED"
	EventPositionsImported = "POSITIONS_IMPORTED"
	EventPriceClosed       = "PRICE_CLOSED"
)

// CompanyEvent represents a Kafka event for company changes
type CompanyEvent struct {
	EventType string    `json:"event_type"`
	Company   *Company  `json:"company,omitempty"`
	Ticker    string    `json:"ticker"`
	Timestamp time.Time `json:"timestamp"`
}

// ImportEvent is published after a bulk position import commits
type ImportEvent struct {
	EventType        string    `json:"event_type"`
	BatchID          string    `json:"batch_id"`
	PortfolioID      int       `json:"portfolio_id"`
	PositionIDs      []int     `json:"position_ids"`
	CreatedCompanies []string  `json:"created_companies,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// PriceEvent represents a daily close published by an upstream price feed
type PriceEvent struct {
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	Timestamp string         `json:"timestamp"`
	Data      PriceEventData `json:"data"`
}

// PriceEventData holds the raw string values of a daily close
type PriceEventData struct {
	Ticker   string `json:"ticker"`
	Date     string `json:"date"`
	Close    string `json:"close"`
	Currency string `json:"currency"`
}
