package models

import "time"

// Portfolio groups positions under a user-chosen name
type Portfolio struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
