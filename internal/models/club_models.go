package models

import "time"

// SportsClub is a tenant. Each club's data lives in its own spreadsheet.
type SportsClub struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	SpreadsheetID string    `json:"spreadsheetId" db:"spreadsheet_id"`
	OwnerEmail    string    `json:"ownerEmail" db:"owner_email"`
	Editors       []string  `json:"editors" db:"editors"`
	Viewers       []string  `json:"viewers" db:"viewers"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}
