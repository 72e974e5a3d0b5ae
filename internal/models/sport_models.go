package models

import "github.com/shopspring/decimal"

// Sport is a discipline offered by the club. Name is the unique key.
type Sport struct {
	Name        string          `json:"name"`
	Fee         decimal.Decimal `json:"fee"`
	Description string          `json:"description"`
	Active      bool            `json:"active"`
}
