package models

import "github.com/shopspring/decimal"

// Expense is money spent by the club.
type Expense struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Payee       string          `json:"payee"`
	PaymentType string          `json:"paymentType"`
	Notes       string          `json:"notes"`
	RecordedBy  string          `json:"recordedBy"`
}
