package models

import "github.com/shopspring/decimal"

func init() {
	// Amounts travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	PaymentStatusPaid    = "Paid"
	PaymentStatusPending = "Pending"

	DefaultPaymentType = "Cash"
)

// Payment is a membership fee payment covering [PeriodStart, PeriodEnd].
type Payment struct {
	ID          string          `json:"id"`
	MemberID    string          `json:"memberId"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentType string          `json:"paymentType"`
	Sport       string          `json:"sport"`
	PeriodStart string          `json:"periodStart"`
	PeriodEnd   string          `json:"periodEnd"`
	Status      string          `json:"status"`
	Notes       string          `json:"notes"`

	MemberName string `json:"memberName,omitempty"` // display only
}

// IsPaid reports whether the payment carries the Paid status.
func (p Payment) IsPaid() bool {
	return p.Status == PaymentStatusPaid
}

// PaymentResult is returned after recording a payment.
type PaymentResult struct {
	PaymentID  string  `json:"paymentId"`
	ExpiryDate *string `json:"expiryDate"`
}
