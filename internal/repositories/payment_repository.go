package repositories

import (
	"fmt"

	"github.com/shopspring/decimal"

	"sports_club_backend/internal/models"
)

// SheetPayments is the name of the payments sheet.
const SheetPayments = "Payments"

var paymentColumns = []string{
	"ID", "Member ID", "Date", "Amount", "Payment Type", "Sport",
	"Period Start", "Period End", "Status", "Notes",
}

// PaymentRepository defines the storage operations for payments.
type PaymentRepository interface {
	EnsureSchema() error
	CreatePayment(p *models.Payment) (string, error)
	GetPayments() ([]models.Payment, error)
}

type paymentRepository struct {
	table *Table[models.Payment]
}

// NewPaymentRepository creates a PaymentRepository on top of a club store.
func NewPaymentRepository(store TabularStore) PaymentRepository {
	return &paymentRepository{table: newTable(store, SheetPayments, paymentColumns, "ID", encodePayment, decodePayment)}
}

func encodePayment(p models.Payment) Row {
	return Row{
		"ID":           p.ID,
		"Member ID":    p.MemberID,
		"Date":         p.Date,
		"Amount":       p.Amount.String(),
		"Payment Type": p.PaymentType,
		"Sport":        p.Sport,
		"Period Start": p.PeriodStart,
		"Period End":   p.PeriodEnd,
		"Status":       p.Status,
		"Notes":        p.Notes,
	}
}

func decodePayment(r Row) (models.Payment, error) {
	amount, err := decodeAmount(r["Amount"])
	if err != nil {
		return models.Payment{}, err
	}
	return models.Payment{
		ID:          r["ID"],
		MemberID:    r["Member ID"],
		Date:        normalizeDateCell(r["Date"]),
		Amount:      amount,
		PaymentType: r["Payment Type"],
		Sport:       r["Sport"],
		PeriodStart: normalizeDateCell(r["Period Start"]),
		PeriodEnd:   normalizeDateCell(r["Period End"]),
		Status:      r["Status"],
		Notes:       r["Notes"],
	}, nil
}

func decodeAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

func (r *paymentRepository) EnsureSchema() error {
	return r.table.Ensure()
}

func (r *paymentRepository) CreatePayment(p *models.Payment) (string, error) {
	id, err := r.table.NextID()
	if err != nil {
		return "", fmt.Errorf("allocating payment id: %w", err)
	}
	p.ID = id
	if err := r.table.Append(*p); err != nil {
		return "", fmt.Errorf("creating payment: %w", err)
	}
	return id, nil
}

func (r *paymentRepository) GetPayments() ([]models.Payment, error) {
	return r.table.All()
}
