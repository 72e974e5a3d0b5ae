package repositories

import (
	"fmt"

	"sports_club_backend/internal/models"
)

// SheetExpenses is the name of the expenses sheet.
const SheetExpenses = "Expenses"

var expenseColumns = []string{
	"ID", "Date", "Amount", "Category", "Payee", "Payment Type", "Notes", "Recorded By",
}

// ExpenseRepository defines the storage operations for expenses.
type ExpenseRepository interface {
	EnsureSchema() error
	CreateExpense(e *models.Expense) (string, error)
	GetExpenses() ([]models.Expense, error)
}

type expenseRepository struct {
	table *Table[models.Expense]
}

// NewExpenseRepository creates an ExpenseRepository on top of a club store.
func NewExpenseRepository(store TabularStore) ExpenseRepository {
	return &expenseRepository{table: newTable(store, SheetExpenses, expenseColumns, "ID", encodeExpense, decodeExpense)}
}

func encodeExpense(e models.Expense) Row {
	return Row{
		"ID":           e.ID,
		"Date":         e.Date,
		"Amount":       e.Amount.String(),
		"Category":     e.Category,
		"Payee":        e.Payee,
		"Payment Type": e.PaymentType,
		"Notes":        e.Notes,
		"Recorded By":  e.RecordedBy,
	}
}

func decodeExpense(r Row) (models.Expense, error) {
	amount, err := decodeAmount(r["Amount"])
	if err != nil {
		return models.Expense{}, err
	}
	return models.Expense{
		ID:          r["ID"],
		Date:        normalizeDateCell(r["Date"]),
		Amount:      amount,
		Category:    r["Category"],
		Payee:       r["Payee"],
		PaymentType: r["Payment Type"],
		Notes:       r["Notes"],
		RecordedBy:  r["Recorded By"],
	}, nil
}

func (r *expenseRepository) EnsureSchema() error {
	return r.table.Ensure()
}

func (r *expenseRepository) CreateExpense(e *models.Expense) (string, error) {
	id, err := r.table.NextID()
	if err != nil {
		return "", fmt.Errorf("allocating expense id: %w", err)
	}
	e.ID = id
	if err := r.table.Append(*e); err != nil {
		return "", fmt.Errorf("creating expense: %w", err)
	}
	return id, nil
}

func (r *expenseRepository) GetExpenses() ([]models.Expense, error) {
	return r.table.All()
}
