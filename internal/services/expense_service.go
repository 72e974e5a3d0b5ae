package services

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"sports_club_backend/internal/models"
	"sports_club_backend/internal/repositories"
	"sports_club_backend/pkg/utils"
)

// --- Expense DTOs ---
type RecordExpenseRequest struct {
	Date        string           `json:"date"`
	Amount      *decimal.Decimal `json:"amount"`
	Category    string           `json:"category" validate:"required"`
	Payee       string           `json:"payee"`
	PaymentType string           `json:"paymentType"`
	Notes       string           `json:"notes"`
}

type ExpenseFilter struct {
	SinceID   string `json:"sinceId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Category  string `json:"category"`
}

// --- ExpenseService Interface ---
type ExpenseService interface {
	RecordExpense(ctx context.Context, rc *RequestContext, req RecordExpenseRequest) (string, error)
	GetExpenses(rc *RequestContext, filter ExpenseFilter) ([]models.Expense, error)
}

type expenseService struct {
	gate     *WriteGate
	settings SettingService
	now      Clock
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(gate *WriteGate, settings SettingService, now Clock) ExpenseService {
	return &expenseService{gate: gate, settings: settings, now: clockOrDefault(now)}
}

// RecordExpense stores an expense recorded by the calling user and returns its id.
func (s *expenseService) RecordExpense(ctx context.Context, rc *RequestContext, req RecordExpenseRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}
	if req.Amount == nil {
		return "", validationErrorf("amount is required")
	}
	if !req.Amount.IsPositive() {
		return "", ErrInvalidAmount
	}
	date, err := optionalDate(req.Date)
	if err != nil {
		return "", err
	}
	if date == "" {
		date = utils.FormatDate(s.now())
	}
	expense := &models.Expense{
		Date:        date,
		Amount:      *req.Amount,
		Category:    strings.TrimSpace(req.Category),
		Payee:       strings.TrimSpace(req.Payee),
		PaymentType: strings.TrimSpace(req.PaymentType),
		Notes:       req.Notes,
		RecordedBy:  rc.UserEmail,
	}
	if expense.PaymentType == "" {
		expense.PaymentType = models.DefaultPaymentType
	}

	var id string
	err = s.gate.Do(ctx, func() error {
		var err error
		id, err = repositories.NewExpenseRepository(rc.Store).CreateExpense(expense)
		if err != nil {
			return err
		}
		s.settings.Touch(rc.Store, "Expenses")
		return nil
	})
	return id, err
}

func (s *expenseService) GetExpenses(rc *RequestContext, filter ExpenseFilter) ([]models.Expense, error) {
	from, to, err := parseRange(filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, err
	}
	all, err := repositories.NewExpenseRepository(rc.Store).GetExpenses()
	if err != nil {
		return nil, err
	}
	out := make([]models.Expense, 0, len(all))
	for _, e := range all {
		if filter.SinceID != "" && utils.CompareIDs(e.ID, filter.SinceID) <= 0 {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(e.Category, strings.TrimSpace(filter.Category)) {
			continue
		}
		if !inRange(e.Date, from, to) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return utils.CompareIDs(out[i].ID, out[j].ID) < 0 })
	return out, nil
}
