package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"sports_club_backend/internal/models"
	"sports_club_backend/internal/repositories"
	"sports_club_backend/pkg/utils"
)

// --- Payment DTOs ---
type RecordPaymentRequest struct {
	MemberID    string           `json:"memberId" validate:"required"`
	Amount      *decimal.Decimal `json:"amount"`
	Date        string           `json:"date"` // defaults to today
	PaymentType string           `json:"paymentType"`
	Sport       string           `json:"sport"`
	PeriodStart string           `json:"periodStart"`
	PeriodEnd   string           `json:"periodEnd"`
	Status      string           `json:"status"` // defaults to Paid
	Notes       string           `json:"notes"`
}

// PaymentFilter narrows payment reads and summaries. Empty fields do not filter.
type PaymentFilter struct {
	SinceID   string `json:"sinceId"`
	MemberID  string `json:"memberId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Sport     string `json:"sport"`
	Status    string `json:"status"`
}

// --- PaymentService Interface ---
type PaymentService interface {
	RecordPayment(ctx context.Context, rc *RequestContext, req RecordPaymentRequest) (*models.PaymentResult, error)
	GetPayments(rc *RequestContext, filter PaymentFilter) ([]models.Payment, error)
	GetMemberPayments(rc *RequestContext, filter PaymentFilter) (*models.MemberPaymentSummary, error)
	GetPaymentSummary(rc *RequestContext, filter PaymentFilter) (*models.PaymentSummary, error)
	GetPaymentStatus(rc *RequestContext, sport string) ([]models.PaymentStatusEntry, error)
}

type paymentService struct {
	gate     *WriteGate
	settings SettingService
	now      Clock
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(gate *WriteGate, settings SettingService, now Clock) PaymentService {
	return &paymentService{gate: gate, settings: settings, now: clockOrDefault(now)}
}

// RecordPayment stores a payment. A Paid payment with a period end extends
// the member's expiry date in the same gate hold.
func (s *paymentService) RecordPayment(ctx context.Context, rc *RequestContext, req RecordPaymentRequest) (*models.PaymentResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Amount == nil {
		return nil, validationErrorf("amount is required")
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	paidOn := utils.TruncateDay(s.now())
	if strings.TrimSpace(req.Date) != "" {
		d, err := utils.ParseDate(req.Date)
		if err != nil {
			return nil, ErrDateFormat
		}
		paidOn = d
	}
	periodStart, err := optionalDate(req.PeriodStart)
	if err != nil {
		return nil, err
	}
	periodEnd, err := optionalDate(req.PeriodEnd)
	if err != nil {
		return nil, err
	}
	if periodStart != "" && periodEnd != "" && periodEnd < periodStart {
		return nil, ErrInvalidPeriod
	}
	payment := &models.Payment{
		MemberID:    strings.TrimSpace(req.MemberID),
		Date:        utils.FormatDate(paidOn),
		Amount:      *req.Amount,
		PaymentType: strings.TrimSpace(req.PaymentType),
		Sport:       strings.TrimSpace(req.Sport),
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Status:      strings.TrimSpace(req.Status),
		Notes:       req.Notes,
	}
	if payment.PaymentType == "" {
		payment.PaymentType = models.DefaultPaymentType
	}
	if payment.Status == "" || strings.EqualFold(payment.Status, models.PaymentStatusPaid) {
		payment.Status = models.PaymentStatusPaid
	}

	result := &models.PaymentResult{}
	err = s.gate.Do(ctx, func() error {
		members := repositories.NewMemberRepository(rc.Store)
		member, err := members.GetMemberByID(payment.MemberID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrMemberNotFound
			}
			return err
		}
		id, err := repositories.NewPaymentRepository(rc.Store).CreatePayment(payment)
		if err != nil {
			return err
		}
		result.PaymentID = id
		result.ExpiryDate = member.ExpiryDate
		s.settings.Touch(rc.Store, "Payments")

		if !payment.IsPaid() || payment.PeriodEnd == "" {
			return nil
		}
		expiry, err := ExtendExpiry(member.ExpiryDate, payment.PeriodStart, payment.PeriodEnd, paidOn)
		if err != nil {
			return err
		}
		if utils.StringValue(expiry) == utils.StringValue(member.ExpiryDate) {
			return nil
		}
		member.ExpiryDate = expiry
		if err := members.UpdateMember(member); err != nil {
			return err
		}
		result.ExpiryDate = expiry
		s.settings.Touch(rc.Store, "Members")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *paymentService) GetPayments(rc *RequestContext, filter PaymentFilter) ([]models.Payment, error) {
	all, err := repositories.NewPaymentRepository(rc.Store).GetPayments()
	if err != nil {
		return nil, err
	}
	return FilterPayments(all, filter)
}

// GetMemberPayments summarizes the Paid payments of filter.MemberID.
func (s *paymentService) GetMemberPayments(rc *RequestContext, filter PaymentFilter) (*models.MemberPaymentSummary, error) {
	if strings.TrimSpace(filter.MemberID) == "" {
		return nil, validationErrorf("memberId is required")
	}
	filter.Status = ""
	payments, err := s.GetPayments(rc, filter)
	if err != nil {
		return nil, err
	}
	summary := SummarizeMemberPayments(strings.TrimSpace(filter.MemberID), payments)
	return &summary, nil
}

func (s *paymentService) GetPaymentSummary(rc *RequestContext, filter PaymentFilter) (*models.PaymentSummary, error) {
	filter.MemberID = ""
	filter.Status = ""
	payments, err := s.GetPayments(rc, filter)
	if err != nil {
		return nil, err
	}
	summary := SummarizePayments(payments)
	return &summary, nil
}

// GetPaymentStatus builds the status report, optionally for one sport only.
func (s *paymentService) GetPaymentStatus(rc *RequestContext, sport string) ([]models.PaymentStatusEntry, error) {
	members, err := repositories.NewMemberRepository(rc.Store).GetMembers()
	if err != nil {
		return nil, err
	}
	payments, err := repositories.NewPaymentRepository(rc.Store).GetPayments()
	if err != nil {
		return nil, err
	}
	report := PaymentStatusReport(members, payments, s.now(), s.settings.LatePaymentDays(rc.Store))
	if sport = strings.TrimSpace(sport); sport == "" {
		return report, nil
	}
	out := []models.PaymentStatusEntry{}
	for _, e := range report {
		if strings.EqualFold(e.Sport, sport) {
			out = append(out, e)
		}
	}
	return out, nil
}
