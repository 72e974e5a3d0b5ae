package services

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sports_club_backend/internal/models"
	"sports_club_backend/internal/repositories"
	"sports_club_backend/pkg/utils"
)

// expiringWindow is how far ahead the dashboard looks for expiring memberships.
const expiringWindow = 7 * 24 * time.Hour

// DashboardService computes headline numbers of a club.
type DashboardService interface {
	GetDashboard(rc *RequestContext) (*models.Dashboard, error)
}

type dashboardService struct {
	now Clock
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(now Clock) DashboardService {
	return &dashboardService{now: clockOrDefault(now)}
}

func (s *dashboardService) GetDashboard(rc *RequestContext) (*models.Dashboard, error) {
	members, err := repositories.NewMemberRepository(rc.Store).GetMembers()
	if err != nil {
		return nil, err
	}
	attendance, err := repositories.NewAttendanceRepository(rc.Store).GetAttendance()
	if err != nil {
		return nil, err
	}
	payments, err := repositories.NewPaymentRepository(rc.Store).GetPayments()
	if err != nil {
		return nil, err
	}
	expenses, err := repositories.NewExpenseRepository(rc.Store).GetExpenses()
	if err != nil {
		return nil, err
	}
	settings, err := repositories.NewSettingRepository(rc.Store).GetSettings()
	if err != nil {
		return nil, err
	}

	today := utils.TruncateDay(s.now())
	month := today.Format("2006-01")
	d := &models.Dashboard{
		TotalMembers:  len(members),
		MonthRevenue:  decimal.Zero,
		MonthExpenses: decimal.Zero,
		LastUpdated:   map[string]string{},
	}
	for _, m := range members {
		if !m.IsActive() {
			continue
		}
		expiry, err := utils.ParseDate(utils.StringValue(m.ExpiryDate))
		if err != nil || !expiry.After(today) {
			d.ExpiredMembers++
			continue
		}
		d.ActiveMembers++
		if expiry.Sub(today) <= expiringWindow {
			d.ExpiringThisWeek++
		}
	}
	for _, a := range attendance {
		if a.Date == utils.FormatDate(today) {
			d.TodayAttendance++
		}
	}
	for _, p := range payments {
		if p.IsPaid() && strings.HasPrefix(p.Date, month) {
			d.MonthRevenue = d.MonthRevenue.Add(p.Amount)
		}
	}
	for _, e := range expenses {
		if strings.HasPrefix(e.Date, month) {
			d.MonthExpenses = d.MonthExpenses.Add(e.Amount)
		}
	}
	for _, st := range settings {
		if strings.HasSuffix(st.Key, lastUpdatedSuffix) {
			d.LastUpdated[strings.TrimSuffix(st.Key, lastUpdatedSuffix)] = st.Value
		}
	}
	return d, nil
}
