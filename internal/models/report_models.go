package models

import "github.com/shopspring/decimal"

// SportBreakdown aggregates paid payments of one sport.
type SportBreakdown struct {
	Sport         string          `json:"sport"`
	Count         int             `json:"count"`
	Amount        decimal.Decimal `json:"amount"`
	UniqueMembers int             `json:"uniqueMembers,omitempty"`
}

// MonthBreakdown aggregates paid payments of one YYYY-MM month.
type MonthBreakdown struct {
	Month  string          `json:"month"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// MemberPaymentSummary is the paid-payment summary of a single member.
type MemberPaymentSummary struct {
	MemberID        string           `json:"memberId"`
	Count           int              `json:"count"`
	TotalAmount     decimal.Decimal  `json:"totalAmount"`
	BySport         []SportBreakdown `json:"bySport"`
	MostRecent      *Payment         `json:"mostRecent"`
	UpcomingRenewal *Payment         `json:"upcomingRenewal"`
	Payments        []Payment        `json:"payments"`
}

// PaymentSummary is the paid-payment summary over all members.
type PaymentSummary struct {
	Count         int              `json:"count"`
	TotalAmount   decimal.Decimal  `json:"totalAmount"`
	UniqueMembers int              `json:"uniqueMembers"`
	BySport       []SportBreakdown `json:"bySport"`
	ByMonth       []MonthBreakdown `json:"byMonth"`
	MostRecent    *Payment         `json:"mostRecent"`
}

const (
	PaymentStateCurrent        = "Current"
	PaymentStateDue            = "Due"
	PaymentStateOverdue        = "Overdue"
	PaymentStateNeverPaid      = "Never paid"
	PaymentStateNoSubscription = "No subscription end date"
)

// PaymentStatusEntry classifies the subscription of one member for one sport.
type PaymentStatusEntry struct {
	MemberID      string  `json:"memberId"`
	MemberName    string  `json:"memberName"`
	Phone         string  `json:"phone"`
	Sport         string  `json:"sport"`
	Status        string  `json:"status"`
	LastPaymentID string  `json:"lastPaymentId,omitempty"`
	PeriodEnd     *string `json:"periodEnd"`
	DaysOverdue   int     `json:"daysOverdue"`
}

// Dashboard holds the headline counts of a club.
type Dashboard struct {
	TotalMembers     int               `json:"totalMembers"`
	ActiveMembers    int               `json:"activeMembers"`
	ExpiringThisWeek int               `json:"expiringThisWeek"`
	ExpiredMembers   int               `json:"expiredMembers"`
	TodayAttendance  int               `json:"todayAttendance"`
	MonthRevenue     decimal.Decimal   `json:"monthRevenue"`
	MonthExpenses    decimal.Decimal   `json:"monthExpenses"`
	LastUpdated      map[string]string `json:"lastUpdated"`
}
