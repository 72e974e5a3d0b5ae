package services

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sports_club_backend/internal/models"
	"sports_club_backend/pkg/utils"
)

// ExtendExpiry applies a paid period to a member's expiry date.
//
// The period length is counted as whole calendar months from periodStart to
// periodEnd plus the leftover days. It is added to the later of the current
// expiry and periodStart, so an early renewal carries the remaining days
// over and a back-dated one never shortens the expiry. periodStart defaults
// to paidOn. Without a periodEnd the expiry is returned unchanged.
func ExtendExpiry(current *string, periodStart, periodEnd string, paidOn time.Time) (*string, error) {
	if strings.TrimSpace(periodEnd) == "" {
		return current, nil
	}
	start := utils.TruncateDay(paidOn)
	if strings.TrimSpace(periodStart) != "" {
		t, err := utils.ParseDate(periodStart)
		if err != nil {
			return nil, ErrDateFormat
		}
		start = t
	}
	end, err := utils.ParseDate(periodEnd)
	if err != nil {
		return nil, ErrDateFormat
	}
	if end.Before(start) {
		return nil, ErrInvalidPeriod
	}
	months, days := monthSpan(start, end)

	base := start
	var cur time.Time
	hasCurrent := false
	if current != nil {
		if t, err := utils.ParseDate(*current); err == nil {
			cur, hasCurrent = t, true
			if t.After(base) {
				base = t
			}
		}
	}
	next := addMonths(base, months).AddDate(0, 0, days)
	if hasCurrent && next.Before(cur) {
		next = cur
	}
	s := utils.FormatDate(next)
	return &s, nil
}

// addMonths adds n calendar months, capping the day at the last day of the
// target month (Jan 31 + 1 month = Feb 28).
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	d := t.Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// monthSpan splits [start, end] into whole months and remaining days.
func monthSpan(start, end time.Time) (int, int) {
	months := (end.Year()-start.Year())*12 + int(end.Month()-start.Month())
	for months > 0 && addMonths(start, months).After(end) {
		months--
	}
	days := int(end.Sub(addMonths(start, months)).Hours() / 24)
	return months, days
}

// paymentDateRange holds parsed inclusive bounds of a payment query.
type paymentDateRange struct {
	from, to *time.Time
}

func matchPayment(p models.Payment, filter PaymentFilter, r paymentDateRange) bool {
	if filter.SinceID != "" && utils.CompareIDs(p.ID, filter.SinceID) <= 0 {
		return false
	}
	if filter.MemberID != "" && p.MemberID != strings.TrimSpace(filter.MemberID) {
		return false
	}
	if filter.Sport != "" && !strings.EqualFold(strings.TrimSpace(p.Sport), strings.TrimSpace(filter.Sport)) {
		return false
	}
	if filter.Status != "" && !strings.EqualFold(p.Status, filter.Status) {
		return false
	}
	return inRange(p.Date, r.from, r.to)
}

// FilterPayments keeps the payments matching every non-empty filter field.
func FilterPayments(payments []models.Payment, filter PaymentFilter) ([]models.Payment, error) {
	from, to, err := parseRange(filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, err
	}
	r := paymentDateRange{from: from, to: to}
	out := make([]models.Payment, 0, len(payments))
	for _, p := range payments {
		if matchPayment(p, filter, r) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return utils.CompareIDs(out[i].ID, out[j].ID) < 0 })
	return out, nil
}

// paidOnly drops every payment whose status is not Paid.
func paidOnly(payments []models.Payment) []models.Payment {
	out := make([]models.Payment, 0, len(payments))
	for _, p := range payments {
		if p.IsPaid() {
			out = append(out, p)
		}
	}
	return out
}

// laterPayment reports whether a was made after b, by date then id.
func laterPayment(a, b models.Payment) bool {
	ad, aErr := utils.ParseDate(a.Date)
	bd, bErr := utils.ParseDate(b.Date)
	switch {
	case aErr == nil && bErr == nil && !ad.Equal(bd):
		return ad.After(bd)
	case aErr == nil && bErr != nil:
		return true
	case aErr != nil && bErr == nil:
		return false
	}
	return utils.CompareIDs(a.ID, b.ID) > 0
}

// furthestPeriodEnd returns the payment with the highest parsable periodEnd.
// Ties go to the higher id.
func furthestPeriodEnd(payments []models.Payment) (*models.Payment, time.Time) {
	var best *models.Payment
	var bestEnd time.Time
	for i := range payments {
		end, err := utils.ParseDate(payments[i].PeriodEnd)
		if err != nil {
			continue
		}
		if best == nil || end.After(bestEnd) || (end.Equal(bestEnd) && utils.CompareIDs(payments[i].ID, best.ID) > 0) {
			best = &payments[i]
			bestEnd = end
		}
	}
	return best, bestEnd
}

func sportLabel(s string) string {
	return strings.TrimSpace(s)
}

type sportAcc struct {
	count   int
	amount  decimal.Decimal
	members map[string]struct{}
}

func breakdownBySport(paid []models.Payment, withMembers bool) []models.SportBreakdown {
	acc := map[string]*sportAcc{}
	for _, p := range paid {
		key := sportLabel(p.Sport)
		a, ok := acc[key]
		if !ok {
			a = &sportAcc{members: map[string]struct{}{}}
			acc[key] = a
		}
		a.count++
		a.amount = a.amount.Add(p.Amount)
		a.members[p.MemberID] = struct{}{}
	}
	out := make([]models.SportBreakdown, 0, len(acc))
	for sport, a := range acc {
		b := models.SportBreakdown{Sport: sport, Count: a.count, Amount: a.amount}
		if withMembers {
			b.UniqueMembers = len(a.members)
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sport < out[j].Sport })
	return out
}

// SummarizeMemberPayments aggregates the Paid payments of one member.
func SummarizeMemberPayments(memberID string, payments []models.Payment) models.MemberPaymentSummary {
	paid := paidOnly(payments)
	summary := models.MemberPaymentSummary{
		MemberID:    memberID,
		Count:       len(paid),
		TotalAmount: decimal.Zero,
		BySport:     breakdownBySport(paid, false),
		Payments:    paid,
	}
	for i := range paid {
		summary.TotalAmount = summary.TotalAmount.Add(paid[i].Amount)
		if summary.MostRecent == nil || laterPayment(paid[i], *summary.MostRecent) {
			p := paid[i]
			summary.MostRecent = &p
		}
	}
	if p, _ := furthestPeriodEnd(paid); p != nil {
		renewal := *p
		summary.UpcomingRenewal = &renewal
	}
	return summary
}

// SummarizePayments aggregates Paid payments over all members.
func SummarizePayments(payments []models.Payment) models.PaymentSummary {
	paid := paidOnly(payments)
	summary := models.PaymentSummary{
		Count:       len(paid),
		TotalAmount: decimal.Zero,
		BySport:     breakdownBySport(paid, true),
		ByMonth:     []models.MonthBreakdown{},
	}
	members := map[string]struct{}{}
	months := map[string]*models.MonthBreakdown{}
	for i := range paid {
		p := paid[i]
		summary.TotalAmount = summary.TotalAmount.Add(p.Amount)
		members[p.MemberID] = struct{}{}
		if summary.MostRecent == nil || laterPayment(p, *summary.MostRecent) {
			mr := p
			summary.MostRecent = &mr
		}
		d, err := utils.ParseDate(p.Date)
		if err != nil {
			continue
		}
		key := d.Format("2006-01")
		m, ok := months[key]
		if !ok {
			m = &models.MonthBreakdown{Month: key, Amount: decimal.Zero}
			months[key] = m
		}
		m.Count++
		m.Amount = m.Amount.Add(p.Amount)
	}
	summary.UniqueMembers = len(members)
	for _, m := range months {
		summary.ByMonth = append(summary.ByMonth, *m)
	}
	sort.Slice(summary.ByMonth, func(i, j int) bool { return summary.ByMonth[i].Month < summary.ByMonth[j].Month })
	return summary
}

// PaymentStatusReport classifies every active member for every sport they are
// enrolled in. Members without enrolled sports get one entry over all their
// payments with an empty sport.
func PaymentStatusReport(members []models.Member, payments []models.Payment, today time.Time, latePaymentDays int) []models.PaymentStatusEntry {
	byMember := map[string][]models.Payment{}
	for _, p := range paidOnly(payments) {
		byMember[p.MemberID] = append(byMember[p.MemberID], p)
	}
	today = utils.TruncateDay(today)

	report := []models.PaymentStatusEntry{}
	for _, m := range members {
		if !m.IsActive() {
			continue
		}
		sports := m.Sports
		if len(sports) == 0 {
			sports = []string{""}
		}
		for _, sport := range sports {
			var candidates []models.Payment
			for _, p := range byMember[m.ID] {
				if sport == "" || strings.EqualFold(sportLabel(p.Sport), sportLabel(sport)) {
					candidates = append(candidates, p)
				}
			}
			entry := models.PaymentStatusEntry{
				MemberID:   m.ID,
				MemberName: m.FullName(),
				Phone:      m.Phone,
				Sport:      sport,
			}
			latest, end := furthestPeriodEnd(candidates)
			switch {
			case len(candidates) == 0:
				entry.Status = models.PaymentStateNeverPaid
			case latest == nil:
				entry.Status = models.PaymentStateNoSubscription
			default:
				entry.LastPaymentID = latest.ID
				entry.PeriodEnd = utils.NewNullString(utils.FormatDate(end))
				overdue := int(today.Sub(end).Hours() / 24)
				switch {
				case overdue < 0:
					entry.Status = models.PaymentStateCurrent
				case overdue <= latePaymentDays:
					entry.Status = models.PaymentStateDue
					entry.DaysOverdue = overdue
				default:
					entry.Status = models.PaymentStateOverdue
					entry.DaysOverdue = overdue
				}
			}
			report = append(report, entry)
		}
	}
	sort.SliceStable(report, func(i, j int) bool {
		if c := utils.CompareIDs(report[i].MemberID, report[j].MemberID); c != 0 {
			return c < 0
		}
		return report[i].Sport < report[j].Sport
	})
	return report
}
