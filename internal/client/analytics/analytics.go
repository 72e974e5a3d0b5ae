// Package analytics derives dashboard aggregates from cached club data.
// Every function is pure: the same input always gives the same output.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"sports_club_backend/internal/models"
	"sports_club_backend/pkg/utils"
)

// expiringSoon is the look-ahead for memberships about to expire.
const expiringSoon = 7

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type WeeklyCount struct {
	Week  string `json:"week"` // ISO week, e.g. 2025-W03
	Count int    `json:"count"`
}

type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// AttendanceStats aggregates attendance rows.
type AttendanceStats struct {
	Total           int           `json:"total"`
	UniqueMembers   int           `json:"uniqueMembers"`
	AverageDuration float64       `json:"averageDuration"` // minutes, rows with a duration only
	Daily           []DailyCount  `json:"daily"`
	Weekly          []WeeklyCount `json:"weekly"`
	PeakHours       []HourCount   `json:"peakHours"` // busiest first
	ThisWeek        int           `json:"thisWeek"`
	LastWeek        int           `json:"lastWeek"`
	WeekTrend       float64       `json:"weekTrend"` // percent
}

type MonthAmount struct {
	Month  string          `json:"month"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// PaymentStats aggregates Paid payments.
type PaymentStats struct {
	Count      int             `json:"count"`
	Total      decimal.Decimal `json:"total"`
	Monthly    []MonthAmount   `json:"monthly"`
	ThisMonth  decimal.Decimal `json:"thisMonth"`
	LastMonth  decimal.Decimal `json:"lastMonth"`
	MonthTrend float64         `json:"monthTrend"` // percent
}

// ExpenseStats aggregates expenses.
type ExpenseStats struct {
	Total      decimal.Decimal  `json:"total"`
	Monthly    []MonthAmount    `json:"monthly"`
	ThisMonth  decimal.Decimal  `json:"thisMonth"`
	ByCategory []CategoryAmount `json:"byCategory"`
}

type CategoryAmount struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Amount   decimal.Decimal `json:"amount"`
}

type MemberStats struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	Expired      int `json:"expired"`
	ExpiringSoon int `json:"expiringSoon"`
	NewThisMonth int `json:"newThisMonth"`
}

// Snapshot is everything the dashboard shows, computed as of one day.
type Snapshot struct {
	AsOf       string          `json:"asOf"`
	Members    MemberStats     `json:"members"`
	Attendance AttendanceStats `json:"attendance"`
	Payments   PaymentStats    `json:"payments"`
	Expenses   ExpenseStats    `json:"expenses"`
}

// Compute builds the full snapshot.
func Compute(members []models.Member, attendance []models.Attendance, payments []models.Payment, expenses []models.Expense, asOf time.Time) Snapshot {
	asOf = utils.TruncateDay(asOf)
	return Snapshot{
		AsOf:       utils.FormatDate(asOf),
		Members:    ComputeMembers(members, asOf),
		Attendance: ComputeAttendance(attendance, asOf),
		Payments:   ComputePayments(payments, asOf),
		Expenses:   ComputeExpenses(expenses, asOf),
	}
}

// Trend is the percent change from prev to cur. A zero prev gives 100 when
// cur grew and 0 otherwise.
func Trend(cur, prev float64) float64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	return math.Round((cur-prev)/prev*100*100) / 100
}

func isoWeek(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}

func ComputeAttendance(rows []models.Attendance, asOf time.Time) AttendanceStats {
	stats := AttendanceStats{Daily: []DailyCount{}, Weekly: []WeeklyCount{}, PeakHours: []HourCount{}}
	daily := map[string]int{}
	weekly := map[string]int{}
	hours := map[int]int{}
	members := map[string]struct{}{}
	durationSum, durationRows := 0, 0

	thisWeek := isoWeek(asOf)
	lastWeek := isoWeek(asOf.AddDate(0, 0, -7))

	for _, a := range rows {
		stats.Total++
		if a.MemberID != "" {
			members[a.MemberID] = struct{}{}
		}
		if a.Duration > 0 {
			durationSum += a.Duration
			durationRows++
		}
		if d, err := utils.ParseClock(a.CheckInTime); err == nil {
			hours[int(d.Hours())%24]++
		}
		date, err := utils.ParseDate(a.Date)
		if err != nil {
			continue
		}
		daily[utils.FormatDate(date)]++
		week := isoWeek(date)
		weekly[week]++
		switch week {
		case thisWeek:
			stats.ThisWeek++
		case lastWeek:
			stats.LastWeek++
		}
	}

	stats.UniqueMembers = len(members)
	if durationRows > 0 {
		stats.AverageDuration = math.Round(float64(durationSum)/float64(durationRows)*10) / 10
	}
	for d, n := range daily {
		stats.Daily = append(stats.Daily, DailyCount{Date: d, Count: n})
	}
	sort.Slice(stats.Daily, func(i, j int) bool { return stats.Daily[i].Date < stats.Daily[j].Date })
	for w, n := range weekly {
		stats.Weekly = append(stats.Weekly, WeeklyCount{Week: w, Count: n})
	}
	sort.Slice(stats.Weekly, func(i, j int) bool { return stats.Weekly[i].Week < stats.Weekly[j].Week })
	for h, n := range hours {
		stats.PeakHours = append(stats.PeakHours, HourCount{Hour: h, Count: n})
	}
	sort.Slice(stats.PeakHours, func(i, j int) bool {
		if stats.PeakHours[i].Count != stats.PeakHours[j].Count {
			return stats.PeakHours[i].Count > stats.PeakHours[j].Count
		}
		return stats.PeakHours[i].Hour < stats.PeakHours[j].Hour
	})
	stats.WeekTrend = Trend(float64(stats.ThisWeek), float64(stats.LastWeek))
	return stats
}

// monthly groups amounts by YYYY-MM of their date.
func monthly(dates []string, amounts []decimal.Decimal) []MonthAmount {
	acc := map[string]*MonthAmount{}
	for i, ds := range dates {
		d, err := utils.ParseDate(ds)
		if err != nil {
			continue
		}
		key := d.Format("2006-01")
		m, ok := acc[key]
		if !ok {
			m = &MonthAmount{Month: key, Amount: decimal.Zero}
			acc[key] = m
		}
		m.Count++
		m.Amount = m.Amount.Add(amounts[i])
	}
	out := make([]MonthAmount, 0, len(acc))
	for _, m := range acc {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func amountFor(months []MonthAmount, month string) decimal.Decimal {
	for _, m := range months {
		if m.Month == month {
			return m.Amount
		}
	}
	return decimal.Zero
}

func ComputePayments(payments []models.Payment, asOf time.Time) PaymentStats {
	stats := PaymentStats{Total: decimal.Zero}
	var dates []string
	var amounts []decimal.Decimal
	for _, p := range payments {
		if !p.IsPaid() {
			continue
		}
		stats.Count++
		stats.Total = stats.Total.Add(p.Amount)
		dates = append(dates, p.Date)
		amounts = append(amounts, p.Amount)
	}
	stats.Monthly = monthly(dates, amounts)
	stats.ThisMonth = amountFor(stats.Monthly, asOf.Format("2006-01"))
	stats.LastMonth = amountFor(stats.Monthly, asOf.AddDate(0, 0, -asOf.Day()).Format("2006-01"))
	stats.MonthTrend = Trend(stats.ThisMonth.InexactFloat64(), stats.LastMonth.InexactFloat64())
	return stats
}

func ComputeExpenses(expenses []models.Expense, asOf time.Time) ExpenseStats {
	stats := ExpenseStats{Total: decimal.Zero, ByCategory: []CategoryAmount{}}
	dates := make([]string, 0, len(expenses))
	amounts := make([]decimal.Decimal, 0, len(expenses))
	categories := map[string]*CategoryAmount{}
	for _, e := range expenses {
		stats.Total = stats.Total.Add(e.Amount)
		dates = append(dates, e.Date)
		amounts = append(amounts, e.Amount)
		c, ok := categories[e.Category]
		if !ok {
			c = &CategoryAmount{Category: e.Category, Amount: decimal.Zero}
			categories[e.Category] = c
		}
		c.Count++
		c.Amount = c.Amount.Add(e.Amount)
	}
	stats.Monthly = monthly(dates, amounts)
	stats.ThisMonth = amountFor(stats.Monthly, asOf.Format("2006-01"))
	for _, c := range categories {
		stats.ByCategory = append(stats.ByCategory, *c)
	}
	sort.Slice(stats.ByCategory, func(i, j int) bool { return stats.ByCategory[i].Category < stats.ByCategory[j].Category })
	return stats
}

func ComputeMembers(members []models.Member, asOf time.Time) MemberStats {
	stats := MemberStats{Total: len(members)}
	month := asOf.Format("2006-01")
	for _, m := range members {
		if joined, err := utils.ParseDate(m.JoinDate); err == nil && joined.Format("2006-01") == month {
			stats.NewThisMonth++
		}
		if !m.IsActive() {
			continue
		}
		expiry, err := utils.ParseDate(utils.StringValue(m.ExpiryDate))
		if err != nil || !expiry.After(asOf) {
			stats.Expired++
			continue
		}
		stats.Active++
		if expiry.Sub(asOf) <= expiringSoon*24*time.Hour {
			stats.ExpiringSoon++
		}
	}
	return stats
}
