package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"sports_club_backend/internal/models"
)

func TestMembershipSnapshot(t *testing.T) {
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		member     *models.Member
		wantStatus string
		wantDays   *int
	}{
		{"future expiry", &models.Member{ExpiryDate: strPtr("2025-02-01")}, models.MembershipActive, intPtr(17)},
		{"expires tomorrow", &models.Member{ExpiryDate: strPtr("2025-01-16")}, models.MembershipActive, intPtr(1)},
		{"expires today", &models.Member{ExpiryDate: strPtr("2025-01-15")}, models.MembershipExpired, intPtr(0)},
		{"past expiry", &models.Member{ExpiryDate: strPtr("2025-01-10")}, models.MembershipExpired, intPtr(-5)},
		{"no expiry", &models.Member{}, models.MembershipExpired, intPtr(-1)},
		{"unparsable expiry", &models.Member{ExpiryDate: strPtr("soon")}, models.MembershipExpired, intPtr(-1)},
		{"unknown member", nil, models.MembershipUnknown, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, days := MembershipSnapshot(tt.member, day)
			if status != tt.wantStatus {
				t.Errorf("expected status %q, got %q", tt.wantStatus, status)
			}
			switch {
			case tt.wantDays == nil && days != nil:
				t.Errorf("expected nil days, got %d", *days)
			case tt.wantDays != nil && days == nil:
				t.Errorf("expected %d days, got nil", *tt.wantDays)
			case tt.wantDays != nil && *days != *tt.wantDays:
				t.Errorf("expected %d days, got %d", *tt.wantDays, *days)
			}
		})
	}
}

func intPtr(n int) *int { return &n }

func TestDurationMinutes(t *testing.T) {
	tests := []struct {
		in, out string
		want    int
		ok      bool
	}{
		{"09:00", "10:30", 90, true},
		{"6:00 PM", "7:15 PM", 75, true},
		{"23:30", "00:15", 45, true},
		{"09:00", "", 0, false},
		{"late", "10:00", 0, false},
	}
	for _, tt := range tests {
		got, ok := DurationMinutes(tt.in, tt.out)
		if ok != tt.ok || got != tt.want {
			t.Errorf("DurationMinutes(%q, %q) = %d, %v; want %d, %v", tt.in, tt.out, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRecordAttendance(t *testing.T) {
	ctx := context.Background()

	t.Run("freezes the membership snapshot", func(t *testing.T) {
		ts := newTestServices(t, "2025-01-15")
		_, err := ts.members.AddMember(ctx, ts.rc, AddMemberRequest{FirstName: "Ann", Phone: "1", ExpiryDate: "2025-02-01"})
		if err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}
		id, err := ts.attendance.RecordAttendance(ctx, ts.rc, RecordAttendanceRequest{
			MemberID: "1", Date: "2025-01-15", CheckInTime: "09:00", CheckOutTime: "10:30",
		})
		if err != nil {
			t.Fatalf("RecordAttendance failed: %v", err)
		}
		if id != "1" {
			t.Errorf("expected id 1, got %q", id)
		}

		// A later change to the member must not rewrite the stored snapshot.
		if _, err := ts.members.UpdateMember(ctx, ts.rc, UpdateMemberRequest{ID: "1", ExpiryDate: strPtr("2024-12-31")}); err != nil {
			t.Fatalf("UpdateMember failed: %v", err)
		}

		rows, err := ts.attendance.GetAttendance(ts.rc, AttendanceFilter{})
		if err != nil {
			t.Fatalf("GetAttendance failed: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 row, got %d", len(rows))
		}
		a := rows[0]
		if a.MembershipStatus != models.MembershipActive {
			t.Errorf("expected active, got %q", a.MembershipStatus)
		}
		if a.DaysToExpiry == nil || *a.DaysToExpiry != 17 {
			t.Errorf("expected 17 days to expiry, got %v", a.DaysToExpiry)
		}
		if a.Duration != 90 {
			t.Errorf("expected duration 90, got %d", a.Duration)
		}
	})

	t.Run("records unknown members", func(t *testing.T) {
		ts := newTestServices(t, "2025-01-15")
		if _, err := ts.attendance.RecordAttendance(ctx, ts.rc, RecordAttendanceRequest{MemberID: "77", Date: "2025-01-15"}); err != nil {
			t.Fatalf("RecordAttendance failed: %v", err)
		}
		rows, err := ts.attendance.GetAttendance(ts.rc, AttendanceFilter{})
		if err != nil {
			t.Fatalf("GetAttendance failed: %v", err)
		}
		if len(rows) != 1 || rows[0].MembershipStatus != models.MembershipUnknown || rows[0].DaysToExpiry != nil {
			t.Errorf("expected one unknown row without days, got %+v", rows)
		}
	})

	t.Run("explicit duration wins", func(t *testing.T) {
		ts := newTestServices(t, "2025-01-15")
		_, err := ts.attendance.RecordAttendance(ctx, ts.rc, RecordAttendanceRequest{
			MemberID: "1", Date: "2025-01-15", CheckInTime: "09:00", CheckOutTime: "10:00", Duration: intPtr(30),
		})
		if err != nil {
			t.Fatalf("RecordAttendance failed: %v", err)
		}
		rows, _ := ts.attendance.GetAttendance(ts.rc, AttendanceFilter{})
		if len(rows) != 1 || rows[0].Duration != 30 {
			t.Errorf("expected duration 30, got %+v", rows)
		}
	})

	t.Run("rejects a bad date", func(t *testing.T) {
		ts := newTestServices(t, "2025-01-15")
		_, err := ts.attendance.RecordAttendance(ctx, ts.rc, RecordAttendanceRequest{MemberID: "1", Date: "yesterday"})
		if !errors.Is(err, ErrDateFormat) {
			t.Fatalf("expected ErrDateFormat, got %v", err)
		}
	})
}

func TestRecordBulkAttendance(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t, "2025-01-15")
	ts.addMember(t, "Ann", "1")

	result, err := ts.attendance.RecordBulkAttendance(ctx, ts.rc, BulkAttendanceRequest{Records: []RecordAttendanceRequest{
		{MemberID: "1", Date: "2025-01-15"},
		{MemberID: "1"},
		{MemberID: "1", Date: "2025-01-16"},
		{MemberID: "1", Date: "not a date"},
	}})
	if err != nil {
		t.Fatalf("RecordBulkAttendance failed: %v", err)
	}
	if result.SuccessCount != 2 || result.FailureCount != 2 {
		t.Fatalf("expected 2 successes and 2 failures, got %d/%d", result.SuccessCount, result.FailureCount)
	}
	if len(result.Results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(result.Results))
	}
	for i, r := range result.Results {
		if r.Index != i {
			t.Errorf("result %d carries index %d", i, r.Index)
		}
	}
	if !result.Results[0].Success || result.Results[0].AttendanceID != "1" {
		t.Errorf("unexpected first result %+v", result.Results[0])
	}
	if result.Results[1].Success || result.Results[1].Error != "date is required" {
		t.Errorf("unexpected second result %+v", result.Results[1])
	}
	if !result.Results[2].Success || result.Results[2].AttendanceID != "2" {
		t.Errorf("unexpected third result %+v", result.Results[2])
	}
	if result.Results[3].Success || result.Results[3].Error != ErrDateFormat.Error() {
		t.Errorf("unexpected fourth result %+v", result.Results[3])
	}

	rows, err := ts.attendance.GetAttendance(ts.rc, AttendanceFilter{})
	if err != nil {
		t.Fatalf("GetAttendance failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 stored rows, got %d", len(rows))
	}

	t.Run("empty batch", func(t *testing.T) {
		if _, err := ts.attendance.RecordBulkAttendance(ctx, ts.rc, BulkAttendanceRequest{}); !errors.Is(err, ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestGetAttendanceFilters(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t, "2025-01-31")
	for _, req := range []RecordAttendanceRequest{
		{MemberID: "1", Date: "2025-01-10"},
		{MemberID: "2", Date: "2025-01-12"},
		{MemberID: "1", Date: "2025-01-20"},
	} {
		if _, err := ts.attendance.RecordAttendance(ctx, ts.rc, req); err != nil {
			t.Fatalf("RecordAttendance failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter AttendanceFilter
		want   int
	}{
		{"all", AttendanceFilter{}, 3},
		{"since id", AttendanceFilter{SinceID: "2"}, 1},
		{"member", AttendanceFilter{MemberID: "1"}, 2},
		{"date range", AttendanceFilter{StartDate: "2025-01-11", EndDate: "2025-01-20"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ts.attendance.GetAttendance(ts.rc, tt.filter)
			if err != nil {
				t.Fatalf("GetAttendance failed: %v", err)
			}
			if len(rows) != tt.want {
				t.Errorf("expected %d rows, got %d", tt.want, len(rows))
			}
		})
	}

	if _, err := ts.attendance.GetAttendance(ts.rc, AttendanceFilter{StartDate: "2025-02-01", EndDate: "2025-01-01"}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for an inverted range, got %v", err)
	}
}
