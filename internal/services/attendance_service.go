package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"sports_club_backend/internal/models"
	"sports_club_backend/internal/repositories"
	"sports_club_backend/pkg/utils"
)

// --- Attendance DTOs ---
type RecordAttendanceRequest struct {
	MemberID     string `json:"memberId" validate:"required"`
	Date         string `json:"date" validate:"required"`
	CheckInTime  string `json:"checkInTime"`
	CheckOutTime string `json:"checkOutTime"`
	Duration     *int   `json:"duration" validate:"omitempty,gte=0"`
	Notes        string `json:"notes"`
}

type BulkAttendanceRequest struct {
	Records []RecordAttendanceRequest `json:"records"`
}

// AttendanceFilter narrows getAttendance. Empty fields do not filter.
type AttendanceFilter struct {
	SinceID   string `json:"sinceId"`
	MemberID  string `json:"memberId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// --- AttendanceService Interface ---
type AttendanceService interface {
	RecordAttendance(ctx context.Context, rc *RequestContext, req RecordAttendanceRequest) (string, error)
	RecordBulkAttendance(ctx context.Context, rc *RequestContext, req BulkAttendanceRequest) (*models.BulkAttendanceResult, error)
	GetAttendance(rc *RequestContext, filter AttendanceFilter) ([]models.Attendance, error)
}

type attendanceService struct {
	gate     *WriteGate
	settings SettingService
}

// NewAttendanceService creates a new AttendanceService.
func NewAttendanceService(gate *WriteGate, settings SettingService) AttendanceService {
	return &attendanceService{gate: gate, settings: settings}
}

// DurationMinutes returns the whole minutes between check-in and check-out,
// rounded. A check-out before check-in is taken to be past midnight.
func DurationMinutes(checkIn, checkOut string) (int, bool) {
	in, err := utils.ParseClock(checkIn)
	if err != nil {
		return 0, false
	}
	out, err := utils.ParseClock(checkOut)
	if err != nil {
		return 0, false
	}
	if out < in {
		out += 24 * time.Hour
	}
	return int(math.Round((out - in).Minutes())), true
}

// MembershipSnapshot derives the status frozen onto an attendance row.
// member nil means the reference could not be resolved.
func MembershipSnapshot(member *models.Member, date time.Time) (string, *int) {
	if member == nil {
		return models.MembershipUnknown, nil
	}
	expired := -1
	if member.ExpiryDate == nil {
		return models.MembershipExpired, &expired
	}
	expiry, err := utils.ParseDate(*member.ExpiryDate)
	if err != nil {
		return models.MembershipExpired, &expired
	}
	days := int(math.Ceil(expiry.Sub(utils.TruncateDay(date)).Hours() / 24))
	if days > 0 {
		return models.MembershipActive, &days
	}
	return models.MembershipExpired, &days
}

func (s *attendanceService) buildAttendance(members repositories.MemberRepository, req RecordAttendanceRequest) (*models.Attendance, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	date, err := utils.ParseDate(req.Date)
	if err != nil {
		return nil, ErrDateFormat
	}
	a := &models.Attendance{
		MemberID:     strings.TrimSpace(req.MemberID),
		Date:         utils.FormatDate(date),
		CheckInTime:  strings.TrimSpace(req.CheckInTime),
		CheckOutTime: strings.TrimSpace(req.CheckOutTime),
		Notes:        req.Notes,
	}
	if req.Duration != nil {
		a.Duration = *req.Duration
	} else if d, ok := DurationMinutes(a.CheckInTime, a.CheckOutTime); ok {
		a.Duration = d
	}

	member, err := members.GetMemberByID(a.MemberID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("looking up member %s: %w", a.MemberID, err)
	}
	a.MembershipStatus, a.DaysToExpiry = MembershipSnapshot(member, date)
	return a, nil
}

// RecordAttendance validates and appends one attendance row and returns its id.
func (s *attendanceService) RecordAttendance(ctx context.Context, rc *RequestContext, req RecordAttendanceRequest) (string, error) {
	var id string
	err := s.gate.Do(ctx, func() error {
		a, err := s.buildAttendance(repositories.NewMemberRepository(rc.Store), req)
		if err != nil {
			return err
		}
		id, err = repositories.NewAttendanceRepository(rc.Store).CreateAttendance(a)
		if err != nil {
			return err
		}
		s.settings.Touch(rc.Store, "Attendance")
		return nil
	})
	return id, err
}

// RecordBulkAttendance records every entry independently under one gate hold.
// A failing entry is reported in its result and does not stop the others.
func (s *attendanceService) RecordBulkAttendance(ctx context.Context, rc *RequestContext, req BulkAttendanceRequest) (*models.BulkAttendanceResult, error) {
	if len(req.Records) == 0 {
		return nil, validationErrorf("records must contain at least one attendance entry")
	}
	result := &models.BulkAttendanceResult{Results: make([]models.BulkAttendanceItem, 0, len(req.Records))}
	err := s.gate.Do(ctx, func() error {
		members := repositories.NewMemberRepository(rc.Store)
		attendance := repositories.NewAttendanceRepository(rc.Store)
		for i, item := range req.Records {
			a, err := s.buildAttendance(members, item)
			if err == nil {
				_, err = attendance.CreateAttendance(a)
			}
			if err != nil {
				result.FailureCount++
				result.Results = append(result.Results, models.BulkAttendanceItem{Success: false, Index: i, Error: bulkItemMessage(err)})
				continue
			}
			result.SuccessCount++
			result.Results = append(result.Results, models.BulkAttendanceItem{Success: true, Index: i, AttendanceID: a.ID})
		}
		if result.SuccessCount > 0 {
			s.settings.Touch(rc.Store, "Attendance")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// bulkItemMessage shows validation messages as is and hides storage detail.
func bulkItemMessage(err error) string {
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) {
		return err.Error()
	}
	utils.LogError(err, "Bulk attendance entry failed")
	return utils.MsgInternalError
}

func (s *attendanceService) GetAttendance(rc *RequestContext, filter AttendanceFilter) ([]models.Attendance, error) {
	from, to, err := parseRange(filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, err
	}
	all, err := repositories.NewAttendanceRepository(rc.Store).GetAttendance()
	if err != nil {
		return nil, err
	}
	out := make([]models.Attendance, 0, len(all))
	for _, a := range all {
		if filter.SinceID != "" && utils.CompareIDs(a.ID, filter.SinceID) <= 0 {
			continue
		}
		if filter.MemberID != "" && a.MemberID != strings.TrimSpace(filter.MemberID) {
			continue
		}
		if !inRange(a.Date, from, to) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return utils.CompareIDs(out[i].ID, out[j].ID) < 0 })
	return out, nil
}

// parseRange parses optional inclusive date bounds.
func parseRange(start, end string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if strings.TrimSpace(start) != "" {
		t, err := utils.ParseDate(start)
		if err != nil {
			return nil, nil, ErrDateFormat
		}
		from = &t
	}
	if strings.TrimSpace(end) != "" {
		t, err := utils.ParseDate(end)
		if err != nil {
			return nil, nil, ErrDateFormat
		}
		to = &t
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, validationErrorf("endDate must not be before startDate")
	}
	return from, to, nil
}

// inRange reports whether date lies within the optional bounds. Unparsable
// dates only pass when there are no bounds.
func inRange(date string, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	d, err := utils.ParseDate(date)
	if err != nil {
		return false
	}
	if from != nil && d.Before(*from) {
		return false
	}
	if to != nil && d.After(*to) {
		return false
	}
	return true
}
