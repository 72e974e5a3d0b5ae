package repositories

import (
	"fmt"
	"strconv"

	"sports_club_backend/internal/models"
)

// SheetAttendance is the name of the attendance sheet.
const SheetAttendance = "Attendance"

var attendanceColumns = []string{
	"ID", "Member ID", "Date", "Check In Time", "Check Out Time", "Duration",
	"Membership Status", "Days To Expiry", "Notes",
}

// AttendanceRepository defines the storage operations for attendance rows.
type AttendanceRepository interface {
	EnsureSchema() error
	CreateAttendance(a *models.Attendance) (string, error)
	GetAttendance() ([]models.Attendance, error)
}

type attendanceRepository struct {
	table *Table[models.Attendance]
}

// NewAttendanceRepository creates an AttendanceRepository on top of a club store.
func NewAttendanceRepository(store TabularStore) AttendanceRepository {
	return &attendanceRepository{table: newTable(store, SheetAttendance, attendanceColumns, "ID", encodeAttendance, decodeAttendance)}
}

func encodeAttendance(a models.Attendance) Row {
	days := ""
	if a.DaysToExpiry != nil {
		days = strconv.Itoa(*a.DaysToExpiry)
	}
	return Row{
		"ID":                a.ID,
		"Member ID":         a.MemberID,
		"Date":              a.Date,
		"Check In Time":     a.CheckInTime,
		"Check Out Time":    a.CheckOutTime,
		"Duration":          strconv.Itoa(a.Duration),
		"Membership Status": a.MembershipStatus,
		"Days To Expiry":    days,
		"Notes":             a.Notes,
	}
}

func decodeAttendance(r Row) (models.Attendance, error) {
	a := models.Attendance{
		ID:               r["ID"],
		MemberID:         r["Member ID"],
		Date:             normalizeDateCell(r["Date"]),
		CheckInTime:      r["Check In Time"],
		CheckOutTime:     r["Check Out Time"],
		MembershipStatus: r["Membership Status"],
		Notes:            r["Notes"],
	}
	if s := r["Duration"]; s != "" {
		d, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return a, fmt.Errorf("invalid duration %q", s)
		}
		a.Duration = int(d)
	}
	if s := r["Days To Expiry"]; s != "" {
		d, err := strconv.Atoi(s)
		if err != nil {
			return a, fmt.Errorf("invalid days to expiry %q", s)
		}
		a.DaysToExpiry = &d
	}
	return a, nil
}

func (r *attendanceRepository) EnsureSchema() error {
	return r.table.Ensure()
}

func (r *attendanceRepository) CreateAttendance(a *models.Attendance) (string, error) {
	id, err := r.table.NextID()
	if err != nil {
		return "", fmt.Errorf("allocating attendance id: %w", err)
	}
	a.ID = id
	if err := r.table.Append(*a); err != nil {
		return "", fmt.Errorf("creating attendance: %w", err)
	}
	return id, nil
}

func (r *attendanceRepository) GetAttendance() ([]models.Attendance, error) {
	return r.table.All()
}
