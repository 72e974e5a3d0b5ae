package models

const (
	MembershipActive  = "active"
	MembershipExpired = "expired"
	MembershipUnknown = "unknown"
)

// Attendance is a single check-in of a member.
// MembershipStatus and DaysToExpiry are snapshots taken when the row is written
// and are never recomputed from the member's current state.
type Attendance struct {
	ID               string `json:"id"`
	MemberID         string `json:"memberId"`
	Date             string `json:"date"`
	CheckInTime      string `json:"checkInTime"`
	CheckOutTime     string `json:"checkOutTime"`
	Duration         int    `json:"duration"` // minutes
	MembershipStatus string `json:"membershipStatus"`
	DaysToExpiry     *int   `json:"daysToExpiry"`
	Notes            string `json:"notes"`

	MemberName string `json:"memberName,omitempty"` // display only, filled in by the client cache
}

// BulkAttendanceItem is the outcome of one entry of a bulk attendance call.
type BulkAttendanceItem struct {
	Success      bool   `json:"success"`
	Index        int    `json:"index"`
	AttendanceID string `json:"attendanceId,omitempty"`
	Error        string `json:"error,omitempty"`
}

// BulkAttendanceResult summarizes a bulk attendance call in input order.
type BulkAttendanceResult struct {
	SuccessCount int                  `json:"successCount"`
	FailureCount int                  `json:"failureCount"`
	Results      []BulkAttendanceItem `json:"results"`
}
