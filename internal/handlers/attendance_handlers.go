package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"

	"sports_club_backend/internal/services"
)

// AttendanceHandler holds the attendance service.
type AttendanceHandler struct {
	attendanceService services.AttendanceService
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(as services.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceService: as}
}

// Register adds the attendance actions to d.
func (h *AttendanceHandler) Register(d *Dispatcher) {
	d.Register("getAttendance", Action{Fn: h.GetAttendance})
	d.Register("recordAttendance", Action{Fn: h.RecordAttendance, Mutating: true})
	d.Register("recordBulkAttendance", Action{Fn: h.RecordBulkAttendance, Mutating: true})
}

func (h *AttendanceHandler) GetAttendance(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	return h.attendanceService.GetAttendance(rc, services.AttendanceFilter{
		SinceID:   p.Param("sinceId"),
		MemberID:  p.Param("memberId"),
		StartDate: p.Param("startDate"),
		EndDate:   p.Param("endDate"),
	})
}

// RecordAttendance returns the new attendance id.
func (h *AttendanceHandler) RecordAttendance(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	var req services.RecordAttendanceRequest
	if err := p.Bind(&req); err != nil {
		return nil, err
	}
	return h.attendanceService.RecordAttendance(c.Request.Context(), rc, req)
}

// RecordBulkAttendance takes the entries from "records", or "attendance" as an alias.
func (h *AttendanceHandler) RecordBulkAttendance(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	var req services.BulkAttendanceRequest
	if err := p.Bind(&req); err != nil {
		return nil, err
	}
	if len(req.Records) == 0 {
		if raw := p.Param("records", "attendance"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Records); err != nil {
				return nil, fmt.Errorf("%w: records must be a JSON array", services.ErrInvalidPayload)
			}
		}
	}
	return h.attendanceService.RecordBulkAttendance(c.Request.Context(), rc, req)
}
