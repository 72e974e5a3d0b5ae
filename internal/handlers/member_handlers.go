package handlers

import (
	"github.com/gin-gonic/gin"

	"sports_club_backend/internal/services"
)

// MemberHandler holds the member service.
type MemberHandler struct {
	memberService services.MemberService
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(ms services.MemberService) *MemberHandler {
	return &MemberHandler{memberService: ms}
}

// Register adds the member actions to d.
func (h *MemberHandler) Register(d *Dispatcher) {
	d.Register("getMembers", Action{Fn: h.GetMembers})
	d.Register("getMember", Action{Fn: h.GetMember})
	d.Register("getMemberByPhoneNo", Action{Fn: h.GetMemberByPhone, Public: true})
	d.Register("addMember", Action{Fn: h.AddMember, Mutating: true})
	d.Register("updateMember", Action{Fn: h.UpdateMember, Mutating: true})
}

// GetMembers lists members, optionally only those after sinceId.
func (h *MemberHandler) GetMembers(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	return h.memberService.GetMembers(rc, services.MemberFilter{
		SinceID: p.Param("sinceId"),
		Status:  p.Param("status"),
		Sport:   p.Param("sport"),
	})
}

func (h *MemberHandler) GetMember(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	return h.memberService.GetMemberByID(rc, p.Param("id", "memberId"))
}

// GetMemberByPhone is the public self check-in lookup.
func (h *MemberHandler) GetMemberByPhone(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	return h.memberService.GetMemberByPhone(rc, p.Param("phone", "phoneNo", "phoneNumber"))
}

func (h *MemberHandler) AddMember(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	var req services.AddMemberRequest
	if err := p.Bind(&req); err != nil {
		return nil, err
	}
	return h.memberService.AddMember(c.Request.Context(), rc, req)
}

func (h *MemberHandler) UpdateMember(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	var req services.UpdateMemberRequest
	if err := p.Bind(&req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = p.Param("memberId")
	}
	return h.memberService.UpdateMember(c.Request.Context(), rc, req)
}
