package handlers

import (
	"github.com/gin-gonic/gin"

	"sports_club_backend/internal/services"
)

// ClubHandler holds the sports club and dashboard services.
type ClubHandler struct {
	clubService      services.ClubService
	dashboardService services.DashboardService
}

// NewClubHandler creates a new ClubHandler.
func NewClubHandler(cs services.ClubService, ds services.DashboardService) *ClubHandler {
	return &ClubHandler{clubService: cs, dashboardService: ds}
}

func (h *ClubHandler) Register(d *Dispatcher) {
	d.Register("getSportsClubs", Action{Fn: h.GetSportsClubs, Global: true})
	d.Register("getSportsClub", Action{Fn: h.GetSportsClub, Global: true})
	d.Register("addSportsClub", Action{Fn: h.AddSportsClub, Global: true, Mutating: true})
	d.Register("updateSportsClub", Action{Fn: h.UpdateSportsClub, Global: true, Mutating: true})
	d.Register("getDashboard", Action{Fn: h.GetDashboard})
}

func (h *ClubHandler) GetSportsClubs(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	return h.clubService.GetSportsClubs(c.Request.Context(), rc)
}

func (h *ClubHandler) GetSportsClub(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	return h.clubService.GetSportsClub(c.Request.Context(), rc, p.Param("id", "clubId"))
}

func (h *ClubHandler) AddSportsClub(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	var req services.AddSportsClubRequest
	if err := p.Bind(&req); err != nil {
		return nil, err
	}
	return h.clubService.AddSportsClub(c.Request.Context(), rc, req)
}

func (h *ClubHandler) UpdateSportsClub(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	var req services.UpdateSportsClubRequest
	if err := p.Bind(&req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = p.Param("clubId")
	}
	return h.clubService.UpdateSportsClub(c.Request.Context(), rc, req)
}

func (h *ClubHandler) GetDashboard(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	return h.dashboardService.GetDashboard(rc)
}
