package handlers

import (
	"github.com/gin-gonic/gin"

	"sports_club_backend/internal/services"
)

// SportHandler holds the sport service.
type SportHandler struct {
	sportService services.SportService
}

// NewSportHandler creates a new SportHandler.
func NewSportHandler(ss services.SportService) *SportHandler {
	return &SportHandler{sportService: ss}
}

func (h *SportHandler) Register(d *Dispatcher) {
	d.Register("getSports", Action{Fn: h.GetSports})
	d.Register("addSport", Action{Fn: h.AddSport, Mutating: true})
	d.Register("updateSport", Action{Fn: h.UpdateSport, Mutating: true})
}

func (h *SportHandler) GetSports(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	return h.sportService.GetSports(rc)
}

func (h *SportHandler) AddSport(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	var req services.AddSportRequest
	if err := p.Bind(&req); err != nil {
		return nil, err
	}
	return h.sportService.AddSport(c.Request.Context(), rc, req)
}

func (h *SportHandler) UpdateSport(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	var req services.UpdateSportRequest
	if err := p.Bind(&req); err != nil {
		return nil, err
	}
	return h.sportService.UpdateSport(c.Request.Context(), rc, req)
}
