package handlers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"sports_club_backend/internal/services"
)

// SettingHandler holds the setting service.
type SettingHandler struct {
	settingService services.SettingService
}

// NewSettingHandler creates a new SettingHandler.
func NewSettingHandler(ss services.SettingService) *SettingHandler {
	return &SettingHandler{settingService: ss}
}

func (h *SettingHandler) Register(d *Dispatcher) {
	d.Register("getSettings", Action{Fn: h.GetSettings})
	d.Register("updateSettings", Action{Fn: h.UpdateSettings, Mutating: true})
}

func (h *SettingHandler) GetSettings(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	return h.settingService.GetSettings(rc)
}

// UpdateSettings accepts {"key": k, "value": v}, {"settings": {k: v}} or a
// flat object of keys and values.
func (h *SettingHandler) UpdateSettings(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	values, err := settingValues(p)
	if err != nil {
		return nil, err
	}
	return h.settingService.UpdateSettings(c.Request.Context(), rc, values)
}

func settingValues(p Payload) (map[string]string, error) {
	var shaped struct {
		Key      *string                    `json:"key"`
		Value    json.RawMessage            `json:"value"`
		Settings map[string]json.RawMessage `json:"settings"`
	}
	if err := p.Bind(&shaped); err != nil {
		return nil, err
	}
	switch {
	case shaped.Key != nil:
		v, err := settingValue(shaped.Value)
		if err != nil {
			return nil, err
		}
		return map[string]string{*shaped.Key: v}, nil
	case shaped.Settings != nil:
		return settingMap(shaped.Settings)
	}
	var flat map[string]json.RawMessage
	if err := p.Bind(&flat); err != nil {
		return nil, err
	}
	return settingMap(flat)
}

func settingMap(raw map[string]json.RawMessage) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if reservedParams[k] {
			continue
		}
		s, err := settingValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: setting %q", err, k)
		}
		out[k] = s
	}
	return out, nil
}

// settingValue accepts strings, numbers and booleans.
func settingValue(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return "", fmt.Errorf("%w: setting values must be text, numbers or booleans", services.ErrInvalidPayload)
	}
	return trimmed, nil
}
