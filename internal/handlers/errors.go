package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sports_club_backend/internal/metrics"
	"sports_club_backend/internal/services"
	"sports_club_backend/pkg/utils"
)

// ToAPIError maps a service error to the error half of the envelope.
// Validation and not-found messages are shown as is; auth failures get a
// generic message; anything unexpected becomes a plain 500.
func ToAPIError(err error) *utils.APIError {
	var apiErr *utils.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, services.ErrValidation):
		return utils.NewAPIError(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		return utils.NewAPIError(http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrMissingToken):
		return utils.NewAPIError(http.StatusUnauthorized, utils.MsgMissingToken)
	case errors.Is(err, services.ErrUnauthorized):
		return utils.NewAPIError(http.StatusUnauthorized, utils.MsgUnauthorized)
	case errors.Is(err, services.ErrReadOnlyAccess), errors.Is(err, services.ErrNotClubOwner):
		return utils.NewAPIError(http.StatusForbidden, capitalize(err.Error()))
	case errors.Is(err, services.ErrForbidden):
		return utils.NewAPIError(http.StatusForbidden, utils.MsgForbidden)
	case errors.Is(err, services.ErrBusy):
		return utils.NewAPIError(http.StatusServiceUnavailable, utils.MsgBusy)
	}
	return utils.NewAPIError(http.StatusInternalServerError, utils.MsgInternalError)
}

// RespondError logs err, counts it and writes the error envelope.
func RespondError(c *gin.Context, err error) {
	apiErr := ToAPIError(err)
	action := c.GetString(ContextKeyAction)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		utils.LogError(err, "Action failed", map[string]interface{}{"action": action, "request_id": c.GetString("requestID")})
	} else {
		utils.LogDebug("Action rejected", map[string]interface{}{"action": action, "error": err.Error()})
	}
	countAction(action, apiErr.StatusCode)
	utils.RespondWithError(c, apiErr)
}

func countAction(action string, code int) {
	if action == "" {
		action = "none"
	}
	metrics.ActionsTotal.WithLabelValues(action, strconv.Itoa(code)).Inc()
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
