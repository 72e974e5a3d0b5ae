package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"sports_club_backend/internal/handlers"
	"sports_club_backend/internal/services"
)

// BearerToken extracts the token from the Authorization header or the
// access_token parameter.
func BearerToken(c *gin.Context) string {
	if h := strings.TrimSpace(c.GetHeader("Authorization")); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if t := c.Query("access_token"); t != "" {
		return strings.TrimSpace(t)
	}
	return strings.TrimSpace(c.PostForm("access_token"))
}

// AuthGate admits a request to the dispatcher. In order it checks that the
// action exists, that a bearer token is present, resolves the club store,
// validates the token (or the club API token for public actions) and checks
// the caller's access to the club. On success the request context and
// payload are stored on c.
func AuthGate(d *handlers.Dispatcher, auth services.AuthService, clubs services.ClubService, settings services.SettingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := handlers.ReadPayload(c)
		if err != nil {
			handlers.RespondError(c, err)
			return
		}
		name := firstNonEmpty(c.Query("action"), c.PostForm("action"), payload.Param("action"))
		action, ok := d.Lookup(name)
		if !ok {
			handlers.RespondError(c, handlers.UnknownAction(name))
			return
		}
		c.Set(handlers.ContextKeyAction, name)
		c.Set(handlers.ContextKeyPayload, payload)

		token := BearerToken(c)
		if token == "" {
			handlers.RespondError(c, services.ErrMissingToken)
			return
		}
		ctx := c.Request.Context()

		if action.Global {
			identity, err := auth.ValidateToken(ctx, token)
			if err != nil {
				handlers.RespondError(c, err)
				return
			}
			c.Set(handlers.ContextKeyRequestContext, &services.RequestContext{UserEmail: identity.Email})
			c.Next()
			return
		}

		clubID := firstNonEmpty(c.Query("sportsClubId"), c.PostForm("sportsClubId"), payload.Param("sportsClubId"))
		store, club, err := clubs.ResolveStore(ctx, clubID)
		if err != nil {
			handlers.RespondError(c, err)
			return
		}
		rc := &services.RequestContext{Store: store, ClubID: club.ID}

		if action.Public {
			if err := settings.VerifyAPIToken(store, token); err != nil {
				handlers.RespondError(c, err)
				return
			}
			c.Set(handlers.ContextKeyRequestContext, rc)
			c.Next()
			return
		}

		identity, err := auth.ValidateToken(ctx, token)
		if err != nil {
			handlers.RespondError(c, err)
			return
		}
		access, err := clubs.Authorize(club, identity.Email)
		if err != nil {
			handlers.RespondError(c, err)
			return
		}
		if action.Mutating && !access.CanEdit {
			handlers.RespondError(c, services.ErrReadOnlyAccess)
			return
		}
		rc.UserEmail = identity.Email
		rc.CanEdit = access.CanEdit
		c.Set(handlers.ContextKeyRequestContext, rc)
		c.Next()
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
