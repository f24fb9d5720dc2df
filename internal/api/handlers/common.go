package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/rileyflames/marketplace/internal/models"
	"github.com/rileyflames/marketplace/internal/services"
)

// loadActor resolves the authenticated caller to their full user record.
// Services make their decisions on the fresh record, not on token claims,
// so bans and warnings take effect immediately. Responds itself on failure.
func loadActor(c *gin.Context, users services.IUserService) (*models.User, bool) {
	id, ok := authenticatedUserID(c)
	if !ok {
		return nil, false
	}
	user, err := users.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return user, true
}
