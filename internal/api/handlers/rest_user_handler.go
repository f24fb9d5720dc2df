package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rileyflames/marketplace/internal/auth"
	"github.com/rileyflames/marketplace/internal/config"
	"github.com/rileyflames/marketplace/internal/services"
)

// RestUserHandler handles REST requests for accounts and moderation of users.
type RestUserHandler struct {
	cfg         *config.Config
	userService services.IUserService
}

// NewRestUserHandler creates a new RestUserHandler.
func NewRestUserHandler(cfg *config.Config, userService services.IUserService) *RestUserHandler {
	return &RestUserHandler{cfg: cfg, userService: userService}
}

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register handles POST /v1/user/register
func (h *RestUserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Name, req.Username, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Role, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"` // username or email
	Password string `json:"password" binding:"required"`
}

// Login handles POST /v1/user/login
func (h *RestUserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Role, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// GetUserByID handles GET /v1/user/:id
func (h *RestUserHandler) GetUserByID(c *gin.Context) {
	userID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type banRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// BanUser handles POST /v1/moderation/user/:id/ban
func (h *RestUserHandler) BanUser(c *gin.Context) {
	targetID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	var req banRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.userService.BanUser(c.Request.Context(), targetID, actor, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"banned": true})
}

// WarnUser handles POST /v1/moderation/user/:id/warn
func (h *RestUserHandler) WarnUser(c *gin.Context) {
	targetID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	user, err := h.userService.WarnUser(c.Request.Context(), targetID, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"warnings": user.Warnings})
}
