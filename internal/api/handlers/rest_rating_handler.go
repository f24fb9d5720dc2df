package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rileyflames/marketplace/internal/services"
)

// RestRatingHandler handles REST requests for reputation.
type RestRatingHandler struct {
	ratingService services.IRatingService
	userService   services.IUserService
}

// NewRestRatingHandler creates a new RestRatingHandler.
func NewRestRatingHandler(ratingService services.IRatingService, userService services.IUserService) *RestRatingHandler {
	return &RestRatingHandler{ratingService: ratingService, userService: userService}
}

type submitRatingRequest struct {
	To      string `json:"to" binding:"required"`
	Listing string `json:"listing" binding:"required"`
	Score   int    `json:"score" binding:"required"`
	Comment string `json:"comment"`
}

// SubmitRating handles POST /v1/rating
func (h *RestRatingHandler) SubmitRating(c *gin.Context) {
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	var req submitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	to, err := primitive.ObjectIDFromHex(req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to ID format"})
		return
	}
	listing, err := primitive.ObjectIDFromHex(req.Listing)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	rating, err := h.ratingService.SubmitRating(c.Request.Context(), actor, services.SubmitRatingInput{
		To:      to,
		Listing: listing,
		Score:   req.Score,
		Comment: req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rating)
}

// ListUserRatings handles GET /v1/user/:id/rating
func (h *RestRatingHandler) ListUserRatings(c *gin.Context) {
	userID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil {
		limit = 50
	}

	ratings, err := h.ratingService.ListRatingsFor(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ratings})
}
