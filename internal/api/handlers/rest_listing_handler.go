package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rileyflames/marketplace/internal/models"
	"github.com/rileyflames/marketplace/internal/services"
)

// RestListingHandler handles REST requests for listings and their comments.
type RestListingHandler struct {
	listingService  services.IListingService
	commentService  services.ICommentService
	categoryService services.ICategoryService
	userService     services.IUserService
}

// NewRestListingHandler creates a new RestListingHandler.
func NewRestListingHandler(listingService services.IListingService, commentService services.ICommentService, categoryService services.ICategoryService, userService services.IUserService) *RestListingHandler {
	return &RestListingHandler{
		listingService:  listingService,
		commentService:  commentService,
		categoryService: categoryService,
		userService:     userService,
	}
}

type createListingRequest struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description" binding:"required"`
	Price       *float64         `json:"price"`
	Flag        string           `json:"flag" binding:"required"`
	Category    string           `json:"category" binding:"required"`
	Images      []string         `json:"images"`
	Location    *models.Location `json:"location"`
	IsBiddable  bool             `json:"is_biddable"`
}

// CreateListing handles POST /v1/listing
func (h *RestListingHandler) CreateListing(c *gin.Context) {
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	category, err := h.categoryService.FindCategoryByName(c.Request.Context(), req.Category)
	if err != nil {
		respondError(c, err)
		return
	}

	listing, err := h.listingService.CreateListing(c.Request.Context(), actor, services.CreateListingInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Flag:        models.ListingFlag(req.Flag),
		Category:    category.ID,
		Images:      req.Images,
		Location:    req.Location,
		IsBiddable:  req.IsBiddable,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// GetListingByID handles GET /v1/listing/:id
func (h *RestListingHandler) GetListingByID(c *gin.Context) {
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

type placeBidRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// PlaceBid handles POST /v1/listing/:id/bid
func (h *RestListingHandler) PlaceBid(c *gin.Context) {
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	var req placeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	listing, err := h.listingService.PlaceBid(c.Request.Context(), listingID, actor, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

type markSoldRequest struct {
	Buyer string `json:"buyer"` // optional explicit buyer ID
}

// MarkSold handles POST /v1/listing/:id/sold
func (h *RestListingHandler) MarkSold(c *gin.Context) {
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	var req markSoldRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	var buyer *primitive.ObjectID
	if req.Buyer != "" {
		id, err := primitive.ObjectIDFromHex(req.Buyer)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid buyer ID format"})
			return
		}
		buyer = &id
	}

	listing, err := h.listingService.MarkSold(c.Request.Context(), listingID, actor, buyer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// DeleteListing handles DELETE /v1/listing/:id
func (h *RestListingHandler) DeleteListing(c *gin.Context) {
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	if err := h.listingService.DeleteListing(c.Request.Context(), listingID, actor); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// LockListing handles POST /v1/moderation/listing/:id/lock
func (h *RestListingHandler) LockListing(c *gin.Context) {
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	if err := h.listingService.LockListing(c.Request.Context(), listingID, actor); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locked": true})
}

// ListCategories handles GET /v1/category
func (h *RestListingHandler) ListCategories(c *gin.Context) {
	categories, err := h.categoryService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}

type createCommentRequest struct {
	Content string `json:"content" binding:"required"`
	Parent  string `json:"parent"` // optional parent comment ID
}

// CreateComment handles POST /v1/listing/:id/comment
func (h *RestListingHandler) CreateComment(c *gin.Context) {
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	var parent *primitive.ObjectID
	if req.Parent != "" {
		id, err := primitive.ObjectIDFromHex(req.Parent)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parent comment ID format"})
			return
		}
		parent = &id
	}

	comment, err := h.commentService.CreateComment(c.Request.Context(), actor, listingID, parent, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// ListComments handles GET /v1/listing/:id/comment
func (h *RestListingHandler) ListComments(c *gin.Context) {
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)
	if err != nil {
		limit = 100
	}

	comments, err := h.commentService.ListComments(c.Request.Context(), listingID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": comments})
}

// DeleteComment handles DELETE /v1/comment/:id
func (h *RestListingHandler) DeleteComment(c *gin.Context) {
	commentID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	if err := h.commentService.DeleteComment(c.Request.Context(), commentID, actor); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
