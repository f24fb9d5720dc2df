package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rileyflames/marketplace/internal/models"
	"github.com/rileyflames/marketplace/internal/services"
)

// RestModerationHandler handles REST requests for reports and disputes.
type RestModerationHandler struct {
	reportService  services.IReportService
	disputeService services.IDisputeService
	userService    services.IUserService
}

// NewRestModerationHandler creates a new RestModerationHandler.
func NewRestModerationHandler(reportService services.IReportService, disputeService services.IDisputeService, userService services.IUserService) *RestModerationHandler {
	return &RestModerationHandler{
		reportService:  reportService,
		disputeService: disputeService,
		userService:    userService,
	}
}

type fileReportRequest struct {
	TargetType     string `json:"target_type" binding:"required"`
	TargetID       string `json:"target_id" binding:"required"`
	Reason         string `json:"reason" binding:"required"`
	AdditionalInfo string `json:"additional_info"`
}

// FileReport handles POST /v1/report
func (h *RestModerationHandler) FileReport(c *gin.Context) {
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	var req fileReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	targetID, err := primitive.ObjectIDFromHex(req.TargetID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target ID format"})
		return
	}

	report, err := h.reportService.FileReport(c.Request.Context(), actor, services.FileReportInput{
		TargetType:     models.ReportTargetType(req.TargetType),
		TargetID:       targetID,
		Reason:         req.Reason,
		AdditionalInfo: req.AdditionalInfo,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

type reviewReportRequest struct {
	Outcome string `json:"outcome" binding:"required"` // "reviewed" or "dismissed"
}

// ReviewReport handles POST /v1/moderation/report/:id/review
func (h *RestModerationHandler) ReviewReport(c *gin.Context) {
	reportID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	var req reviewReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	report, err := h.reportService.ReviewReport(c.Request.Context(), reportID, actor, models.ReportStatus(req.Outcome))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListPendingReports handles GET /v1/moderation/report
func (h *RestModerationHandler) ListPendingReports(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil {
		limit = 50
	}

	reports, err := h.reportService.ListPending(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reports})
}

type openDisputeRequest struct {
	Listing string `json:"listing" binding:"required"`
	Against string `json:"against" binding:"required"`
	Message string `json:"message" binding:"required"`
	Private bool   `json:"private"` // disputes are public unless requested otherwise
}

// OpenDispute handles POST /v1/dispute
func (h *RestModerationHandler) OpenDispute(c *gin.Context) {
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	var req openDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	listing, err := primitive.ObjectIDFromHex(req.Listing)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}
	against, err := primitive.ObjectIDFromHex(req.Against)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid against ID format"})
		return
	}

	dispute, err := h.disputeService.OpenDispute(c.Request.Context(), actor, services.OpenDisputeInput{
		Listing: listing,
		Against: against,
		Message: req.Message,
		Private: req.Private,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dispute)
}

// GetDisputeByID handles GET /v1/dispute/:id
func (h *RestModerationHandler) GetDisputeByID(c *gin.Context) {
	disputeID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	dispute, err := h.disputeService.FindDisputeByID(c.Request.Context(), disputeID, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

type disputeMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// AddDisputeMessage handles POST /v1/dispute/:id/message
func (h *RestModerationHandler) AddDisputeMessage(c *gin.Context) {
	disputeID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	var req disputeMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	dispute, err := h.disputeService.AddMessage(c.Request.Context(), disputeID, actor, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

// AssignDispute handles POST /v1/moderation/dispute/:id/assign
func (h *RestModerationHandler) AssignDispute(c *gin.Context) {
	disputeID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	dispute, err := h.disputeService.AssignModerator(c.Request.Context(), disputeID, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

type resolveDisputeRequest struct {
	Summary string `json:"summary" binding:"required"`
}

// ResolveDispute handles POST /v1/moderation/dispute/:id/resolve
func (h *RestModerationHandler) ResolveDispute(c *gin.Context) {
	disputeID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	var req resolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	dispute, err := h.disputeService.Resolve(c.Request.Context(), disputeID, actor, req.Summary)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

// CloseDispute handles POST /v1/moderation/dispute/:id/close
func (h *RestModerationHandler) CloseDispute(c *gin.Context) {
	disputeID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	dispute, err := h.disputeService.Close(c.Request.Context(), disputeID, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}
