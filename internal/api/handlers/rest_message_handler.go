package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rileyflames/marketplace/internal/services"
)

// RestMessageHandler handles REST requests for direct messaging.
type RestMessageHandler struct {
	messageService services.IMessageService
	userService    services.IUserService
}

// NewRestMessageHandler creates a new RestMessageHandler.
func NewRestMessageHandler(messageService services.IMessageService, userService services.IUserService) *RestMessageHandler {
	return &RestMessageHandler{messageService: messageService, userService: userService}
}

type sendMessageRequest struct {
	Recipient string `json:"recipient" binding:"required"`
	Content   string `json:"content" binding:"required"`
	ReplyTo   string `json:"reply_to"`
}

// SendMessage handles POST /v1/message
func (h *RestMessageHandler) SendMessage(c *gin.Context) {
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	recipient, err := primitive.ObjectIDFromHex(req.Recipient)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipient ID format"})
		return
	}
	var replyTo *primitive.ObjectID
	if req.ReplyTo != "" {
		id, err := primitive.ObjectIDFromHex(req.ReplyTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reply_to ID format"})
			return
		}
		replyTo = &id
	}

	message, err := h.messageService.SendMessage(c.Request.Context(), actor, recipient, req.Content, replyTo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// ListConversations handles GET /v1/conversation
func (h *RestMessageHandler) ListConversations(c *gin.Context) {
	actorID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil {
		limit = 50
	}

	conversations, err := h.messageService.ListConversations(c.Request.Context(), actorID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": conversations})
}

// ListMessages handles GET /v1/conversation/:id/message
func (h *RestMessageHandler) ListMessages(c *gin.Context) {
	conversationID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)
	if err != nil {
		limit = 100
	}

	messages, err := h.messageService.ListMessages(c.Request.Context(), conversationID, actor, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": messages})
}

// MarkConversationRead handles POST /v1/conversation/:id/read
func (h *RestMessageHandler) MarkConversationRead(c *gin.Context) {
	conversationID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := loadActor(c, h.userService)
	if !ok {
		return
	}

	if err := h.messageService.MarkRead(c.Request.Context(), conversationID, actor); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}
