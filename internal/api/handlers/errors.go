package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rileyflames/marketplace/internal/apperr"
	"github.com/rileyflames/marketplace/internal/api/middleware"
)

// statusForKind maps the operational error taxonomy to HTTP status codes.
var statusForKind = map[apperr.Kind]int{
	apperr.KindValidation:   http.StatusBadRequest,
	apperr.KindConflict:     http.StatusConflict,
	apperr.KindForbidden:    http.StatusForbidden,
	apperr.KindNotFound:     http.StatusNotFound,
	apperr.KindPrecondition: http.StatusPreconditionFailed,
}

// respondError writes the HTTP response for a service error. Operational
// errors surface their message; anything else is logged and returned as an
// opaque 500 so internals never leak.
func respondError(c *gin.Context, err error) {
	if kind, ok := apperr.KindOf(err); ok {
		c.JSON(statusForKind[kind], gin.H{"error": err.Error(), "kind": string(kind)})
		return
	}
	_ = c.Error(err)
	log.Printf("Internal error on %s %s: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// parseObjectIDParam parses a hex ObjectID path parameter, responding with a
// 400 itself on failure. The bool reports whether the handler should proceed.
func parseObjectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " format"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// authenticatedUserID returns the caller's user ID from the auth middleware
// context, responding with a 401 itself when absent or malformed.
func authenticatedUserID(c *gin.Context) (primitive.ObjectID, bool) {
	raw, exists := c.Get(middleware.ContextKeyUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return primitive.NilObjectID, false
	}
	hex, ok := raw.(string)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return primitive.NilObjectID, false
	}
	return id, true
}
