package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rileyflames/marketplace/internal/api/handlers"
	"github.com/rileyflames/marketplace/internal/api/middleware"
	"github.com/rileyflames/marketplace/internal/apperr"
	"github.com/rileyflames/marketplace/internal/config"
	"github.com/rileyflames/marketplace/internal/models"
)

func testJwtConfig() *config.Config {
	return &config.Config{JwtSecret: "test-secret", JwtTTL: time.Hour}
}

// asUser installs the context keys the auth middleware would normally set.
func asUser(userID primitive.ObjectID, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID.Hex())
		c.Set(middleware.ContextKeyRole, role)
		c.Next()
	}
}

func TestRestUserHandler_Register_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(testJwtConfig(), mockUserSvc)

	r := gin.New()
	r.POST("/v1/user/register", handler.Register)

	created := &models.User{
		ID:       primitive.NewObjectID(),
		Name:     "Alice Smith",
		Username: "alice",
		Email:    "alice@example.com",
		Role:     models.RoleUser,
	}
	mockUserSvc.On("Register", mock.Anything, "Alice Smith", "alice", "alice@example.com", "s3cret-pass").
		Return(created, nil)

	body, _ := json.Marshal(gin.H{
		"name":     "Alice Smith",
		"username": "alice",
		"email":    "alice@example.com",
		"password": "s3cret-pass",
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/user/register", bytes.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]json.RawMessage
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "user")
	assert.Contains(t, resp, "token")
	assert.NotEqual(t, "\"\"", string(resp["token"]))
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_Register_Conflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(testJwtConfig(), mockUserSvc)

	r := gin.New()
	r.POST("/v1/user/register", handler.Register)

	mockUserSvc.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperr.Conflict("username or email already in use"))

	body, _ := json.Marshal(gin.H{
		"name":     "Alice Smith",
		"username": "alice",
		"email":    "alice@example.com",
		"password": "s3cret-pass",
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/user/register", bytes.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "conflict", resp["kind"])
	assert.Contains(t, resp["error"], "already in use")
}

func TestRestUserHandler_Login_InvalidCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(testJwtConfig(), mockUserSvc)

	r := gin.New()
	r.POST("/v1/user/login", handler.Login)

	mockUserSvc.On("Authenticate", mock.Anything, "alice", "wrong").
		Return(nil, apperr.Forbidden("invalid credentials"))

	body, _ := json.Marshal(gin.H{"login": "alice", "password": "wrong"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/user/login", bytes.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRestUserHandler_GetUserByID_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(testJwtConfig(), mockUserSvc)

	r := gin.New()
	r.GET("/v1/user/:id", handler.GetUserByID)

	userID := primitive.NewObjectID()
	mockUserSvc.On("FindByID", mock.Anything, userID).
		Return(nil, apperr.NotFound("user %s not found", userID.Hex()))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/user/"+userID.Hex(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_GetUserByID_InvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewRestUserHandler(testJwtConfig(), new(MockUserService))

	r := gin.New()
	r.GET("/v1/user/:id", handler.GetUserByID)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/user/invalid-id", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRestUserHandler_GetUserByID_InternalErrorIsOpaque(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(testJwtConfig(), mockUserSvc)

	r := gin.New()
	r.GET("/v1/user/:id", handler.GetUserByID)

	userID := primitive.NewObjectID()
	mockUserSvc.On("FindByID", mock.Anything, userID).
		Return(nil, errors.New("connection reset by mongod"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/user/"+userID.Hex(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "mongod")
}

func TestRestUserHandler_WarnUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(testJwtConfig(), mockUserSvc)

	moderator := &models.User{ID: primitive.NewObjectID(), Username: "mod", Role: models.RoleModerator}
	target := &models.User{ID: primitive.NewObjectID(), Username: "bob", Role: models.RoleUser, Warnings: 2}

	r := gin.New()
	r.POST("/v1/moderation/user/:id/warn", asUser(moderator.ID, moderator.Role), handler.WarnUser)

	mockUserSvc.On("FindByID", mock.Anything, moderator.ID).Return(moderator, nil)
	mockUserSvc.On("WarnUser", mock.Anything, target.ID, moderator).Return(target, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/moderation/user/"+target.ID.Hex()+"/warn", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]int
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp["warnings"])
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_WarnUser_Unauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewRestUserHandler(testJwtConfig(), new(MockUserService))

	r := gin.New()
	r.POST("/v1/moderation/user/:id/warn", handler.WarnUser)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/moderation/user/"+primitive.NewObjectID().Hex()+"/warn", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
