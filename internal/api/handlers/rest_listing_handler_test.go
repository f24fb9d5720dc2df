package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rileyflames/marketplace/internal/api/handlers"
	"github.com/rileyflames/marketplace/internal/apperr"
	"github.com/rileyflames/marketplace/internal/models"
	"github.com/rileyflames/marketplace/internal/services"
)

type listingHandlerFixture struct {
	listings   *MockListingService
	comments   *MockCommentService
	categories *MockCategoryService
	users      *MockUserService
	handler    *handlers.RestListingHandler
}

func newListingHandlerFixture() *listingHandlerFixture {
	f := &listingHandlerFixture{
		listings:   new(MockListingService),
		comments:   new(MockCommentService),
		categories: new(MockCategoryService),
		users:      new(MockUserService),
	}
	f.handler = handlers.NewRestListingHandler(f.listings, f.comments, f.categories, f.users)
	return f
}

func TestRestListingHandler_CreateListing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newListingHandlerFixture()

	owner := &models.User{ID: primitive.NewObjectID(), Username: "alice", Role: models.RoleUser}
	category := &models.Category{ID: primitive.NewObjectID(), Name: "laptops"}
	price := 250.0
	created := &models.Listing{ID: primitive.NewObjectID(), Title: "Thinkpad X220", PostedBy: owner.ID}

	f.users.On("FindByID", mock.Anything, owner.ID).Return(owner, nil)
	f.categories.On("FindCategoryByName", mock.Anything, "laptops").Return(category, nil)
	f.listings.On("CreateListing", mock.Anything, owner, services.CreateListingInput{
		Title:       "Thinkpad X220",
		Description: "Coil whine, otherwise fine",
		Price:       &price,
		Flag:        models.FlagSale,
		Category:    category.ID,
	}).Return(created, nil)

	r := gin.New()
	r.POST("/v1/listing", asUser(owner.ID, owner.Role), f.handler.CreateListing)

	body, _ := json.Marshal(gin.H{
		"title":       "Thinkpad X220",
		"description": "Coil whine, otherwise fine",
		"price":       price,
		"flag":        "sale",
		"category":    "laptops",
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/listing", bytes.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	f.listings.AssertExpectations(t)
	f.categories.AssertExpectations(t)
}

func TestRestListingHandler_CreateListing_UnknownCategory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newListingHandlerFixture()

	owner := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
	f.users.On("FindByID", mock.Anything, owner.ID).Return(owner, nil)
	f.categories.On("FindCategoryByName", mock.Anything, "spaceships").
		Return(nil, apperr.Validation("unknown category %q", "spaceships"))

	r := gin.New()
	r.POST("/v1/listing", asUser(owner.ID, owner.Role), f.handler.CreateListing)

	body, _ := json.Marshal(gin.H{
		"title":       "Rocket",
		"description": "Slightly used",
		"flag":        "sale",
		"category":    "spaceships",
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/listing", bytes.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.listings.AssertNotCalled(t, "CreateListing", mock.Anything, mock.Anything, mock.Anything)
}

func TestRestListingHandler_PlaceBid_ErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"outbid", apperr.Validation("bid must exceed current highest of 150"), http.StatusBadRequest},
		{"locked", apperr.Conflict("listing is locked"), http.StatusConflict},
		{"own listing", apperr.Forbidden("cannot bid on your own listing"), http.StatusForbidden},
		{"missing", apperr.NotFound("listing not found"), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newListingHandlerFixture()
			bidder := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
			listingID := primitive.NewObjectID()

			f.users.On("FindByID", mock.Anything, bidder.ID).Return(bidder, nil)
			f.listings.On("PlaceBid", mock.Anything, listingID, bidder, 200.0).Return(nil, tc.serviceErr)

			r := gin.New()
			r.POST("/v1/listing/:id/bid", asUser(bidder.ID, bidder.Role), f.handler.PlaceBid)

			body, _ := json.Marshal(gin.H{"amount": 200.0})
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/v1/listing/"+listingID.Hex()+"/bid", bytes.NewReader(body))
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestRestListingHandler_MarkSold_EmptyBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newListingHandlerFixture()

	owner := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
	listingID := primitive.NewObjectID()
	sold := &models.Listing{ID: listingID, PostedBy: owner.ID, IsSold: true}

	f.users.On("FindByID", mock.Anything, owner.ID).Return(owner, nil)
	f.listings.On("MarkSold", mock.Anything, listingID, owner, (*primitive.ObjectID)(nil)).Return(sold, nil)

	r := gin.New()
	r.POST("/v1/listing/:id/sold", asUser(owner.ID, owner.Role), f.handler.MarkSold)

	// No body at all: the buyer is optional and resolved from the highest bid.
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/listing/"+listingID.Hex()+"/sold", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	f.listings.AssertExpectations(t)
}

func TestRestListingHandler_MarkSold_PreconditionFailed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newListingHandlerFixture()

	owner := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
	listingID := primitive.NewObjectID()

	f.users.On("FindByID", mock.Anything, owner.ID).Return(owner, nil)
	f.listings.On("MarkSold", mock.Anything, listingID, owner, (*primitive.ObjectID)(nil)).
		Return(nil, apperr.Precondition("listing has no bids and no explicit buyer"))

	r := gin.New()
	r.POST("/v1/listing/:id/sold", asUser(owner.ID, owner.Role), f.handler.MarkSold)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/listing/"+listingID.Hex()+"/sold", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestRestListingHandler_GetListingByID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newListingHandlerFixture()

	listing := &models.Listing{ID: primitive.NewObjectID(), Title: "CRT monitor"}
	f.listings.On("FindListingByID", mock.Anything, listing.ID).Return(listing, nil)

	r := gin.New()
	r.GET("/v1/listing/:id", f.handler.GetListingByID)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listing/"+listing.ID.Hex(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.Listing
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CRT monitor", resp.Title)
}

func TestRestListingHandler_ListCategories(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newListingHandlerFixture()

	f.categories.On("ListCategories", mock.Anything).Return([]models.Category{
		{ID: primitive.NewObjectID(), Name: "laptops"},
		{ID: primitive.NewObjectID(), Name: "phones"},
	}, nil)

	r := gin.New()
	r.GET("/v1/category", f.handler.ListCategories)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/category", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []models.Category `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}
