package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rileyflames/marketplace/internal/api/handlers"
	"github.com/rileyflames/marketplace/internal/api/middleware"
	"github.com/rileyflames/marketplace/internal/config"
	"github.com/rileyflames/marketplace/internal/services"
)

// SetupRouter configures and returns the main Gin engine. repair may be nil
// when no background queue is available; the rating service then skips
// snapshot repair scheduling.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, repair services.RatingRepairEnqueuer) *gin.Engine {
	gate := services.NewTrustGate(cfg)

	userService := services.NewUserService(db)
	categoryService := services.NewCategoryService(db)
	listingService := services.NewListingService(db, cfg, gate, rdb)
	commentService := services.NewCommentService(db, cfg, gate)
	ratingService := services.NewRatingService(db, cfg, gate, repair)
	reportService := services.NewReportService(db, cfg, gate, listingService)
	disputeService := services.NewDisputeService(db, cfg, gate)
	messageService := services.NewMessageService(db, cfg, gate)

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	userHandler := handlers.NewRestUserHandler(cfg, userService)
	listingHandler := handlers.NewRestListingHandler(listingService, commentService, categoryService, userService)
	ratingHandler := handlers.NewRestRatingHandler(ratingService, userService)
	moderationHandler := handlers.NewRestModerationHandler(reportService, disputeService, userService)
	messageHandler := handlers.NewRestMessageHandler(messageService, userService)

	v1 := r.Group("/v1")
	{
		// Public routes
		v1.POST("/user/register", userHandler.Register)
		v1.POST("/user/login", userHandler.Login)
		v1.GET("/user/:id", userHandler.GetUserByID)
		v1.GET("/user/:id/rating", ratingHandler.ListUserRatings)
		v1.GET("/listing/:id", listingHandler.GetListingByID)
		v1.GET("/listing/:id/comment", listingHandler.ListComments)
		v1.GET("/category", listingHandler.ListCategories)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Authenticated routes
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.POST("/listing", listingHandler.CreateListing)
			authRequired.POST("/listing/:id/bid", listingHandler.PlaceBid)
			authRequired.POST("/listing/:id/sold", listingHandler.MarkSold)
			authRequired.DELETE("/listing/:id", listingHandler.DeleteListing)
			authRequired.POST("/listing/:id/comment", listingHandler.CreateComment)
			authRequired.DELETE("/comment/:id", listingHandler.DeleteComment)

			authRequired.POST("/rating", ratingHandler.SubmitRating)
			authRequired.POST("/report", moderationHandler.FileReport)

			authRequired.POST("/dispute", moderationHandler.OpenDispute)
			authRequired.GET("/dispute/:id", moderationHandler.GetDisputeByID)
			authRequired.POST("/dispute/:id/message", moderationHandler.AddDisputeMessage)

			authRequired.POST("/message", messageHandler.SendMessage)
			authRequired.GET("/conversation", messageHandler.ListConversations)
			authRequired.GET("/conversation/:id/message", messageHandler.ListMessages)
			authRequired.POST("/conversation/:id/read", messageHandler.MarkConversationRead)
		}

		// Moderation routes
		modRequired := v1.Group("/moderation")
		modRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.ModeratorMiddleware())
		{
			modRequired.POST("/user/:id/ban", userHandler.BanUser)
			modRequired.POST("/user/:id/warn", userHandler.WarnUser)
			modRequired.POST("/listing/:id/lock", listingHandler.LockListing)

			modRequired.GET("/report", moderationHandler.ListPendingReports)
			modRequired.POST("/report/:id/review", moderationHandler.ReviewReport)

			modRequired.POST("/dispute/:id/assign", moderationHandler.AssignDispute)
			modRequired.POST("/dispute/:id/resolve", moderationHandler.ResolveDispute)
			modRequired.POST("/dispute/:id/close", moderationHandler.CloseDispute)
		}
	}

	return r
}
