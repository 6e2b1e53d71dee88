package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/api/handlers"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/api/middleware"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/config"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/email"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/models"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/services"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/storage"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, taskClient handlers.IAsynqClient, settingsSvc services.ISettingsService) *gin.Engine {
	// Initialize services needed by API handlers
	userService := services.NewUserService(db)
	locationService := services.NewLocationService(db)
	retreatService := services.NewRetreatService(db, cfg)
	bookingService := services.NewBookingService(db, retreatService)
	wishlistService := services.NewWishlistService(rdb)
	catalogService := services.NewCatalogService(retreatService, cfg.SearchDebounce)
	s3StorageService, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
	}

	r := gin.Default()

	// Initialize middleware (order matters)
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg, settingsSvc)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	// Initialize handlers
	restAuthHandler := handlers.NewRestAuthHandler(cfg, userService)
	restSettingsHandler := handlers.NewRestSettingsHandler(settingsSvc)
	restLocationHandler := handlers.NewRestLocationHandler(locationService)
	restRetreatHandler := handlers.NewRestRetreatHandler(retreatService, s3StorageService, taskClient)
	restCatalogHandler := handlers.NewRestCatalogHandler(catalogService)
	restBookingHandler := handlers.NewRestBookingHandler(bookingService, retreatService, userService, taskClient)
	restWishlistHandler := handlers.NewRestWishlistHandler(wishlistService, retreatService)

	v1 := r.Group("/v1")
	{
		// Public routes (rate limiting already applied globally)
		v1.GET("/settings", restSettingsHandler.GetPublicSettings)

		v1.POST("/auth/signup", restAuthHandler.Signup)
		v1.POST("/auth/signin", restAuthHandler.Signin)

		// Location routes
		v1.GET("/location/search", restLocationHandler.SearchLocations)

		// Retreat routes - specific paths first to avoid conflicts
		v1.GET("/retreat/search", restRetreatHandler.SearchRetreats)
		v1.GET("/retreat/:id", restRetreatHandler.GetRetreatByID)

		// Catalog session routes (anonymous browsing allowed)
		v1.GET("/catalog", restCatalogHandler.GetCatalog)
		v1.PUT("/catalog/filters", restCatalogHandler.SetCatalogFilters)
		v1.POST("/catalog/refresh", restCatalogHandler.RefreshCatalog)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Authenticated routes
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.GET("/auth/session", restAuthHandler.GetSession)
			authRequired.POST("/auth/signout", restAuthHandler.Signout)

			authRequired.POST("/booking", restBookingHandler.CreateBooking)
			authRequired.GET("/booking", restBookingHandler.ListMyBookings)
			authRequired.POST("/booking/:id/status", restBookingHandler.TransitionBooking)

			authRequired.GET("/wishlist", restWishlistHandler.ListWishlist)
			authRequired.GET("/wishlist/:retreat_id", restWishlistHandler.CheckWishlist)
			authRequired.PUT("/wishlist/:retreat_id", restWishlistHandler.AddToWishlist)
			authRequired.DELETE("/wishlist/:retreat_id", restWishlistHandler.RemoveFromWishlist)
		}

		// Owner dashboard routes
		ownerRequired := v1.Group("/owner")
		ownerRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.RequireRole(models.RoleOwner))
		{
			ownerRequired.POST("/retreat", restRetreatHandler.CreateRetreat)
			ownerRequired.GET("/retreat", restRetreatHandler.ListOwnRetreats)
			ownerRequired.PUT("/retreat/:id", restRetreatHandler.UpdateRetreat)
			ownerRequired.POST("/retreat/:id/publish", restRetreatHandler.PublishRetreat)
			ownerRequired.POST("/retreat/:id/hide", restRetreatHandler.HideRetreat)
			ownerRequired.POST("/retreat/:id/unhide", restRetreatHandler.UnhideRetreat)
			ownerRequired.DELETE("/retreat/:id", restRetreatHandler.DeleteRetreat)
			ownerRequired.POST("/retreat/:id/image", restRetreatHandler.PresignRetreatImage)
			ownerRequired.POST("/retreat/:id/image/complete", restRetreatHandler.CompleteRetreatImage)
			ownerRequired.GET("/retreat/:id/booking", restBookingHandler.ListRetreatBookings)

			ownerRequired.POST("/location", restLocationHandler.CreateLocation)
			ownerRequired.PUT("/location/:id", restLocationHandler.UpdateLocation)
			ownerRequired.DELETE("/location/:id", restLocationHandler.DeleteLocation)
		}
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine, used for
// operational commands on a separate port. Requires Redis for the captured
// email lookup used by integration tests.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			fmt.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
				fmt.Println("Shutdown signal sent successfully.")
			default:
				fmt.Println("Shutdown channel already signaled or blocked.")
			}
		case "getCapturedEmail":
			var args []string // Expect ["email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 1 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [email]"})
				return
			}
			redisKey := email.CapturedEmailKey(args[0])

			// Poll Redis briefly; the worker delivers asynchronously.
			var rawEmail string
			found := false
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			for i := 0; i < 10; i++ {
				raw, getErr := rdb.LPop(ctx, redisKey).Result()
				if getErr == nil {
					rawEmail = raw
					found = true
					break
				}
				if getErr != redis.Nil {
					log.Printf("Service API: Error getting key %s from Redis: %v", redisKey, getErr)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}

			if !found {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Captured email not found in Redis for key %s", redisKey)})
				return
			}

			var captured email.CapturedEmail
			if err := json.Unmarshal([]byte(rawEmail), &captured); err != nil {
				log.Printf("Service API: Error unmarshalling email data from key %s: %v", redisKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
				return
			}

			c.JSON(http.StatusOK, gin.H{"success": true, "data": captured})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})

	return r
}
