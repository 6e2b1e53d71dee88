package middleware

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/config"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/models"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/services"
)

// clientLimiter stores rate limiters for a specific client.
type clientLimiter struct {
	softLimiter *rate.Limiter
	hardLimiter *rate.Limiter
	lastSeen    time.Time
}

// RateLimiterMiddleware manages rate limiting for API endpoints. The soft
// tier throttles anonymous browsing; the hard tier caps everyone.
type RateLimiterMiddleware struct {
	clients         map[string]*clientLimiter
	mu              sync.Mutex
	cfg             *config.Config
	settingsService services.ISettingsService
}

// NewRateLimiterMiddleware creates a new RateLimiterMiddleware.
func NewRateLimiterMiddleware(cfg *config.Config, settingsService services.ISettingsService) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		clients:         make(map[string]*clientLimiter),
		cfg:             cfg,
		settingsService: settingsService,
	}
	go rm.cleanupClients()
	return rm
}

// getClientIdentifier creates a unique key based on IP and SPA session ID.
func getClientIdentifier(c *gin.Context) string {
	ip := c.ClientIP()
	spaSession := c.GetHeader("X-SPA")
	return fmt.Sprintf("%s|%s", ip, spaSession)
}

// getClientLimiter retrieves or creates the rate limiters for a client.
func (rm *RateLimiterMiddleware) getClientLimiter(identifier string, softRate, softBurst, hardRate, hardBurst int) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	limiter, exists := rm.clients[identifier]
	if !exists {
		limiter = &clientLimiter{
			softLimiter: rate.NewLimiter(rate.Limit(softRate), softBurst),
			hardLimiter: rate.NewLimiter(rate.Limit(hardRate), hardBurst),
		}
		rm.clients[identifier] = limiter
	} else {
		// Settings overrides must reach clients created before the change.
		syncLimiter(limiter.softLimiter, softRate, softBurst)
		syncLimiter(limiter.hardLimiter, hardRate, hardBurst)
	}
	limiter.lastSeen = time.Now()
	return limiter
}

func syncLimiter(l *rate.Limiter, refillRate, burst int) {
	if l.Limit() != rate.Limit(refillRate) {
		l.SetLimit(rate.Limit(refillRate))
	}
	if l.Burst() != burst {
		l.SetBurst(burst)
	}
}

// cleanupClients periodically removes old client entries from the map.
func (rm *RateLimiterMiddleware) cleanupClients() {
	for {
		time.Sleep(10 * time.Minute)
		rm.mu.Lock()
		count := 0
		for id, client := range rm.clients {
			if time.Since(client.lastSeen) > 30*time.Minute {
				delete(rm.clients, id)
				count++
			}
		}
		rm.mu.Unlock()
		if count > 0 {
			log.Printf("Rate limiter cleanup removed %d old client entries.", count)
		}
	}
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := getClientIdentifier(c)

		apiType := models.APITypeREST
		endpointIdentifier := c.FullPath()

		// Endpoint overrides come from the settings store; defaults from env.
		apiCfg, err := rm.settingsService.GetAPIEndpointConfig(c.Request.Context(), apiType, endpointIdentifier, false)
		if err != nil {
			log.Printf("Error fetching API config for %s %s: %v. Using defaults.", apiType, endpointIdentifier, err)
		}

		softRate := rm.cfg.RateLimitSoftRefillRate
		softBurst := rm.cfg.RateLimitSoftBucketSize
		hardRate := rm.cfg.RateLimitHardRefillRate
		hardBurst := rm.cfg.RateLimitHardBucketSize

		if apiCfg != nil {
			if apiCfg.RateLimitSoft != nil {
				softRate = apiCfg.RateLimitSoft.TokenRefillRate
				softBurst = apiCfg.RateLimitSoft.BucketSize
			}
			if apiCfg.RateLimitHard != nil {
				hardRate = apiCfg.RateLimitHard.TokenRefillRate
				hardBurst = apiCfg.RateLimitHard.BucketSize
			}
		}

		limiter := rm.getClientLimiter(clientKey, softRate, softBurst, hardRate, hardBurst)

		if !limiter.hardLimiter.Allow() {
			log.Printf("Hard rate limit exceeded for client: %s on %s %s", clientKey, apiType, endpointIdentifier)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		// Signed-in clients skip the soft tier; bogus tokens are rejected by
		// the auth middleware and still pay the hard tier.
		authenticated := c.GetHeader("Authorization") != ""

		if !authenticated && !limiter.softLimiter.Allow() {
			log.Printf("Soft rate limit exceeded for client: %s on %s %s", clientKey, apiType, endpointIdentifier)
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, slow down"})
			return
		}

		c.Next()
	}
}
