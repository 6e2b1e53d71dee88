package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/api/middleware"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/auth"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/config"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/models"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/services"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/utils"
)

// IAsynqClient defines the asynq client methods handlers use, so tests can
// mock enqueueing.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RestAuthHandler handles signup and session REST endpoints.
type RestAuthHandler struct {
	cfg         *config.Config
	userService services.IUserService
}

// NewRestAuthHandler creates a new RestAuthHandler.
func NewRestAuthHandler(cfg *config.Config, userService services.IUserService) *RestAuthHandler {
	return &RestAuthHandler{cfg: cfg, userService: userService}
}

// SessionUser is the profile shape returned to the signed-in client.
type SessionUser struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

func sessionUser(user *models.User) SessionUser {
	return SessionUser{
		ID:    user.ID.String(),
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}
}

type signupRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email" binding:"required"`
	Password string      `json:"password" binding:"required"`
	Role     models.Role `json:"role" binding:"required"`
}

// Signup handles POST /v1/auth/signup
func (h *RestAuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if h.cfg.PasswordRegexp != "" {
		matched, err := regexp.MatchString(h.cfg.PasswordRegexp, req.Password)
		if err != nil || !matched {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password does not meet requirements"})
			return
		}
	}

	user, err := h.userService.Signup(c.Request.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, services.ErrEmailExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Role, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": sessionUser(user)})
}

type signinRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signin handles POST /v1/auth/signin
func (h *RestAuthHandler) Signin(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Role, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": sessionUser(user)})
}

// GetSession handles GET /v1/auth/session (authenticated).
func (h *RestAuthHandler) GetSession(c *gin.Context) {
	userIDStr := c.GetString(middleware.ContextKeyUserID)
	userID, err := utils.ParseSixID(userIDStr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
		return
	}

	user, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Account no longer exists"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": sessionUser(user)})
}

// Signout handles POST /v1/auth/signout (authenticated). Tokens are stateless,
// so the client discards its copy; the endpoint records the event.
func (h *RestAuthHandler) Signout(c *gin.Context) {
	log.Printf("User %s signed out", c.GetString(middleware.ContextKeyUserID))
	c.JSON(http.StatusOK, gin.H{"success": true})
}
