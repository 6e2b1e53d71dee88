package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/api/middleware"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/models"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/search"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/services"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/storage"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/tasks"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/utils"
)

// RestRetreatHandler handles REST requests for retreats, both the public
// catalog side and the owner dashboard side.
type RestRetreatHandler struct {
	retreatService services.IRetreatService
	storageService storage.IS3Storage
	taskClient     IAsynqClient
}

// NewRestRetreatHandler creates a new RestRetreatHandler.
func NewRestRetreatHandler(retreatService services.IRetreatService, storageService storage.IS3Storage, taskClient IAsynqClient) *RestRetreatHandler {
	return &RestRetreatHandler{
		retreatService: retreatService,
		storageService: storageService,
		taskClient:     taskClient,
	}
}

// currentUserID extracts the authenticated user's ID from the Gin context.
func currentUserID(c *gin.Context) (utils.SixID, bool) {
	userID, err := utils.ParseSixID(c.GetString(middleware.ContextKeyUserID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
		return utils.SixID{}, false
	}
	return userID, true
}

// SearchRetreats handles GET /v1/retreat/search. Query parameters mirror the
// catalog URL params plus the extended filters.
func (h *RestRetreatHandler) SearchRetreats(c *gin.Context) {
	filters := &services.RetreatFilters{}

	if location := c.Query(search.ParamLocation); location != "" {
		filters.Location = &location
	}
	if category := c.Query(search.ParamCategory); category != "" {
		filters.Types = []string{category}
	}
	if startStr := c.Query(search.ParamStartDate); startStr != "" {
		if start, err := time.Parse("2006-01-02", startStr); err == nil {
			filters.StartDate = &start
		}
	}
	if endStr := c.Query(search.ParamEndDate); endStr != "" {
		if end, err := time.Parse("2006-01-02", endStr); err == nil {
			filters.EndDate = &end
		}
	}
	if minStr := c.Query("priceMin"); minStr != "" {
		if min, err := strconv.ParseFloat(minStr, 64); err == nil {
			filters.PriceMin = &min
		}
	}
	if maxStr := c.Query("priceMax"); maxStr != "" {
		if max, err := strconv.ParseFloat(maxStr, 64); err == nil {
			filters.PriceMax = &max
		}
	}
	if minStr := c.Query("durationMin"); minStr != "" {
		if min, err := strconv.Atoi(minStr); err == nil {
			filters.DurationMin = &min
		}
	}
	if maxStr := c.Query("durationMax"); maxStr != "" {
		if max, err := strconv.Atoi(maxStr); err == nil {
			filters.DurationMax = &max
		}
	}
	if amenitiesStr := c.Query("amenities"); amenitiesStr != "" {
		for _, amenity := range strings.Split(amenitiesStr, ",") {
			if trimmed := strings.TrimSpace(amenity); trimmed != "" {
				filters.Amenities = append(filters.Amenities, trimmed)
			}
		}
	}

	retreats, err := h.retreatService.SearchRetreats(c.Request.Context(), filters)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search retreats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": retreats})
}

// GetRetreatByID handles GET /v1/retreat/:id
func (h *RestRetreatHandler) GetRetreatByID(c *gin.Context) {
	retreatID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid retreat ID format"})
		return
	}

	retreat, err := h.retreatService.FindRetreatByID(c.Request.Context(), retreatID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Retreat not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve retreat"})
		}
		return
	}

	// Drafts and hidden retreats are only visible through the owner routes.
	if retreat.IsDraft || retreat.Hidden {
		c.JSON(http.StatusNotFound, gin.H{"error": "Retreat not found"})
		return
	}

	c.JSON(http.StatusOK, retreat)
}

type retreatRequest struct {
	Title        string       `json:"title" binding:"required"`
	Description  string       `json:"description" binding:"required"`
	Summary      string       `json:"summary"`
	Features     string       `json:"features"`
	Benefits     string       `json:"benefits"`
	Inclusions   string       `json:"inclusions"`
	LocationID   string       `json:"location_id"`
	City         string       `json:"city"`
	Country      string       `json:"country"`
	Price        models.Price `json:"price"`
	DurationDays int          `json:"duration_days"`
	StartDate    time.Time    `json:"start_date"`
	EndDate      time.Time    `json:"end_date"`
	Types        []string     `json:"types"`
	Amenities    []string     `json:"amenities"`
	Atmosphere   []string     `json:"atmosphere"`
	SkillLevel   []string     `json:"skill_level"`
	Area         []string     `json:"area"`
	Food         []string     `json:"food"`
	AgeGroup     []string     `json:"age_group"`
	RoomType     []string     `json:"room_type"`
}

func (r *retreatRequest) toInput() (services.RetreatInput, error) {
	input := services.RetreatInput{
		Title:        r.Title,
		Description:  r.Description,
		Summary:      r.Summary,
		Features:     r.Features,
		Benefits:     r.Benefits,
		Inclusions:   r.Inclusions,
		City:         r.City,
		Country:      r.Country,
		Price:        r.Price,
		DurationDays: r.DurationDays,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		Types:        r.Types,
		Amenities:    r.Amenities,
		Atmosphere:   r.Atmosphere,
		SkillLevel:   r.SkillLevel,
		Area:         r.Area,
		Food:         r.Food,
		AgeGroup:     r.AgeGroup,
		RoomType:     r.RoomType,
	}
	if r.LocationID != "" {
		locationID, err := utils.ParseSixID(r.LocationID)
		if err != nil {
			return input, err
		}
		input.LocationID = locationID
	}
	return input, nil
}

// CreateRetreat handles POST /v1/owner/retreat
func (h *RestRetreatHandler) CreateRetreat(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req retreatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location ID format"})
		return
	}

	retreat, err := h.retreatService.CreateRetreat(c.Request.Context(), ownerID, input)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create retreat"})
		return
	}

	c.JSON(http.StatusCreated, retreat)
}

// ListOwnRetreats handles GET /v1/owner/retreat
func (h *RestRetreatHandler) ListOwnRetreats(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	retreats, err := h.retreatService.FindRetreatsByHostID(c.Request.Context(), ownerID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list retreats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": retreats})
}

// UpdateRetreat handles PUT /v1/owner/retreat/:id
func (h *RestRetreatHandler) UpdateRetreat(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}
	retreatID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid retreat ID format"})
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	retreat, err := h.retreatService.UpdateRetreat(c.Request.Context(), retreatID, ownerID, updates)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, retreat)
}

// lifecycleAction wraps the publish/hide/unhide/delete operations, which all
// share the same handler shape.
func (h *RestRetreatHandler) lifecycleAction(c *gin.Context, action func(retreatID, ownerID utils.SixID) error) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}
	retreatID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid retreat ID format"})
		return
	}

	if err := action(retreatID, ownerID); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PublishRetreat handles POST /v1/owner/retreat/:id/publish
func (h *RestRetreatHandler) PublishRetreat(c *gin.Context) {
	h.lifecycleAction(c, func(retreatID, ownerID utils.SixID) error {
		return h.retreatService.PublishRetreat(c.Request.Context(), retreatID, ownerID)
	})
}

// HideRetreat handles POST /v1/owner/retreat/:id/hide
func (h *RestRetreatHandler) HideRetreat(c *gin.Context) {
	h.lifecycleAction(c, func(retreatID, ownerID utils.SixID) error {
		return h.retreatService.HideRetreat(c.Request.Context(), retreatID, ownerID)
	})
}

// UnhideRetreat handles POST /v1/owner/retreat/:id/unhide
func (h *RestRetreatHandler) UnhideRetreat(c *gin.Context) {
	h.lifecycleAction(c, func(retreatID, ownerID utils.SixID) error {
		return h.retreatService.UnhideRetreat(c.Request.Context(), retreatID, ownerID)
	})
}

// DeleteRetreat handles DELETE /v1/owner/retreat/:id
func (h *RestRetreatHandler) DeleteRetreat(c *gin.Context) {
	h.lifecycleAction(c, func(retreatID, ownerID utils.SixID) error {
		return h.retreatService.DeleteRetreat(c.Request.Context(), retreatID, ownerID)
	})
}

type imagePresignRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// PresignRetreatImage handles POST /v1/owner/retreat/:id/image
// It verifies ownership, returns an upload URL and key; the client PUTs the
// file to S3 and then calls the complete endpoint.
func (h *RestRetreatHandler) PresignRetreatImage(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}
	retreatID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid retreat ID format"})
		return
	}

	var req imagePresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	retreat, err := h.retreatService.FindRetreatByID(c.Request.Context(), retreatID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Retreat not found"})
		return
	}
	if retreat.HostID != ownerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Retreat does not belong to you"})
		return
	}

	url, key, err := h.storageService.GeneratePresignedPutURL(c.Request.Context(), ownerID.String(), retreatID.String(), req.Filename, req.ContentType)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate upload URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"upload_url": url, "key": key})
}

type imageCompleteRequest struct {
	Key string `json:"key" binding:"required"`
}

// CompleteRetreatImage handles POST /v1/owner/retreat/:id/image/complete
// It enqueues the normalization task; the image only becomes part of the
// retreat once the worker has processed it.
func (h *RestRetreatHandler) CompleteRetreatImage(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}
	retreatID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid retreat ID format"})
		return
	}

	var req imageCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	retreat, err := h.retreatService.FindRetreatByID(c.Request.Context(), retreatID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Retreat not found"})
		return
	}
	if retreat.HostID != ownerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Retreat does not belong to you"})
		return
	}

	task, err := tasks.NewImageProcessTask(req.Key, retreatID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to schedule image processing"})
		return
	}
	if _, err := h.taskClient.EnqueueContext(c.Request.Context(), task); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to schedule image processing"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"success": true})
}
