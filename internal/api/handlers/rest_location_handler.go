package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/models"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/services"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/utils"
)

// RestLocationHandler handles requests for location REST endpoints.
type RestLocationHandler struct {
	locationService services.ILocationService
}

// NewRestLocationHandler creates a new RestLocationHandler.
func NewRestLocationHandler(locationService services.ILocationService) *RestLocationHandler {
	return &RestLocationHandler{locationService: locationService}
}

// LocationAPIResponse is the destination-picker shape served to the SPA.
type LocationAPIResponse struct {
	ID          string    `json:"id"`
	City        string    `json:"city"`
	Country     string    `json:"country"`
	Label       string    `json:"label"`
	Coordinates []float64 `json:"coordinates,omitempty"`
}

func locationResponse(loc models.Location) LocationAPIResponse {
	resp := LocationAPIResponse{
		ID:      loc.ID.String(),
		City:    loc.City,
		Country: loc.Country,
		Label:   loc.Label(),
	}
	if loc.Point != nil && loc.Point.Coordinates != nil {
		resp.Coordinates = loc.Point.Coordinates
	}
	return resp
}

// SearchLocations handles GET /v1/location/search. An empty query returns
// all destinations (the picker shows them unfiltered).
func (h *RestLocationHandler) SearchLocations(c *gin.Context) {
	query := c.Query("q")

	limitStr := c.DefaultQuery("limit", "20")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}

	locations, err := h.locationService.SearchLocations(c.Request.Context(), query, limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search locations"})
		return
	}

	results := make([]LocationAPIResponse, 0, len(locations))
	for _, loc := range locations {
		results = append(results, locationResponse(loc))
	}

	c.JSON(http.StatusOK, results)
}

type locationRequest struct {
	City    string          `json:"city"`
	Country string          `json:"country"`
	Point   *models.GeoJSON `json:"point,omitempty"`
}

// CreateLocation handles POST /v1/owner/location.
func (h *RestLocationHandler) CreateLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.City == "" && req.Country == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A city or country is required"})
		return
	}

	location, err := h.locationService.CreateLocation(c.Request.Context(), req.City, req.Country, req.Point)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create location"})
		return
	}

	c.JSON(http.StatusCreated, locationResponse(*location))
}

// UpdateLocation handles PUT /v1/owner/location/:id.
func (h *RestLocationHandler) UpdateLocation(c *gin.Context) {
	locationID, err := utils.ParseSixID(c.Param("id"))
	if err != nil || locationID == (utils.SixID{}) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location ID"})
		return
	}

	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	location, err := h.locationService.UpdateLocation(c.Request.Context(), locationID, req.City, req.Country, req.Point)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Location not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update location"})
		return
	}

	c.JSON(http.StatusOK, locationResponse(*location))
}

// DeleteLocation handles DELETE /v1/owner/location/:id.
func (h *RestLocationHandler) DeleteLocation(c *gin.Context) {
	locationID, err := utils.ParseSixID(c.Param("id"))
	if err != nil || locationID == (utils.SixID{}) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location ID"})
		return
	}

	if err := h.locationService.DeleteLocation(c.Request.Context(), locationID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Location not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete location"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
