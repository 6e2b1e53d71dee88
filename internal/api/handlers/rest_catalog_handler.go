package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/search"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/services"
)

// RestCatalogHandler serves the live catalog: a per-client session whose
// filter changes are debounced server-side and whose visible list is always
// derived from the loaded set.
type RestCatalogHandler struct {
	catalogService services.ICatalogService
}

// NewRestCatalogHandler creates a new RestCatalogHandler.
func NewRestCatalogHandler(catalogService services.ICatalogService) *RestCatalogHandler {
	return &RestCatalogHandler{catalogService: catalogService}
}

// sessionID identifies the catalog session. The SPA sends a stable X-SPA
// header; anonymous clients without one fall back to their IP.
func sessionID(c *gin.Context) string {
	if spa := c.GetHeader("X-SPA"); spa != "" {
		return spa
	}
	return c.ClientIP()
}

// catalogFiltersRequest is the filter selection payload sent by the SPA.
// Absent fields mean "filter not applied".
type catalogFiltersRequest struct {
	Location      string      `json:"location"`
	Category      string      `json:"category"`
	PriceRange    *[2]float64 `json:"price_range"`
	DurationRange *[2]int     `json:"duration_range"`
	StartDate     *time.Time  `json:"start_date"`
	EndDate       *time.Time  `json:"end_date"`
	SkillLevels   []string    `json:"skill_levels"`
	Areas         []string    `json:"areas"`
	Foods         []string    `json:"foods"`
	AgeGroups     []string    `json:"age_groups"`
	RoomTypes     []string    `json:"room_types"`
	Sort          string      `json:"sort"`
}

func (r catalogFiltersRequest) toFilterState() search.FilterState {
	f := search.NewFilterState()
	f.Location = r.Location
	f.Category = r.Category
	if r.PriceRange != nil {
		f.PriceRange = *r.PriceRange
	}
	if r.DurationRange != nil {
		f.DurationRange = *r.DurationRange
	}
	if r.StartDate != nil {
		f.StartDate = *r.StartDate
	}
	if r.EndDate != nil {
		f.EndDate = *r.EndDate
	}
	f.SkillLevels = r.SkillLevels
	f.Areas = r.Areas
	f.Foods = r.Foods
	f.AgeGroups = r.AgeGroups
	f.RoomTypes = r.RoomTypes
	if r.Sort != "" {
		f.Sort = r.Sort
	}
	return f
}

// catalogView is the response shape shared by GetCatalog and SetCatalogFilters.
func (h *RestCatalogHandler) catalogView(c *gin.Context, session *services.CatalogSession) {
	retreats, filters, err := h.catalogService.View(session)
	resp := gin.H{
		"data": retreats,
		// Canonical shareable query string for the active filters.
		"query": search.EncodeParams(filters).Encode(),
	}
	if err != nil {
		resp["stale"] = true
	}
	c.JSON(http.StatusOK, resp)
}

// GetCatalog handles GET /v1/catalog. On a fresh session the initial filter
// state is decoded from the request's query parameters (a shared URL) and the
// loaded set is fetched immediately, not debounced.
func (h *RestCatalogHandler) GetCatalog(c *gin.Context) {
	session := h.catalogService.Session(sessionID(c))

	if !session.Loaded() {
		initial := search.DecodeParams(c.Request.URL.Query())
		h.catalogService.SeedFilters(session, initial)
		if err := h.catalogService.Refresh(c.Request.Context(), session); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load catalog"})
			return
		}
	}

	h.catalogView(c, session)
}

// SetCatalogFilters handles PUT /v1/catalog/filters. The backend re-fetch is
// debounced; the response reflects the new filters applied to whatever set is
// already loaded, so the client sees an instant (possibly stale) narrowing.
func (h *RestCatalogHandler) SetCatalogFilters(c *gin.Context) {
	var req catalogFiltersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session := h.catalogService.Session(sessionID(c))
	h.catalogService.SetFilters(session, req.toFilterState())
	h.catalogView(c, session)
}

// RefreshCatalog handles POST /v1/catalog/refresh. Forces an immediate
// backend fetch with the current filters, bypassing the debounce window.
func (h *RestCatalogHandler) RefreshCatalog(c *gin.Context) {
	session := h.catalogService.Session(sessionID(c))
	if err := h.catalogService.Refresh(c.Request.Context(), session); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh catalog"})
		return
	}
	h.catalogView(c, session)
}
