package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/services"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/utils"
)

// RestWishlistHandler handles wishlist REST endpoints. The wishlist is a
// per-user set; adding twice is a no-op.
type RestWishlistHandler struct {
	wishlistService services.IWishlistService
	retreatService  services.IRetreatService
}

// NewRestWishlistHandler creates a new RestWishlistHandler.
func NewRestWishlistHandler(wishlistService services.IWishlistService, retreatService services.IRetreatService) *RestWishlistHandler {
	return &RestWishlistHandler{
		wishlistService: wishlistService,
		retreatService:  retreatService,
	}
}

// ListWishlist handles GET /v1/wishlist
func (h *RestWishlistHandler) ListWishlist(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	entries, err := h.wishlistService.List(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load wishlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// AddToWishlist handles PUT /v1/wishlist/:retreat_id
func (h *RestWishlistHandler) AddToWishlist(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	retreatID, err := utils.ParseSixID(c.Param("retreat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid retreat ID format"})
		return
	}

	// The stored entry is a denormalized copy of the retreat as of now.
	retreat, err := h.retreatService.FindRetreatByID(c.Request.Context(), retreatID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Retreat not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load retreat"})
		return
	}

	if err := h.wishlistService.Add(c.Request.Context(), userID, *retreat); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update wishlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RemoveFromWishlist handles DELETE /v1/wishlist/:retreat_id
func (h *RestWishlistHandler) RemoveFromWishlist(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	retreatID, err := utils.ParseSixID(c.Param("retreat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid retreat ID format"})
		return
	}

	if err := h.wishlistService.Remove(c.Request.Context(), userID, retreatID); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update wishlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CheckWishlist handles GET /v1/wishlist/:retreat_id
func (h *RestWishlistHandler) CheckWishlist(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	retreatID, err := utils.ParseSixID(c.Param("retreat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid retreat ID format"})
		return
	}

	present, err := h.wishlistService.Contains(c.Request.Context(), userID, retreatID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check wishlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"present": present})
}
