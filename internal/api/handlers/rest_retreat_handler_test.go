package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/models"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/services"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/utils"
)

func TestSearchRetreats_FilterParsing(t *testing.T) {
	mockRetreats := new(MockRetreatService)
	handler := NewRestRetreatHandler(mockRetreats, nil, nil)

	router := newTestRouter()
	router.GET("/v1/retreat/search", handler.SearchRetreats)

	mockRetreats.On("SearchRetreats", mock.Anything, mock.MatchedBy(func(f *services.RetreatFilters) bool {
		return f.Location != nil && *f.Location == "Bali" &&
			len(f.Types) == 1 && f.Types[0] == "Yoga" &&
			f.PriceMin != nil && *f.PriceMin == 100 &&
			f.PriceMax != nil && *f.PriceMax == 900 &&
			f.DurationMin != nil && *f.DurationMin == 3 &&
			len(f.Amenities) == 2
	})).Return([]models.Retreat{}, nil)

	w := performRequest(router, "GET",
		"/v1/retreat/search?location=Bali&category=Yoga&priceMin=100&priceMax=900&durationMin=3&amenities=Pool,%20Sauna", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	mockRetreats.AssertExpectations(t)
}

func TestGetRetreatByID(t *testing.T) {
	mockRetreats := new(MockRetreatService)
	handler := NewRestRetreatHandler(mockRetreats, nil, nil)

	router := newTestRouter()
	router.GET("/v1/retreat/:id", handler.GetRetreatByID)

	retreat := &models.Retreat{Title: "Jungle Yoga Week"}
	retreat.ID = utils.NewSixID()
	mockRetreats.On("FindRetreatByID", mock.Anything, retreat.ID).Return(retreat, nil)

	w := performRequest(router, "GET", "/v1/retreat/"+retreat.ID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Jungle Yoga Week")
}

func TestGetRetreatByID_DraftHiddenFromPublic(t *testing.T) {
	mockRetreats := new(MockRetreatService)
	handler := NewRestRetreatHandler(mockRetreats, nil, nil)

	router := newTestRouter()
	router.GET("/v1/retreat/:id", handler.GetRetreatByID)

	draft := &models.Retreat{Title: "Unfinished", IsDraft: true}
	draft.ID = utils.NewSixID()
	mockRetreats.On("FindRetreatByID", mock.Anything, draft.ID).Return(draft, nil)

	w := performRequest(router, "GET", "/v1/retreat/"+draft.ID.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRetreatByID_NotFound(t *testing.T) {
	mockRetreats := new(MockRetreatService)
	handler := NewRestRetreatHandler(mockRetreats, nil, nil)

	router := newTestRouter()
	router.GET("/v1/retreat/:id", handler.GetRetreatByID)

	unknown := utils.NewSixID()
	mockRetreats.On("FindRetreatByID", mock.Anything, unknown).Return(nil, mongo.ErrNoDocuments)

	w := performRequest(router, "GET", "/v1/retreat/"+unknown.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRetreat(t *testing.T) {
	mockRetreats := new(MockRetreatService)
	handler := NewRestRetreatHandler(mockRetreats, nil, nil)

	ownerID := utils.NewSixID()
	router := newTestRouter()
	router.POST("/v1/owner/retreat", authAs(ownerID, models.RoleOwner), handler.CreateRetreat)

	created := &models.Retreat{Title: "Jungle Yoga Week", HostID: ownerID, IsDraft: true}
	created.ID = utils.NewSixID()
	mockRetreats.On("CreateRetreat", mock.Anything, ownerID, mock.MatchedBy(func(input services.RetreatInput) bool {
		return input.Title == "Jungle Yoga Week" && input.DurationDays == 7
	})).Return(created, nil)

	w := performRequest(router, "POST", "/v1/owner/retreat", gin.H{
		"title":         "Jungle Yoga Week",
		"description":   "Seven days of yoga in the jungle",
		"city":          "Ubud",
		"country":       "Indonesia",
		"price":         gin.H{"amount": 850, "currency_code": "USD"},
		"duration_days": 7,
		"types":         []string{"Yoga"},
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp models.Retreat
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsDraft)
	mockRetreats.AssertExpectations(t)
}

func TestPublishRetreat_ConflictOnFailure(t *testing.T) {
	mockRetreats := new(MockRetreatService)
	handler := NewRestRetreatHandler(mockRetreats, nil, nil)

	ownerID := utils.NewSixID()
	retreatID := utils.NewSixID()
	router := newTestRouter()
	router.POST("/v1/owner/retreat/:id/publish", authAs(ownerID, models.RoleOwner), handler.PublishRetreat)

	mockRetreats.On("PublishRetreat", mock.Anything, retreatID, ownerID).
		Return(errors.New("retreat is already published"))

	w := performRequest(router, "POST", "/v1/owner/retreat/"+retreatID.String()+"/publish", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already published")
}

func TestPresignRetreatImage(t *testing.T) {
	mockRetreats := new(MockRetreatService)
	mockStorage := new(MockS3Storage)
	handler := NewRestRetreatHandler(mockRetreats, mockStorage, nil)

	ownerID := utils.NewSixID()
	retreat := &models.Retreat{HostID: ownerID}
	retreat.ID = utils.NewSixID()

	router := newTestRouter()
	router.POST("/v1/owner/retreat/:id/image", authAs(ownerID, models.RoleOwner), handler.PresignRetreatImage)

	mockRetreats.On("FindRetreatByID", mock.Anything, retreat.ID).Return(retreat, nil)
	mockStorage.On("GeneratePresignedPutURL", mock.Anything, ownerID.String(), retreat.ID.String(), "photo.jpg", "image/jpeg").
		Return("https://bucket.s3.amazonaws.com/presigned", "uploads/key", nil)

	w := performRequest(router, "POST", "/v1/owner/retreat/"+retreat.ID.String()+"/image", gin.H{
		"filename":     "photo.jpg",
		"content_type": "image/jpeg",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "presigned")
	assert.Contains(t, w.Body.String(), "uploads/key")
}

func TestPresignRetreatImage_NotOwner(t *testing.T) {
	mockRetreats := new(MockRetreatService)
	mockStorage := new(MockS3Storage)
	handler := NewRestRetreatHandler(mockRetreats, mockStorage, nil)

	retreat := &models.Retreat{HostID: utils.NewSixID()}
	retreat.ID = utils.NewSixID()
	intruderID := utils.NewSixID()

	router := newTestRouter()
	router.POST("/v1/owner/retreat/:id/image", authAs(intruderID, models.RoleOwner), handler.PresignRetreatImage)

	mockRetreats.On("FindRetreatByID", mock.Anything, retreat.ID).Return(retreat, nil)

	w := performRequest(router, "POST", "/v1/owner/retreat/"+retreat.ID.String()+"/image", gin.H{
		"filename":     "photo.jpg",
		"content_type": "image/jpeg",
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockStorage.AssertNotCalled(t, "GeneratePresignedPutURL",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteRetreatImage_EnqueuesProcessing(t *testing.T) {
	mockRetreats := new(MockRetreatService)
	mockClient := new(MockAsynqClient)
	handler := NewRestRetreatHandler(mockRetreats, nil, mockClient)

	ownerID := utils.NewSixID()
	retreat := &models.Retreat{HostID: ownerID}
	retreat.ID = utils.NewSixID()

	router := newTestRouter()
	router.POST("/v1/owner/retreat/:id/image/complete", authAs(ownerID, models.RoleOwner), handler.CompleteRetreatImage)

	mockRetreats.On("FindRetreatByID", mock.Anything, retreat.ID).Return(retreat, nil)
	mockClient.On("EnqueueContext", mock.Anything, mock.Anything).Return(nil, nil)

	w := performRequest(router, "POST", "/v1/owner/retreat/"+retreat.ID.String()+"/image/complete", gin.H{
		"key": "uploads/key",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	mockClient.AssertExpectations(t)
}
