package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/api/middleware"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/models"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/services"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/utils"
)

// newTestRouter returns a bare engine in test mode.
func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// authAs stands in for the auth middleware, injecting a signed-in identity.
func authAs(userID utils.SixID, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID.String())
		c.Set(middleware.ContextKeyRole, role)
		c.Next()
	}
}

func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	return performRequestWithHeaders(router, method, path, body, nil)
}

func performRequestWithHeaders(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// MockUserService mocks services.IUserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Signup(ctx context.Context, name, email, password string, role models.Role) (*models.User, error) {
	args := m.Called(ctx, name, email, password, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByID(ctx context.Context, userID utils.SixID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockRetreatService mocks services.IRetreatService.
type MockRetreatService struct {
	mock.Mock
}

func (m *MockRetreatService) CreateRetreat(ctx context.Context, hostID utils.SixID, input services.RetreatInput) (*models.Retreat, error) {
	args := m.Called(ctx, hostID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Retreat), args.Error(1)
}

func (m *MockRetreatService) FindRetreatByID(ctx context.Context, retreatID utils.SixID) (*models.Retreat, error) {
	args := m.Called(ctx, retreatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Retreat), args.Error(1)
}

func (m *MockRetreatService) UpdateRetreat(ctx context.Context, retreatID, hostID utils.SixID, updates map[string]interface{}) (*models.Retreat, error) {
	args := m.Called(ctx, retreatID, hostID, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Retreat), args.Error(1)
}

func (m *MockRetreatService) PublishRetreat(ctx context.Context, retreatID, hostID utils.SixID) error {
	args := m.Called(ctx, retreatID, hostID)
	return args.Error(0)
}

func (m *MockRetreatService) HideRetreat(ctx context.Context, retreatID, hostID utils.SixID) error {
	args := m.Called(ctx, retreatID, hostID)
	return args.Error(0)
}

func (m *MockRetreatService) UnhideRetreat(ctx context.Context, retreatID, hostID utils.SixID) error {
	args := m.Called(ctx, retreatID, hostID)
	return args.Error(0)
}

func (m *MockRetreatService) DeleteRetreat(ctx context.Context, retreatID, hostID utils.SixID) error {
	args := m.Called(ctx, retreatID, hostID)
	return args.Error(0)
}

func (m *MockRetreatService) SearchRetreats(ctx context.Context, filters *services.RetreatFilters) ([]models.Retreat, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Retreat), args.Error(1)
}

func (m *MockRetreatService) FindRetreatsByHostID(ctx context.Context, hostID utils.SixID) ([]models.Retreat, error) {
	args := m.Called(ctx, hostID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Retreat), args.Error(1)
}

func (m *MockRetreatService) AddImageToRetreat(ctx context.Context, retreatID utils.SixID, imageKey string) error {
	args := m.Called(ctx, retreatID, imageKey)
	return args.Error(0)
}

// MockBookingService mocks services.IBookingService.
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, retreatID, customerID utils.SixID, startDate, endDate time.Time) (*models.Booking, error) {
	args := m.Called(ctx, retreatID, customerID, startDate, endDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) FindBookingByID(ctx context.Context, bookingID utils.SixID) (*models.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) ListBookingsByCustomer(ctx context.Context, customerID utils.SixID) ([]models.Booking, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *MockBookingService) ListBookingsByRetreat(ctx context.Context, retreatID, hostID utils.SixID) ([]models.Booking, error) {
	args := m.Called(ctx, retreatID, hostID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *MockBookingService) TransitionBooking(ctx context.Context, bookingID utils.SixID, next models.BookingStatus) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, next)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

// MockWishlistService mocks services.IWishlistService.
type MockWishlistService struct {
	mock.Mock
}

func (m *MockWishlistService) Add(ctx context.Context, userID utils.SixID, retreat models.Retreat) error {
	args := m.Called(ctx, userID, retreat)
	return args.Error(0)
}

func (m *MockWishlistService) Remove(ctx context.Context, userID utils.SixID, retreatID utils.SixID) error {
	args := m.Called(ctx, userID, retreatID)
	return args.Error(0)
}

func (m *MockWishlistService) Contains(ctx context.Context, userID utils.SixID, retreatID utils.SixID) (bool, error) {
	args := m.Called(ctx, userID, retreatID)
	return args.Bool(0), args.Error(1)
}

func (m *MockWishlistService) List(ctx context.Context, userID utils.SixID) ([]models.WishlistEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WishlistEntry), args.Error(1)
}

// MockLocationService mocks services.ILocationService.
type MockLocationService struct {
	mock.Mock
}

func (m *MockLocationService) SearchLocations(ctx context.Context, query string, limit int) ([]models.Location, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Location), args.Error(1)
}

func (m *MockLocationService) FindLocationByID(ctx context.Context, locationID utils.SixID) (*models.Location, error) {
	args := m.Called(ctx, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationService) CreateLocation(ctx context.Context, city, country string, point *models.GeoJSON) (*models.Location, error) {
	args := m.Called(ctx, city, country, point)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationService) UpdateLocation(ctx context.Context, locationID utils.SixID, city, country string, point *models.GeoJSON) (*models.Location, error) {
	args := m.Called(ctx, locationID, city, country, point)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationService) DeleteLocation(ctx context.Context, locationID utils.SixID) error {
	args := m.Called(ctx, locationID)
	return args.Error(0)
}

// MockS3Storage mocks storage.IS3Storage.
type MockS3Storage struct {
	mock.Mock
}

func (m *MockS3Storage) GeneratePresignedPutURL(ctx context.Context, hostID, retreatID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, hostID, retreatID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockS3Storage) PublicURL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockS3Storage) Client() *s3.Client {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*s3.Client)
}

// MockSettingsService mocks services.ISettingsService.
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) GetAllPublic(ctx context.Context) (map[string]interface{}, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockSettingsService) Get(ctx context.Context, key string) (interface{}, error) {
	args := m.Called(ctx, key)
	return args.Get(0), args.Error(1)
}

func (m *MockSettingsService) GetInt(ctx context.Context, key string, defaultValue int) int {
	args := m.Called(ctx, key, defaultValue)
	return args.Int(0)
}

func (m *MockSettingsService) GetString(ctx context.Context, key string, defaultValue string) string {
	args := m.Called(ctx, key, defaultValue)
	return args.String(0)
}

func (m *MockSettingsService) GetBool(ctx context.Context, key string, defaultValue bool) bool {
	args := m.Called(ctx, key, defaultValue)
	return args.Bool(0)
}

func (m *MockSettingsService) GetFloat64(ctx context.Context, key string, defaultValue float64) float64 {
	args := m.Called(ctx, key, defaultValue)
	return args.Get(0).(float64)
}

func (m *MockSettingsService) GetDuration(ctx context.Context, key string, defaultValue time.Duration) time.Duration {
	args := m.Called(ctx, key, defaultValue)
	return args.Get(0).(time.Duration)
}

func (m *MockSettingsService) Load(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSettingsService) SubscribeToChanges(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSettingsService) SetSetting(ctx context.Context, key string, value interface{}, isPublic bool) error {
	args := m.Called(ctx, key, value, isPublic)
	return args.Error(0)
}

func (m *MockSettingsService) GetAPIEndpointConfig(ctx context.Context, apiType models.APIType, endpoint string, isAuthenticated bool) (*models.APIEndpointConfig, error) {
	args := m.Called(ctx, apiType, endpoint, isAuthenticated)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIEndpointConfig), args.Error(1)
}

// MockAsynqClient mocks task enqueueing.
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}
