package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/api/middleware"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/config"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/models"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/services"
)

// MockSettingsService implements services.ISettingsService
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
	if err := args.Error(1); err != nil {
		return defaultValue
	}
	return args.Int(0)
}
func (m *MockSettingsService) GetString(ctx context.Context, key string, defaultValue string) string {
	args := m.Called(ctx, key, defaultValue)
	if err := args.Error(1); err != nil {
		return defaultValue
	}
	return args.String(0)
}
func (m *MockSettingsService) GetBool(ctx context.Context, key string, defaultValue bool) bool {
	args := m.Called(ctx, key, defaultValue)
	if err := args.Error(1); err != nil {
		return defaultValue
	}
	return args.Bool(0)
}
func (m *MockSettingsService) GetFloat64(ctx context.Context, key string, defaultValue float64) float64 {
	args := m.Called(ctx, key, defaultValue)
	if err := args.Error(1); err != nil {
		return defaultValue
	}
	if fVal, ok := args.Get(0).(float64); ok {
		return fVal
	}
	return float64(args.Int(0))
}
func (m *MockSettingsService) GetDuration(ctx context.Context, key string, defaultValue time.Duration) time.Duration {
	args := m.Called(ctx, key, defaultValue)
	if err := args.Error(1); err != nil {
		return defaultValue
	}
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

func setupTestEngine(cfg *config.Config, settingsSvc services.ISettingsService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg, settingsSvc)
	r.Use(rateLimiter.Limit())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return r
}

func TestRateLimiterMiddleware_HardLimit(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 1,
		RateLimitHardBucketSize: 1,
		RateLimitSoftRefillRate: 10,
		RateLimitSoftBucketSize: 10,
	}
	mockSettingsSvc := new(MockSettingsService)
	mockSettingsSvc.On("GetAPIEndpointConfig", mock.Anything, models.APITypeREST, "/test", false).Return(nil, nil)
	router := setupTestEngine(cfg, mockSettingsSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "1.2.3.4:12345"

	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Second request immediately should fail (hard limit).
	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest("GET", "/test", nil)
	req2.RemoteAddr = "1.2.3.4:12345"
	router.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)
	mockSettingsSvc.AssertExpectations(t)
}

func TestRateLimiterMiddleware_SoftLimit(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 10,
		RateLimitHardBucketSize: 10,
		RateLimitSoftRefillRate: 1,
		RateLimitSoftBucketSize: 1,
	}
	mockSettingsSvc := new(MockSettingsService)
	mockSettingsSvc.On("GetAPIEndpointConfig", mock.Anything, models.APITypeREST, "/test", false).Return(nil, nil)
	router := setupTestEngine(cfg, mockSettingsSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "5.6.7.8:12345"

	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Second anonymous request immediately should hit the soft limit.
	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest("GET", "/test", nil)
	req2.RemoteAddr = "5.6.7.8:12345"
	router.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)
	assert.Equal(t, "1", w2.Header().Get("Retry-After"))
	var respBody map[string]interface{}
	err := json.Unmarshal(w2.Body.Bytes(), &respBody)
	assert.NoError(t, err)
	assert.Contains(t, respBody["error"], "slow down")
	mockSettingsSvc.AssertExpectations(t)
}

func TestRateLimiterMiddleware_AuthenticatedSkipsSoftTier(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 10,
		RateLimitHardBucketSize: 10,
		RateLimitSoftRefillRate: 1,
		RateLimitSoftBucketSize: 1,
	}
	mockSettingsSvc := new(MockSettingsService)
	mockSettingsSvc.On("GetAPIEndpointConfig", mock.Anything, models.APITypeREST, "/test", false).Return(nil, nil)
	router := setupTestEngine(cfg, mockSettingsSvc)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "9.1.2.3:12345"
		req.Header.Set("Authorization", "Bearer some-token")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	mockSettingsSvc.AssertExpectations(t)
}

func TestRateLimiterMiddleware_EndpointOverride(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 1,
		RateLimitHardBucketSize: 1,
		RateLimitSoftRefillRate: 1,
		RateLimitSoftBucketSize: 1,
	}
	mockSettingsSvc := new(MockSettingsService)
	// The settings store grants this endpoint a bigger bucket than the
	// global default.
	mockSettingsSvc.On("GetAPIEndpointConfig", mock.Anything, models.APITypeREST, "/test", false).Return(&models.APIEndpointConfig{
		APIType:       models.APITypeREST,
		Endpoint:      "/test",
		RateLimitSoft: &models.RateLimitConfig{BucketSize: 5, TokenRefillRate: 5},
		RateLimitHard: &models.RateLimitConfig{BucketSize: 5, TokenRefillRate: 5},
	}, nil)
	router := setupTestEngine(cfg, mockSettingsSvc)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "7.7.7.7:12345"
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass under the override", i)
	}
	mockSettingsSvc.AssertExpectations(t)
}

func TestRateLimiterMiddleware_OverrideReachesExistingClient(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 10,
		RateLimitHardBucketSize: 10,
		RateLimitSoftRefillRate: 10,
		RateLimitSoftBucketSize: 10,
	}
	mockSettingsSvc := new(MockSettingsService)
	// The first request sees no override; the settings store then tightens
	// the endpoint to a single-token bucket.
	mockSettingsSvc.On("GetAPIEndpointConfig", mock.Anything, models.APITypeREST, "/test", false).
		Return(nil, nil).Once()
	mockSettingsSvc.On("GetAPIEndpointConfig", mock.Anything, models.APITypeREST, "/test", false).
		Return(&models.APIEndpointConfig{
			APIType:       models.APITypeREST,
			Endpoint:      "/test",
			RateLimitHard: &models.RateLimitConfig{BucketSize: 1, TokenRefillRate: 1},
		}, nil)
	router := setupTestEngine(cfg, mockSettingsSvc)

	send := func() int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "3.3.3.3:12345"
		req.Header.Set("Authorization", "Bearer some-token")
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send(), "first request passes under the defaults")
	assert.Equal(t, http.StatusOK, send(), "override caps the bucket to one remaining token")
	assert.Equal(t, http.StatusTooManyRequests, send(), "existing client is throttled by the new config")
	mockSettingsSvc.AssertExpectations(t)
}
