package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/config"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/models"
)

// ISettingsService provides dynamic application settings stored in Mongo and
// cached in memory, with Redis pub/sub invalidation across processes.
type ISettingsService interface {
	GetAllPublic(ctx context.Context) (map[string]interface{}, error)
	Get(ctx context.Context, key string) (interface{}, error)
	GetInt(ctx context.Context, key string, defaultValue int) int
	GetString(ctx context.Context, key string, defaultValue string) string
	GetBool(ctx context.Context, key string, defaultValue bool) bool
	GetFloat64(ctx context.Context, key string, defaultValue float64) float64
	GetDuration(ctx context.Context, key string, defaultValue time.Duration) time.Duration
	Load(ctx context.Context) error
	SubscribeToChanges(ctx context.Context) error
	SetSetting(ctx context.Context, key string, value interface{}, isPublic bool) error
	GetAPIEndpointConfig(ctx context.Context, apiType models.APIType, endpoint string, isAuthenticated bool) (*models.APIEndpointConfig, error)
}

const (
	settingsCollection    = "settings"
	apiConfigCollection   = "api_endpoints_config"
	settingsUpdateChannel = "settings_updates"
)

// settingsService implements ISettingsService.
type settingsService struct {
	db       *mongo.Database
	cfg      *config.Config // Holds initial defaults loaded from .env
	rdb      *redis.Client
	cache    map[string]interface{}
	public   map[string]bool
	apiCache map[string]*models.APIEndpointConfig
	mutex    sync.RWMutex
}

// SettingsEntry represents a document in the settings collection.
type SettingsEntry struct {
	Key    string      `bson:"key"`
	Value  interface{} `bson:"value"`
	Public bool        `bson:"public"`
}

// NewSettingsService creates a new SettingsService, loads the initial values
// from the database, and starts the pub/sub listener.
func NewSettingsService(db *mongo.Database, initialCfg *config.Config, rdb *redis.Client) ISettingsService {
	s := &settingsService{
		db:       db,
		cfg:      initialCfg,
		rdb:      rdb,
		cache:    make(map[string]interface{}),
		public:   make(map[string]bool),
		apiCache: make(map[string]*models.APIEndpointConfig),
	}
	if err := s.Load(context.Background()); err != nil {
		log.Printf("WARNING: Failed to load initial settings from DB: %v. Using defaults from .env", err)
	}
	go func() {
		if err := s.SubscribeToChanges(context.Background()); err != nil {
			log.Printf("CRITICAL: Settings Pub/Sub listener stopped: %v", err)
		}
	}()
	return s
}

// Load fetches all settings entries from DB and populates the in-memory cache.
func (s *settingsService) Load(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cursor, err := s.db.Collection(settingsCollection).Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to query settings collection: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []SettingsEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return fmt.Errorf("failed to decode settings entries: %w", err)
	}

	s.cache = make(map[string]interface{}, len(entries))
	s.public = make(map[string]bool, len(entries))
	for _, entry := range entries {
		s.cache[entry.Key] = entry.Value
		s.public[entry.Key] = entry.Public
	}

	// Reload API endpoint overrides as well.
	apiCursor, err := s.db.Collection(apiConfigCollection).Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to query API endpoint config collection: %w", err)
	}
	defer apiCursor.Close(ctx)

	var apiEntries []models.APIEndpointConfig
	if err = apiCursor.All(ctx, &apiEntries); err != nil {
		return fmt.Errorf("failed to decode API endpoint configs: %w", err)
	}
	s.apiCache = make(map[string]*models.APIEndpointConfig, len(apiEntries))
	for i := range apiEntries {
		entry := apiEntries[i]
		s.apiCache[apiConfigCacheKey(entry.APIType, entry.Endpoint, entry.Authenticated)] = &entry
	}

	return nil
}

func apiConfigCacheKey(apiType models.APIType, endpoint string, isAuthenticated bool) string {
	return fmt.Sprintf("%s|%s|%t", apiType, endpoint, isAuthenticated)
}

// SubscribeToChanges blocks, reloading the cache whenever another process
// publishes to the settings update channel.
func (s *settingsService) SubscribeToChanges(ctx context.Context) error {
	pubsub := s.rdb.Subscribe(ctx, settingsUpdateChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("settings pub/sub channel closed")
			}
			log.Printf("Settings update notification received (%s); reloading cache.", msg.Payload)
			if err := s.Load(ctx); err != nil {
				log.Printf("WARNING: Failed to reload settings after update: %v", err)
			}
		}
	}
}

// SetSetting upserts a setting and notifies all processes.
func (s *settingsService) SetSetting(ctx context.Context, key string, value interface{}, isPublic bool) error {
	opts := options.Update().SetUpsert(true)
	update := bson.M{"$set": bson.M{"key": key, "value": value, "public": isPublic}}
	if _, err := s.db.Collection(settingsCollection).UpdateOne(ctx, bson.M{"key": key}, update, opts); err != nil {
		return fmt.Errorf("failed to store setting %q: %w", key, err)
	}

	s.mutex.Lock()
	s.cache[key] = value
	s.public[key] = isPublic
	s.mutex.Unlock()

	if err := s.rdb.Publish(ctx, settingsUpdateChannel, key).Err(); err != nil {
		log.Printf("WARNING: Failed to publish settings update for %q: %v", key, err)
	}
	return nil
}

// GetAllPublic returns the settings marked public (served to the SPA).
func (s *settingsService) GetAllPublic(ctx context.Context) (map[string]interface{}, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make(map[string]interface{})
	for key, value := range s.cache {
		if s.public[key] {
			out[key] = value
		}
	}
	return out, nil
}

// Get returns a raw setting value from the cache.
func (s *settingsService) Get(ctx context.Context, key string) (interface{}, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	value, exists := s.cache[key]
	if !exists {
		return nil, fmt.Errorf("setting %q not found", key)
	}
	return value, nil
}

func (s *settingsService) GetInt(ctx context.Context, key string, defaultValue int) int {
	value, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	switch v := value.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultValue
}

func (s *settingsService) GetString(ctx context.Context, key string, defaultValue string) string {
	value, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	if v, ok := value.(string); ok {
		return v
	}
	return defaultValue
}

func (s *settingsService) GetBool(ctx context.Context, key string, defaultValue bool) bool {
	value, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	if v, ok := value.(bool); ok {
		return v
	}
	return defaultValue
}

func (s *settingsService) GetFloat64(ctx context.Context, key string, defaultValue float64) float64 {
	value, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	}
	return defaultValue
}

func (s *settingsService) GetDuration(ctx context.Context, key string, defaultValue time.Duration) time.Duration {
	value, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	switch v := value.(type) {
	case string:
		if d, parseErr := time.ParseDuration(v); parseErr == nil {
			return d
		}
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v) * time.Second
	}
	return defaultValue
}

// GetAPIEndpointConfig returns per-endpoint overrides for the rate limiter,
// or nil when the endpoint has none.
func (s *settingsService) GetAPIEndpointConfig(ctx context.Context, apiType models.APIType, endpoint string, isAuthenticated bool) (*models.APIEndpointConfig, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.apiCache[apiConfigCacheKey(apiType, endpoint, isAuthenticated)], nil
}
