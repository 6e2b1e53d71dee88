package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/db"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/models"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/utils"
)

// ILocationService defines the interface for location operations.
type ILocationService interface {
	SearchLocations(ctx context.Context, query string, limit int) ([]models.Location, error)
	FindLocationByID(ctx context.Context, locationID utils.SixID) (*models.Location, error)
	CreateLocation(ctx context.Context, city, country string, point *models.GeoJSON) (*models.Location, error)
	UpdateLocation(ctx context.Context, locationID utils.SixID, city, country string, point *models.GeoJSON) (*models.Location, error)
	DeleteLocation(ctx context.Context, locationID utils.SixID) error
}

const locationsCollection = "locations"

// locationService implements ILocationService.
type locationService struct {
	db *mongo.Database
}

// NewLocationService creates a new LocationService.
func NewLocationService(db *mongo.Database) ILocationService {
	return &locationService{db: db}
}

// SearchLocations searches the locations collection with a case-insensitive
// partial match against city or country. An empty query returns all
// locations (the management view lists everything).
func (s *locationService) SearchLocations(ctx context.Context, query string, limit int) ([]models.Location, error) {
	collection := s.db.Collection(locationsCollection)

	filter := bson.M{"deleted": false}
	if trimmed := strings.TrimSpace(query); trimmed != "" {
		regex := bson.M{"$regex": escapeRegex(trimmed), "$options": "i"}
		filter["$or"] = bson.A{bson.M{"city": regex}, bson.M{"country": regex}}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "country", Value: 1}, {Key: "city", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to execute location search query: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.Location
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode location search results: %w", err)
	}

	return results, nil
}

// FindLocationByID returns a non-deleted location by ID.
func (s *locationService) FindLocationByID(ctx context.Context, locationID utils.SixID) (*models.Location, error) {
	var location models.Location
	collection := s.db.Collection(locationsCollection)

	err := collection.FindOne(ctx, bson.M{"_id": locationID, "deleted": false}).Decode(&location)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding location by ID %s: %w", locationID.String(), err)
	}
	return &location, nil
}

// CreateLocation creates a new location record.
func (s *locationService) CreateLocation(ctx context.Context, city, country string, point *models.GeoJSON) (*models.Location, error) {
	if city == "" && country == "" {
		return nil, fmt.Errorf("location requires at least a city or a country")
	}
	collection := s.db.Collection(locationsCollection)

	var newLocation *models.Location
	operation := func() error {
		newLocation = &models.Location{
			Base:      models.Base{ID: utils.NewSixID()},
			City:      city,
			Country:   country,
			Point:     point,
			CreatedAt: time.Now().UTC(),
		}
		_, insertErr := collection.InsertOne(ctx, newLocation)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert location %q, %q after multiple retries: %w", city, country, err)
	}
	return newLocation, nil
}

// UpdateLocation updates a location's fields and returns the merged document.
func (s *locationService) UpdateLocation(ctx context.Context, locationID utils.SixID, city, country string, point *models.GeoJSON) (*models.Location, error) {
	collection := s.db.Collection(locationsCollection)

	update := bson.M{"$set": bson.M{"city": city, "country": country, "point": point}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Location
	err := collection.FindOneAndUpdate(ctx, bson.M{"_id": locationID, "deleted": false}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to update location %s: %w", locationID.String(), err)
	}
	return &updated, nil
}

// DeleteLocation soft-deletes a location. Retreats referencing it keep their
// denormalized city/country copy.
func (s *locationService) DeleteLocation(ctx context.Context, locationID utils.SixID) error {
	collection := s.db.Collection(locationsCollection)

	result, err := collection.UpdateOne(ctx,
		bson.M{"_id": locationID, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true}})
	if err != nil {
		return fmt.Errorf("db error deleting location %s: %w", locationID.String(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
