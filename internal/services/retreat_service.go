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

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/config"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/db"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/models"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/utils"
)

// RetreatFilters holds the optional backend query constraints. A nil/empty
// field contributes no constraint; the query is the conjunction of the rest.
type RetreatFilters struct {
	Location    *string // "city, country" free text; partial match on either
	StartDate   *time.Time
	EndDate     *time.Time
	Types       []string // category overlap ($in)
	PriceMin    *float64
	PriceMax    *float64
	DurationMin *int
	DurationMax *int
	Amenities   []string // containment ($all)
}

// RetreatInput carries the owner-supplied fields for create/update.
type RetreatInput struct {
	Title        string
	Description  string
	Summary      string
	Features     string
	Benefits     string
	Inclusions   string
	LocationID   utils.SixID
	City         string
	Country      string
	Price        models.Price
	DurationDays int
	StartDate    time.Time
	EndDate      time.Time
	Types        []string
	Amenities    []string
	Atmosphere   []string
	SkillLevel   []string
	Area         []string
	Food         []string
	AgeGroup     []string
	RoomType     []string
}

// IRetreatService defines the interface for retreat-related operations.
type IRetreatService interface {
	CreateRetreat(ctx context.Context, hostID utils.SixID, input RetreatInput) (*models.Retreat, error)
	FindRetreatByID(ctx context.Context, retreatID utils.SixID) (*models.Retreat, error)
	UpdateRetreat(ctx context.Context, retreatID, hostID utils.SixID, updates map[string]interface{}) (*models.Retreat, error)
	PublishRetreat(ctx context.Context, retreatID, hostID utils.SixID) error
	HideRetreat(ctx context.Context, retreatID, hostID utils.SixID) error
	UnhideRetreat(ctx context.Context, retreatID, hostID utils.SixID) error
	DeleteRetreat(ctx context.Context, retreatID, hostID utils.SixID) error
	SearchRetreats(ctx context.Context, filters *RetreatFilters) ([]models.Retreat, error)
	FindRetreatsByHostID(ctx context.Context, hostID utils.SixID) ([]models.Retreat, error)
	AddImageToRetreat(ctx context.Context, retreatID utils.SixID, imageKey string) error
}

const retreatsCollection = "retreats"

// retreatService implements IRetreatService.
type retreatService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewRetreatService creates a new RetreatService.
func NewRetreatService(db *mongo.Database, cfg *config.Config) IRetreatService {
	return &retreatService{db: db, cfg: cfg}
}

// CreateRetreat creates a new retreat document in a draft state.
func (s *retreatService) CreateRetreat(ctx context.Context, hostID utils.SixID, input RetreatInput) (*models.Retreat, error) {
	if input.Title == "" || input.Description == "" {
		return nil, fmt.Errorf("retreat requires a title and a description")
	}
	collection := s.db.Collection(retreatsCollection)
	now := time.Now().UTC()

	var newRetreat *models.Retreat

	operation := func() error {
		newRetreat = &models.Retreat{
			Base:         models.Base{ID: utils.NewSixID()},
			HostID:       hostID,
			Title:        input.Title,
			Description:  input.Description,
			Summary:      input.Summary,
			Features:     input.Features,
			Benefits:     input.Benefits,
			Inclusions:   input.Inclusions,
			LocationID:   input.LocationID,
			City:         input.City,
			Country:      input.Country,
			Price:        input.Price,
			DurationDays: input.DurationDays,
			StartDate:    input.StartDate,
			EndDate:      input.EndDate,
			Types:        input.Types,
			Amenities:    input.Amenities,
			Images:       []string{},
			Atmosphere:   input.Atmosphere,
			SkillLevel:   input.SkillLevel,
			Area:         input.Area,
			Food:         input.Food,
			AgeGroup:     input.AgeGroup,
			RoomType:     input.RoomType,
			IsDraft:      true,
			Hidden:       false,
			Deleted:      false,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		_, insertErr := collection.InsertOne(ctx, newRetreat)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		retreatIDStr := "<unknown>"
		if newRetreat != nil {
			retreatIDStr = newRetreat.ID.String()
		}
		return nil, fmt.Errorf("failed to insert new retreat for host %s (last attempted retreat ID: %s) after multiple retries: %w",
			hostID.String(), retreatIDStr, err)
	}

	return newRetreat, nil
}

// FindRetreatByID finds a non-deleted retreat by its ID.
// It does NOT check ownership.
func (s *retreatService) FindRetreatByID(ctx context.Context, retreatID utils.SixID) (*models.Retreat, error) {
	var retreat models.Retreat
	collection := s.db.Collection(retreatsCollection)
	filter := bson.M{
		"_id":     retreatID,
		"deleted": false,
	}

	err := collection.FindOne(ctx, filter).Decode(&retreat)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding retreat by ID %s: %w", retreatID.String(), err)
	}
	return &retreat, nil
}

// UpdateRetreat updates mutable fields of a retreat owned by the specified
// host. The `updates` map should contain BSON field names and new values;
// ownership and lifecycle flags cannot be changed this way.
func (s *retreatService) UpdateRetreat(ctx context.Context, retreatID, hostID utils.SixID, updates map[string]interface{}) (*models.Retreat, error) {
	collection := s.db.Collection(retreatsCollection)

	allowedUpdates := bson.M{}
	for key, value := range updates {
		switch key {
		case "title", "description", "summary", "features", "benefits", "inclusions",
			"location_id", "city", "country", "price", "duration_days",
			"start_date", "end_date", "types", "amenities",
			"atmosphere", "skill_level", "area", "food", "age_group", "room_type":
			allowedUpdates[key] = value
		default:
			return nil, fmt.Errorf("field '%s' cannot be updated via UpdateRetreat", key)
		}
	}
	if len(allowedUpdates) == 0 {
		return nil, fmt.Errorf("no valid fields provided for update")
	}
	allowedUpdates["updated_at"] = time.Now().UTC()

	filter := bson.M{
		"_id":     retreatID,
		"host_id": hostID,
		"deleted": false,
	}

	update := bson.M{"$set": allowedUpdates}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updatedRetreat models.Retreat
	err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updatedRetreat)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("retreat not found, not owned by host, or cannot be updated")
		}
		return nil, fmt.Errorf("failed to update retreat %s: %w", retreatID.String(), err)
	}

	return &updatedRetreat, nil
}

// updateRetreatStatus updates a retreat matching the filter and, when nothing
// matched, reports the most likely reason.
func (s *retreatService) updateRetreatStatus(ctx context.Context, retreatID, hostID utils.SixID, filter, update bson.M) error {
	collection := s.db.Collection(retreatsCollection)

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error updating retreat %s: %w", retreatID.String(), err)
	}
	if result.MatchedCount == 0 {
		var retreat models.Retreat
		checkErr := collection.FindOne(ctx, bson.M{"_id": retreatID}).Decode(&retreat)
		if errors.Is(checkErr, mongo.ErrNoDocuments) {
			return fmt.Errorf("retreat %s not found", retreatID.String())
		}
		if retreat.HostID != hostID {
			return fmt.Errorf("retreat %s does not belong to host %s", retreatID.String(), hostID.String())
		}
		if retreat.Deleted {
			return fmt.Errorf("retreat %s is deleted", retreatID.String())
		}
		return fmt.Errorf("retreat %s cannot be updated (already in desired state or other condition not met)", retreatID.String())
	}
	return nil
}

// PublishRetreat publishes a draft retreat.
func (s *retreatService) PublishRetreat(ctx context.Context, retreatID, hostID utils.SixID) error {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":      retreatID,
		"host_id":  hostID,
		"deleted":  false,
		"is_draft": true,
	}
	update := bson.M{
		"$set": bson.M{
			"is_draft":     false,
			"published_at": now,
			"updated_at":   now,
		},
	}
	return s.updateRetreatStatus(ctx, retreatID, hostID, filter, update)
}

// HideRetreat hides a published retreat from the public catalog.
func (s *retreatService) HideRetreat(ctx context.Context, retreatID, hostID utils.SixID) error {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":      retreatID,
		"host_id":  hostID,
		"deleted":  false,
		"is_draft": false,
		"hidden":   false,
	}
	update := bson.M{
		"$set": bson.M{
			"hidden":     true,
			"updated_at": now,
		},
	}
	return s.updateRetreatStatus(ctx, retreatID, hostID, filter, update)
}

// UnhideRetreat makes a hidden retreat publicly visible again.
func (s *retreatService) UnhideRetreat(ctx context.Context, retreatID, hostID utils.SixID) error {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":      retreatID,
		"host_id":  hostID,
		"deleted":  false,
		"is_draft": false,
		"hidden":   true,
	}
	update := bson.M{
		"$set": bson.M{
			"hidden":     false,
			"updated_at": now,
		},
	}
	return s.updateRetreatStatus(ctx, retreatID, hostID, filter, update)
}

// DeleteRetreat performs a soft delete by setting the deleted flag to true.
func (s *retreatService) DeleteRetreat(ctx context.Context, retreatID, hostID utils.SixID) error {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":     retreatID,
		"host_id": hostID,
		"deleted": false,
	}
	update := bson.M{
		"$set": bson.M{
			"deleted":    true,
			"deleted_at": now,
			"updated_at": now,
		},
	}
	return s.updateRetreatStatus(ctx, retreatID, hostID, filter, update)
}

// SearchRetreats returns the full set of published retreats matching the
// given filters. Only filters that are present contribute constraints; no
// pagination is applied and failures are surfaced without retry.
func (s *retreatService) SearchRetreats(ctx context.Context, filters *RetreatFilters) ([]models.Retreat, error) {
	collection := s.db.Collection(retreatsCollection)

	filter := bson.M{
		"is_draft": false,
		"hidden":   false,
		"deleted":  false,
	}

	if filters != nil {
		if filters.Location != nil && *filters.Location != "" {
			locationIDs, err := s.resolveLocationIDs(ctx, *filters.Location)
			if err != nil {
				return nil, err
			}
			if len(locationIDs) == 0 {
				// No location matched the query; the conjunction is empty.
				return []models.Retreat{}, nil
			}
			filter["location_id"] = bson.M{"$in": locationIDs}
		}

		// Date range overlap against the retreat's start date.
		dateFilter := bson.M{}
		if filters.StartDate != nil {
			dateFilter["$gte"] = *filters.StartDate
		}
		if filters.EndDate != nil {
			dateFilter["$lte"] = *filters.EndDate
		}
		if len(dateFilter) > 0 {
			filter["start_date"] = dateFilter
		}

		if len(filters.Types) > 0 {
			filter["types"] = bson.M{"$in": filters.Types}
		}

		priceFilter := bson.M{}
		if filters.PriceMin != nil {
			priceFilter["$gte"] = *filters.PriceMin
		}
		if filters.PriceMax != nil {
			priceFilter["$lte"] = *filters.PriceMax
		}
		if len(priceFilter) > 0 {
			filter["price.amount"] = priceFilter
		}

		durationFilter := bson.M{}
		if filters.DurationMin != nil {
			durationFilter["$gte"] = *filters.DurationMin
		}
		if filters.DurationMax != nil {
			durationFilter["$lte"] = *filters.DurationMax
		}
		if len(durationFilter) > 0 {
			filter["duration_days"] = durationFilter
		}

		if len(filters.Amenities) > 0 {
			filter["amenities"] = bson.M{"$all": filters.Amenities}
		}
	}

	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to execute retreat search query: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.Retreat
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode retreat search results: %w", err)
	}
	return results, nil
}

// resolveLocationIDs turns a "city, country" query into the set of location
// IDs whose city OR country partially matches either part, case-insensitively.
func (s *retreatService) resolveLocationIDs(ctx context.Context, query string) ([]utils.SixID, error) {
	var patterns []bson.M
	for _, part := range strings.Split(query, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		regex := bson.M{"$regex": escapeRegex(part), "$options": "i"}
		patterns = append(patterns, bson.M{"city": regex}, bson.M{"country": regex})
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	collection := s.db.Collection(locationsCollection)
	cursor, err := collection.Find(ctx, bson.M{"$or": patterns, "deleted": false})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve location filter %q: %w", query, err)
	}
	defer cursor.Close(ctx)

	var locations []models.Location
	if err = cursor.All(ctx, &locations); err != nil {
		return nil, fmt.Errorf("failed to decode location filter results: %w", err)
	}

	ids := make([]utils.SixID, 0, len(locations))
	for _, loc := range locations {
		ids = append(ids, loc.ID)
	}
	return ids, nil
}

// escapeRegex escapes user input before embedding it in a $regex clause.
func escapeRegex(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`, `.`, `\.`, `+`, `\+`, `*`, `\*`, `?`, `\?`,
		`(`, `\(`, `)`, `\)`, `[`, `\[`, `]`, `\]`, `{`, `\{`, `}`, `\}`,
		`^`, `\^`, `$`, `\$`, `|`, `\|`,
	)
	return replacer.Replace(s)
}

// FindRetreatsByHostID returns all non-deleted retreats owned by a host,
// drafts included (owner dashboard view).
func (s *retreatService) FindRetreatsByHostID(ctx context.Context, hostID utils.SixID) ([]models.Retreat, error) {
	collection := s.db.Collection(retreatsCollection)
	filter := bson.M{"host_id": hostID, "deleted": false}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding retreats for host %s: %w", hostID.String(), err)
	}
	defer cursor.Close(ctx)

	var retreats []models.Retreat
	if err = cursor.All(ctx, &retreats); err != nil {
		return nil, fmt.Errorf("failed to decode host retreats: %w", err)
	}
	return retreats, nil
}

// AddImageToRetreat adds a processed image key to a retreat's image array.
// It should only be called after the image processing task is complete.
func (s *retreatService) AddImageToRetreat(ctx context.Context, retreatID utils.SixID, imageKey string) error {
	collection := s.db.Collection(retreatsCollection)

	filter := bson.M{
		"_id":     retreatID,
		"deleted": false,
	}
	update := bson.M{
		"$addToSet": bson.M{"images": imageKey}, // Add key if not already present
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error adding image %s to retreat %s: %w", imageKey, retreatID.String(), err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("retreat %s not found or cannot be updated when adding image", retreatID.String())
	}
	return nil
}
