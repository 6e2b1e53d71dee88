package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/db"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/models"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/utils"
)

// ErrIllegalTransition is returned when a booking status change is not
// allowed by the lifecycle table.
var ErrIllegalTransition = errors.New("illegal booking status transition")

// IBookingService defines the interface for booking operations. Bookings are
// created and transitioned, never deleted.
type IBookingService interface {
	CreateBooking(ctx context.Context, retreatID, customerID utils.SixID, startDate, endDate time.Time) (*models.Booking, error)
	FindBookingByID(ctx context.Context, bookingID utils.SixID) (*models.Booking, error)
	ListBookingsByCustomer(ctx context.Context, customerID utils.SixID) ([]models.Booking, error)
	ListBookingsByRetreat(ctx context.Context, retreatID, hostID utils.SixID) ([]models.Booking, error)
	TransitionBooking(ctx context.Context, bookingID utils.SixID, next models.BookingStatus) (*models.Booking, error)
}

const bookingsCollection = "bookings"

// bookingService implements IBookingService.
type bookingService struct {
	db             *mongo.Database
	retreatService IRetreatService
}

// NewBookingService creates a new BookingService.
func NewBookingService(db *mongo.Database, retreatService IRetreatService) IBookingService {
	return &bookingService{db: db, retreatService: retreatService}
}

// CreateBooking creates a pending booking for a retreat. The total price is
// the retreat's nightly price times the number of nights booked; validation
// failures never reach the database.
func (s *bookingService) CreateBooking(ctx context.Context, retreatID, customerID utils.SixID, startDate, endDate time.Time) (*models.Booking, error) {
	if startDate.IsZero() || endDate.IsZero() {
		return nil, fmt.Errorf("booking requires a start and an end date")
	}
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("booking end date %s is before start date %s",
			endDate.Format(time.DateOnly), startDate.Format(time.DateOnly))
	}

	retreat, err := s.retreatService.FindRetreatByID(ctx, retreatID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("retreat %s not found", retreatID.String())
		}
		return nil, err
	}
	if retreat.IsDraft || retreat.Hidden {
		return nil, fmt.Errorf("retreat %s is not open for booking", retreatID.String())
	}
	if (!retreat.StartDate.IsZero() && startDate.Before(retreat.StartDate)) ||
		(!retreat.EndDate.IsZero() && endDate.After(retreat.EndDate)) {
		return nil, fmt.Errorf("booking dates %s..%s fall outside the retreat window %s..%s",
			startDate.Format(time.DateOnly), endDate.Format(time.DateOnly),
			retreat.StartDate.Format(time.DateOnly), retreat.EndDate.Format(time.DateOnly))
	}

	nights := int(endDate.Sub(startDate).Hours() / 24)
	if nights < 1 {
		nights = 1
	}
	totalPrice := models.Price{
		Amount:       retreat.Price.Amount * float64(nights),
		CurrencyCode: retreat.Price.CurrencyCode,
	}

	collection := s.db.Collection(bookingsCollection)
	now := time.Now().UTC()

	var newBooking *models.Booking
	operation := func() error {
		newBooking = &models.Booking{
			Base:       models.Base{ID: utils.NewSixID()},
			RetreatID:  retreatID,
			CustomerID: customerID,
			StartDate:  startDate,
			EndDate:    endDate,
			TotalPrice: totalPrice,
			Status:     models.BookingStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		_, insertErr := collection.InsertOne(ctx, newBooking)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		bookingIDStr := "<unknown>"
		if newBooking != nil {
			bookingIDStr = newBooking.ID.String()
		}
		return nil, fmt.Errorf("failed to insert booking for customer %s (last attempted booking ID: %s) after multiple retries: %w",
			customerID.String(), bookingIDStr, err)
	}

	return newBooking, nil
}

// FindBookingByID returns a booking by ID.
func (s *bookingService) FindBookingByID(ctx context.Context, bookingID utils.SixID) (*models.Booking, error) {
	var booking models.Booking
	collection := s.db.Collection(bookingsCollection)

	err := collection.FindOne(ctx, bson.M{"_id": bookingID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding booking by ID %s: %w", bookingID.String(), err)
	}
	return &booking, nil
}

// ListBookingsByCustomer returns a customer's bookings, newest first.
func (s *bookingService) ListBookingsByCustomer(ctx context.Context, customerID utils.SixID) ([]models.Booking, error) {
	collection := s.db.Collection(bookingsCollection)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := collection.Find(ctx, bson.M{"customer_id": customerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing bookings for customer %s: %w", customerID.String(), err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode customer bookings: %w", err)
	}
	return bookings, nil
}

// ListBookingsByRetreat returns the bookings of a retreat, restricted to the
// retreat's owning host.
func (s *bookingService) ListBookingsByRetreat(ctx context.Context, retreatID, hostID utils.SixID) ([]models.Booking, error) {
	retreat, err := s.retreatService.FindRetreatByID(ctx, retreatID)
	if err != nil {
		return nil, err
	}
	if retreat.HostID != hostID {
		return nil, fmt.Errorf("retreat %s does not belong to host %s", retreatID.String(), hostID.String())
	}

	collection := s.db.Collection(bookingsCollection)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := collection.Find(ctx, bson.M{"retreat_id": retreatID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing bookings for retreat %s: %w", retreatID.String(), err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode retreat bookings: %w", err)
	}
	return bookings, nil
}

// TransitionBooking moves a booking to its next status, enforcing the
// lifecycle table, and returns the updated document.
func (s *bookingService) TransitionBooking(ctx context.Context, bookingID utils.SixID, next models.BookingStatus) (*models.Booking, error) {
	booking, err := s.FindBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(booking.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, booking.Status, next)
	}

	collection := s.db.Collection(bookingsCollection)
	// Filter on the current status so a concurrent transition loses cleanly.
	filter := bson.M{"_id": bookingID, "status": booking.Status}
	update := bson.M{"$set": bson.M{"status": next, "updated_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Booking
	err = collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: booking %s changed concurrently", ErrIllegalTransition, bookingID.String())
		}
		return nil, fmt.Errorf("failed to transition booking %s: %w", bookingID.String(), err)
	}
	return &updated, nil
}
