package models

import (
	"time"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/utils"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// legal status transitions; bookings are never deleted, only cancelled.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCancelled},
	BookingStatusCancelled: {},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Booking represents a customer's reservation of a retreat.
type Booking struct {
	Base       `bson:",inline"`
	RetreatID  utils.SixID   `bson:"retreat_id" json:"retreat_id"`
	CustomerID utils.SixID   `bson:"customer_id" json:"customer_id"`
	StartDate  time.Time     `bson:"start_date" json:"start_date"`
	EndDate    time.Time     `bson:"end_date" json:"end_date"`
	TotalPrice Price         `bson:"total_price" json:"total_price"`
	Status     BookingStatus `bson:"status" json:"status"`
	CreatedAt  time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `bson:"updated_at" json:"updated_at"`
}
