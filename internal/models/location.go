package models

import (
	"fmt"
	"time"
)

// GeoJSON represents a GeoJSON Point for MongoDB.
type GeoJSON struct {
	Type        string    `bson:"type" json:"type"`               // Should be "Point"
	Coordinates []float64 `bson:"coordinates" json:"coordinates"` // [longitude, latitude]
}

// Location represents a city/country pair a retreat can be held in.
// Maintained by owners through the location management view.
type Location struct {
	Base      `bson:",inline"`
	City      string    `bson:"city" json:"city"`
	Country   string    `bson:"country" json:"country"`
	Point     *GeoJSON  `bson:"point,omitempty" json:"point,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	Deleted   bool      `bson:"deleted" json:"-"`
}

// Label returns the "City, Country" display form used by search inputs.
func (l Location) Label() string {
	if l.City == "" {
		return l.Country
	}
	if l.Country == "" {
		return l.City
	}
	return fmt.Sprintf("%s, %s", l.City, l.Country)
}
