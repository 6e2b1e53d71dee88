package models

import (
	"time"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/utils"
)

// Price defines the structure for monetary values.
type Price struct {
	Amount       float64 `bson:"amount" json:"amount"`
	CurrencyCode string  `bson:"currency_code" json:"currency_code"`
}

// Retreat represents a bookable wellness retreat listing.
// Dates are stored as flat start_date/end_date columns on the retreat
// document; there is deliberately no second nested representation.
type Retreat struct {
	Base        `bson:",inline"`
	HostID      utils.SixID `bson:"host_id" json:"host_id"`
	Title       string      `bson:"title" json:"title"`
	Description string      `bson:"description" json:"description"`
	Summary     string      `bson:"summary,omitempty" json:"summary,omitempty"`
	Features    string      `bson:"features,omitempty" json:"features,omitempty"`
	Benefits    string      `bson:"benefits,omitempty" json:"benefits,omitempty"`
	Inclusions  string      `bson:"inclusions,omitempty" json:"inclusions,omitempty"`

	LocationID utils.SixID `bson:"location_id" json:"location_id"`
	// Denormalized from Location so catalog views don't need a join.
	City    string `bson:"city" json:"city"`
	Country string `bson:"country" json:"country"`

	Price        Price     `bson:"price" json:"price"`
	DurationDays int       `bson:"duration_days" json:"duration_days"`
	StartDate    time.Time `bson:"start_date" json:"start_date"`
	EndDate      time.Time `bson:"end_date" json:"end_date"`

	Types     []string `bson:"types" json:"types"` // category tags, e.g. "Yoga", "Meditation"
	Amenities []string `bson:"amenities" json:"amenities"`
	Images    []string `bson:"images" json:"images"` // S3 keys

	Rating      float64 `bson:"rating" json:"rating"`
	ReviewCount int     `bson:"review_count" json:"review_count"`

	// Categorical facets.
	Atmosphere []string `bson:"atmosphere,omitempty" json:"atmosphere,omitempty"`
	SkillLevel []string `bson:"skill_level,omitempty" json:"skill_level,omitempty"`
	Area       []string `bson:"area,omitempty" json:"area,omitempty"`
	Food       []string `bson:"food,omitempty" json:"food,omitempty"`
	AgeGroup   []string `bson:"age_group,omitempty" json:"age_group,omitempty"`
	RoomType   []string `bson:"room_type,omitempty" json:"room_type,omitempty"`

	IsDraft     bool       `bson:"is_draft" json:"is_draft"`
	Hidden      bool       `bson:"hidden" json:"hidden"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	PublishedAt *time.Time `bson:"published_at,omitempty" json:"published_at,omitempty"`
	Deleted     bool       `bson:"deleted" json:"-"` // Soft delete flag
}
