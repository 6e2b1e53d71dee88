package models

import (
	"time"
)

// WishlistEntry is a denormalized copy of a retreat the customer has liked,
// keyed by the retreat ID. At most one entry exists per retreat ID.
type WishlistEntry struct {
	Retreat Retreat   `bson:"retreat" json:"retreat"`
	AddedAt time.Time `bson:"added_at" json:"added_at"`
}
