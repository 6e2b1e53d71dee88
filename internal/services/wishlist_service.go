package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/models"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/utils"
)

// IWishlistService defines set semantics over retreats a customer has liked.
// Entries are denormalized retreat copies persisted per user; there is no
// size bound, eviction policy, or expiry.
type IWishlistService interface {
	Add(ctx context.Context, userID utils.SixID, retreat models.Retreat) error
	Remove(ctx context.Context, userID utils.SixID, retreatID utils.SixID) error
	Contains(ctx context.Context, userID utils.SixID, retreatID utils.SixID) (bool, error)
	List(ctx context.Context, userID utils.SixID) ([]models.WishlistEntry, error)
}

// wishlistService implements IWishlistService on a Redis hash keyed by user:
// field = retreat ID, value = serialized entry. The hash guarantees at most
// one entry per retreat ID.
type wishlistService struct {
	rdb *redis.Client
}

// NewWishlistService creates a new WishlistService.
func NewWishlistService(rdb *redis.Client) IWishlistService {
	return &wishlistService{rdb: rdb}
}

func wishlistKey(userID utils.SixID) string {
	return fmt.Sprintf("wishlist:%s", userID.String())
}

// Add stores a denormalized copy of the retreat. Adding an already-present
// retreat is a no-op: the original entry and its AddedAt are kept.
func (s *wishlistService) Add(ctx context.Context, userID utils.SixID, retreat models.Retreat) error {
	entry := models.WishlistEntry{
		Retreat: retreat,
		AddedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to serialize wishlist entry for retreat %s: %w", retreat.ID.String(), err)
	}

	// HSetNX makes the add idempotent without a read-modify-write cycle.
	if err := s.rdb.HSetNX(ctx, wishlistKey(userID), retreat.ID.String(), data).Err(); err != nil {
		return fmt.Errorf("failed to persist wishlist entry for retreat %s: %w", retreat.ID.String(), err)
	}
	return nil
}

// Remove deletes the entry for the given retreat ID, if present.
func (s *wishlistService) Remove(ctx context.Context, userID utils.SixID, retreatID utils.SixID) error {
	if err := s.rdb.HDel(ctx, wishlistKey(userID), retreatID.String()).Err(); err != nil {
		return fmt.Errorf("failed to remove wishlist entry for retreat %s: %w", retreatID.String(), err)
	}
	return nil
}

// Contains reports whether the retreat is on the user's wishlist.
func (s *wishlistService) Contains(ctx context.Context, userID utils.SixID, retreatID utils.SixID) (bool, error) {
	present, err := s.rdb.HExists(ctx, wishlistKey(userID), retreatID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check wishlist for retreat %s: %w", retreatID.String(), err)
	}
	return present, nil
}

// List rehydrates the full wishlist, oldest entry first.
func (s *wishlistService) List(ctx context.Context, userID utils.SixID) ([]models.WishlistEntry, error) {
	raw, err := s.rdb.HGetAll(ctx, wishlistKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load wishlist for user %s: %w", userID.String(), err)
	}

	entries := make([]models.WishlistEntry, 0, len(raw))
	for field, value := range raw {
		var entry models.WishlistEntry
		if err := json.Unmarshal([]byte(value), &entry); err != nil {
			return nil, fmt.Errorf("failed to parse wishlist entry %s: %w", field, err)
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].AddedAt.Before(entries[j].AddedAt) })
	return entries, nil
}
