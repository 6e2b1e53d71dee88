package search

import (
	"sort"
	"strings"
	"time"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/models"
)

// Sort keys accepted by the catalog.
const (
	SortRecommended = "recommended"
	SortPriceLow    = "price_low"
	SortPriceHigh   = "price_high"
	SortRating      = "rating"
	SortNewest      = "newest"
)

// Sentinel range values meaning "no filter applied". Boundary values are
// inclusive: a retreat priced exactly at MinPrice or MaxPrice passes.
const (
	MinPrice        = 26
	MaxPrice        = 33000
	MinDurationDays = 2
	MaxDurationDays = 90
)

// FilterState holds the full set of catalog filter selections.
// The zero value of a field means that filter is not applied.
type FilterState struct {
	Location      string // "city, country" free text, substring matched
	Category      string // exact match (case-insensitive) against retreat types
	PriceRange    [2]float64
	DurationRange [2]int
	StartDate     time.Time
	EndDate       time.Time

	// Facet selections. Empty set means the facet is unconstrained.
	SkillLevels []string
	Areas       []string
	Foods       []string
	AgeGroups   []string
	RoomTypes   []string

	Sort string
}

// NewFilterState returns a FilterState with the sentinel "no filter" ranges.
func NewFilterState() FilterState {
	return FilterState{
		PriceRange:    [2]float64{MinPrice, MaxPrice},
		DurationRange: [2]int{MinDurationDays, MaxDurationDays},
		Sort:          SortRecommended,
	}
}

// priceFiltered reports whether the price range differs from the sentinel.
func (f FilterState) priceFiltered() bool {
	return f.PriceRange != [2]float64{MinPrice, MaxPrice} && f.PriceRange != [2]float64{}
}

// durationFiltered reports whether the duration range differs from the sentinel.
func (f FilterState) durationFiltered() bool {
	return f.DurationRange != [2]int{MinDurationDays, MaxDurationDays} && f.DurationRange != [2]int{}
}

// Apply derives the filtered and sorted view of the loaded retreat set.
// The result is recomputed from its inputs on every call and is always a
// subset of the input slice; the input is never mutated.
func Apply(retreats []models.Retreat, f FilterState) []models.Retreat {
	out := make([]models.Retreat, 0, len(retreats))
	for _, r := range retreats {
		if matches(r, f) {
			out = append(out, r)
		}
	}
	sortRetreats(out, f.Sort)
	return out
}

func matches(r models.Retreat, f FilterState) bool {
	if f.Location != "" && !matchLocation(r, f.Location) {
		return false
	}
	if f.Category != "" && !containsFold(r.Types, f.Category) {
		return false
	}
	if !f.StartDate.IsZero() && r.StartDate.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && r.StartDate.After(f.EndDate) {
		return false
	}
	if f.priceFiltered() {
		if r.Price.Amount < f.PriceRange[0] || r.Price.Amount > f.PriceRange[1] {
			return false
		}
	}
	if f.durationFiltered() {
		if r.DurationDays < f.DurationRange[0] || r.DurationDays > f.DurationRange[1] {
			return false
		}
	}
	if !facetMatches(r.SkillLevel, f.SkillLevels) {
		return false
	}
	if !facetMatches(r.Area, f.Areas) {
		return false
	}
	if !facetMatches(r.Food, f.Foods) {
		return false
	}
	if !facetMatches(r.AgeGroup, f.AgeGroups) {
		return false
	}
	if !facetMatches(r.RoomType, f.RoomTypes) {
		return false
	}
	return true
}

// matchLocation does a case-insensitive substring match of the query against
// either the retreat's city or country. A "city, country" query is split so
// each part may match independently.
func matchLocation(r models.Retreat, query string) bool {
	for _, part := range strings.Split(query, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if strings.Contains(strings.ToLower(r.City), part) ||
			strings.Contains(strings.ToLower(r.Country), part) {
			return true
		}
	}
	return false
}

// facetMatches is a non-empty-intersection test. An empty selection imposes
// no constraint.
func facetMatches(values, selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, s := range selected {
		if containsFold(values, s) {
			return true
		}
	}
	return false
}

func containsFold(haystack []string, needle string) bool {
	for _, v := range haystack {
		if strings.EqualFold(v, needle) {
			return true
		}
	}
	return false
}

// sortRetreats orders the derived list in place. The "recommended" key keeps
// the loaded order (comparator returns equal for every pair).
func sortRetreats(retreats []models.Retreat, key string) {
	var less func(a, b models.Retreat) bool
	switch key {
	case SortPriceLow:
		less = func(a, b models.Retreat) bool { return a.Price.Amount < b.Price.Amount }
	case SortPriceHigh:
		less = func(a, b models.Retreat) bool { return a.Price.Amount > b.Price.Amount }
	case SortRating:
		less = func(a, b models.Retreat) bool { return a.Rating > b.Rating }
	case SortNewest:
		less = func(a, b models.Retreat) bool { return a.StartDate.After(b.StartDate) }
	default:
		return
	}
	sort.SliceStable(retreats, func(i, j int) bool { return less(retreats[i], retreats[j]) })
}
