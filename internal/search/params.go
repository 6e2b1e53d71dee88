package search

import (
	"net/url"
	"time"
)

// URL query parameter keys mirrored for shareable searches. Only these four
// keys are synchronized; facet and range selections stay in memory.
const (
	ParamLocation  = "location"
	ParamCategory  = "category"
	ParamStartDate = "startDate"
	ParamEndDate   = "endDate"
)

const dateLayout = "2006-01-02"

// EncodeParams mirrors the active filters into URL query values. Keys are
// additive only: an unset filter contributes no key, and re-encoding after
// clearing a filter removes its key entirely.
func EncodeParams(f FilterState) url.Values {
	values := url.Values{}
	if f.Location != "" {
		values.Set(ParamLocation, f.Location)
	}
	if f.Category != "" {
		values.Set(ParamCategory, f.Category)
	}
	if !f.StartDate.IsZero() {
		values.Set(ParamStartDate, f.StartDate.Format(dateLayout))
	}
	if !f.EndDate.IsZero() {
		values.Set(ParamEndDate, f.EndDate.Format(dateLayout))
	}
	return values
}

// DecodeParams builds the initial filter state from URL query values, as on
// page load. Unknown keys are ignored; malformed dates are treated as unset
// rather than surfaced (a shared URL should never error out the catalog).
func DecodeParams(values url.Values) FilterState {
	f := NewFilterState()
	f.Location = values.Get(ParamLocation)
	f.Category = values.Get(ParamCategory)
	if raw := values.Get(ParamStartDate); raw != "" {
		if t, err := time.Parse(dateLayout, raw); err == nil {
			f.StartDate = t
		}
	}
	if raw := values.Get(ParamEndDate); raw != "" {
		if t, err := time.Parse(dateLayout, raw); err == nil {
			f.EndDate = t
		}
	}
	return f
}
