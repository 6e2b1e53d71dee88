package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/models"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/search"
)

// CatalogSession holds one client's live-search state: the currently loaded
// retreat set plus the active filter selections. Filter changes schedule a
// debounced backend re-fetch; the filtered+sorted view is derived
// synchronously from (loaded set x filters) on every read and is never
// cached independently.
type CatalogSession struct {
	mu        sync.RWMutex
	loaded    []models.Retreat
	filters   search.FilterState
	lastErr   error
	lastSeen  time.Time
	debouncer *search.Debouncer
}

// Loaded reports whether the session has completed at least one fetch.
func (s *CatalogSession) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded != nil
}

// ICatalogService manages catalog sessions and their debounced re-fetching.
type ICatalogService interface {
	Session(sessionID string) *CatalogSession
	SetFilters(session *CatalogSession, filters search.FilterState)
	SeedFilters(session *CatalogSession, filters search.FilterState)
	View(session *CatalogSession) ([]models.Retreat, search.FilterState, error)
	Refresh(ctx context.Context, session *CatalogSession) error
}

// catalogService implements ICatalogService on top of the retreat service.
type catalogService struct {
	mu             sync.Mutex
	sessions       map[string]*CatalogSession
	retreatService IRetreatService
	debounce       time.Duration
}

// NewCatalogService creates a new CatalogService. A non-positive debounce
// falls back to the package default (300ms).
func NewCatalogService(retreatService IRetreatService, debounce time.Duration) ICatalogService {
	if debounce <= 0 {
		debounce = search.DefaultDebounceInterval
	}
	s := &catalogService{
		sessions:       make(map[string]*CatalogSession),
		retreatService: retreatService,
		debounce:       debounce,
	}
	go s.cleanupSessions()
	return s
}

// Session retrieves or creates the session for a client identifier.
func (s *catalogService) Session(sessionID string) *CatalogSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		session = &CatalogSession{filters: search.NewFilterState()}
		session.debouncer = search.NewDebouncer(s.debounce, func(snapshot search.FilterState) {
			s.fetch(session, snapshot)
		})
		s.sessions[sessionID] = session
	}
	session.mu.Lock()
	session.lastSeen = time.Now()
	session.mu.Unlock()
	return session
}

// cleanupSessions periodically removes sessions idle for over an hour.
func (s *catalogService) cleanupSessions() {
	for {
		time.Sleep(10 * time.Minute)
		s.mu.Lock()
		for id, session := range s.sessions {
			session.mu.RLock()
			idle := time.Since(session.lastSeen) > time.Hour
			session.mu.RUnlock()
			if idle {
				session.debouncer.Stop()
				delete(s.sessions, id)
			}
		}
		s.mu.Unlock()
	}
}

// SetFilters records the new selections and schedules a debounced re-fetch.
// Rapid successive calls collapse into a single backend query carrying the
// last snapshot.
func (s *catalogService) SetFilters(session *CatalogSession, filters search.FilterState) {
	session.mu.Lock()
	session.filters = filters
	session.mu.Unlock()
	session.debouncer.Trigger(filters)
}

// SeedFilters records the selections without arming the debouncer, for
// callers that fetch immediately afterwards (first page load from a shared
// URL). A debounced fetch on top of that would repeat the same query.
func (s *catalogService) SeedFilters(session *CatalogSession, filters search.FilterState) {
	session.mu.Lock()
	session.filters = filters
	session.mu.Unlock()
}

// Refresh performs an immediate (non-debounced) fetch, as on first page load.
func (s *catalogService) Refresh(ctx context.Context, session *CatalogSession) error {
	session.mu.RLock()
	snapshot := session.filters
	session.mu.RUnlock()

	retreats, err := s.retreatService.SearchRetreats(ctx, backendFilters(snapshot))
	session.mu.Lock()
	defer session.mu.Unlock()
	if err != nil {
		session.lastErr = err
		return err
	}
	if retreats == nil {
		retreats = []models.Retreat{}
	}
	session.loaded = retreats
	session.lastErr = nil
	return nil
}

// fetch runs when the debounce window elapses. A late response simply
// overwrites the loaded set; no ordering beyond "last resolved wins" is
// enforced.
func (s *catalogService) fetch(session *CatalogSession, snapshot search.FilterState) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	retreats, err := s.retreatService.SearchRetreats(ctx, backendFilters(snapshot))
	session.mu.Lock()
	defer session.mu.Unlock()
	if err != nil {
		log.Printf("catalog re-fetch failed: %v", err)
		session.lastErr = err
		return
	}
	if retreats == nil {
		retreats = []models.Retreat{}
	}
	session.loaded = retreats
	session.lastErr = nil
}

// View derives the filtered+sorted list from the loaded set and the current
// filters. Pure recomputation; it cannot contain rows absent from the
// loaded set.
func (s *catalogService) View(session *CatalogSession) ([]models.Retreat, search.FilterState, error) {
	session.mu.RLock()
	defer session.mu.RUnlock()
	return search.Apply(session.loaded, session.filters), session.filters, session.lastErr
}

// backendFilters translates the session filter state into backend query
// constraints, including only filters that are actually applied.
func backendFilters(f search.FilterState) *RetreatFilters {
	filters := &RetreatFilters{}
	if f.Location != "" {
		loc := f.Location
		filters.Location = &loc
	}
	if f.Category != "" {
		filters.Types = []string{f.Category}
	}
	if !f.StartDate.IsZero() {
		start := f.StartDate
		filters.StartDate = &start
	}
	if !f.EndDate.IsZero() {
		end := f.EndDate
		filters.EndDate = &end
	}
	if f.PriceRange != [2]float64{search.MinPrice, search.MaxPrice} && f.PriceRange != [2]float64{} {
		min, max := f.PriceRange[0], f.PriceRange[1]
		filters.PriceMin = &min
		filters.PriceMax = &max
	}
	if f.DurationRange != [2]int{search.MinDurationDays, search.MaxDurationDays} && f.DurationRange != [2]int{} {
		min, max := f.DurationRange[0], f.DurationRange[1]
		filters.DurationMin = &min
		filters.DurationMax = &max
	}
	return filters
}
