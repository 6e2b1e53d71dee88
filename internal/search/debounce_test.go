package search

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fetchRecorder struct {
	mu    sync.Mutex
	calls []FilterState
}

func (r *fetchRecorder) fire(f FilterState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, f)
}

func (r *fetchRecorder) snapshot() []FilterState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FilterState(nil), r.calls...)
}

func TestDebouncer_BurstCollapsesToSingleFetch(t *testing.T) {
	rec := &fetchRecorder{}
	d := NewDebouncer(150*time.Millisecond, rec.fire)

	// Three facet changes within 100ms must produce exactly one fetch,
	// parameterized with the state after the third change.
	first := NewFilterState()
	first.Category = "Yoga"
	second := first
	second.SkillLevels = []string{"Beginner"}
	third := second
	third.Location = "Bali"

	d.Trigger(first)
	time.Sleep(40 * time.Millisecond)
	d.Trigger(second)
	time.Sleep(40 * time.Millisecond)
	d.Trigger(third)

	time.Sleep(300 * time.Millisecond)

	calls := rec.snapshot()
	assert.Len(t, calls, 1)
	assert.Equal(t, "Bali", calls[0].Location)
	assert.Equal(t, []string{"Beginner"}, calls[0].SkillLevels)
}

func TestDebouncer_SeparatedTriggersFireIndividually(t *testing.T) {
	rec := &fetchRecorder{}
	d := NewDebouncer(50*time.Millisecond, rec.fire)

	a := NewFilterState()
	a.Category = "Yoga"
	b := NewFilterState()
	b.Category = "Surf"

	d.Trigger(a)
	time.Sleep(120 * time.Millisecond)
	d.Trigger(b)
	time.Sleep(120 * time.Millisecond)

	calls := rec.snapshot()
	assert.Len(t, calls, 2)
	assert.Equal(t, "Yoga", calls[0].Category)
	assert.Equal(t, "Surf", calls[1].Category)
}

func TestDebouncer_StopDiscardsPendingFiring(t *testing.T) {
	rec := &fetchRecorder{}
	d := NewDebouncer(50*time.Millisecond, rec.fire)

	d.Trigger(NewFilterState())
	d.Stop()
	time.Sleep(120 * time.Millisecond)

	assert.Empty(t, rec.snapshot())
}

func TestDebouncer_DefaultInterval(t *testing.T) {
	d := NewDebouncer(0, func(FilterState) {})
	assert.Equal(t, DefaultDebounceInterval, d.interval)
}
