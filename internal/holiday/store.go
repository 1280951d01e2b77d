package holiday

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	appLog "coursecal/internal/log"
)

// Loader produces a freshly built calendar, typically from a fetched feed.
type Loader func(ctx context.Context) (*Calendar, error)

type snapshot struct {
	cal      *Calendar
	loadedAt time.Time
}

// Store holds the current calendar snapshot. Readers never block; a
// refresh builds a new Calendar and swaps the pointer. A failed refresh
// keeps serving the previous snapshot.
type Store struct {
	load    Loader
	current atomic.Pointer[snapshot]
}

func NewStore(load Loader) *Store {
	return &Store{load: load}
}

// NewStaticStore wraps an already built calendar; Refresh is a no-op.
func NewStaticStore(cal *Calendar) *Store {
	s := &Store{}
	s.current.Store(&snapshot{cal: cal, loadedAt: time.Now()})
	return s
}

// Current returns the latest calendar, or nil before the first successful
// load. A nil calendar behaves as empty.
func (s *Store) Current() *Calendar {
	if snap := s.current.Load(); snap != nil {
		return snap.cal
	}
	return nil
}

// LoadedAt reports when the current snapshot was built.
func (s *Store) LoadedAt() time.Time {
	if snap := s.current.Load(); snap != nil {
		return snap.loadedAt
	}
	return time.Time{}
}

// Refresh rebuilds the calendar and swaps it in.
func (s *Store) Refresh(ctx context.Context) error {
	if s.load == nil {
		return nil
	}
	start := time.Now()
	cal, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("refresh holiday calendar: %w", err)
	}
	if cal == nil {
		return errors.New("refresh holiday calendar: loader returned nil calendar")
	}
	s.current.Store(&snapshot{cal: cal, loadedAt: time.Now()})
	appLog.Info("holiday calendar refreshed",
		"rest_days", len(cal.restDays),
		"makeup_days", len(cal.makeupDays),
		"pairs", len(cal.restToMakeup),
		"took", time.Since(start).String(),
	)
	return nil
}

// Schedule starts a cron scheduler that calls Refresh on spec. The caller
// owns it; the context returned by Stop is done once a running refresh ends.
func (s *Store) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.Refresh(ctx); err != nil {
			appLog.Error("scheduled holiday refresh failed; keeping previous calendar", err, "cron", spec)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	c.Start()
	appLog.Info("holiday refresh scheduled", "cron", spec)
	return c, nil
}
