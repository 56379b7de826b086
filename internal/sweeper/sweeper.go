// Package sweeper purges completed tasks once they pass the retention
// window. A task is eligible when it is completed, flagged for
// deletion, and its completion is older than seven days; eligible tasks
// and their sub-tasks go in one all-or-nothing batch so neither side of
// a task tree can outlive the other.
package sweeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"github.com/nhle/habitflow/internal/apperr"
	"github.com/nhle/habitflow/internal/auth"
	"github.com/nhle/habitflow/internal/store"
)

// RetentionPeriod is how long a completed task survives before the
// sweep removes it.
const RetentionPeriod = 7 * 24 * time.Hour

// DefaultInterval is the background sweep cadence.
const DefaultInterval = time.Hour

// Sweeper runs the retention purge, on a fixed interval while a user
// session is active and eagerly whenever the task list is (re)loaded.
type Sweeper struct {
	store   store.Store
	session *auth.Session

	// Now is the reference clock for the retention cutoff; tests
	// override it.
	Now func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// New creates a Sweeper bound to the given session.
func New(s store.Store, session *auth.Session) *Sweeper {
	return &Sweeper{store: s, session: session, Now: time.Now}
}

// Sweep deletes the signed-in user's tasks completed more than
// RetentionPeriod ago, with their sub-tasks, as one batch. It returns
// the number of tasks removed; with nothing eligible it removes nothing
// and reports zero. Fails with NotAuthenticated when nobody is signed in.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	userID, err := s.session.RequireUser()
	if err != nil {
		return 0, err
	}
	return s.sweepUser(ctx, userID)
}

func (s *Sweeper) sweepUser(ctx context.Context, userID string) (int, error) {
	cutoff := s.Now().Add(-RetentionPeriod)

	tasks, err := s.store.ListSweepableTasks(ctx, userID, cutoff)
	if err != nil {
		return 0, err
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}

	deleted, err := s.store.DeleteTaskTrees(ctx, userID, ids)
	if err != nil {
		return 0, err
	}

	log.Info("retention sweep removed tasks", "user", userID, "count", deleted)
	return deleted, nil
}

// Start schedules the background sweep every interval (DefaultInterval
// when zero or negative). Runs with no user signed in are skipped
// quietly; the sweep never touches another user's rows.
func (s *Sweeper) Start(interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %ds", int(interval.Seconds()))
	if _, err := c.AddFunc(spec, s.backgroundSweep); err != nil {
		return fmt.Errorf("scheduling sweep: %w", err)
	}

	c.Start()
	s.cron = c
	s.running = true
	return nil
}

// Stop halts the background sweep and waits for an in-flight run.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron = nil
	s.running = false
}

func (s *Sweeper) backgroundSweep() {
	userID, ok := s.session.CurrentUser()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := s.sweepUser(ctx, userID); err != nil {
		// Signed out between the gate and the query; nothing to report.
		if apperr.IsNotAuthenticated(err) {
			return
		}
		log.Error("retention sweep failed", "user", userID, "err", err)
	}
}
