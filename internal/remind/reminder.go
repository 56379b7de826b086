// Package remind schedules daily habit reminders at each habit's HH:MM
// reminder time. Reminders are best-effort presentation concerns; a
// habit with a broken time is logged and skipped, never fatal.
package remind

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"github.com/nhle/habitflow/internal/model"
	"github.com/nhle/habitflow/internal/schedule"
)

// NotifyFunc delivers one reminder. Implementations must not block.
type NotifyFunc func(habit model.Habit)

// Scheduler owns the cron jobs behind habit reminders.
type Scheduler struct {
	notify NotifyFunc
	loc    *time.Location

	// Now anchors the "is it due today" check at fire time; tests
	// override it.
	Now func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	entries []cron.EntryID
	started bool
}

// New creates a Scheduler delivering through notify in the given
// location (nil means local time).
func New(notify NotifyFunc, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		notify: notify,
		loc:    loc,
		Now:    time.Now,
		cron:   cron.New(cron.WithLocation(loc)),
	}
}

// Reload replaces all scheduled reminders with one daily job per active
// habit that has a reminder time. Habits not due on a given day stay
// silent that day; the due check happens at fire time.
func (s *Scheduler) Reload(habits []model.Habit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.entries {
		s.cron.Remove(id)
	}
	s.entries = s.entries[:0]

	for _, h := range habits {
		if !h.IsActive || h.ReminderTime == "" {
			continue
		}

		spec, err := buildDailySpec(h.ReminderTime)
		if err != nil {
			log.Warn("skipping reminder with bad time",
				"habit", h.ID, "time", h.ReminderTime, "err", err)
			continue
		}

		habit := h
		id, err := s.cron.AddFunc(spec, func() {
			if !schedule.IsDueOn(habit, s.Now().In(s.loc)) {
				return
			}
			s.notify(habit)
		})
		if err != nil {
			log.Warn("skipping unschedulable reminder", "habit", h.ID, "err", err)
			continue
		}
		s.entries = append(s.entries, id)
	}
}

// Start begins firing reminders. Safe to call once before or after Reload.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
}

// Stop halts reminders and waits for an in-flight delivery.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.started = false
}

// buildDailySpec converts an HH:MM string to a daily cron spec.
func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// cron format: minute hour dom month dow
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
