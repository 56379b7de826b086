// Package sync re-derives client state from the store's change stream.
// Each committed write produces a fresh full Snapshot for the affected
// user; intermediate states may be skipped under rapid updates but the
// last snapshot always reflects the latest commit.
package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nhle/habitflow/internal/apperr"
	"github.com/nhle/habitflow/internal/auth"
	"github.com/nhle/habitflow/internal/model"
	"github.com/nhle/habitflow/internal/schedule"
	"github.com/nhle/habitflow/internal/store"
)

// snapshotTimeout bounds a single snapshot recomputation.
const snapshotTimeout = 30 * time.Second

// HabitStatus pairs a habit with its derived view state for today.
type HabitStatus struct {
	Habit     model.Habit `json:"habit"`
	DueToday  bool        `json:"due_today"`
	DoneToday bool        `json:"done_today"`
	Streak    int         `json:"streak"`
}

// Stats summarizes a snapshot for the dashboard.
type Stats struct {
	OpenTasks         int `json:"open_tasks"`
	CompletedTasks    int `json:"completed_tasks"`
	HabitsDueToday    int `json:"habits_due_today"`
	HabitsDoneToday   int `json:"habits_done_today"`
	CurrentPoints     int `json:"current_points"`
	TotalEarnedPoints int `json:"total_earned_points"`
}

// Snapshot is the full recomputed client state for one user. It is a
// value, not a diff; the UI replaces whatever it had.
type Snapshot struct {
	Tasks       []model.Task  `json:"tasks"`
	Habits      []HabitStatus `json:"habits"`
	Stats       Stats         `json:"stats"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Handler receives snapshots and terminal errors for one subscription.
type Handler interface {
	// OnSnapshot delivers a freshly recomputed state.
	OnSnapshot(Snapshot)

	// OnError reports why the subscription stopped. No snapshots follow.
	OnError(error)
}

// Adapter subscribes to the store's change stream and maintains at most
// one active subscription per user.
type Adapter struct {
	store store.Store

	// Now anchors "today" for due/streak derivation; tests override it.
	Now func() time.Time

	mu   gosync.Mutex
	subs map[string]*subscription
}

type subscription struct {
	userID     string
	handler    Handler
	kick       chan struct{}
	stop       chan struct{}
	unsubStore func()
	closeOnce  gosync.Once
}

// NewAdapter creates an Adapter over the given store.
func NewAdapter(s store.Store) *Adapter {
	return &Adapter{
		store: s,
		Now:   time.Now,
		subs:  make(map[string]*subscription),
	}
}

// Subscribe starts delivering snapshots for userID to h, beginning with
// an immediate one. Starting a new subscription for a user first tears
// down any existing one, so a stale listener can never leak another
// session's data. The returned function unsubscribes; calling it more
// than once is harmless.
func (a *Adapter) Subscribe(userID string, h Handler) (func(), error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindNotAuthenticated, "please sign in again")
	}

	a.mu.Lock()
	prev := a.subs[userID]
	delete(a.subs, userID)
	a.mu.Unlock()
	if prev != nil {
		prev.close()
	}

	sub := &subscription{
		userID:  userID,
		handler: h,
		kick:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	sub.unsubStore = a.store.Subscribe(func(ev store.Event) {
		if ev.UserID != userID {
			return
		}
		// Coalesce bursts: one pending kick is enough, the snapshot is
		// a full recomputation anyway.
		select {
		case sub.kick <- struct{}{}:
		default:
		}
	})

	a.mu.Lock()
	a.subs[userID] = sub
	a.mu.Unlock()

	// Prime with an initial snapshot. Non-blocking: a store event that
	// landed between Subscribe and here already filled the slot, and one
	// pending kick guarantees a fresh snapshot either way.
	select {
	case sub.kick <- struct{}{}:
	default:
	}
	go a.run(sub)

	return func() { a.remove(sub) }, nil
}

// CloseUser tears down the active subscription for userID, if any.
func (a *Adapter) CloseUser(userID string) {
	a.mu.Lock()
	sub := a.subs[userID]
	delete(a.subs, userID)
	a.mu.Unlock()
	if sub != nil {
		sub.close()
	}
}

// Close tears down every active subscription.
func (a *Adapter) Close() {
	a.mu.Lock()
	subs := make([]*subscription, 0, len(a.subs))
	for _, sub := range a.subs {
		subs = append(subs, sub)
	}
	a.subs = make(map[string]*subscription)
	a.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

// AttachSession tears subscriptions down on sign-out, before any
// sign-in flow can establish a new one. Returns the detach function.
func (a *Adapter) AttachSession(sess *auth.Session) func() {
	return sess.OnChange(func(userID string, signedIn bool) {
		if !signedIn {
			a.CloseUser(userID)
		}
	})
}

func (a *Adapter) remove(sub *subscription) {
	a.mu.Lock()
	if a.subs[sub.userID] == sub {
		delete(a.subs, sub.userID)
	}
	a.mu.Unlock()
	sub.close()
}

func (sub *subscription) close() {
	sub.closeOnce.Do(func() {
		sub.unsubStore()
		close(sub.stop)
	})
}

func (a *Adapter) run(sub *subscription) {
	for {
		select {
		case <-sub.stop:
			return
		case <-sub.kick:
			snap, err := a.buildSnapshot(sub.userID)
			if err != nil {
				// Surface and stop; no tight retry loop. The caller
				// decides whether to resubscribe.
				log.Error("snapshot recompute failed", "user", sub.userID, "err", err)
				a.remove(sub)
				sub.handler.OnError(err)
				return
			}
			select {
			case <-sub.stop:
				// Unsubscribed while recomputing; drop the snapshot.
				return
			default:
			}
			sub.handler.OnSnapshot(snap)
		}
	}
}

func (a *Adapter) buildSnapshot(userID string) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	tasks, err := a.store.GetTasks(ctx, userID, store.TaskFilter{SortBy: "sort_order"})
	if err != nil {
		return Snapshot{}, err
	}

	habits, err := a.store.GetHabits(ctx, userID, false)
	if err != nil {
		return Snapshot{}, err
	}

	points, err := a.store.GetUserPoints(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}

	now := a.Now()
	snap := Snapshot{
		Tasks:       tasks,
		GeneratedAt: now,
		Stats: Stats{
			CurrentPoints:     points.CurrentPoints,
			TotalEarnedPoints: points.TotalEarnedPoints,
		},
	}

	for _, t := range tasks {
		if t.Completed {
			snap.Stats.CompletedTasks++
		} else {
			snap.Stats.OpenTasks++
		}
	}

	for _, h := range habits {
		status := HabitStatus{
			Habit:     h,
			DueToday:  schedule.IsDueOn(h, now),
			DoneToday: schedule.IsSatisfiedOn(h, now),
			Streak:    schedule.CurrentStreak(h, now),
		}
		if status.DueToday {
			snap.Stats.HabitsDueToday++
			if status.DoneToday {
				snap.Stats.HabitsDoneToday++
			}
		}
		snap.Habits = append(snap.Habits, status)
	}

	return snap, nil
}
