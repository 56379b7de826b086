package model

import "time"

// Priority classifies how important a task is. The point reward for
// completing a task is derived from its priority when Points is unset.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ValidPriority reports whether p is one of the known priority levels.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Task is a one-off item created and managed by the user.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id" db:"id"`

	// UserID identifies the owning user.
	UserID string `json:"user_id" db:"user_id"`

	// Text is the task's display text.
	Text string `json:"text" db:"text"`

	// Completed indicates whether the task is done.
	Completed bool `json:"completed" db:"completed"`

	// CompletedAt is when the task was last marked done; nil while open.
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	// Deadline is the optional calendar date the task is due by.
	Deadline *time.Time `json:"deadline,omitempty" db:"deadline"`

	// Priority is one of the Priority* constants.
	Priority Priority `json:"priority" db:"priority"`

	// Points is the reward for completing this task. Zero means
	// "derive from priority".
	Points int `json:"points" db:"points"`

	// SortOrder is the user's manual ranking within the list.
	SortOrder int `json:"sort_order" db:"sort_order"`

	// ScheduledForDeletion is true exactly while Completed is true;
	// the retention sweeper only ever removes flagged tasks.
	ScheduledForDeletion bool `json:"scheduled_for_deletion" db:"scheduled_for_deletion"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// SubTasks is populated by queries that join with sub_tasks.
	SubTasks []SubTask `json:"sub_tasks,omitempty" db:"-"`
}

// SubTask is a simple sub-entry within a task.
// Its lifecycle is bound to the parent task (CASCADE delete).
type SubTask struct {
	ID        string    `json:"id" db:"id"`
	TaskID    string    `json:"task_id" db:"task_id"`
	Text      string    `json:"text" db:"text"`
	Completed bool      `json:"completed" db:"completed"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Progress returns the task's completion ratio in [0, 1]. When the task
// has sub-tasks, progress is derived from them; otherwise it follows the
// Completed flag.
func (t Task) Progress() float64 {
	if len(t.SubTasks) == 0 {
		if t.Completed {
			return 1
		}
		return 0
	}
	done := 0
	for _, st := range t.SubTasks {
		if st.Completed {
			done++
		}
	}
	return float64(done) / float64(len(t.SubTasks))
}
