package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id                     TEXT PRIMARY KEY,
	user_id                TEXT NOT NULL,
	text                   TEXT NOT NULL,
	completed              INTEGER NOT NULL DEFAULT 0,
	completed_at           DATETIME,
	deadline               DATETIME,
	priority               TEXT NOT NULL DEFAULT 'medium',
	points                 INTEGER NOT NULL DEFAULT 0,
	sort_order             INTEGER NOT NULL DEFAULT 0,
	scheduled_for_deletion INTEGER NOT NULL DEFAULT 0,
	created_at             DATETIME NOT NULL,
	updated_at             DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sub_tasks (
	id         TEXT PRIMARY KEY,
	task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	text       TEXT NOT NULL,
	completed  INTEGER NOT NULL DEFAULT 0,
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS habits (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	title         TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	frequency     TEXT NOT NULL DEFAULT 'daily',
	target_days   TEXT NOT NULL DEFAULT '[]',
	reminder_time TEXT NOT NULL DEFAULT '',
	is_active     INTEGER NOT NULL DEFAULT 1,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS habit_completions (
	habit_id  TEXT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
	date      TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (habit_id, date)
);

CREATE TABLE IF NOT EXISTS point_entries (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	type       TEXT NOT NULL,
	delta      INTEGER NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS user_points (
	user_id             TEXT PRIMARY KEY,
	current_points      INTEGER NOT NULL DEFAULT 0,
	total_earned_points INTEGER NOT NULL DEFAULT 0,
	updated_at          DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	item_id    TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL,
	read       INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id);
CREATE INDEX IF NOT EXISTS idx_tasks_user_completed ON tasks(user_id, completed);
CREATE INDEX IF NOT EXISTS idx_sub_tasks_task ON sub_tasks(task_id);
CREATE INDEX IF NOT EXISTS idx_habits_user ON habits(user_id);
CREATE INDEX IF NOT EXISTS idx_point_entries_user ON point_entries(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_tasks_sweep
	ON tasks(user_id, scheduled_for_deletion, completed_at);

CREATE INDEX IF NOT EXISTS idx_point_entries_user_type
	ON point_entries(user_id, type, created_at);

CREATE INDEX IF NOT EXISTS idx_notifications_user
	ON notifications(user_id, created_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
