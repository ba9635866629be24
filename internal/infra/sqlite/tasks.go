// Task storage operations.
package sqlite

import (
	"database/sql"
	"errors"
	"time"

	"github.com/greenloop-app/greenloop/internal/domain"
)

// InsertTask creates a new task row.
func (db *DB) InsertTask(t domain.Task) error {
	_, err := db.db.Exec(`
		INSERT INTO tasks (id, user_id, title, category, target, current,
			reward_credits, reward_xp, status, recurring, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.UserID, t.Title, t.Category, t.Target, t.Current,
		t.Reward.Credits, t.Reward.XP, t.Status, boolToInt(t.Recurring),
		nullTime(t.CompletedAt), fmtTime(t.CreatedAt))
	return err
}

// GetTask retrieves a task by id.
func (db *DB) GetTask(id string) (*domain.Task, error) {
	row := db.db.QueryRow(taskSelect+` WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	return t, err
}

// ListTasks returns a user's tasks, active first, then newest first.
func (db *DB) ListTasks(userID string) ([]domain.Task, error) {
	rows, err := db.db.Query(taskSelect+`
		WHERE user_id = ?
		ORDER BY CASE status WHEN 'active' THEN 0 ELSE 1 END, created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// AdvanceTask adds delta to an active task's progress, clamped at target.
// The status guard means a terminal task is never advanced; the returned
// completed flag is true only for the single call that crossed the target.
func (db *DB) AdvanceTask(id string, delta int64, now time.Time) (task *domain.Task, completed bool, err error) {
	tx, err := db.db.Begin()
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE tasks SET current = MIN(current + ?, target)
		WHERE id = ? AND status = 'active'
	`, delta, id)
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		// Read through the open transaction: the pool is capped at one
		// connection, and a pool-level query here would wait on it forever.
		if _, err := scanTask(tx.QueryRow(taskSelect+` WHERE id = ?`, id)); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, false, domain.ErrTaskNotFound
			}
			return nil, false, err
		}
		return nil, false, domain.ErrTaskNotActive
	}

	// Crossing the target completes the task in the same SQL transaction,
	// so two racing increments cannot both observe the crossing.
	res, err = tx.Exec(`
		UPDATE tasks SET status = 'completed', completed_at = ?
		WHERE id = ? AND status = 'active' AND current >= target
	`, fmtTime(now), id)
	if err != nil {
		return nil, false, err
	}
	if n, err = res.RowsAffected(); err != nil {
		return nil, false, err
	}
	completed = n == 1

	task, err = scanTask(tx.QueryRow(taskSelect+` WHERE id = ?`, id))
	if err != nil {
		return nil, false, err
	}
	return task, completed, tx.Commit()
}

// SetTaskStatus moves an active task to expired or cancelled.
func (db *DB) SetTaskStatus(id string, status domain.TaskStatus) error {
	if status != domain.TaskExpired && status != domain.TaskCancelled {
		return domain.ErrInvalidStatus
	}
	res, err := db.db.Exec(`
		UPDATE tasks SET status = ? WHERE id = ? AND status = 'active'
	`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := db.GetTask(id); err != nil {
			return err
		}
		return domain.ErrTaskNotActive
	}
	return nil
}

// ResetTask reopens a recurring task: progress back to zero, status active,
// completion stamp cleared. Non-recurring tasks are refused.
func (db *DB) ResetTask(id string) (*domain.Task, error) {
	res, err := db.db.Exec(`
		UPDATE tasks SET current = 0, status = 'active', completed_at = NULL
		WHERE id = ? AND recurring = 1
	`, id)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := db.GetTask(id); err != nil {
			return nil, err
		}
		return nil, domain.ErrTaskNotRecurring
	}
	return db.GetTask(id)
}

const taskSelect = `
	SELECT id, user_id, title, category, target, current,
		reward_credits, reward_xp, status, recurring, completed_at, created_at
	FROM tasks`

func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	var recurring int
	var completed sql.NullString
	var created string
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Category, &t.Target, &t.Current,
		&t.Reward.Credits, &t.Reward.XP, &t.Status, &recurring, &completed, &created)
	if err != nil {
		return nil, err
	}
	t.Recurring = recurring == 1
	t.CompletedAt = parseNullTime(completed)
	t.CreatedAt = parseTime(created)
	return &t, nil
}
