// Package tasks implements the task progress state machine:
// active → completed (terminal, on reaching the target) or
// active → expired/cancelled (terminal). A separate explicit Reset reopens
// recurring tasks; there is no transition back to active otherwise.
package tasks

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/greenloop-app/greenloop/internal/app/ledger"
	"github.com/greenloop-app/greenloop/internal/domain"
	"github.com/greenloop-app/greenloop/internal/infra/observability"
	"github.com/greenloop-app/greenloop/internal/infra/sqlite"
)

// Service is the task service.
type Service struct {
	db     *sqlite.DB
	ledger *ledger.Service
}

// New creates a task service.
func New(db *sqlite.DB, lg *ledger.Service) *Service {
	return &Service{db: db, ledger: lg}
}

// Create registers a new active task for a user.
func (s *Service) Create(ctx context.Context, userID, title, category string, target int64, reward domain.TaskReward, recurring bool) (*domain.Task, error) {
	if target < 1 {
		return nil, domain.FieldErrors{{Field: "target", Reason: "must be at least 1"}}
	}
	t := domain.Task{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Category:  category,
		Target:    target,
		Reward:    reward,
		Status:    domain.TaskActive,
		Recurring: recurring,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.InsertTask(t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Get retrieves a task.
func (s *Service) Get(ctx context.Context, id string) (*domain.Task, error) {
	return s.db.GetTask(id)
}

// List returns a user's tasks.
func (s *Service) List(ctx context.Context, userID string) ([]domain.Task, error) {
	return s.db.ListTasks(userID)
}

// Progress advances a task by delta. Current is clamped at the target.
// Crossing the target flips the task to completed, credits the reward
// through the ledger exactly once, and bumps the user's tasks-completed
// counter. Progress against a terminal task fails with ErrTaskNotActive
// and credits nothing.
func (s *Service) Progress(ctx context.Context, id string, delta int64) (*domain.Task, error) {
	if delta < 1 {
		return nil, domain.FieldErrors{{Field: "delta", Reason: "must be at least 1"}}
	}

	task, completed, err := s.db.AdvanceTask(id, delta, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !completed {
		return task, nil
	}

	observability.TasksCompleted.Inc()
	log.Printf("[tasks] task %s completed by user %s", task.ID, task.UserID)

	if task.Reward.Credits > 0 {
		if _, err := s.ledger.Record(ctx, ledger.RecordInput{
			UserID:      task.UserID,
			Type:        domain.TxTaskCompletion,
			Category:    domain.CategoryEarning,
			Amount:      task.Reward.Credits,
			Description: "completed " + task.Title,
			TaskID:      task.ID,
		}); err != nil {
			// The task is already terminal, so a retry cannot double-pay;
			// surface the ledger failure to the caller.
			return nil, err
		}
	}
	if err := s.db.AddUserStats(task.UserID, domain.UserStats{TasksCompleted: 1}); err != nil {
		return nil, err
	}
	return task, nil
}

// Expire moves an active task to expired.
func (s *Service) Expire(ctx context.Context, id string) error {
	return s.db.SetTaskStatus(id, domain.TaskExpired)
}

// Cancel moves an active task to cancelled.
func (s *Service) Cancel(ctx context.Context, id string) error {
	return s.db.SetTaskStatus(id, domain.TaskCancelled)
}

// Reset reopens a recurring task for its next cycle. This is the only way
// back to active; non-recurring tasks are refused.
func (s *Service) Reset(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.db.ResetTask(id)
	if err != nil {
		return nil, err
	}
	log.Printf("[tasks] task %s reset for next cycle", task.ID)
	return task, nil
}
