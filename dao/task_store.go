package dao

import (
	"fmt"
	"sync"

	"bargain-backend/model"
)

// TaskStore keeps progress records in memory. Tasks are stored and returned
// by value, so a reader always sees a whole record.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]model.Task
}

func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]model.Task),
	}
}

func (s *TaskStore) Create(task model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, task.ID)
	}
	s.tasks[task.ID] = task
	return nil
}

// Update replaces a record. A finished task cannot change again, and
// progress only moves forward unless the task fails.
func (s *TaskStore) Update(task model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.tasks[task.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, task.ID)
	}
	if cur.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminal, task.ID, cur.Status)
	}
	if task.Status != model.StatusFailed && task.Progress < cur.Progress {
		return fmt.Errorf("%w: %s %.0f -> %.0f", ErrProgressRegression, task.ID, cur.Progress, task.Progress)
	}

	s.tasks[task.ID] = task
	return nil
}

func (s *TaskStore) Get(id string) (model.Task, error) {
	s.mu.RLock()
	task, ok := s.tasks[id]
	s.mu.RUnlock()

	if !ok {
		return model.Task{}, ErrNotFound
	}
	return task, nil
}

func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
