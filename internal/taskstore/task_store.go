package taskstore

import (
	"fmt"

	"github.com/google/uuid"
)

const TasksFileName = "tasks.json"

// TaskStore keeps the task list in a single JSON file. Every mutation reads
// the whole file and rewrites it; concurrent writers can lose updates.
type TaskStore struct {
	path string
}

func NewTaskStore(path string) *TaskStore {
	return &TaskStore{path: path}
}

func (s *TaskStore) Path() string {
	return s.path
}

func (s *TaskStore) ListTasks() ([]Task, error) {
	return loadJSONList[Task](s.path, false)
}

// AddTask appends task and persists the list. Ids are not checked for
// uniqueness; an empty id is filled with a time-ordered UUID.
func (s *TaskStore) AddTask(task Task) (Task, error) {
	list, err := s.ListTasks()
	if err != nil {
		return Task{}, err
	}
	if task.ID == "" {
		task.ID = NewTaskID()
	}
	list = append(list, task)
	if err := s.save(list); err != nil {
		return Task{}, err
	}
	return task, nil
}

func (s *TaskStore) UpdateTask(id string, patch TaskPatch) (Task, error) {
	list, err := s.ListTasks()
	if err != nil {
		return Task{}, err
	}
	for i := range list {
		if list[i].ID != id {
			continue
		}
		list[i] = list[i].Apply(patch)
		if err := s.save(list); err != nil {
			return Task{}, err
		}
		return list[i], nil
	}
	return Task{}, fmt.Errorf("task %q: %w", id, ErrNotFound)
}

func (s *TaskStore) DeleteTask(id string) error {
	list, err := s.ListTasks()
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID != id {
			continue
		}
		out := make([]Task, 0, len(list)-1)
		out = append(out, list[:i]...)
		out = append(out, list[i+1:]...)
		return s.save(out)
	}
	return fmt.Errorf("task %q: %w", id, ErrNotFound)
}

func (s *TaskStore) FindByID(id string) (Task, bool, error) {
	list, err := s.ListTasks()
	if err != nil {
		return Task{}, false, err
	}
	for _, t := range list {
		if t.ID == id {
			return t, true, nil
		}
	}
	return Task{}, false, nil
}

func (s *TaskStore) save(list []Task) error {
	return writeJSONAtomically(s.path, list)
}

// NewTaskID returns a UUIDv7, falling back to a random UUID.
func NewTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
