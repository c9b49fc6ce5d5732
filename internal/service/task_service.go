package service

import (
	"context"
	"errors"

	"todo-service/internal/entity"
	"todo-service/internal/events"
	"todo-service/internal/metrics"
)

// TaskStore is the task repository.
type TaskStore interface {
	List(ctx context.Context, userID int) ([]entity.Task, error)
	Get(ctx context.Context, id, userID int) (*entity.Task, error)
	Create(ctx context.Context, task *entity.Task) (*entity.Task, error)
	Update(ctx context.Context, id, userID int, apply func(*entity.Task) error) (*entity.Task, error)
	Delete(ctx context.Context, id, userID int) error
}

// TaskCache caches single-task reads. Get returns (nil, nil) on a miss. Set
// drops the write when Invalidate ran after generation was read.
type TaskCache interface {
	Get(ctx context.Context, userID, id int) (*entity.Task, error)
	Generation(ctx context.Context, userID, id int) (int64, error)
	Set(ctx context.Context, task *entity.Task, generation int64) error
	Invalidate(ctx context.Context, userID, id int) error
}

// TaskService scopes every task operation to the requesting user.
type TaskService struct {
	tasks     TaskStore
	cache     TaskCache
	publisher events.Publisher
	metrics   *metrics.Metrics
}

// NewTaskService creates a new instance of TaskService. cache and publisher may
// be nil.
func NewTaskService(tasks TaskStore, cache TaskCache, publisher events.Publisher, m *metrics.Metrics) *TaskService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &TaskService{tasks: tasks, cache: cache, publisher: publisher, metrics: m}
}

func (s *TaskService) List(ctx context.Context, userID int) (tasks []entity.Task, err error) {
	defer func() { s.metrics.Task("list", err) }()

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	tasks, err = s.tasks.List(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Int("user_id", userID).Msg("Error listing tasks")
		return nil, err
	}
	for i := range tasks {
		if tasks[i].UserID != userID {
			logger.Error().Int("task_id", tasks[i].ID).Int("user_id", userID).Msg("task store returned a foreign task")
			return nil, errors.New("task ownership mismatch")
		}
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, id, userID int) (task *entity.Task, err error) {
	defer func() { s.metrics.Task("get", err) }()

	if err := requireUser(userID); err != nil {
		return nil, err
	}

	fill := false
	var generation int64
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, userID, id)
		if err != nil {
			logger.Warn().Err(err).Int("task_id", id).Msg("task cache read failed")
		} else if cached != nil {
			return guard(cached, userID)
		}

		if generation, err = s.cache.Generation(ctx, userID, id); err != nil {
			logger.Warn().Err(err).Int("task_id", id).Msg("task cache generation read failed")
		} else {
			fill = true
		}
	}

	task, err = s.tasks.Get(ctx, id, userID)
	if err != nil {
		return nil, s.logUnexpected(err, "Error getting task", id)
	}
	if task, err = guard(task, userID); err != nil {
		return nil, err
	}

	if fill {
		if err := s.cache.Set(ctx, task, generation); err != nil {
			logger.Warn().Err(err).Int("task_id", id).Msg("task cache write failed")
		}
	}
	return task, nil
}

func (s *TaskService) Create(ctx context.Context, userID int, in entity.TaskInput) (task *entity.Task, err error) {
	defer func() { s.metrics.Task("create", err) }()

	if err := requireUser(userID); err != nil {
		return nil, err
	}

	draft := &entity.Task{UserID: userID}
	if err := applyInput(draft, in); err != nil {
		return nil, err
	}

	task, err = s.tasks.Create(ctx, draft)
	if err != nil {
		logger.Error().Err(err).Int("user_id", userID).Msg("Error creating task")
		return nil, err
	}

	s.publish(ctx, events.TaskCreated, task)
	return task, nil
}

// Update merges in over the stored task. Ownership is checked inside the same
// transaction as the write.
func (s *TaskService) Update(ctx context.Context, id, userID int, in entity.TaskInput) (task *entity.Task, err error) {
	defer func() { s.metrics.Task("update", err) }()

	if err := requireUser(userID); err != nil {
		return nil, err
	}

	task, err = s.tasks.Update(ctx, id, userID, func(existing *entity.Task) error {
		if _, err := guard(existing, userID); err != nil {
			return err
		}
		return applyInput(existing, in)
	})
	if err != nil {
		return nil, s.logUnexpected(err, "Error updating task", id)
	}

	s.invalidate(ctx, userID, id)
	s.publish(ctx, events.TaskUpdated, task)
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, id, userID int) (err error) {
	defer func() { s.metrics.Task("delete", err) }()

	if err := requireUser(userID); err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, id, userID); err != nil {
		return s.logUnexpected(err, "Error deleting task", id)
	}

	s.invalidate(ctx, userID, id)
	s.publish(ctx, events.TaskDeleted, &entity.Task{ID: id, UserID: userID})
	return nil
}

// guard hides tasks that belong to someone else behind ErrNotFound.
func guard(task *entity.Task, userID int) (*entity.Task, error) {
	if task == nil || task.UserID != userID {
		return nil, entity.ErrNotFound
	}
	return task, nil
}

func requireUser(userID int) error {
	if userID <= 0 {
		return entity.ErrUnauthenticated
	}
	return nil
}

func (s *TaskService) invalidate(ctx context.Context, userID, id int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID, id); err != nil {
		logger.Warn().Err(err).Int("task_id", id).Msg("task cache invalidation failed")
	}
}

func (s *TaskService) publish(ctx context.Context, event string, task *entity.Task) {
	if err := s.publisher.PublishTask(ctx, event, task); err != nil {
		logger.Error().Err(err).Str("event", event).Int("task_id", task.ID).Msg("Error publishing task event")
	}
}

func (s *TaskService) logUnexpected(err error, msg string, id int) error {
	if !errors.Is(err, entity.ErrNotFound) && !entity.IsValidation(err) {
		logger.Error().Err(err).Int("task_id", id).Msg(msg)
	}
	return err
}
