package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"todo-service/internal/entity"
	"todo-service/internal/fieldcrypt"
	"todo-service/migrations"
)

const taskColumns = `id, user_id, title, description, status, priority, due_date, created_at, updated_at`

// TaskRepository stores tasks. Every statement is scoped by user_id, so a task
// owned by someone else behaves exactly like a missing one.
type TaskRepository struct {
	db        *sql.DB
	cipher    fieldcrypt.Cipher
	forUpdate string
}

func NewTaskRepository(db *sql.DB, dialect migrations.Dialect, cipher fieldcrypt.Cipher) *TaskRepository {
	if cipher == nil {
		cipher = fieldcrypt.Nop{}
	}
	r := &TaskRepository{db: db, cipher: cipher}
	if dialect == migrations.MySQL {
		r.forUpdate = " FOR UPDATE"
	}
	return r
}

func (r *TaskRepository) List(ctx context.Context, userID int) ([]entity.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []entity.Task{}
	for rows.Next() {
		task, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Get(ctx context.Context, id, userID int) (*entity.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND user_id = ?`
	return r.scan(r.db.QueryRowContext(ctx, query, id, userID))
}

func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) (*entity.Task, error) {
	title, description, err := r.seal(task)
	if err != nil {
		return nil, err
	}

	stamp := now()
	query := `INSERT INTO tasks (user_id, title, description, status, priority, due_date, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, task.UserID, title, description, task.Status, task.Priority, nullTime(task.DueDate), stamp, stamp)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	created := *task
	created.ID = int(id)
	created.CreatedAt = stamp
	created.UpdatedAt = stamp
	return &created, nil
}

// Update loads the task inside a transaction, lets apply merge and validate it,
// then writes it back with the same ownership condition.
func (r *TaskRepository) Update(ctx context.Context, id, userID int, apply func(*entity.Task) error) (*entity.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND user_id = ?` + r.forUpdate
	task, err := r.scan(tx.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := apply(task); err != nil {
		tx.Rollback()
		return nil, err
	}
	task.ID, task.UserID = id, userID
	task.UpdatedAt = now()

	title, description, err := r.seal(task)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	update := `UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, due_date = ?, updated_at = ? WHERE id = ? AND user_id = ?`
	res, err := tx.ExecContext(ctx, update, title, description, task.Status, task.Priority, nullTime(task.DueDate), task.UpdatedAt, id, userID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("update task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		tx.Rollback()
		return nil, entity.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id, userID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *TaskRepository) scan(row scanner) (*entity.Task, error) {
	var (
		task        entity.Task
		description sql.NullString
		dueDate     sql.NullTime
	)
	err := row.Scan(&task.ID, &task.UserID, &task.Title, &description, &task.Status, &task.Priority, &dueDate, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	if task.Title, err = r.cipher.Decrypt(task.Title); err != nil {
		return nil, fmt.Errorf("decrypt task %d title: %w", task.ID, err)
	}
	if task.Description, err = r.cipher.Decrypt(description.String); err != nil {
		return nil, fmt.Errorf("decrypt task %d description: %w", task.ID, err)
	}
	if dueDate.Valid {
		due := dueDate.Time.UTC()
		task.DueDate = &due
	}
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	return &task, nil
}

func (r *TaskRepository) seal(task *entity.Task) (string, sql.NullString, error) {
	title, err := r.cipher.Encrypt(task.Title)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("encrypt title: %w", err)
	}
	if task.Description == "" {
		return title, sql.NullString{}, nil
	}
	description, err := r.cipher.Encrypt(task.Description)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("encrypt description: %w", err)
	}
	return title, sql.NullString{String: description, Valid: true}, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
