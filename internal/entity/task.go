package entity

import "time"

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Task struct {
	ID          int        `json:"id"`
	UserID      int        `json:"userId"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	Status      string     `json:"status" validate:"oneof=pending completed"`
	Priority    string     `json:"priority" validate:"oneof=low medium high"`
	DueDate     *time.Time `json:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskInput carries the user-supplied task fields. Nil fields are left untouched
// on update; an empty DueDate clears the due date.
type TaskInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"dueDate"`
}

/*
Mysql Schema (see migrations.AutoMigrateTasks):

CREATE TABLE tasks (
	id INT AUTO_INCREMENT PRIMARY KEY,
	user_id INT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NULL,
	status VARCHAR(16) NOT NULL DEFAULT 'pending',
	priority VARCHAR(16) NOT NULL DEFAULT 'medium',
	due_date DATETIME NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);
*/
