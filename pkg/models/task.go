package models

import "time"

// TaskStatus tracks the subject's progress on an assigned task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// TaskPriority is the clinician's urgency marker on a task.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Task is clinician-assigned homework for a linked subject. Assignment
// requires an approved clinician link; the stored record outlives the link,
// so the subject keeps their task history after an unlink.
type Task struct {
	ID           string       `json:"id" db:"id"`
	ClinicianID  string       `json:"clinician_id" db:"clinician_id"`
	SubjectID    string       `json:"subject_id" db:"subject_id"`
	Title        string       `json:"title" db:"title"`
	Description  *string      `json:"description,omitempty" db:"description"`
	Category     string       `json:"category" db:"category"`
	Priority     TaskPriority `json:"priority" db:"priority"`
	DueDate      *Date        `json:"due_date,omitempty" db:"due_date"`
	Status       TaskStatus   `json:"status" db:"status"`
	SubjectNotes *string      `json:"subject_notes,omitempty" db:"subject_notes"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty" db:"completed_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// SubjectTaskView is a task in the subject's list, carrying the assigning
// clinician's name.
type SubjectTaskView struct {
	Task
	ClinicianName string `json:"clinician_name,omitempty" db:"clinician_name"`
}

type CreateTaskRequest struct {
	SubjectID   string  `json:"subject_id" validate:"required"`
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description,omitempty"`
	Category    string  `json:"category,omitempty" validate:"omitempty,oneof=general mindfulness journal reading exercise"`
	Priority    string  `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	DueDate     *Date   `json:"due_date,omitempty"`
}

// UpdateTaskStatusRequest is the subject's progress update. Tasks never move
// back to pending.
type UpdateTaskStatusRequest struct {
	Status       TaskStatus `json:"status" validate:"required,oneof=in_progress completed"`
	SubjectNotes *string    `json:"subject_notes,omitempty"`
}
