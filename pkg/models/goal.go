package models

import "time"

type GoalStatus string

const (
	GoalOpen      GoalStatus = "open"
	GoalCompleted GoalStatus = "completed"
)

// Goal is a purpose/reflection target. The completed/total ratio feeds the
// purpose sub-score of the wellness wheel.
type Goal struct {
	ID        string     `json:"id" db:"id"`
	OwnerID   string     `json:"owner_id" db:"owner_id"`
	Title     string     `json:"title" db:"title"`
	Status    GoalStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

type CreateGoalRequest struct {
	Title string `json:"title" validate:"required"`
}

type UpdateGoalRequest struct {
	Title  *string     `json:"title,omitempty"`
	Status *GoalStatus `json:"status,omitempty" validate:"omitempty,oneof=open completed"`
}
