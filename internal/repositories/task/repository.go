package task

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/fernhealth/fern/pkg/database"
	fernerrors "github.com/fernhealth/fern/pkg/errors"
	"github.com/fernhealth/fern/pkg/models"
	"github.com/fernhealth/fern/pkg/tracing"
)

const columns = "id, clinician_id, subject_id, title, description, category, priority, due_date, status, subject_notes, created_at, completed_at, updated_at"

// Repository handles clinician-assigned tasks. Rows are never cascaded away
// on unlink; the subject keeps their assignment history.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new assignment in the pending state
func (r *Repository) Create(ctx context.Context, clinicianID string, req models.CreateTaskRequest) (*models.Task, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":       "Create",
		"clinician_id": clinicianID,
		"subject_id":   req.SubjectID,
	})

	category := req.Category
	if category == "" {
		category = "general"
	}
	priority := models.TaskPriority(req.Priority)
	if priority == "" {
		priority = models.TaskPriorityMedium
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:          uuid.New().String(),
		ClinicianID: clinicianID,
		SubjectID:   req.SubjectID,
		Title:       req.Title,
		Description: req.Description,
		Category:    category,
		Priority:    priority,
		DueDate:     req.DueDate,
		Status:      models.TaskStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("tasks")
	ib.Cols("id", "clinician_id", "subject_id", "title", "description", "category", "priority", "due_date", "status", "created_at", "updated_at")
	ib.Values(task.ID, task.ClinicianID, task.SubjectID, task.Title, task.Description, task.Category, task.Priority, task.DueDate, task.Status, task.CreatedAt, task.UpdatedAt)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create task")
		return nil, fernerrors.Upstream(err, "failed to create task")
	}

	log.WithFields(map[string]any{"id": task.ID}).Info("Created task")
	return task, nil
}

// Get retrieves one task by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Task, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("tasks")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fernerrors.NotFound("task %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get task")
		return nil, fernerrors.Upstream(err, "failed to get task")
	}

	return &task, nil
}

// ListByClinicianAndSubject returns the clinician's assignments for one
// subject, newest first.
func (r *Repository) ListByClinicianAndSubject(ctx context.Context, clinicianID, subjectID string) ([]models.Task, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.ListByClinicianAndSubject")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("tasks")
	sb.Where(
		sb.Equal("clinician_id", clinicianID),
		sb.Equal("subject_id", subjectID),
	)
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list tasks")
		return nil, fernerrors.Upstream(err, "failed to list tasks")
	}

	return tasks, nil
}

// ListBySubject returns every task assigned to the subject with the assigning
// clinician's name, newest first.
func (r *Repository) ListBySubject(ctx context.Context, subjectID string) ([]models.SubjectTaskView, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.ListBySubject")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"t.id", "t.clinician_id", "t.subject_id", "t.title", "t.description",
		"t.category", "t.priority", "t.due_date", "t.status", "t.subject_notes",
		"t.created_at", "t.completed_at", "t.updated_at",
		"tp.name AS clinician_name",
	)
	sb.From("tasks t")
	sb.JoinWithOption(sqlbuilder.InnerJoin, "tracked_persons tp", "tp.id = t.clinician_id")
	sb.Where(sb.Equal("t.subject_id", subjectID))
	sb.OrderBy("t.created_at DESC")

	query, args := sb.Build()
	var tasks []models.SubjectTaskView
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list subject tasks")
		return nil, fernerrors.Upstream(err, "failed to list tasks")
	}

	return tasks, nil
}

// UpdateStatus records the subject's progress. The WHERE clause scopes the
// update to the subject's own tasks; completion stamps completed_at.
func (r *Repository) UpdateStatus(ctx context.Context, taskID, subjectID string, req models.UpdateTaskStatusRequest) (*models.Task, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.UpdateStatus")
	defer span.End()

	now := time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("tasks")
	assignments := []string{
		ub.Assign("status", req.Status),
		ub.Assign("subject_notes", req.SubjectNotes),
		ub.Assign("updated_at", now),
	}
	if req.Status == models.TaskStatusCompleted {
		assignments = append(assignments, ub.Assign("completed_at", now))
	}
	ub.Set(assignments...)
	ub.Where(
		ub.Equal("id", taskID),
		ub.Equal("subject_id", subjectID),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update task status")
		return nil, fernerrors.Upstream(err, "failed to update task status")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, fernerrors.NotFound("task %s not found", taskID)
	}

	return r.Get(ctx, taskID)
}

// Delete removes an assignment. Only the assigning clinician may delete,
// enforced by the WHERE clause.
func (r *Repository) Delete(ctx context.Context, taskID, clinicianID string) error {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.Delete")
	defer span.End()

	dlb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	dlb.DeleteFrom("tasks")
	dlb.Where(
		dlb.Equal("id", taskID),
		dlb.Equal("clinician_id", clinicianID),
	)

	query, args := dlb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete task")
		return fernerrors.Upstream(err, "failed to delete task")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fernerrors.NotFound("task %s not found", taskID)
	}

	return nil
}
