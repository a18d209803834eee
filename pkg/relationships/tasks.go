package relationships

import (
	"context"

	"github.com/Gobusters/ectologger"

	fernerrors "github.com/fernhealth/fern/pkg/errors"
	"github.com/fernhealth/fern/pkg/models"
	"github.com/fernhealth/fern/pkg/tracing"
)

// TaskStore is the task persistence surface.
type TaskStore interface {
	Create(ctx context.Context, clinicianID string, req models.CreateTaskRequest) (*models.Task, error)
	ListByClinicianAndSubject(ctx context.Context, clinicianID, subjectID string) ([]models.Task, error)
	ListBySubject(ctx context.Context, subjectID string) ([]models.SubjectTaskView, error)
	UpdateStatus(ctx context.Context, taskID, subjectID string, req models.UpdateTaskStatusRequest) (*models.Task, error)
	Delete(ctx context.Context, taskID, clinicianID string) error
}

// TaskService gates clinician-assigned tasks on the link state. Assignment
// needs a currently-approved clinician link; the subject's own view and
// progress updates never do, so an unlink keeps the history usable.
type TaskService struct {
	tasks   TaskStore
	persons PersonStore
	manager *Manager
	logger  ectologger.Logger
}

func NewTaskService(tasks TaskStore, persons PersonStore, manager *Manager, logger ectologger.Logger) *TaskService {
	return &TaskService{
		tasks:   tasks,
		persons: persons,
		manager: manager,
		logger:  logger,
	}
}

// Assign creates a task for a linked subject. Requires an approved clinician
// link.
func (s *TaskService) Assign(ctx context.Context, clinicianID string, req models.CreateTaskRequest) (*models.Task, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.TaskService.Assign")
	defer span.End()

	clinician, err := s.persons.Get(ctx, clinicianID)
	if err != nil {
		return nil, err
	}
	if clinician.Role != models.RoleClinician {
		return nil, fernerrors.NotAuthorized("only clinicians assign tasks")
	}

	if err := s.manager.RequireApproved(ctx, clinicianID, req.SubjectID); err != nil {
		return nil, err
	}

	return s.tasks.Create(ctx, clinicianID, req)
}

// ClinicianView returns the clinician's own assignments for a subject.
// Requires an approved link.
func (s *TaskService) ClinicianView(ctx context.Context, clinicianID, subjectID string) ([]models.Task, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.TaskService.ClinicianView")
	defer span.End()

	if err := s.manager.RequireApproved(ctx, clinicianID, subjectID); err != nil {
		return nil, err
	}

	return s.tasks.ListByClinicianAndSubject(ctx, clinicianID, subjectID)
}

// SubjectView returns every task assigned to the subject, regardless of the
// current link state. Tasks are about the subject; an unlink does not take
// their history away.
func (s *TaskService) SubjectView(ctx context.Context, subjectID string) ([]models.SubjectTaskView, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.TaskService.SubjectView")
	defer span.End()

	return s.tasks.ListBySubject(ctx, subjectID)
}

// UpdateStatus records the subject's progress on their own task. The store
// enforces subject scoping.
func (s *TaskService) UpdateStatus(ctx context.Context, subjectID, taskID string, req models.UpdateTaskStatusRequest) (*models.Task, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.TaskService.UpdateStatus")
	defer span.End()

	return s.tasks.UpdateStatus(ctx, taskID, subjectID, req)
}

// Remove deletes an assignment. Only the assigning clinician may remove; the
// store enforces authorship.
func (s *TaskService) Remove(ctx context.Context, clinicianID, taskID string) error {
	ctx, span := tracing.StartSpan(ctx, "relationships.TaskService.Remove")
	defer span.End()

	return s.tasks.Delete(ctx, taskID, clinicianID)
}
