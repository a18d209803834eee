package goal

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

// Repository handles goal persistence
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

// Create creates a new goal
func (r *Repository) Create(ctx context.Context, ownerID string, req models.CreateGoalRequest) (*models.Goal, error) {
	ctx, span := tracing.StartSpan(ctx, "goal.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	goal := &models.Goal{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     req.Title,
		Status:    models.GoalOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("goals")
	ib.Cols("id", "owner_id", "title", "status", "created_at", "updated_at")
	ib.Values(goal.ID, goal.OwnerID, goal.Title, goal.Status, goal.CreatedAt, goal.UpdatedAt)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create goal")
		return nil, fernerrors.Upstream(err, "failed to create goal")
	}

	return goal, nil
}

// List retrieves the owner's goals, oldest first
func (r *Repository) List(ctx context.Context, ownerID string) ([]models.Goal, error) {
	ctx, span := tracing.StartSpan(ctx, "goal.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "owner_id", "title", "status", "created_at", "updated_at")
	sb.From("goals")
	sb.Where(sb.Equal("owner_id", ownerID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var goals []models.Goal
	if err := r.db.SelectContext(ctx, &goals, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list goals")
		return nil, fernerrors.Upstream(err, "failed to list goals")
	}

	return goals, nil
}

// Update updates a goal's title or status
func (r *Repository) Update(ctx context.Context, ownerID, id string, req models.UpdateGoalRequest) (*models.Goal, error) {
	ctx, span := tracing.StartSpan(ctx, "goal.Repository.Update")
	defer span.End()

	existing, err := r.get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		existing.Title = *req.Title
	}
	if req.Status != nil {
		existing.Status = *req.Status
	}
	existing.UpdatedAt = time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("goals")
	ub.Set(
		ub.Assign("title", existing.Title),
		ub.Assign("status", existing.Status),
		ub.Assign("updated_at", existing.UpdatedAt),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("owner_id", ownerID),
	)

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update goal")
		return nil, fernerrors.Upstream(err, "failed to update goal")
	}

	return existing, nil
}

// Progress returns completed and total goal counts for the purpose sub-score.
func (r *Repository) Progress(ctx context.Context, ownerID string) (completed int, total int, err error) {
	ctx, span := tracing.StartSpan(ctx, "goal.Repository.Progress")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"COUNT(*) FILTER (WHERE status = 'completed') AS completed",
		"COUNT(*) AS total",
	)
	sb.From("goals")
	sb.Where(sb.Equal("owner_id", ownerID))

	query, args := sb.Build()
	var progress struct {
		Completed int `db:"completed"`
		Total     int `db:"total"`
	}
	if err := r.db.GetContext(ctx, &progress, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count goals")
		return 0, 0, fernerrors.Upstream(err, "failed to count goals")
	}

	return progress.Completed, progress.Total, nil
}

func (r *Repository) get(ctx context.Context, ownerID, id string) (*models.Goal, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "owner_id", "title", "status", "created_at", "updated_at")
	sb.From("goals")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("owner_id", ownerID),
	)

	query, args := sb.Build()
	var goal models.Goal
	if err := r.db.GetContext(ctx, &goal, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fernerrors.NotFound("goal %s not found", id)
		}
		return nil, fernerrors.Upstream(err, "failed to get goal")
	}

	return &goal, nil
}
