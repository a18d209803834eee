package habit

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

// Repository handles habit definition persistence
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

// Create creates a new habit definition
func (r *Repository) Create(ctx context.Context, ownerID string, req models.CreateHabitRequest) (*models.Habit, error) {
	ctx, span := tracing.StartSpan(ctx, "habit.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":   "Create",
		"owner_id": ownerID,
		"name":     req.Name,
	})

	now := time.Now().UTC()
	habit := &models.Habit{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		Frequency:   req.Frequency,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if habit.Frequency == "" {
		habit.Frequency = models.FrequencyDaily
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("habits")
	sb.Cols("id", "owner_id", "name", "description", "frequency", "active", "created_at", "updated_at")
	sb.Values(habit.ID, habit.OwnerID, habit.Name, habit.Description, habit.Frequency, habit.Active, habit.CreatedAt, habit.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create habit")
		return nil, fernerrors.Upstream(err, "failed to create habit")
	}

	log.WithFields(map[string]any{"id": habit.ID}).Info("Created habit")
	return habit, nil
}

// Get retrieves a habit owned by the caller
func (r *Repository) Get(ctx context.Context, ownerID, id string) (*models.Habit, error) {
	ctx, span := tracing.StartSpan(ctx, "habit.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "owner_id", "name", "description", "frequency", "active", "created_at", "updated_at")
	sb.From("habits")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("owner_id", ownerID),
	)

	query, args := sb.Build()
	var habit models.Habit
	if err := r.db.GetContext(ctx, &habit, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fernerrors.NotFound("habit %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get habit")
		return nil, fernerrors.Upstream(err, "failed to get habit")
	}

	return &habit, nil
}

// List retrieves the owner's habits, active first, oldest first within each group.
func (r *Repository) List(ctx context.Context, ownerID string, includeInactive bool) ([]models.Habit, error) {
	ctx, span := tracing.StartSpan(ctx, "habit.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "owner_id", "name", "description", "frequency", "active", "created_at", "updated_at")
	sb.From("habits")
	where := []string{sb.Equal("owner_id", ownerID)}
	if !includeInactive {
		where = append(where, sb.Equal("active", true))
	}
	sb.Where(where...)
	sb.OrderBy("active DESC", "created_at ASC")

	query, args := sb.Build()
	var habits []models.Habit
	if err := r.db.SelectContext(ctx, &habits, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list habits")
		return nil, fernerrors.Upstream(err, "failed to list habits")
	}

	return habits, nil
}

// Update updates a habit definition
func (r *Repository) Update(ctx context.Context, ownerID, id string, req models.UpdateHabitRequest) (*models.Habit, error) {
	ctx, span := tracing.StartSpan(ctx, "habit.Repository.Update")
	defer span.End()

	existing, err := r.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.Description != nil {
		existing.Description = *req.Description
	}
	if req.Active != nil {
		existing.Active = *req.Active
	}
	existing.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("habits")
	sb.Set(
		sb.Assign("name", existing.Name),
		sb.Assign("description", existing.Description),
		sb.Assign("active", existing.Active),
		sb.Assign("updated_at", existing.UpdatedAt),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("owner_id", ownerID),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update habit")
		return nil, fernerrors.Upstream(err, "failed to update habit")
	}

	return existing, nil
}

// Deactivate is the soft delete. Logs stay attributable and the last computed
// streak is frozen rather than zeroed.
func (r *Repository) Deactivate(ctx context.Context, ownerID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "habit.Repository.Deactivate")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("habits")
	sb.Set(
		sb.Assign("active", false),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("owner_id", ownerID),
		sb.Equal("active", true),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to deactivate habit")
		return fernerrors.Upstream(err, "failed to deactivate habit")
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return fernerrors.NotFound("habit %s not found", id)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deactivated habit")
	return nil
}
