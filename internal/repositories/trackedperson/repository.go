package trackedperson

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

const columns = "id, name, email, role, clean_since, addiction_type, triggers, protective_factors, created_at, updated_at"

// Repository handles tracked person persistence
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

// Create registers a new person. Email is the contact key clinicians use for
// direct links, so it is unique.
func (r *Repository) Create(ctx context.Context, req models.CreateTrackedPersonRequest) (*models.TrackedPerson, error) {
	ctx, span := tracing.StartSpan(ctx, "trackedperson.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method": "Create",
		"email":  req.Email,
		"role":   req.Role,
	})

	now := time.Now().UTC()
	person := &models.TrackedPerson{
		ID:                uuid.New().String(),
		Name:              req.Name,
		Email:             req.Email,
		Role:              req.Role,
		Triggers:          database.JSONB[[]string]{Data: []string{}},
		ProtectiveFactors: database.JSONB[[]string]{Data: []string{}},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("tracked_persons")
	sb.Cols("id", "name", "email", "role", "triggers", "protective_factors", "created_at", "updated_at")
	sb.Values(person.ID, person.Name, person.Email, person.Role, person.Triggers, person.ProtectiveFactors, person.CreatedAt, person.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fernerrors.DuplicateLink("a person with email %s already exists", req.Email)
		}
		log.WithError(err).Error("Failed to create tracked person")
		return nil, fernerrors.Upstream(err, "failed to create tracked person")
	}

	log.WithFields(map[string]any{"id": person.ID}).Info("Created tracked person")
	return person, nil
}

// Get retrieves a person by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.TrackedPerson, error) {
	ctx, span := tracing.StartSpan(ctx, "trackedperson.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("tracked_persons")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var person models.TrackedPerson
	if err := r.db.GetContext(ctx, &person, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fernerrors.NotFound("person %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get tracked person")
		return nil, fernerrors.Upstream(err, "failed to get tracked person")
	}

	return &person, nil
}

// GetByEmail is the exact contact lookup used by the link protocols.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.TrackedPerson, error) {
	ctx, span := tracing.StartSpan(ctx, "trackedperson.Repository.GetByEmail")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("tracked_persons")
	sb.Where(sb.Equal("email", email))

	query, args := sb.Build()
	var person models.TrackedPerson
	if err := r.db.GetContext(ctx, &person, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fernerrors.NotFound("no person with email %s", email)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get tracked person by email")
		return nil, fernerrors.Upstream(err, "failed to get tracked person")
	}

	return &person, nil
}

// UpdateProfile mutates the onboarding fields
func (r *Repository) UpdateProfile(ctx context.Context, id string, req models.UpdateProfileRequest) (*models.TrackedPerson, error) {
	ctx, span := tracing.StartSpan(ctx, "trackedperson.Repository.UpdateProfile")
	defer span.End()

	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CleanSince != nil {
		existing.CleanSince = req.CleanSince
	}
	if req.AddictionType != nil {
		existing.AddictionType = req.AddictionType
	}
	if req.Triggers != nil {
		existing.Triggers = database.JSONB[[]string]{Data: req.Triggers}
	}
	if req.ProtectiveFactors != nil {
		existing.ProtectiveFactors = database.JSONB[[]string]{Data: req.ProtectiveFactors}
	}
	existing.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("tracked_persons")
	sb.Set(
		sb.Assign("clean_since", existing.CleanSince),
		sb.Assign("addiction_type", existing.AddictionType),
		sb.Assign("triggers", existing.Triggers),
		sb.Assign("protective_factors", existing.ProtectiveFactors),
		sb.Assign("updated_at", existing.UpdatedAt),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update tracked person")
		return nil, fernerrors.Upstream(err, "failed to update tracked person")
	}

	return existing, nil
}

// SetCleanSince resets the recovery start date. Called inside the
// relapse-report transaction so the reset and the report land together.
func (r *Repository) SetCleanSince(ctx context.Context, id string, date models.Date) error {
	ctx, span := tracing.StartSpan(ctx, "trackedperson.Repository.SetCleanSince")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return fernerrors.Upstream(err, "failed to open transaction")
	}
	defer tx.Rollback(ctx)

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("tracked_persons")
	sb.Set(
		sb.Assign("clean_since", date),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to set clean since")
		return fernerrors.Upstream(err, "failed to set clean since")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fernerrors.NotFound("person %s not found", id)
	}

	return tx.Commit(ctx)
}
