package clinicalnote

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

const columns = "id, clinician_id, subject_id, session_date, private_notes, summary, goals_discussed, next_focus, mood_rating, created_at, updated_at"

// Repository handles clinical notes. One record serves two views: the
// authoring clinician's full record and the subject's redacted projection.
// Redaction happens in pkg/relationships at read time, never here.
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

// Create stores a clinician-authored note about a subject
func (r *Repository) Create(ctx context.Context, clinicianID string, req models.CreateClinicalNoteRequest) (*models.ClinicalNote, error) {
	ctx, span := tracing.StartSpan(ctx, "clinicalnote.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":       "Create",
		"clinician_id": clinicianID,
		"subject_id":   req.SubjectID,
	})

	goals := req.GoalsDiscussed
	if goals == nil {
		goals = []string{}
	}

	now := time.Now().UTC()
	note := &models.ClinicalNote{
		ID:             uuid.New().String(),
		ClinicianID:    clinicianID,
		SubjectID:      req.SubjectID,
		SessionDate:    req.SessionDate,
		PrivateNotes:   req.PrivateNotes,
		Summary:        req.Summary,
		GoalsDiscussed: database.JSONB[[]string]{Data: goals},
		NextFocus:      req.NextFocus,
		MoodRating:     req.MoodRating,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("clinical_notes")
	ib.Cols("id", "clinician_id", "subject_id", "session_date", "private_notes", "summary", "goals_discussed", "next_focus", "mood_rating", "created_at", "updated_at")
	ib.Values(note.ID, note.ClinicianID, note.SubjectID, note.SessionDate, note.PrivateNotes, note.Summary, note.GoalsDiscussed, note.NextFocus, note.MoodRating, note.CreatedAt, note.UpdatedAt)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create clinical note")
		return nil, fernerrors.Upstream(err, "failed to create clinical note")
	}

	log.WithFields(map[string]any{"id": note.ID}).Info("Created clinical note")
	return note, nil
}

// Get retrieves one note by ID, full record.
func (r *Repository) Get(ctx context.Context, id string) (*models.ClinicalNote, error) {
	ctx, span := tracing.StartSpan(ctx, "clinicalnote.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("clinical_notes")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var note models.ClinicalNote
	if err := r.db.GetContext(ctx, &note, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fernerrors.NotFound("note %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get clinical note")
		return nil, fernerrors.Upstream(err, "failed to get clinical note")
	}

	return &note, nil
}

// ListByClinicianAndSubject returns the clinician's notes about one subject,
// newest session first. Full records; the caller is the author.
func (r *Repository) ListByClinicianAndSubject(ctx context.Context, clinicianID, subjectID string) ([]models.ClinicalNote, error) {
	ctx, span := tracing.StartSpan(ctx, "clinicalnote.Repository.ListByClinicianAndSubject")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("clinical_notes")
	sb.Where(
		sb.Equal("clinician_id", clinicianID),
		sb.Equal("subject_id", subjectID),
	)
	sb.OrderBy("session_date DESC", "created_at DESC")

	query, args := sb.Build()
	var notes []models.ClinicalNote
	if err := r.db.SelectContext(ctx, &notes, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list clinical notes")
		return nil, fernerrors.Upstream(err, "failed to list clinical notes")
	}

	return notes, nil
}

// ListBySubject returns every note about the subject, newest session first.
// Full records; callers that serve the subject must redact before transmission.
func (r *Repository) ListBySubject(ctx context.Context, subjectID string) ([]models.ClinicalNote, error) {
	ctx, span := tracing.StartSpan(ctx, "clinicalnote.Repository.ListBySubject")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("clinical_notes")
	sb.Where(sb.Equal("subject_id", subjectID))
	sb.OrderBy("session_date DESC", "created_at DESC")

	query, args := sb.Build()
	var notes []models.ClinicalNote
	if err := r.db.SelectContext(ctx, &notes, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list clinical notes")
		return nil, fernerrors.Upstream(err, "failed to list clinical notes")
	}

	return notes, nil
}

// Update rewrites a note's mutable fields. Only the authoring clinician may
// update, enforced by the WHERE clause.
func (r *Repository) Update(ctx context.Context, clinicianID, id string, req models.CreateClinicalNoteRequest) (*models.ClinicalNote, error) {
	ctx, span := tracing.StartSpan(ctx, "clinicalnote.Repository.Update")
	defer span.End()

	goals := req.GoalsDiscussed
	if goals == nil {
		goals = []string{}
	}
	now := time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("clinical_notes")
	ub.Set(
		ub.Assign("session_date", req.SessionDate),
		ub.Assign("private_notes", req.PrivateNotes),
		ub.Assign("summary", req.Summary),
		ub.Assign("goals_discussed", database.JSONB[[]string]{Data: goals}),
		ub.Assign("next_focus", req.NextFocus),
		ub.Assign("mood_rating", req.MoodRating),
		ub.Assign("updated_at", now),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("clinician_id", clinicianID),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update clinical note")
		return nil, fernerrors.Upstream(err, "failed to update clinical note")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, fernerrors.NotFound("note %s not found", id)
	}

	return r.Get(ctx, id)
}
