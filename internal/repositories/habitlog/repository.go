package habitlog

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/fernhealth/fern/pkg/database"
	fernerrors "github.com/fernhealth/fern/pkg/errors"
	"github.com/fernhealth/fern/pkg/models"
	"github.com/fernhealth/fern/pkg/tracing"
)

var habitLogIDNamespace = uuid.MustParse("3f6b1a4e-8c2d-4f7a-9b0e-5d1c2a3b4c5d")

// ComputeDeterministicID returns the deterministic log ID used for upserts.
// Unique per: habit_id, log_date.
func ComputeDeterministicID(habitID string, logDate models.Date) string {
	return uuid.NewSHA1(habitLogIDNamespace, []byte(fmt.Sprintf("%s|%s", habitID, logDate))).String()
}

// Repository handles habit completion records. At most one record exists per
// (habit, date); a second write for the same date replaces the prior one.
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

// Upsert writes the day's completion record, replacing any existing record
// for the same habit and date.
func (r *Repository) Upsert(ctx context.Context, ownerID, habitID string, req models.UpsertHabitLogRequest) (*models.HabitLog, error) {
	ctx, span := tracing.StartSpan(ctx, "habitlog.Repository.Upsert")
	defer span.End()

	logDate := models.DateOf(time.Now().UTC())
	if req.LogDate != nil {
		logDate = *req.LogDate
	}

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":   "Upsert",
		"owner_id": ownerID,
		"habit_id": habitID,
		"log_date": logDate.String(),
	})

	record := &models.HabitLog{
		ID:        ComputeDeterministicID(habitID, logDate),
		HabitID:   habitID,
		OwnerID:   ownerID,
		LogDate:   logDate,
		Completed: req.Completed,
		Note:      req.Note,
		LoggedAt:  time.Now().UTC(),
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto("habit_logs")
	ib.Cols("id", "habit_id", "owner_id", "log_date", "completed", "note", "logged_at")
	ib.Values(record.ID, record.HabitID, record.OwnerID, record.LogDate, record.Completed, record.Note, record.LoggedAt)
	ub := ib.OnConflict("habit_id", "log_date")
	ub.Set(
		ub.Assign("completed", database.Excluded("completed")),
		ub.Assign("note", database.Excluded("note")),
		ub.Assign("logged_at", database.Excluded("logged_at")),
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to upsert habit log")
		return nil, fernerrors.Upstream(err, "failed to upsert habit log")
	}

	return record, nil
}

// ListRange fetches the habit's records in [from, to] ordered by date. The
// streak walk runs over this one fetch; there are no per-day lookups.
func (r *Repository) ListRange(ctx context.Context, habitID string, from, to models.Date) ([]models.HabitLog, error) {
	ctx, span := tracing.StartSpan(ctx, "habitlog.Repository.ListRange")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "habit_id", "owner_id", "log_date", "completed", "note", "logged_at")
	sb.From("habit_logs")
	sb.Where(
		sb.Equal("habit_id", habitID),
		sb.GreaterEqualThan("log_date", from),
		sb.LessEqualThan("log_date", to),
	)
	sb.OrderBy("log_date ASC")

	query, args := sb.Build()
	var logs []models.HabitLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list habit logs")
		return nil, fernerrors.Upstream(err, "failed to list habit logs")
	}

	return logs, nil
}

// History aggregates completed/total counts per calendar date over the range.
func (r *Repository) History(ctx context.Context, ownerID string, from, to models.Date) ([]models.HabitHistoryEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "habitlog.Repository.History")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"log_date AS date",
		"COUNT(*) FILTER (WHERE completed) AS completed_count",
		"COUNT(*) AS total_count",
	)
	sb.From("habit_logs")
	sb.Where(
		sb.Equal("owner_id", ownerID),
		sb.GreaterEqualThan("log_date", from),
		sb.LessEqualThan("log_date", to),
	)
	sb.GroupBy("log_date")
	sb.OrderBy("log_date ASC")

	query, args := sb.Build()
	var entries []models.HabitHistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to aggregate habit history")
		return nil, fernerrors.Upstream(err, "failed to aggregate habit history")
	}

	return entries, nil
}

// LastLogDate returns the most recent completion record date for the owner,
// or nil when nothing was ever logged.
func (r *Repository) LastLogDate(ctx context.Context, ownerID string) (*models.Date, error) {
	ctx, span := tracing.StartSpan(ctx, "habitlog.Repository.LastLogDate")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("MAX(log_date)")
	sb.From("habit_logs")
	sb.Where(sb.Equal("owner_id", ownerID))

	query, args := sb.Build()
	var last *models.Date
	if err := r.db.GetContext(ctx, &last, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get last habit log date")
		return nil, fernerrors.Upstream(err, "failed to get last habit log date")
	}

	return last, nil
}
