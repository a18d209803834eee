package moodlog

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

var moodLogIDNamespace = uuid.MustParse("7c9e2b5a-1d4f-4e8b-a3c6-9f0d1e2a3b4c")

// ComputeDeterministicID returns the deterministic log ID used for upserts.
// Unique per: owner_id, log_date.
func ComputeDeterministicID(ownerID string, logDate models.Date) string {
	return uuid.NewSHA1(moodLogIDNamespace, []byte(fmt.Sprintf("%s|%s", ownerID, logDate))).String()
}

// Repository handles mood records. At most one record exists per (owner,
// date); a second write for the same date replaces the prior one.
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

// Upsert writes the day's mood record, replacing any existing record for the
// same owner and date.
func (r *Repository) Upsert(ctx context.Context, ownerID string, req models.UpsertMoodLogRequest) (*models.MoodLog, error) {
	ctx, span := tracing.StartSpan(ctx, "moodlog.Repository.Upsert")
	defer span.End()

	logDate := models.DateOf(time.Now().UTC())
	if req.LogDate != nil {
		logDate = *req.LogDate
	}

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":   "Upsert",
		"owner_id": ownerID,
		"log_date": logDate.String(),
	})

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	record := &models.MoodLog{
		ID:       ComputeDeterministicID(ownerID, logDate),
		OwnerID:  ownerID,
		LogDate:  logDate,
		Mood:     req.Mood,
		Tags:     database.JSONB[[]string]{Data: tags},
		Note:     req.Note,
		LoggedAt: time.Now().UTC(),
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto("mood_logs")
	ib.Cols("id", "owner_id", "log_date", "mood", "tags", "note", "logged_at")
	ib.Values(record.ID, record.OwnerID, record.LogDate, record.Mood, record.Tags, record.Note, record.LoggedAt)
	ub := ib.OnConflict("owner_id", "log_date")
	ub.Set(
		ub.Assign("mood", database.Excluded("mood")),
		ub.Assign("tags", database.Excluded("tags")),
		ub.Assign("note", database.Excluded("note")),
		ub.Assign("logged_at", database.Excluded("logged_at")),
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to upsert mood log")
		return nil, fernerrors.Upstream(err, "failed to upsert mood log")
	}

	return record, nil
}

// ListRange fetches the owner's mood records in [from, to] ordered by date.
func (r *Repository) ListRange(ctx context.Context, ownerID string, from, to models.Date) ([]models.MoodLog, error) {
	ctx, span := tracing.StartSpan(ctx, "moodlog.Repository.ListRange")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "owner_id", "log_date", "mood", "tags", "note", "logged_at")
	sb.From("mood_logs")
	sb.Where(
		sb.Equal("owner_id", ownerID),
		sb.GreaterEqualThan("log_date", from),
		sb.LessEqualThan("log_date", to),
	)
	sb.OrderBy("log_date ASC")

	query, args := sb.Build()
	var logs []models.MoodLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list mood logs")
		return nil, fernerrors.Upstream(err, "failed to list mood logs")
	}

	return logs, nil
}

// ListRecent fetches the owner's most recent records by date, newest first.
func (r *Repository) ListRecent(ctx context.Context, ownerID string, limit int) ([]models.MoodLog, error) {
	ctx, span := tracing.StartSpan(ctx, "moodlog.Repository.ListRecent")
	defer span.End()

	if limit < 1 {
		limit = 7
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "owner_id", "log_date", "mood", "tags", "note", "logged_at")
	sb.From("mood_logs")
	sb.Where(sb.Equal("owner_id", ownerID))
	sb.OrderBy("log_date DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var logs []models.MoodLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list recent mood logs")
		return nil, fernerrors.Upstream(err, "failed to list mood logs")
	}

	return logs, nil
}

// LastLogDate returns the most recent mood record date for the owner, or nil
// when nothing was ever logged.
func (r *Repository) LastLogDate(ctx context.Context, ownerID string) (*models.Date, error) {
	ctx, span := tracing.StartSpan(ctx, "moodlog.Repository.LastLogDate")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("MAX(log_date)")
	sb.From("mood_logs")
	sb.Where(sb.Equal("owner_id", ownerID))

	query, args := sb.Build()
	var last *models.Date
	if err := r.db.GetContext(ctx, &last, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get last mood log date")
		return nil, fernerrors.Upstream(err, "failed to get last mood log date")
	}

	return last, nil
}
