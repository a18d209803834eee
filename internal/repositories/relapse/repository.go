package relapse

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/fernhealth/fern/pkg/database"
	fernerrors "github.com/fernhealth/fern/pkg/errors"
	"github.com/fernhealth/fern/pkg/models"
	"github.com/fernhealth/fern/pkg/tracing"
)

// PersonStore resets the owner's recovery start date. The implementation
// joins an open transaction on the context.
type PersonStore interface {
	SetCleanSince(ctx context.Context, id string, date models.Date) error
}

// Repository handles relapse reports. Reports are append-only; reporting one
// resets the owner's clean_since in the same transaction.
type Repository struct {
	db      database.DB
	persons PersonStore
	logger  ectologger.Logger
}

func NewRepository(db database.DB, persons PersonStore, logger ectologger.Logger) *Repository {
	return &Repository{
		db:      db,
		persons: persons,
		logger:  logger,
	}
}

// Report appends a relapse and resets the owner's recovery start date to the
// relapse date. Both writes land in one transaction so the clean-day counter
// can never disagree with the report history.
func (r *Repository) Report(ctx context.Context, ownerID string, req models.ReportRelapseRequest) (*models.Relapse, error) {
	ctx, span := tracing.StartSpan(ctx, "relapse.Repository.Report")
	defer span.End()

	relapseDate := models.DateOf(time.Now().UTC())
	if req.RelapseDate != nil {
		relapseDate = *req.RelapseDate
	}

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":       "Report",
		"owner_id":     ownerID,
		"relapse_date": relapseDate.String(),
	})

	relapse := &models.Relapse{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		RelapseDate: relapseDate,
		Substance:   req.Substance,
		Trigger:     req.Trigger,
		Notes:       req.Notes,
		ReportedAt:  time.Now().UTC(),
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, fernerrors.Upstream(err, "failed to open transaction")
	}
	defer tx.Rollback(ctx)

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("relapses")
	ib.Cols("id", "owner_id", "relapse_date", "substance", "trigger", "notes", "reported_at")
	ib.Values(relapse.ID, relapse.OwnerID, relapse.RelapseDate, relapse.Substance, relapse.Trigger, relapse.Notes, relapse.ReportedAt)

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to insert relapse")
		return nil, fernerrors.Upstream(err, "failed to report relapse")
	}

	// the reset joins this transaction through the context
	if err := r.persons.SetCleanSince(ctx, ownerID, relapse.RelapseDate); err != nil {
		log.WithError(err).Error("Failed to reset clean since")
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fernerrors.Upstream(err, "failed to report relapse")
	}

	log.WithFields(map[string]any{"id": relapse.ID}).Info("Reported relapse")
	return relapse, nil
}

// ListRange fetches the owner's relapses with relapse_date in [from, to],
// most recent first.
func (r *Repository) ListRange(ctx context.Context, ownerID string, from, to models.Date) ([]models.Relapse, error) {
	ctx, span := tracing.StartSpan(ctx, "relapse.Repository.ListRange")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "owner_id", "relapse_date", "substance", "trigger", "notes", "reported_at")
	sb.From("relapses")
	sb.Where(
		sb.Equal("owner_id", ownerID),
		sb.GreaterEqualThan("relapse_date", from),
		sb.LessEqualThan("relapse_date", to),
	)
	sb.OrderBy("relapse_date DESC", "reported_at DESC")

	query, args := sb.Build()
	var relapses []models.Relapse
	if err := r.db.SelectContext(ctx, &relapses, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list relapses")
		return nil, fernerrors.Upstream(err, "failed to list relapses")
	}

	return relapses, nil
}

// List fetches all of the owner's relapses, most recent first.
func (r *Repository) List(ctx context.Context, ownerID string) ([]models.Relapse, error) {
	ctx, span := tracing.StartSpan(ctx, "relapse.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "owner_id", "relapse_date", "substance", "trigger", "notes", "reported_at")
	sb.From("relapses")
	sb.Where(sb.Equal("owner_id", ownerID))
	sb.OrderBy("relapse_date DESC", "reported_at DESC")

	query, args := sb.Build()
	var relapses []models.Relapse
	if err := r.db.SelectContext(ctx, &relapses, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list relapses")
		return nil, fernerrors.Upstream(err, "failed to list relapses")
	}

	return relapses, nil
}
