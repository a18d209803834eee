package link

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

// Repository handles links and link requests. Every transition is a single
// conditional statement so concurrent callers race on the database
// constraints, not on application-level reads.
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

// CreateRequest inserts a pending consent request. The partial unique index
// on (observer_id, subject_id) where status is pending turns a duplicate into
// a DuplicateLink error; rejected requests do not block a retry.
func (r *Repository) CreateRequest(ctx context.Context, observerID, subjectID string) (*models.LinkRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "link.Repository.CreateRequest")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":      "CreateRequest",
		"observer_id": observerID,
		"subject_id":  subjectID,
	})

	request := &models.LinkRequest{
		ID:         uuid.New().String(),
		ObserverID: observerID,
		SubjectID:  subjectID,
		Status:     models.LinkRequestPending,
		CreatedAt:  time.Now().UTC(),
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("link_requests")
	ib.Cols("id", "observer_id", "subject_id", "status", "created_at")
	ib.Values(request.ID, request.ObserverID, request.SubjectID, request.Status, request.CreatedAt)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fernerrors.DuplicateLink("a pending request already exists")
		}
		log.WithError(err).Error("Failed to create link request")
		return nil, fernerrors.Upstream(err, "failed to create link request")
	}

	log.WithFields(map[string]any{"request_id": request.ID}).Info("Created link request")
	return request, nil
}

// GetRequest retrieves one request by ID.
func (r *Repository) GetRequest(ctx context.Context, id string) (*models.LinkRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "link.Repository.GetRequest")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "observer_id", "subject_id", "status", "created_at", "responded_at")
	sb.From("link_requests")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var request models.LinkRequest
	if err := r.db.GetContext(ctx, &request, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fernerrors.NotFound("link request %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get link request")
		return nil, fernerrors.Upstream(err, "failed to get link request")
	}

	return &request, nil
}

// Respond moves a pending request to its terminal state and, on approval,
// creates the active link in the same transaction. The status precondition
// lives in the WHERE clause: a request that is not pending (or not addressed
// to this subject) resolves zero rows and surfaces NotFound, so two
// concurrent responses cannot both win. A failed link insert (duplicate
// active link) rolls the whole response back, leaving the request pending.
func (r *Repository) Respond(ctx context.Context, requestID, subjectID string, approve bool) (*models.LinkRequest, *models.Link, error) {
	ctx, span := tracing.StartSpan(ctx, "link.Repository.Respond")
	defer span.End()

	status := models.LinkRequestRejected
	if approve {
		status = models.LinkRequestApproved
	}
	now := time.Now().UTC()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, nil, fernerrors.Upstream(err, "failed to open transaction")
	}
	defer tx.Rollback(ctx)

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("link_requests")
	ub.Set(
		ub.Assign("status", status),
		ub.Assign("responded_at", now),
	)
	ub.Where(
		ub.Equal("id", requestID),
		ub.Equal("subject_id", subjectID),
		ub.Equal("status", models.LinkRequestPending),
	)

	query, args := ub.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to resolve link request")
		return nil, nil, fernerrors.Upstream(err, "failed to resolve link request")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, nil, fernerrors.NotFound("no pending request %s for this subject", requestID)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "observer_id", "subject_id", "status", "created_at", "responded_at")
	sb.From("link_requests")
	sb.Where(sb.Equal("id", requestID))

	query, args = sb.Build()
	var request models.LinkRequest
	if err := tx.GetContext(ctx, &request, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to read resolved link request")
		return nil, nil, fernerrors.Upstream(err, "failed to resolve link request")
	}

	var link *models.Link
	if approve {
		roleSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
		roleSb.Select("role")
		roleSb.From("tracked_persons")
		roleSb.Where(roleSb.Equal("id", request.ObserverID))

		query, args = roleSb.Build()
		var observerRole models.Role
		if err := tx.GetContext(ctx, &observerRole, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to read observer role")
			return nil, nil, fernerrors.Upstream(err, "failed to resolve link request")
		}

		link = &models.Link{
			ID:           uuid.New().String(),
			ObserverID:   request.ObserverID,
			SubjectID:    request.SubjectID,
			ObserverRole: observerRole,
			CreatedAt:    now,
		}

		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto("links")
		ib.Cols("id", "observer_id", "subject_id", "observer_role", "created_at")
		ib.Values(link.ID, link.ObserverID, link.SubjectID, link.ObserverRole, link.CreatedAt)

		query, args = ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if database.IsUniqueViolation(err) {
				return nil, nil, fernerrors.DuplicateLink("an active link already exists")
			}
			r.logger.WithContext(ctx).WithError(err).Error("Failed to create link on approval")
			return nil, nil, fernerrors.Upstream(err, "failed to resolve link request")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fernerrors.Upstream(err, "failed to resolve link request")
	}

	return &request, link, nil
}

// CreateLink inserts an active observation edge. The partial unique indexes
// (one active link per pair, one active clinician per subject) turn both
// duplicate cases into DuplicateLink, even under concurrent inserts.
func (r *Repository) CreateLink(ctx context.Context, observerID, subjectID string, observerRole models.Role) (*models.Link, error) {
	ctx, span := tracing.StartSpan(ctx, "link.Repository.CreateLink")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":        "CreateLink",
		"observer_id":   observerID,
		"subject_id":    subjectID,
		"observer_role": observerRole,
	})

	link := &models.Link{
		ID:           uuid.New().String(),
		ObserverID:   observerID,
		SubjectID:    subjectID,
		ObserverRole: observerRole,
		CreatedAt:    time.Now().UTC(),
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("links")
	ib.Cols("id", "observer_id", "subject_id", "observer_role", "created_at")
	ib.Values(link.ID, link.ObserverID, link.SubjectID, link.ObserverRole, link.CreatedAt)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fernerrors.DuplicateLink("an active link already exists")
		}
		log.WithError(err).Error("Failed to create link")
		return nil, fernerrors.Upstream(err, "failed to create link")
	}

	log.WithFields(map[string]any{"link_id": link.ID}).Info("Created link")
	return link, nil
}

// Revoke ends the active link between the pair. The row stays for audit;
// notes remain attributed to the now-former observer.
func (r *Repository) Revoke(ctx context.Context, observerID, subjectID string) error {
	ctx, span := tracing.StartSpan(ctx, "link.Repository.Revoke")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("links")
	ub.Set(ub.Assign("revoked_at", time.Now().UTC()))
	ub.Where(
		ub.Equal("observer_id", observerID),
		ub.Equal("subject_id", subjectID),
		ub.IsNull("revoked_at"),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to revoke link")
		return fernerrors.Upstream(err, "failed to revoke link")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fernerrors.NotFound("no active link between observer and subject")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"observer_id": observerID,
		"subject_id":  subjectID,
	}).Info("Revoked link")
	return nil
}

// GetActiveLink returns the active link between the pair, if any.
func (r *Repository) GetActiveLink(ctx context.Context, observerID, subjectID string) (*models.Link, error) {
	ctx, span := tracing.StartSpan(ctx, "link.Repository.GetActiveLink")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "observer_id", "subject_id", "observer_role", "created_at", "revoked_at")
	sb.From("links")
	sb.Where(
		sb.Equal("observer_id", observerID),
		sb.Equal("subject_id", subjectID),
		sb.IsNull("revoked_at"),
	)

	query, args := sb.Build()
	var link models.Link
	if err := r.db.GetContext(ctx, &link, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get active link")
		return nil, fernerrors.Upstream(err, "failed to get active link")
	}

	return &link, nil
}

// GetPendingRequest returns the pending request from observer to subject, if any.
func (r *Repository) GetPendingRequest(ctx context.Context, observerID, subjectID string) (*models.LinkRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "link.Repository.GetPendingRequest")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "observer_id", "subject_id", "status", "created_at", "responded_at")
	sb.From("link_requests")
	sb.Where(
		sb.Equal("observer_id", observerID),
		sb.Equal("subject_id", subjectID),
		sb.Equal("status", models.LinkRequestPending),
	)

	query, args := sb.Build()
	var request models.LinkRequest
	if err := r.db.GetContext(ctx, &request, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get pending request")
		return nil, fernerrors.Upstream(err, "failed to get pending request")
	}

	return &request, nil
}

// ListPendingForSubject returns the subject's incoming pending requests with
// the requesting observer's name, oldest first.
func (r *Repository) ListPendingForSubject(ctx context.Context, subjectID string) ([]models.PendingLinkRequestView, error) {
	ctx, span := tracing.StartSpan(ctx, "link.Repository.ListPendingForSubject")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"lr.id AS request_id",
		"lr.observer_id AS observer_id",
		"tp.name AS observer_name",
		"lr.created_at AS created_at",
	)
	sb.From("link_requests lr")
	sb.JoinWithOption(sqlbuilder.InnerJoin, "tracked_persons tp", "tp.id = lr.observer_id")
	sb.Where(
		sb.Equal("lr.subject_id", subjectID),
		sb.Equal("lr.status", models.LinkRequestPending),
	)
	sb.OrderBy("lr.created_at ASC")

	query, args := sb.Build()
	var requests []models.PendingLinkRequestView
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pending requests")
		return nil, fernerrors.Upstream(err, "failed to list pending requests")
	}

	return requests, nil
}

// ListActiveForObserver returns the observer's active links, oldest first.
func (r *Repository) ListActiveForObserver(ctx context.Context, observerID string) ([]models.Link, error) {
	ctx, span := tracing.StartSpan(ctx, "link.Repository.ListActiveForObserver")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "observer_id", "subject_id", "observer_role", "created_at", "revoked_at")
	sb.From("links")
	sb.Where(
		sb.Equal("observer_id", observerID),
		sb.IsNull("revoked_at"),
	)
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var links []models.Link
	if err := r.db.SelectContext(ctx, &links, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list links")
		return nil, fernerrors.Upstream(err, "failed to list links")
	}

	return links, nil
}
