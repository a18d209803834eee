// Package relationships implements the consent-gated observation graph: who
// may observe whose signals, under which establishment protocol, and which
// note fields the subject may see.
package relationships

import (
	"context"

	"github.com/Gobusters/ectologger"

	fernerrors "github.com/fernhealth/fern/pkg/errors"
	"github.com/fernhealth/fern/pkg/models"
	"github.com/fernhealth/fern/pkg/tracing"
)

// LinkStore is the link persistence surface the manager needs.
type LinkStore interface {
	CreateRequest(ctx context.Context, observerID, subjectID string) (*models.LinkRequest, error)
	Respond(ctx context.Context, requestID, subjectID string, approve bool) (*models.LinkRequest, *models.Link, error)
	CreateLink(ctx context.Context, observerID, subjectID string, observerRole models.Role) (*models.Link, error)
	Revoke(ctx context.Context, observerID, subjectID string) error
	GetActiveLink(ctx context.Context, observerID, subjectID string) (*models.Link, error)
	GetPendingRequest(ctx context.Context, observerID, subjectID string) (*models.LinkRequest, error)
	ListPendingForSubject(ctx context.Context, subjectID string) ([]models.PendingLinkRequestView, error)
	ListActiveForObserver(ctx context.Context, observerID string) ([]models.Link, error)
}

// PersonStore is the person lookup surface the manager needs.
type PersonStore interface {
	Get(ctx context.Context, id string) (*models.TrackedPerson, error)
	GetByEmail(ctx context.Context, email string) (*models.TrackedPerson, error)
}

// Emitter receives lifecycle notifications. Emission is best-effort and must
// not fail the transition that caused it.
type Emitter interface {
	EmitLinkRequested(ctx context.Context, request *models.LinkRequest)
	EmitLinkApproved(ctx context.Context, request *models.LinkRequest)
	EmitLinkRejected(ctx context.Context, request *models.LinkRequest)
	EmitLinkCreated(ctx context.Context, link *models.Link)
	EmitLinkRemoved(ctx context.Context, observerID, subjectID string)
}

// Manager drives the link state machine. The two establishment protocols are
// deliberately separate operations: RequestLink carries the family consent
// semantics and CreateDirectLink the clinician intake semantics, so neither
// can be reached with the other's preconditions.
type Manager struct {
	links   LinkStore
	persons PersonStore
	emitter Emitter
	logger  ectologger.Logger
}

func NewManager(links LinkStore, persons PersonStore, emitter Emitter, logger ectologger.Logger) *Manager {
	return &Manager{
		links:   links,
		persons: persons,
		emitter: emitter,
		logger:  logger,
	}
}

// RequestLink starts the family consent protocol: the observer identifies the
// subject by exact email and a pending request is created. Only the subject's
// explicit response transitions it.
func (m *Manager) RequestLink(ctx context.Context, observerID string, req models.RequestLinkRequest) (*models.LinkRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.Manager.RequestLink")
	defer span.End()

	observer, err := m.persons.Get(ctx, observerID)
	if err != nil {
		return nil, err
	}
	if observer.Role != models.RoleFamily {
		return nil, fernerrors.NotAuthorized("only family observers request consent links")
	}

	subject, err := m.persons.GetByEmail(ctx, req.SubjectEmail)
	if err != nil {
		return nil, err
	}
	if !subject.Role.IsTrackable() {
		return nil, fernerrors.NotFound("no trackable person with that email")
	}
	if subject.ID == observerID {
		return nil, fernerrors.DuplicateLink("cannot request a link to yourself")
	}

	if link, err := m.links.GetActiveLink(ctx, observerID, subject.ID); err != nil {
		return nil, err
	} else if link != nil {
		return nil, fernerrors.DuplicateLink("an active link already exists")
	}

	request, err := m.links.CreateRequest(ctx, observerID, subject.ID)
	if err != nil {
		return nil, err
	}

	m.emitter.EmitLinkRequested(ctx, request)
	return request, nil
}

// RespondToLink is the subject's approve/reject action on a pending request.
// Terminal states are final: responding to an already-resolved request is
// NotFound, and a rejected pair may start over with a fresh request.
func (m *Manager) RespondToLink(ctx context.Context, subjectID string, req models.RespondToLinkRequest) (*models.LinkRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.Manager.RespondToLink")
	defer span.End()

	request, link, err := m.links.Respond(ctx, req.RequestID, subjectID, req.Approve)
	if err != nil {
		return nil, err
	}

	if req.Approve {
		m.emitter.EmitLinkApproved(ctx, request)
		m.logger.WithContext(ctx).WithFields(map[string]any{
			"request_id": request.ID,
			"link_id":    link.ID,
		}).Info("Approved link request")
	} else {
		m.emitter.EmitLinkRejected(ctx, request)
	}

	return request, nil
}

// CreateDirectLink is the clinician intake protocol: the clinician asserts a
// link to a person identified by exact email and it is established
// immediately, no consent step. The one-active-clinician invariant surfaces
// as DuplicateLink from the store's unique index.
func (m *Manager) CreateDirectLink(ctx context.Context, clinicianID string, req models.CreateDirectLinkRequest) (*models.Link, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.Manager.CreateDirectLink")
	defer span.End()

	clinician, err := m.persons.Get(ctx, clinicianID)
	if err != nil {
		return nil, err
	}
	if clinician.Role != models.RoleClinician {
		return nil, fernerrors.NotAuthorized("only clinicians create direct links")
	}

	subject, err := m.persons.GetByEmail(ctx, req.SubjectEmail)
	if err != nil {
		return nil, err
	}
	if !subject.Role.IsTrackable() {
		return nil, fernerrors.NotFound("no trackable person with that email")
	}

	link, err := m.links.CreateLink(ctx, clinicianID, subject.ID, models.RoleClinician)
	if err != nil {
		return nil, err
	}

	m.emitter.EmitLinkCreated(ctx, link)
	return link, nil
}

// Unlink is the subject's unilateral removal of an observer. The link is
// revoked, not deleted; historical notes stay attributed to the former
// observer.
func (m *Manager) Unlink(ctx context.Context, subjectID, observerID string) error {
	ctx, span := tracing.StartSpan(ctx, "relationships.Manager.Unlink")
	defer span.End()

	if err := m.links.Revoke(ctx, observerID, subjectID); err != nil {
		return err
	}

	m.emitter.EmitLinkRemoved(ctx, observerID, subjectID)
	return nil
}

// GetRelationship reports the relationship from the caller's perspective.
func (m *Manager) GetRelationship(ctx context.Context, callerID, otherID string) (models.RelationshipStatus, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.Manager.GetRelationship")
	defer span.End()

	link, err := m.links.GetActiveLink(ctx, callerID, otherID)
	if err != nil {
		return models.RelationshipNone, err
	}
	if link != nil {
		return models.RelationshipApproved, nil
	}

	outgoing, err := m.links.GetPendingRequest(ctx, callerID, otherID)
	if err != nil {
		return models.RelationshipNone, err
	}
	if outgoing != nil {
		return models.RelationshipPendingOutgoing, nil
	}

	incoming, err := m.links.GetPendingRequest(ctx, otherID, callerID)
	if err != nil {
		return models.RelationshipNone, err
	}
	if incoming != nil {
		return models.RelationshipPendingIncoming, nil
	}

	return models.RelationshipNone, nil
}

// PendingRequests lists the subject's incoming pending consent requests.
func (m *Manager) PendingRequests(ctx context.Context, subjectID string) ([]models.PendingLinkRequestView, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.Manager.PendingRequests")
	defer span.End()

	return m.links.ListPendingForSubject(ctx, subjectID)
}

// LinkedSubjects lists the observer's active links.
func (m *Manager) LinkedSubjects(ctx context.Context, observerID string) ([]models.Link, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.Manager.LinkedSubjects")
	defer span.End()

	return m.links.ListActiveForObserver(ctx, observerID)
}

// RequireApproved raises NotAuthorized unless the observer has an approved
// link to the subject. Callers must invoke this before computing anything.
func (m *Manager) RequireApproved(ctx context.Context, observerID, subjectID string) error {
	ctx, span := tracing.StartSpan(ctx, "relationships.Manager.RequireApproved")
	defer span.End()

	link, err := m.links.GetActiveLink(ctx, observerID, subjectID)
	if err != nil {
		return err
	}
	if link == nil {
		return fernerrors.NotAuthorized("caller is not linked to subject")
	}
	return nil
}
