package relationships

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fernerrors "github.com/fernhealth/fern/pkg/errors"
	"github.com/fernhealth/fern/pkg/models"
)

type fakePersonStore struct {
	persons map[string]*models.TrackedPerson
}

func (f *fakePersonStore) Get(_ context.Context, id string) (*models.TrackedPerson, error) {
	person, ok := f.persons[id]
	if !ok {
		return nil, fernerrors.NotFound("person %s not found", id)
	}
	return person, nil
}

func (f *fakePersonStore) GetByEmail(_ context.Context, email string) (*models.TrackedPerson, error) {
	for _, person := range f.persons {
		if person.Email == email {
			return person, nil
		}
	}
	return nil, fernerrors.NotFound("no person with email %s", email)
}

// fakeLinkStore mirrors the database constraints: one pending request per
// pair, one active link per pair, one active clinician link per subject.
type fakeLinkStore struct {
	persons  *fakePersonStore
	requests []*models.LinkRequest
	links    []*models.Link
}

func (f *fakeLinkStore) CreateRequest(_ context.Context, observerID, subjectID string) (*models.LinkRequest, error) {
	for _, r := range f.requests {
		if r.ObserverID == observerID && r.SubjectID == subjectID && r.Status == models.LinkRequestPending {
			return nil, fernerrors.DuplicateLink("a pending request already exists")
		}
	}
	request := &models.LinkRequest{
		ID:         uuid.New().String(),
		ObserverID: observerID,
		SubjectID:  subjectID,
		Status:     models.LinkRequestPending,
		CreatedAt:  time.Now().UTC(),
	}
	f.requests = append(f.requests, request)
	return request, nil
}

func (f *fakeLinkStore) Respond(ctx context.Context, requestID, subjectID string, approve bool) (*models.LinkRequest, *models.Link, error) {
	var request *models.LinkRequest
	for _, r := range f.requests {
		if r.ID == requestID && r.SubjectID == subjectID && r.Status == models.LinkRequestPending {
			request = r
			break
		}
	}
	if request == nil {
		return nil, nil, fernerrors.NotFound("no pending request %s for this subject", requestID)
	}

	if !approve {
		request.Status = models.LinkRequestRejected
		now := time.Now().UTC()
		request.RespondedAt = &now
		return request, nil, nil
	}

	observer, err := f.persons.Get(ctx, request.ObserverID)
	if err != nil {
		return nil, nil, err
	}
	link, err := f.CreateLink(ctx, request.ObserverID, request.SubjectID, observer.Role)
	if err != nil {
		// insert failed, so the whole response rolls back
		return nil, nil, err
	}

	request.Status = models.LinkRequestApproved
	now := time.Now().UTC()
	request.RespondedAt = &now
	return request, link, nil
}

func (f *fakeLinkStore) CreateLink(_ context.Context, observerID, subjectID string, observerRole models.Role) (*models.Link, error) {
	for _, l := range f.links {
		if l.RevokedAt != nil {
			continue
		}
		if l.ObserverID == observerID && l.SubjectID == subjectID {
			return nil, fernerrors.DuplicateLink("an active link already exists")
		}
		if observerRole == models.RoleClinician && l.SubjectID == subjectID && l.ObserverRole == models.RoleClinician {
			return nil, fernerrors.DuplicateLink("an active link already exists")
		}
	}
	link := &models.Link{
		ID:           uuid.New().String(),
		ObserverID:   observerID,
		SubjectID:    subjectID,
		ObserverRole: observerRole,
		CreatedAt:    time.Now().UTC(),
	}
	f.links = append(f.links, link)
	return link, nil
}

func (f *fakeLinkStore) Revoke(_ context.Context, observerID, subjectID string) error {
	for _, l := range f.links {
		if l.ObserverID == observerID && l.SubjectID == subjectID && l.RevokedAt == nil {
			now := time.Now().UTC()
			l.RevokedAt = &now
			return nil
		}
	}
	return fernerrors.NotFound("no active link between observer and subject")
}

func (f *fakeLinkStore) GetActiveLink(_ context.Context, observerID, subjectID string) (*models.Link, error) {
	for _, l := range f.links {
		if l.ObserverID == observerID && l.SubjectID == subjectID && l.RevokedAt == nil {
			return l, nil
		}
	}
	return nil, nil
}

func (f *fakeLinkStore) GetPendingRequest(_ context.Context, observerID, subjectID string) (*models.LinkRequest, error) {
	for _, r := range f.requests {
		if r.ObserverID == observerID && r.SubjectID == subjectID && r.Status == models.LinkRequestPending {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeLinkStore) ListPendingForSubject(_ context.Context, subjectID string) ([]models.PendingLinkRequestView, error) {
	views := []models.PendingLinkRequestView{}
	for _, r := range f.requests {
		if r.SubjectID == subjectID && r.Status == models.LinkRequestPending {
			views = append(views, models.PendingLinkRequestView{
				RequestID:  r.ID,
				ObserverID: r.ObserverID,
				CreatedAt:  r.CreatedAt,
			})
		}
	}
	return views, nil
}

func (f *fakeLinkStore) ListActiveForObserver(_ context.Context, observerID string) ([]models.Link, error) {
	links := []models.Link{}
	for _, l := range f.links {
		if l.ObserverID == observerID && l.RevokedAt == nil {
			links = append(links, *l)
		}
	}
	return links, nil
}

type fakeEmitter struct {
	events []string
}

func (f *fakeEmitter) EmitLinkRequested(_ context.Context, _ *models.LinkRequest) {
	f.events = append(f.events, "link.requested")
}

func (f *fakeEmitter) EmitLinkApproved(_ context.Context, _ *models.LinkRequest) {
	f.events = append(f.events, "link.approved")
}

func (f *fakeEmitter) EmitLinkRejected(_ context.Context, _ *models.LinkRequest) {
	f.events = append(f.events, "link.rejected")
}

func (f *fakeEmitter) EmitLinkCreated(_ context.Context, _ *models.Link) {
	f.events = append(f.events, "link.approved")
}

func (f *fakeEmitter) EmitLinkRemoved(_ context.Context, _, _ string) {
	f.events = append(f.events, "link.removed")
}

func person(id, email string, role models.Role) *models.TrackedPerson {
	return &models.TrackedPerson{ID: id, Name: "Person " + id, Email: email, Role: role}
}

type fixture struct {
	manager *Manager
	links   *fakeLinkStore
	persons *fakePersonStore
	emitter *fakeEmitter
}

func newFixture() *fixture {
	persons := &fakePersonStore{persons: map[string]*models.TrackedPerson{
		"patient-1":   person("patient-1", "pat@example.com", models.RolePatient),
		"patient-2":   person("patient-2", "pat2@example.com", models.RolePatient),
		"family-1":    person("family-1", "fam@example.com", models.RoleFamily),
		"family-2":    person("family-2", "fam2@example.com", models.RoleFamily),
		"clinician-1": person("clinician-1", "doc@example.com", models.RoleClinician),
		"clinician-2": person("clinician-2", "doc2@example.com", models.RoleClinician),
	}}
	links := &fakeLinkStore{persons: persons}
	emitter := &fakeEmitter{}
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	return &fixture{
		manager: NewManager(links, persons, emitter, logger),
		links:   links,
		persons: persons,
		emitter: emitter,
	}
}

func TestRequestLink(t *testing.T) {
	ctx := context.Background()

	t.Run("family request creates a pending request", func(t *testing.T) {
		f := newFixture()

		request, err := f.manager.RequestLink(ctx, "family-1", models.RequestLinkRequest{SubjectEmail: "pat@example.com"})

		require.NoError(t, err)
		assert.Equal(t, models.LinkRequestPending, request.Status)
		assert.Equal(t, "patient-1", request.SubjectID)
		assert.Equal(t, []string{"link.requested"}, f.emitter.events)
	})

	t.Run("clinicians must use the direct protocol", func(t *testing.T) {
		f := newFixture()

		_, err := f.manager.RequestLink(ctx, "clinician-1", models.RequestLinkRequest{SubjectEmail: "pat@example.com"})

		assert.ErrorIs(t, err, fernerrors.ErrNotAuthorized)
	})

	t.Run("duplicate pending request fails cleanly", func(t *testing.T) {
		f := newFixture()

		_, err := f.manager.RequestLink(ctx, "family-1", models.RequestLinkRequest{SubjectEmail: "pat@example.com"})
		require.NoError(t, err)
		_, err = f.manager.RequestLink(ctx, "family-1", models.RequestLinkRequest{SubjectEmail: "pat@example.com"})

		assert.ErrorIs(t, err, fernerrors.ErrDuplicateLink)
	})

	t.Run("request to an already-linked subject fails", func(t *testing.T) {
		f := newFixture()
		_, err := f.links.CreateLink(ctx, "family-1", "patient-1", models.RoleFamily)
		require.NoError(t, err)

		_, err = f.manager.RequestLink(ctx, "family-1", models.RequestLinkRequest{SubjectEmail: "pat@example.com"})

		assert.ErrorIs(t, err, fernerrors.ErrDuplicateLink)
	})

	t.Run("unknown email is not found", func(t *testing.T) {
		f := newFixture()

		_, err := f.manager.RequestLink(ctx, "family-1", models.RequestLinkRequest{SubjectEmail: "nobody@example.com"})

		assert.ErrorIs(t, err, fernerrors.ErrNotFound)
	})

	t.Run("observers are not trackable subjects", func(t *testing.T) {
		f := newFixture()

		_, err := f.manager.RequestLink(ctx, "family-1", models.RequestLinkRequest{SubjectEmail: "doc@example.com"})

		assert.ErrorIs(t, err, fernerrors.ErrNotFound)
	})
}

func TestRespondToLink(t *testing.T) {
	ctx := context.Background()

	t.Run("approval activates the link", func(t *testing.T) {
		f := newFixture()
		request, err := f.manager.RequestLink(ctx, "family-1", models.RequestLinkRequest{SubjectEmail: "pat@example.com"})
		require.NoError(t, err)

		resolved, err := f.manager.RespondToLink(ctx, "patient-1", models.RespondToLinkRequest{RequestID: request.ID, Approve: true})

		require.NoError(t, err)
		assert.Equal(t, models.LinkRequestApproved, resolved.Status)

		status, err := f.manager.GetRelationship(ctx, "family-1", "patient-1")
		require.NoError(t, err)
		assert.Equal(t, models.RelationshipApproved, status)
		assert.Contains(t, f.emitter.events, "link.approved")
	})

	t.Run("rejection is terminal but retryable", func(t *testing.T) {
		f := newFixture()
		request, err := f.manager.RequestLink(ctx, "family-1", models.RequestLinkRequest{SubjectEmail: "pat@example.com"})
		require.NoError(t, err)

		resolved, err := f.manager.RespondToLink(ctx, "patient-1", models.RespondToLinkRequest{RequestID: request.ID, Approve: false})
		require.NoError(t, err)
		assert.Equal(t, models.LinkRequestRejected, resolved.Status)

		// the terminal state is final
		_, err = f.manager.RespondToLink(ctx, "patient-1", models.RespondToLinkRequest{RequestID: request.ID, Approve: true})
		assert.ErrorIs(t, err, fernerrors.ErrNotFound)

		// but a fresh request between the same parties succeeds
		retry, err := f.manager.RequestLink(ctx, "family-1", models.RequestLinkRequest{SubjectEmail: "pat@example.com"})
		require.NoError(t, err)
		assert.Equal(t, models.LinkRequestPending, retry.Status)
	})

	t.Run("only the addressed subject may respond", func(t *testing.T) {
		f := newFixture()
		request, err := f.manager.RequestLink(ctx, "family-1", models.RequestLinkRequest{SubjectEmail: "pat@example.com"})
		require.NoError(t, err)

		_, err = f.manager.RespondToLink(ctx, "patient-2", models.RespondToLinkRequest{RequestID: request.ID, Approve: true})

		assert.ErrorIs(t, err, fernerrors.ErrNotFound)
	})
}

func TestCreateDirectLink(t *testing.T) {
	ctx := context.Background()

	t.Run("clinician links immediately with no consent step", func(t *testing.T) {
		f := newFixture()

		link, err := f.manager.CreateDirectLink(ctx, "clinician-1", models.CreateDirectLinkRequest{SubjectEmail: "pat@example.com"})

		require.NoError(t, err)
		assert.Equal(t, models.RoleClinician, link.ObserverRole)

		status, err := f.manager.GetRelationship(ctx, "clinician-1", "patient-1")
		require.NoError(t, err)
		assert.Equal(t, models.RelationshipApproved, status)
	})

	t.Run("second clinician link to the same subject fails", func(t *testing.T) {
		f := newFixture()
		_, err := f.manager.CreateDirectLink(ctx, "clinician-1", models.CreateDirectLinkRequest{SubjectEmail: "pat@example.com"})
		require.NoError(t, err)

		_, err = f.manager.CreateDirectLink(ctx, "clinician-2", models.CreateDirectLinkRequest{SubjectEmail: "pat@example.com"})

		assert.ErrorIs(t, err, fernerrors.ErrDuplicateLink)
	})

	t.Run("family members must use the consent protocol", func(t *testing.T) {
		f := newFixture()

		_, err := f.manager.CreateDirectLink(ctx, "family-1", models.CreateDirectLinkRequest{SubjectEmail: "pat@example.com"})

		assert.ErrorIs(t, err, fernerrors.ErrNotAuthorized)
	})

	t.Run("multiple family links per subject are allowed", func(t *testing.T) {
		f := newFixture()
		approve := func(observerID string) {
			request, err := f.manager.RequestLink(ctx, observerID, models.RequestLinkRequest{SubjectEmail: "pat@example.com"})
			require.NoError(t, err)
			_, err = f.manager.RespondToLink(ctx, "patient-1", models.RespondToLinkRequest{RequestID: request.ID, Approve: true})
			require.NoError(t, err)
		}

		approve("family-1")
		approve("family-2")

		for _, observerID := range []string{"family-1", "family-2"} {
			status, err := f.manager.GetRelationship(ctx, observerID, "patient-1")
			require.NoError(t, err)
			assert.Equal(t, models.RelationshipApproved, status)
		}
	})
}

func TestUnlink(t *testing.T) {
	ctx := context.Background()

	t.Run("subject removes an observer unilaterally", func(t *testing.T) {
		f := newFixture()
		_, err := f.manager.CreateDirectLink(ctx, "clinician-1", models.CreateDirectLinkRequest{SubjectEmail: "pat@example.com"})
		require.NoError(t, err)

		err = f.manager.Unlink(ctx, "patient-1", "clinician-1")
		require.NoError(t, err)

		status, err := f.manager.GetRelationship(ctx, "clinician-1", "patient-1")
		require.NoError(t, err)
		assert.Equal(t, models.RelationshipNone, status)
		assert.Contains(t, f.emitter.events, "link.removed")
	})

	t.Run("unlink frees the clinician slot", func(t *testing.T) {
		f := newFixture()
		_, err := f.manager.CreateDirectLink(ctx, "clinician-1", models.CreateDirectLinkRequest{SubjectEmail: "pat@example.com"})
		require.NoError(t, err)
		require.NoError(t, f.manager.Unlink(ctx, "patient-1", "clinician-1"))

		_, err = f.manager.CreateDirectLink(ctx, "clinician-2", models.CreateDirectLinkRequest{SubjectEmail: "pat@example.com"})

		assert.NoError(t, err)
	})

	t.Run("no active link is not found", func(t *testing.T) {
		f := newFixture()

		err := f.manager.Unlink(ctx, "patient-1", "clinician-1")

		assert.ErrorIs(t, err, fernerrors.ErrNotFound)
	})
}

func TestGetRelationship(t *testing.T) {
	ctx := context.Background()

	t.Run("pending directions", func(t *testing.T) {
		f := newFixture()
		_, err := f.manager.RequestLink(ctx, "family-1", models.RequestLinkRequest{SubjectEmail: "pat@example.com"})
		require.NoError(t, err)

		outgoing, err := f.manager.GetRelationship(ctx, "family-1", "patient-1")
		require.NoError(t, err)
		assert.Equal(t, models.RelationshipPendingOutgoing, outgoing)

		incoming, err := f.manager.GetRelationship(ctx, "patient-1", "family-1")
		require.NoError(t, err)
		assert.Equal(t, models.RelationshipPendingIncoming, incoming)
	})

	t.Run("strangers", func(t *testing.T) {
		f := newFixture()

		status, err := f.manager.GetRelationship(ctx, "family-1", "patient-1")
		require.NoError(t, err)
		assert.Equal(t, models.RelationshipNone, status)
	})
}

func TestRequireApproved(t *testing.T) {
	ctx := context.Background()

	t.Run("pending is not approved", func(t *testing.T) {
		f := newFixture()
		_, err := f.manager.RequestLink(ctx, "family-1", models.RequestLinkRequest{SubjectEmail: "pat@example.com"})
		require.NoError(t, err)

		err = f.manager.RequireApproved(ctx, "family-1", "patient-1")

		assert.ErrorIs(t, err, fernerrors.ErrNotAuthorized)
	})

	t.Run("approved passes", func(t *testing.T) {
		f := newFixture()
		_, err := f.manager.CreateDirectLink(ctx, "clinician-1", models.CreateDirectLinkRequest{SubjectEmail: "pat@example.com"})
		require.NoError(t, err)

		assert.NoError(t, f.manager.RequireApproved(ctx, "clinician-1", "patient-1"))
	})
}
