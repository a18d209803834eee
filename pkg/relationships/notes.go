package relationships

import (
	"context"

	"github.com/Gobusters/ectologger"

	fernerrors "github.com/fernhealth/fern/pkg/errors"
	"github.com/fernhealth/fern/pkg/models"
	"github.com/fernhealth/fern/pkg/tracing"
)

// NoteStore is the clinical note persistence surface. It always returns full
// records; redaction is this package's job.
type NoteStore interface {
	Create(ctx context.Context, clinicianID string, req models.CreateClinicalNoteRequest) (*models.ClinicalNote, error)
	Get(ctx context.Context, id string) (*models.ClinicalNote, error)
	ListByClinicianAndSubject(ctx context.Context, clinicianID, subjectID string) ([]models.ClinicalNote, error)
	ListBySubject(ctx context.Context, subjectID string) ([]models.ClinicalNote, error)
	Update(ctx context.Context, clinicianID, id string, req models.CreateClinicalNoteRequest) (*models.ClinicalNote, error)
}

// NoteService serves the two views of clinical notes: the authoring
// clinician's full record and the subject's redacted projection.
type NoteService struct {
	notes   NoteStore
	persons PersonStore
	manager *Manager
	logger  ectologger.Logger
}

func NewNoteService(notes NoteStore, persons PersonStore, manager *Manager, logger ectologger.Logger) *NoteService {
	return &NoteService{
		notes:   notes,
		persons: persons,
		manager: manager,
		logger:  logger,
	}
}

// Redact strips the private segment from a note. The same stored record
// serves both views; this is the only place the subject view is produced.
func Redact(note models.ClinicalNote) models.SubjectNoteView {
	return models.SubjectNoteView{
		ID:             note.ID,
		ClinicianID:    note.ClinicianID,
		SessionDate:    note.SessionDate,
		Summary:        note.Summary,
		GoalsDiscussed: note.GoalsDiscussed.GetValue(),
		NextFocus:      note.NextFocus,
		CreatedAt:      note.CreatedAt,
	}
}

// Create authors a note about a linked subject. Requires an approved
// clinician link.
func (s *NoteService) Create(ctx context.Context, clinicianID string, req models.CreateClinicalNoteRequest) (*models.ClinicalNote, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.NoteService.Create")
	defer span.End()

	clinician, err := s.persons.Get(ctx, clinicianID)
	if err != nil {
		return nil, err
	}
	if clinician.Role != models.RoleClinician {
		return nil, fernerrors.NotAuthorized("only clinicians author notes")
	}

	if err := s.manager.RequireApproved(ctx, clinicianID, req.SubjectID); err != nil {
		return nil, err
	}

	return s.notes.Create(ctx, clinicianID, req)
}

// Update rewrites a note. Only the authoring clinician may update; the store
// enforces authorship.
func (s *NoteService) Update(ctx context.Context, clinicianID, noteID string, req models.CreateClinicalNoteRequest) (*models.ClinicalNote, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.NoteService.Update")
	defer span.End()

	return s.notes.Update(ctx, clinicianID, noteID, req)
}

// ClinicianView returns the clinician's own notes about a subject, full
// records. Requires an approved link; authorship scoping keeps one
// clinician's private notes invisible to another.
func (s *NoteService) ClinicianView(ctx context.Context, clinicianID, subjectID string) ([]models.ClinicalNote, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.NoteService.ClinicianView")
	defer span.End()

	if err := s.manager.RequireApproved(ctx, clinicianID, subjectID); err != nil {
		return nil, err
	}

	return s.notes.ListByClinicianAndSubject(ctx, clinicianID, subjectID)
}

// SubjectView returns every note about the subject with the private segment
// stripped. Redaction happens here, at read time, regardless of what the
// store returned.
func (s *NoteService) SubjectView(ctx context.Context, subjectID string) ([]models.SubjectNoteView, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.NoteService.SubjectView")
	defer span.End()

	notes, err := s.notes.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	views := make([]models.SubjectNoteView, 0, len(notes))
	names := map[string]string{}
	for _, note := range notes {
		view := Redact(note)

		name, ok := names[note.ClinicianID]
		if !ok {
			clinician, err := s.persons.Get(ctx, note.ClinicianID)
			if err == nil {
				name = clinician.Name
			}
			names[note.ClinicianID] = name
		}
		view.ClinicianName = name

		views = append(views, view)
	}

	return views, nil
}
