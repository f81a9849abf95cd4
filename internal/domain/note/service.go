package note

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/clinicore/internal/platform/websocket"
)

var (
	ErrNotFound           = errors.New("clinical record not found")
	ErrNameRequired       = errors.New("template name is required")
	ErrInvalidCategory    = errors.New("invalid template category")
	ErrStructureSections  = errors.New("template structure must contain sections")
	ErrStructureImmutable = errors.New("template structure is versioned; create a new version to change it")
	ErrTemplateArchived   = errors.New("template is archived")
	ErrNoteSigned         = errors.New("cannot modify signed notes")
	ErrNotAssignedSigner  = errors.New("only the assigned practitioner can sign this note")
)

// ContentCipher encrypts note content at rest. Satisfied by *phi.Encryptor.
type ContentCipher interface {
	EncryptContent(content map[string]interface{}) (string, error)
	DecryptContent(encrypted string) map[string]interface{}
}

// Broadcaster pushes note lifecycle events to websocket subscribers.
type Broadcaster interface {
	Broadcast(topic string, event websocket.Event)
}

// Actor identifies who is acting on a note, with the request metadata the
// audit trail records.
type Actor struct {
	UserID         uuid.UUID
	PractitionerID *uuid.UUID
	IPAddress      string
	UserAgent      string
}

type Service struct {
	templates TemplateRepository
	notes     NoteRepository
	audit     AuditRepository
	cipher    ContentCipher
	events    Broadcaster
}

func NewService(templates TemplateRepository, notes NoteRepository, audit AuditRepository, cipher ContentCipher, events Broadcaster) *Service {
	return &Service{
		templates: templates,
		notes:     notes,
		audit:     audit,
		cipher:    cipher,
		events:    events,
	}
}

// -- Templates --

func (s *Service) CreateTemplate(ctx context.Context, t *ClinicalTemplate) error {
	if err := validateTemplate(t); err != nil {
		return err
	}
	t.Version = 1
	t.IsActive = true
	t.IsArchived = false
	return s.templates.Create(ctx, t)
}

func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*ClinicalTemplate, error) {
	return s.templates.GetByID(ctx, id)
}

// UpdateTemplate edits template metadata. The structure is immutable once
// saved; notes snapshot the version they were written against, so structural
// edits must go through CreateVersion.
func (s *Service) UpdateTemplate(ctx context.Context, t *ClinicalTemplate) error {
	stored, err := s.templates.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	if t.Structure == nil {
		t.Structure = stored.Structure
	} else if !reflect.DeepEqual(t.Structure, stored.Structure) {
		return ErrStructureImmutable
	}
	if err := validateTemplate(t); err != nil {
		return err
	}
	return s.templates.Update(ctx, t)
}

func (s *Service) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return s.templates.SoftDelete(ctx, id)
}

func (s *Service) ListTemplates(ctx context.Context, visible []uuid.UUID, filter TemplateFilter) ([]*ClinicalTemplate, int, error) {
	return s.templates.List(ctx, visible, filter)
}

func (s *Service) ListActiveTemplates(ctx context.Context, visible []uuid.UUID) ([]*ClinicalTemplate, error) {
	items, _, err := s.templates.List(ctx, visible, TemplateFilter{ActiveOnly: true, Limit: 1000})
	return items, err
}

// CreateVersion produces a new template row at version+1 and deactivates the
// source. The source row is otherwise untouched so historical notes keep
// their structure reference.
func (s *Service) CreateVersion(ctx context.Context, id, createdBy uuid.UUID) (*ClinicalTemplate, error) {
	old, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if old.IsArchived {
		return nil, ErrTemplateArchived
	}

	parentID := old.ID
	if old.ParentTemplateID != nil {
		parentID = *old.ParentTemplateID
	}
	structure := make(map[string]interface{}, len(old.Structure))
	for k, v := range old.Structure {
		structure[k] = v
	}
	next := &ClinicalTemplate{
		ClinicID:         old.ClinicID,
		CreatedBy:        &createdBy,
		Name:             old.Name,
		Description:      old.Description,
		Category:         old.Category,
		Structure:        structure,
		Version:          old.Version + 1,
		ParentTemplateID: &parentID,
		IsActive:         true,
	}
	if err := s.templates.Create(ctx, next); err != nil {
		return nil, err
	}

	old.IsActive = false
	if err := s.templates.Update(ctx, old); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Service) ArchiveTemplate(ctx context.Context, id uuid.UUID) (*ClinicalTemplate, error) {
	t, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t.IsArchived = true
	t.IsActive = false
	if err := s.templates.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func validateTemplate(t *ClinicalTemplate) error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrNameRequired
	}
	if !ValidCategory(t.Category) {
		return ErrInvalidCategory
	}
	if _, ok := t.Structure["sections"]; !ok {
		return ErrStructureSections
	}
	return nil
}

// -- Notes --

// CreateNote encrypts the content, snapshots the template version and logs
// CREATED to the audit trail.
func (s *Service) CreateNote(ctx context.Context, n *ClinicalNote, content map[string]interface{}, actor Actor) (*NoteWithContent, error) {
	if n.TemplateID != nil {
		t, err := s.templates.GetByID(ctx, *n.TemplateID)
		if err != nil {
			return nil, err
		}
		n.TemplateVersion = &t.Version
	}
	if content == nil {
		content = map[string]interface{}{}
	}
	encrypted, err := s.cipher.EncryptContent(content)
	if err != nil {
		return nil, err
	}
	n.EncryptedContent = encrypted
	n.IsDraft = true
	n.IsSigned = false
	if n.NoteType == "" {
		n.NoteType = "CLINICAL"
	}
	if n.Date.IsZero() {
		n.Date = time.Now()
	}
	if err := s.notes.Create(ctx, n); err != nil {
		return nil, err
	}
	s.appendAudit(ctx, n.ID, actor, ActionCreated, nil)
	s.broadcast("clinical_note.created", n)
	return &NoteWithContent{ClinicalNote: n, Content: content}, nil
}

// GetNote decrypts the note and records a VIEWED audit entry.
func (s *Service) GetNote(ctx context.Context, id uuid.UUID, actor Actor) (*NoteWithContent, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.appendAudit(ctx, n.ID, actor, ActionViewed, nil)
	return &NoteWithContent{ClinicalNote: n, Content: s.cipher.DecryptContent(n.EncryptedContent)}, nil
}

// PeekNote loads a note without decrypting or auditing, for scope checks.
func (s *Service) PeekNote(ctx context.Context, id uuid.UUID) (*ClinicalNote, error) {
	return s.notes.GetByID(ctx, id)
}

// UpdateNote replaces the note content. Signed notes are immutable.
func (s *Service) UpdateNote(ctx context.Context, id uuid.UUID, content map[string]interface{}, date *time.Time, actor Actor) (*NoteWithContent, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.IsSigned {
		return nil, ErrNoteSigned
	}
	if content != nil {
		encrypted, err := s.cipher.EncryptContent(content)
		if err != nil {
			return nil, err
		}
		n.EncryptedContent = encrypted
	}
	if date != nil {
		n.Date = *date
	}
	if err := s.notes.Update(ctx, n); err != nil {
		return nil, err
	}
	s.appendAudit(ctx, n.ID, actor, ActionUpdated, map[string]interface{}{"content": "ENCRYPTED"})
	s.broadcast("clinical_note.updated", n)
	if content == nil {
		content = s.cipher.DecryptContent(n.EncryptedContent)
	}
	return &NoteWithContent{ClinicalNote: n, Content: content}, nil
}

// Autosave stores draft content without a full update cycle. It does not
// write an audit row; the trail records explicit saves only.
func (s *Service) Autosave(ctx context.Context, id uuid.UUID, content map[string]interface{}) (*ClinicalNote, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.IsSigned {
		return nil, ErrNoteSigned
	}
	if content != nil {
		encrypted, err := s.cipher.EncryptContent(content)
		if err != nil {
			return nil, err
		}
		n.EncryptedContent = encrypted
	}
	now := time.Now()
	n.LastAutosave = &now
	if err := s.notes.Update(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Sign latches the note. Only the assigned practitioner may sign, and
// signing is permanent.
func (s *Service) Sign(ctx context.Context, id uuid.UUID, actor Actor) (*ClinicalNote, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.IsSigned {
		return nil, ErrNoteSigned
	}
	if actor.PractitionerID == nil || *actor.PractitionerID != n.PractitionerID {
		return nil, ErrNotAssignedSigner
	}
	now := time.Now()
	n.IsSigned = true
	n.IsDraft = false
	n.SignedAt = &now
	if err := s.notes.Update(ctx, n); err != nil {
		return nil, err
	}
	s.appendAudit(ctx, n.ID, actor, ActionSigned, nil)
	s.broadcast("clinical_note.signed", n)
	return n, nil
}

// DeleteNote soft-deletes an unsigned note. Signed notes are immutable,
// deletion included.
func (s *Service) DeleteNote(ctx context.Context, id uuid.UUID, actor Actor) error {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.IsSigned {
		return ErrNoteSigned
	}
	s.appendAudit(ctx, n.ID, actor, ActionDeleted, nil)
	if err := s.notes.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.broadcast("clinical_note.deleted", n)
	return nil
}

func (s *Service) ListNotes(ctx context.Context, visible []uuid.UUID, filter NoteFilter) ([]*ClinicalNote, int, error) {
	return s.notes.List(ctx, visible, filter)
}

func (s *Service) AuditTrail(ctx context.Context, noteID uuid.UUID) ([]*AuditLog, error) {
	if _, err := s.notes.GetByID(ctx, noteID); err != nil {
		return nil, err
	}
	return s.audit.ListByNote(ctx, noteID)
}

func (s *Service) appendAudit(ctx context.Context, noteID uuid.UUID, actor Actor, action string, changes map[string]interface{}) {
	userID := actor.UserID
	err := s.audit.Append(ctx, &AuditLog{
		ClinicalNoteID: noteID,
		UserID:         &userID,
		Action:         action,
		IPAddress:      actor.IPAddress,
		UserAgent:      actor.UserAgent,
		Changes:        changes,
	})
	if err != nil {
		log.Warn().Err(err).Str("note_id", noteID.String()).Str("action", action).
			Msg("clinical note audit append failed")
	}
}

func (s *Service) broadcast(eventType string, n *ClinicalNote) {
	if s.events == nil {
		return
	}
	topic := websocket.NotesTopic(n.ClinicID)
	// The websocket payload carries metadata only, never note content.
	s.events.Broadcast(topic, websocket.NewEvent(eventType, topic, "clinical_note", n.ID, map[string]interface{}{
		"patient_id":      n.PatientID,
		"practitioner_id": n.PractitionerID,
		"is_signed":       n.IsSigned,
		"is_draft":        n.IsDraft,
	}))
}
