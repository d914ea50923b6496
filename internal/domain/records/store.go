// Package records owns the dashboard's entity model: patients, examinations
// and file metadata. Store is the only mutable copy of the three collections;
// every read hands out deep copies and every mutation is written through to
// the configured Persister before the call returns.
package records

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ChangeKind names the collection a mutation touched.
type ChangeKind string

const (
	PatientsChanged     ChangeKind = "patients-changed"
	ExaminationsChanged ChangeKind = "examinations-changed"
	FilesChanged        ChangeKind = "files-changed"
)

// Change describes one committed mutation.
type Change struct {
	Kinds []ChangeKind `json:"kinds"`
	// DeletedPatientID is set when the mutation removed a patient.
	DeletedPatientID *int64 `json:"deletedPatientId,omitempty"`
}

// Has reports whether c touched the given collection.
func (c Change) Has(kind ChangeKind) bool {
	for _, k := range c.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ChangeListener is called synchronously after each committed mutation.
type ChangeListener func(Change)

// Persister writes the full collections to durable storage.
type Persister interface {
	PersistAll(ctx context.Context, patients []Patient, examinations []Examination, files []File) error
}

// DefaultActor is recorded as uploader when no actor source is configured.
const DefaultActor = "system"

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithActor sets the source of the current actor's display name.
func WithActor(actor func(ctx context.Context) string) Option {
	return func(s *Store) { s.actor = actor }
}

// Store holds the three collections in insertion order. It is not safe for
// concurrent use; callers serialize access.
type Store struct {
	patients     []Patient
	examinations []Examination
	files        []File

	ids       *IDGenerator
	persister Persister
	listeners []ChangeListener
	now       func() time.Time
	actor     func(ctx context.Context) string
	logger    zerolog.Logger
}

// NewStore returns an empty store. A nil persister keeps changes in memory.
func NewStore(persister Persister, opts ...Option) *Store {
	s := &Store{
		persister: persister,
		now:       time.Now,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ids = NewIDGenerator(s.now)
	return s
}

// Subscribe registers a change listener. Listeners run in registration order.
func (s *Store) Subscribe(l ChangeListener) {
	s.listeners = append(s.listeners, l)
}

// Load replaces the collections with snap and seeds the id generator with the
// largest id present. It neither persists nor notifies.
func (s *Store) Load(snap Snapshot) {
	s.patients = ClonePatients(snap.Patients)
	s.examinations = CloneExaminations(snap.Examinations)
	s.files = CloneFiles(snap.Files)
	for _, p := range s.patients {
		s.ids.Observe(p.ID)
	}
	for _, e := range s.examinations {
		s.ids.Observe(e.ID)
	}
	for _, f := range s.files {
		s.ids.Observe(f.ID)
	}
	s.logger.Debug().
		Int("patients", len(s.patients)).
		Int("examinations", len(s.examinations)).
		Int("files", len(s.files)).
		Msg("store loaded")
}

// Snapshot returns a deep copy of all collections.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Patients:     ClonePatients(s.patients),
		Examinations: CloneExaminations(s.examinations),
		Files:        CloneFiles(s.files),
	}
}

// -- Patients --

func (s *Store) ListPatients(_ context.Context) []Patient {
	return ClonePatients(s.patients)
}

// GetPatient returns a copy of the patient with id.
func (s *Store) GetPatient(_ context.Context, id int64) (*Patient, bool) {
	i := s.patientIndex(id)
	if i < 0 {
		return nil, false
	}
	p := s.patients[i].clone()
	return &p, true
}

// AddPatient validates in, assigns id, dateAdded and active status, and
// stores the patient.
func (s *Store) AddPatient(ctx context.Context, in PatientInput) (*Patient, error) {
	p := Patient{
		FirstName:        strings.TrimSpace(in.FirstName),
		LastName:         strings.TrimSpace(in.LastName),
		DateOfBirth:      strings.TrimSpace(in.DateOfBirth),
		Gender:           in.Gender,
		PhoneNumber:      strings.TrimSpace(in.PhoneNumber),
		Email:            strings.TrimSpace(in.Email),
		Address:          in.Address,
		MedicalHistory:   in.MedicalHistory,
		InsuranceInfo:    in.InsuranceInfo,
		EmergencyContact: in.EmergencyContact,
		Status:           StatusActive,
	}
	if err := ValidatePatient(&p, s.now()); err != nil {
		return nil, err
	}
	p.ID = s.ids.Next()
	p.DateAdded = s.now()
	s.patients = append(s.patients, p)

	err := s.commit(ctx, Change{Kinds: []ChangeKind{PatientsChanged}})
	out := p.clone()
	return &out, err
}

// UpdatePatient merges patch over the stored patient, trimming the same
// fields AddPatient trims. It returns nil, nil when no patient has id. The
// merged record must pass validation.
func (s *Store) UpdatePatient(ctx context.Context, id int64, patch PatientPatch) (*Patient, error) {
	i := s.patientIndex(id)
	if i < 0 {
		return nil, nil
	}
	patch.FirstName = trimmed(patch.FirstName)
	patch.LastName = trimmed(patch.LastName)
	patch.DateOfBirth = trimmed(patch.DateOfBirth)
	patch.PhoneNumber = trimmed(patch.PhoneNumber)
	patch.Email = trimmed(patch.Email)

	merged := s.patients[i].clone()
	patch.applyTo(&merged)
	if err := ValidatePatient(&merged, s.now()); err != nil {
		return nil, err
	}
	s.patients[i] = merged

	err := s.commit(ctx, Change{Kinds: []ChangeKind{PatientsChanged}})
	out := merged.clone()
	return &out, err
}

// DeletePatient removes the patient and, in the same call, every examination
// and file that references it. It returns nil, nil when no patient has id.
func (s *Store) DeletePatient(ctx context.Context, id int64) (*Patient, error) {
	i := s.patientIndex(id)
	if i < 0 {
		return nil, nil
	}
	removed := s.patients[i]
	s.patients = append(s.patients[:i:i], s.patients[i+1:]...)

	exams := s.examinations[:0:0]
	for _, e := range s.examinations {
		if e.PatientID != id {
			exams = append(exams, e)
		}
	}
	files := s.files[:0:0]
	for _, f := range s.files {
		if f.PatientID != id {
			files = append(files, f)
		}
	}
	cascaded := len(s.examinations) - len(exams) + len(s.files) - len(files)
	s.examinations = exams
	s.files = files

	s.logger.Info().Int64("patient_id", id).Int("cascaded", cascaded).Msg("patient deleted")

	err := s.commit(ctx, Change{
		Kinds:            []ChangeKind{PatientsChanged, ExaminationsChanged, FilesChanged},
		DeletedPatientID: &id,
	})
	return &removed, err
}

// -- Examinations --

func (s *Store) ListExaminations(_ context.Context) []Examination {
	return CloneExaminations(s.examinations)
}

func (s *Store) ListExaminationsForPatient(_ context.Context, patientID int64) []Examination {
	out := []Examination{}
	for _, e := range s.examinations {
		if e.PatientID == patientID {
			out = append(out, e.clone())
		}
	}
	return out
}

// AddExamination records an examination for an existing patient and moves
// that patient's lastVisit to the examination date.
func (s *Store) AddExamination(ctx context.Context, in ExaminationInput) (*Examination, error) {
	pi := s.patientIndex(in.PatientID)
	if pi < 0 {
		return nil, &ReferentialIntegrityError{Entity: "examination", PatientID: in.PatientID}
	}
	if err := ValidateExamination(&in); err != nil {
		return nil, err
	}

	e := Examination{
		ID:                   s.ids.Next(),
		PatientID:            in.PatientID,
		Date:                 in.Date,
		Type:                 in.Type,
		Vitals:               in.Vitals.clone(),
		ChiefComplaint:       in.ChiefComplaint,
		PhysicalFindings:     in.PhysicalFindings,
		Diagnosis:            in.Diagnosis,
		TreatmentPlan:        in.TreatmentPlan,
		FollowUpInstructions: in.FollowUpInstructions,
		DoctorNotes:          in.DoctorNotes,
		Duration:             in.Duration,
		Status:               in.Status,
	}
	if e.Status == "" {
		e.Status = ExamStatusCompleted
	}
	s.examinations = append(s.examinations, e)

	date := in.Date
	PatientPatch{LastVisit: &date}.applyTo(&s.patients[pi])

	err := s.commit(ctx, Change{Kinds: []ChangeKind{ExaminationsChanged, PatientsChanged}})
	out := e.clone()
	return &out, err
}

// -- Files --

func (s *Store) ListFiles(_ context.Context) []File {
	return CloneFiles(s.files)
}

func (s *Store) ListFilesForPatient(_ context.Context, patientID int64) []File {
	out := []File{}
	for _, f := range s.files {
		if f.PatientID == patientID {
			out = append(out, f.clone())
		}
	}
	return out
}

// AddFile stores vetted file metadata for an existing patient. The uploader
// is the current actor; a missing or unknown category is derived from the
// name and MIME type.
func (s *Store) AddFile(ctx context.Context, in FileInput) (*File, error) {
	if s.patientIndex(in.PatientID) < 0 {
		return nil, &ReferentialIntegrityError{Entity: "file", PatientID: in.PatientID}
	}
	if err := ValidateFile(&in); err != nil {
		return nil, err
	}

	category := in.Category
	if !Categories[category] {
		category = ClassifyFile(in.Name, in.Type)
	}
	f := File{
		ID:           s.ids.Next(),
		PatientID:    in.PatientID,
		Name:         strings.TrimSpace(in.Name),
		Type:         in.Type,
		Size:         in.Size,
		Category:     category,
		Description:  in.Description,
		Tags:         normalizeTags(in.Tags),
		DateUploaded: s.now(),
		UploadedBy:   s.currentActor(ctx),
	}
	s.files = append(s.files, f)

	err := s.commit(ctx, Change{Kinds: []ChangeKind{FilesChanged}})
	out := f.clone()
	return &out, err
}

// DeleteFile removes one file. It returns nil, nil when no file has id.
func (s *Store) DeleteFile(ctx context.Context, id int64) (*File, error) {
	for i := range s.files {
		if s.files[i].ID != id {
			continue
		}
		removed := s.files[i]
		s.files = append(s.files[:i:i], s.files[i+1:]...)
		err := s.commit(ctx, Change{Kinds: []ChangeKind{FilesChanged}})
		return &removed, err
	}
	return nil, nil
}

// -- internals --

func (s *Store) patientIndex(id int64) int {
	for i := range s.patients {
		if s.patients[i].ID == id {
			return i
		}
	}
	return -1
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func (s *Store) currentActor(ctx context.Context) string {
	if s.actor != nil {
		if name := s.actor(ctx); name != "" {
			return name
		}
	}
	return DefaultActor
}

// commit writes the collections through to storage and then notifies
// listeners. A storage failure does not undo the in-memory change; it is
// returned as a *StorageError.
func (s *Store) commit(ctx context.Context, change Change) error {
	var result error
	if s.persister != nil {
		if err := s.persister.PersistAll(ctx, s.patients, s.examinations, s.files); err != nil {
			s.logger.Warn().Err(err).Strs("kinds", kindStrings(change.Kinds)).Msg("write-through failed, changes are in memory only")
			result = asStorageError(err)
		}
	}
	for _, l := range s.listeners {
		l(change)
	}
	return result
}

func asStorageError(err error) error {
	if IsStorageWarning(err) {
		return err
	}
	return &StorageError{Err: err}
}

func kindStrings(kinds []ChangeKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
