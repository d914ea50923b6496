package records

import (
	"strings"
	"time"
)

// Gender values accepted on a patient record.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Patient status values.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusArchived = "archived"
)

// Examination types.
const (
	ExamRoutine      = "routine"
	ExamFollowUp     = "follow-up"
	ExamConsultation = "consultation"
	ExamEmergency    = "emergency"
)

// ExamStatusCompleted is the default status of a recorded examination.
const ExamStatusCompleted = "completed"

// DateLayout is the calendar-date format used for dateOfBirth.
const DateLayout = "2006-01-02"

// EmergencyContact is nested inside a Patient.
type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
}

// Patient is a persisted patient record.
type Patient struct {
	ID               int64            `json:"id"`
	FirstName        string           `json:"firstName"`
	LastName         string           `json:"lastName"`
	DateOfBirth      string           `json:"dateOfBirth"`
	Gender           string           `json:"gender"`
	PhoneNumber      string           `json:"phoneNumber"`
	Email            string           `json:"email,omitempty"`
	Address          string           `json:"address"`
	MedicalHistory   string           `json:"medicalHistory"`
	InsuranceInfo    string           `json:"insuranceInfo"`
	EmergencyContact EmergencyContact `json:"emergencyContact"`
	Status           string           `json:"status"`
	DateAdded        time.Time        `json:"dateAdded"`
	LastVisit        *time.Time       `json:"lastVisit,omitempty"`
}

// DisplayName is "First Last".
func (p *Patient) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p Patient) clone() Patient {
	if p.LastVisit != nil {
		lv := *p.LastVisit
		p.LastVisit = &lv
	}
	return p
}

// PatientInput carries the caller-supplied fields of a new patient.
type PatientInput struct {
	FirstName        string           `json:"firstName"`
	LastName         string           `json:"lastName"`
	DateOfBirth      string           `json:"dateOfBirth"`
	Gender           string           `json:"gender"`
	PhoneNumber      string           `json:"phoneNumber"`
	Email            string           `json:"email"`
	Address          string           `json:"address"`
	MedicalHistory   string           `json:"medicalHistory"`
	InsuranceInfo    string           `json:"insuranceInfo"`
	EmergencyContact EmergencyContact `json:"emergencyContact"`
}

// PatientPatch is a shallow partial update. Nil fields are left untouched.
type PatientPatch struct {
	FirstName        *string           `json:"firstName,omitempty"`
	LastName         *string           `json:"lastName,omitempty"`
	DateOfBirth      *string           `json:"dateOfBirth,omitempty"`
	Gender           *string           `json:"gender,omitempty"`
	PhoneNumber      *string           `json:"phoneNumber,omitempty"`
	Email            *string           `json:"email,omitempty"`
	Address          *string           `json:"address,omitempty"`
	MedicalHistory   *string           `json:"medicalHistory,omitempty"`
	InsuranceInfo    *string           `json:"insuranceInfo,omitempty"`
	EmergencyContact *EmergencyContact `json:"emergencyContact,omitempty"`
	Status           *string           `json:"status,omitempty"`
	LastVisit        *time.Time        `json:"lastVisit,omitempty"`
}

func (pp PatientPatch) applyTo(p *Patient) {
	if pp.FirstName != nil {
		p.FirstName = *pp.FirstName
	}
	if pp.LastName != nil {
		p.LastName = *pp.LastName
	}
	if pp.DateOfBirth != nil {
		p.DateOfBirth = *pp.DateOfBirth
	}
	if pp.Gender != nil {
		p.Gender = *pp.Gender
	}
	if pp.PhoneNumber != nil {
		p.PhoneNumber = *pp.PhoneNumber
	}
	if pp.Email != nil {
		p.Email = *pp.Email
	}
	if pp.Address != nil {
		p.Address = *pp.Address
	}
	if pp.MedicalHistory != nil {
		p.MedicalHistory = *pp.MedicalHistory
	}
	if pp.InsuranceInfo != nil {
		p.InsuranceInfo = *pp.InsuranceInfo
	}
	if pp.EmergencyContact != nil {
		p.EmergencyContact = *pp.EmergencyContact
	}
	if pp.Status != nil {
		p.Status = *pp.Status
	}
	if pp.LastVisit != nil {
		lv := *pp.LastVisit
		p.LastVisit = &lv
	}
}

// Vitals recorded during an examination. Numeric vitals are optional.
type Vitals struct {
	BloodPressure string   `json:"bloodPressure,omitempty"`
	HeartRate     *int     `json:"heartRate,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	Weight        *float64 `json:"weight,omitempty"`
	Height        string   `json:"height,omitempty"`
}

func (v Vitals) clone() Vitals {
	if v.HeartRate != nil {
		hr := *v.HeartRate
		v.HeartRate = &hr
	}
	if v.Temperature != nil {
		t := *v.Temperature
		v.Temperature = &t
	}
	if v.Weight != nil {
		w := *v.Weight
		v.Weight = &w
	}
	return v
}

// Examination is a persisted examination record.
type Examination struct {
	ID                   int64     `json:"id"`
	PatientID            int64     `json:"patientId"`
	Date                 time.Time `json:"date"`
	Type                 string    `json:"type"`
	Vitals               Vitals    `json:"vitals"`
	ChiefComplaint       string    `json:"chiefComplaint"`
	PhysicalFindings     string    `json:"physicalFindings"`
	Diagnosis            string    `json:"diagnosis"`
	TreatmentPlan        string    `json:"treatmentPlan"`
	FollowUpInstructions string    `json:"followUpInstructions"`
	DoctorNotes          string    `json:"doctorNotes"`
	Duration             int       `json:"duration"`
	Status               string    `json:"status"`
}

func (e Examination) clone() Examination {
	e.Vitals = e.Vitals.clone()
	return e
}

// ExaminationInput carries the caller-supplied fields of a new examination.
type ExaminationInput struct {
	PatientID            int64     `json:"patientId"`
	Date                 time.Time `json:"date"`
	Type                 string    `json:"type"`
	Vitals               Vitals    `json:"vitals"`
	ChiefComplaint       string    `json:"chiefComplaint"`
	PhysicalFindings     string    `json:"physicalFindings"`
	Diagnosis            string    `json:"diagnosis"`
	TreatmentPlan        string    `json:"treatmentPlan"`
	FollowUpInstructions string    `json:"followUpInstructions"`
	DoctorNotes          string    `json:"doctorNotes"`
	Duration             int       `json:"duration"`
	Status               string    `json:"status"`
}

// File is the metadata of an uploaded patient file. No payload is stored.
type File struct {
	ID           int64     `json:"id"`
	PatientID    int64     `json:"patientId"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Size         int64     `json:"size"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	Tags         []string  `json:"tags"`
	DateUploaded time.Time `json:"dateUploaded"`
	UploadedBy   string    `json:"uploadedBy"`
}

func (f File) clone() File {
	if f.Tags != nil {
		f.Tags = append([]string(nil), f.Tags...)
	}
	return f
}

// FileInput is the vetted metadata handed over by the upload boundary.
type FileInput struct {
	PatientID   int64    `json:"patientId"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Size        int64    `json:"size"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Snapshot holds a copy of all three collections.
type Snapshot struct {
	Patients     []Patient
	Examinations []Examination
	Files        []File
}

// ClonePatients returns a deep copy of ps.
func ClonePatients(ps []Patient) []Patient {
	out := make([]Patient, len(ps))
	for i := range ps {
		out[i] = ps[i].clone()
	}
	return out
}

// CloneExaminations returns a deep copy of es.
func CloneExaminations(es []Examination) []Examination {
	out := make([]Examination, len(es))
	for i := range es {
		out[i] = es[i].clone()
	}
	return out
}

// CloneFiles returns a deep copy of fs.
func CloneFiles(fs []File) []File {
	out := make([]File, len(fs))
	for i := range fs {
		out[i] = fs[i].clone()
	}
	return out
}
