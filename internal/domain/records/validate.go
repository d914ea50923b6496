package records

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	phonePattern         = regexp.MustCompile(`^\+?[0-9\s\-().]{7,20}$`)
	emailPattern         = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	bloodPressurePattern = regexp.MustCompile(`^\d{2,3}/\d{2,3}$`)
)

// Vital sign bounds.
const (
	MinHeartRate   = 30
	MaxHeartRate   = 200
	MinTemperature = 90.0
	MaxTemperature = 110.0
	MinWeight      = 50.0
	MaxWeight      = 500.0
)

const (
	minNameLen = 2
	maxNameLen = 50
)

// requiredNarrative lists the narrative fields each examination type must carry.
var requiredNarrative = map[string][]string{
	ExamRoutine:      {"physicalFindings"},
	ExamFollowUp:     {"chiefComplaint", "treatmentPlan"},
	ExamConsultation: {"chiefComplaint", "diagnosis"},
	ExamEmergency:    {"chiefComplaint", "physicalFindings", "diagnosis"},
}

var narrativeLabels = map[string]string{
	"chiefComplaint":   "chief complaint",
	"physicalFindings": "physical findings",
	"diagnosis":        "diagnosis",
	"treatmentPlan":    "treatment plan",
}

// ValidatePatient checks p against the patient rule table. now bounds the
// date of birth.
func ValidatePatient(p *Patient, now time.Time) error {
	verr := &ValidationError{}
	checkName(verr, "firstName", "first name", p.FirstName)
	checkName(verr, "lastName", "last name", p.LastName)

	if strings.TrimSpace(p.DateOfBirth) == "" {
		verr.add("dateOfBirth", "date of birth is required")
	} else if dob, err := time.ParseInLocation(DateLayout, p.DateOfBirth, now.Location()); err != nil {
		verr.add("dateOfBirth", "date of birth must be a date in YYYY-MM-DD format")
	} else if dob.After(now) {
		verr.add("dateOfBirth", "date of birth cannot be in the future")
	}

	switch p.Gender {
	case GenderMale, GenderFemale, GenderOther:
	case "":
		verr.add("gender", "gender is required")
	default:
		verr.add("gender", "gender must be one of male, female, other")
	}

	if strings.TrimSpace(p.PhoneNumber) == "" {
		verr.add("phoneNumber", "phone number is required")
	} else if !phonePattern.MatchString(p.PhoneNumber) {
		verr.add("phoneNumber", "phone number contains invalid characters")
	}

	if p.Email != "" && !emailPattern.MatchString(p.Email) {
		verr.add("email", "email address is not valid")
	}

	switch p.Status {
	case StatusActive, StatusInactive, StatusArchived:
	default:
		verr.add("status", "status must be one of active, inactive, archived")
	}
	return verr.orNil()
}

func checkName(verr *ValidationError, field, label, v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		verr.add(field, label+" is required")
		return
	}
	if n := utf8.RuneCountInString(v); n < minNameLen || n > maxNameLen {
		verr.add(field, fmt.Sprintf("%s must be between %d and %d characters", label, minNameLen, maxNameLen))
	}
}

// ValidateExamination checks in against the examination rule table: required
// date and type, vital ranges, and the narrative fields the type demands.
func ValidateExamination(in *ExaminationInput) error {
	verr := &ValidationError{}
	if in.Date.IsZero() {
		verr.add("date", "examination date is required")
	}

	required, known := requiredNarrative[in.Type]
	switch {
	case in.Type == "":
		verr.add("type", "examination type is required")
	case !known:
		verr.add("type", "examination type must be one of routine, follow-up, consultation, emergency")
	}

	v := in.Vitals
	if v.BloodPressure != "" && !bloodPressurePattern.MatchString(v.BloodPressure) {
		verr.add("bloodPressure", "blood pressure must look like 120/80")
	}
	if v.HeartRate != nil && (*v.HeartRate < MinHeartRate || *v.HeartRate > MaxHeartRate) {
		verr.add("heartRate", fmt.Sprintf("heart rate must be between %d and %d bpm", MinHeartRate, MaxHeartRate))
	}
	if v.Temperature != nil && (*v.Temperature < MinTemperature || *v.Temperature > MaxTemperature) {
		verr.add("temperature", fmt.Sprintf("temperature must be between %g and %g °F", MinTemperature, MaxTemperature))
	}
	if v.Weight != nil && (*v.Weight < MinWeight || *v.Weight > MaxWeight) {
		verr.add("weight", fmt.Sprintf("weight must be between %g and %g lbs", MinWeight, MaxWeight))
	}
	if in.Duration < 0 {
		verr.add("duration", "duration cannot be negative")
	}

	narrative := map[string]string{
		"chiefComplaint":   in.ChiefComplaint,
		"physicalFindings": in.PhysicalFindings,
		"diagnosis":        in.Diagnosis,
		"treatmentPlan":    in.TreatmentPlan,
	}
	for _, field := range required {
		if strings.TrimSpace(narrative[field]) == "" {
			verr.add(field, fmt.Sprintf("%s is required for %s examinations", narrativeLabels[field], in.Type))
		}
	}
	return verr.orNil()
}

// ValidateFile checks the structural fields of file metadata. Size and MIME
// limits belong to the upload boundary.
func ValidateFile(in *FileInput) error {
	verr := &ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		verr.add("name", "file name is required")
	}
	if in.Size < 0 {
		verr.add("size", "file size cannot be negative")
	}
	return verr.orNil()
}
