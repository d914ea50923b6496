package persistence

import (
	"time"

	"github.com/ehr/dashboard/internal/domain/records"
)

// SeedActor uploaded the seed files.
const SeedActor = "Dr. Admin"

func ts(v string) time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		panic(err)
	}
	return t
}

func tsPtr(v string) *time.Time {
	t := ts(v)
	return &t
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

// SeedPatients returns the first-run patients.
func SeedPatients() []records.Patient {
	return []records.Patient{
		{
			ID:             1,
			FirstName:      "John",
			LastName:       "Smith",
			DateOfBirth:    "1985-03-15",
			Gender:         records.GenderMale,
			PhoneNumber:    "(555) 123-4567",
			Email:          "john.smith@email.com",
			Address:        "123 Main St, Springfield, IL 62701",
			MedicalHistory: "Hypertension, Type 2 Diabetes",
			InsuranceInfo:  "Blue Cross Blue Shield - Policy #BC123456",
			EmergencyContact: records.EmergencyContact{
				Name: "Jane Smith", Relationship: "Spouse", Phone: "(555) 123-4568",
			},
			Status:    records.StatusActive,
			DateAdded: ts("2024-01-15T10:00:00Z"),
			LastVisit: tsPtr("2024-03-10T14:30:00Z"),
		},
		{
			ID:             2,
			FirstName:      "Sarah",
			LastName:       "Johnson",
			DateOfBirth:    "1992-07-22",
			Gender:         records.GenderFemale,
			PhoneNumber:    "(555) 234-5678",
			Email:          "sarah.j@email.com",
			Address:        "456 Oak Ave, Springfield, IL 62702",
			MedicalHistory: "Asthma, Seasonal allergies",
			InsuranceInfo:  "Aetna - Policy #AE789012",
			EmergencyContact: records.EmergencyContact{
				Name: "Michael Johnson", Relationship: "Brother", Phone: "(555) 234-5679",
			},
			Status:    records.StatusActive,
			DateAdded: ts("2024-02-01T09:15:00Z"),
			LastVisit: tsPtr("2024-03-12T10:00:00Z"),
		},
		{
			ID:             3,
			FirstName:      "Robert",
			LastName:       "Williams",
			DateOfBirth:    "1958-11-30",
			Gender:         records.GenderMale,
			PhoneNumber:    "(555) 345-6789",
			Email:          "r.williams@email.com",
			Address:        "789 Pine Rd, Springfield, IL 62703",
			MedicalHistory: "Coronary artery disease, High cholesterol",
			InsuranceInfo:  "Medicare - Policy #MC345678",
			EmergencyContact: records.EmergencyContact{
				Name: "Linda Williams", Relationship: "Wife", Phone: "(555) 345-6790",
			},
			Status:    records.StatusActive,
			DateAdded: ts("2024-02-20T11:30:00Z"),
			LastVisit: tsPtr("2024-03-08T09:00:00Z"),
		},
	}
}

// SeedExaminations returns the first-run examinations.
func SeedExaminations() []records.Examination {
	return []records.Examination{
		{
			ID:        1,
			PatientID: 1,
			Date:      ts("2024-03-10T14:30:00Z"),
			Type:      records.ExamRoutine,
			Vitals: records.Vitals{
				BloodPressure: "130/85",
				HeartRate:     intPtr(78),
				Temperature:   floatPtr(98.6),
				Weight:        floatPtr(185),
				Height:        `5'10"`,
			},
			ChiefComplaint:       "Routine diabetes follow-up",
			PhysicalFindings:     "Blood pressure slightly elevated, no acute distress",
			Diagnosis:            "Type 2 Diabetes - controlled",
			TreatmentPlan:        "Continue Metformin 500mg twice daily",
			FollowUpInstructions: "Return in 3 months, HbA1c before visit",
			DoctorNotes:          "Patient compliant with medication",
			Duration:             30,
			Status:               records.ExamStatusCompleted,
		},
		{
			ID:        2,
			PatientID: 2,
			Date:      ts("2024-03-12T10:00:00Z"),
			Type:      records.ExamFollowUp,
			Vitals: records.Vitals{
				BloodPressure: "118/76",
				HeartRate:     intPtr(72),
				Temperature:   floatPtr(98.4),
				Weight:        floatPtr(135),
				Height:        `5'6"`,
			},
			ChiefComplaint:       "Asthma follow-up, occasional wheezing",
			PhysicalFindings:     "Mild expiratory wheeze, good air movement",
			Diagnosis:            "Asthma - mild persistent",
			TreatmentPlan:        "Continue inhaled corticosteroid, albuterol as needed",
			FollowUpInstructions: "Return in 6 weeks",
			DoctorNotes:          "Discussed trigger avoidance",
			Duration:             20,
			Status:               records.ExamStatusCompleted,
		},
		{
			ID:        3,
			PatientID: 3,
			Date:      ts("2024-03-08T09:00:00Z"),
			Type:      records.ExamConsultation,
			Vitals: records.Vitals{
				BloodPressure: "142/90",
				HeartRate:     intPtr(68),
				Temperature:   floatPtr(98.2),
				Weight:        floatPtr(200),
				Height:        `5'11"`,
			},
			ChiefComplaint:       "Chest discomfort on exertion",
			PhysicalFindings:     "Regular rhythm, no murmurs",
			Diagnosis:            "Stable angina",
			TreatmentPlan:        "Stress test, start aspirin 81mg daily",
			FollowUpInstructions: "Cardiology referral within 2 weeks",
			DoctorNotes:          "Patient advised to avoid strenuous activity",
			Duration:             45,
			Status:               records.ExamStatusCompleted,
		},
	}
}

// SeedFiles returns the first-run file metadata.
func SeedFiles() []records.File {
	return []records.File{
		{
			ID:           1,
			PatientID:    1,
			Name:         "blood_test_results_2024.pdf",
			Type:         "application/pdf",
			Size:         245760,
			Category:     records.CategoryLabResults,
			Description:  "Complete blood panel and HbA1c",
			Tags:         []string{"lab", "diabetes"},
			DateUploaded: ts("2024-03-10T15:00:00Z"),
			UploadedBy:   SeedActor,
		},
		{
			ID:           2,
			PatientID:    1,
			Name:         "chest_xray_2024.jpg",
			Type:         "image/jpeg",
			Size:         1048576,
			Category:     records.CategoryImaging,
			Description:  "Annual chest X-ray",
			Tags:         []string{"xray", "chest"},
			DateUploaded: ts("2024-03-10T15:05:00Z"),
			UploadedBy:   SeedActor,
		},
		{
			ID:           3,
			PatientID:    2,
			Name:         "pulmonary_function_test.pdf",
			Type:         "application/pdf",
			Size:         512000,
			Category:     records.CategoryReports,
			Description:  "Spirometry results",
			Tags:         []string{"asthma", "pft"},
			DateUploaded: ts("2024-03-12T10:30:00Z"),
			UploadedBy:   SeedActor,
		},
		{
			ID:           4,
			PatientID:    3,
			Name:         "insurance_card.png",
			Type:         "image/png",
			Size:         204800,
			Category:     records.CategoryInsurance,
			Description:  "Medicare card scan",
			Tags:         []string{"insurance"},
			DateUploaded: ts("2024-02-20T11:45:00Z"),
			UploadedBy:   SeedActor,
		},
	}
}

// SeedSnapshot returns all seed collections.
func SeedSnapshot() records.Snapshot {
	return records.Snapshot{
		Patients:     SeedPatients(),
		Examinations: SeedExaminations(),
		Files:        SeedFiles(),
	}
}
