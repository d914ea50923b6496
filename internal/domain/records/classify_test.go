package records

import "testing"

func TestClassifyFile(t *testing.T) {
	tests := []struct {
		name, mime, want string
	}{
		{"chest_xray.png", "image/png", CategoryImaging},
		{"brain MRI.jpg", "image/jpeg", CategoryImaging},
		{"abdomen_ct_2024.pdf", "application/pdf", CategoryImaging},
		{"series.dcm", "", CategoryImaging},
		{"anything", "application/dicom", CategoryImaging},
		{"blood_panel.pdf", "application/pdf", CategoryLabResults},
		{"rx_refill.pdf", "application/pdf", CategoryPrescriptions},
		{"insurance_card.jpg", "image/jpeg", CategoryInsurance},
		{"discharge_summary.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", CategoryReports},
		{"fact_sheet.pdf", "application/pdf", CategoryDocuments},
		{"rash.jpg", "image/jpeg", CategoryPhotos},
		{"notes.txt", "text/plain", CategoryDocuments},
		{"archive.zip", "application/zip", CategoryGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyFile(tt.name, tt.mime); got != tt.want {
				t.Errorf("ClassifyFile(%q, %q) = %q, want %q", tt.name, tt.mime, got, tt.want)
			}
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	got := normalizeTags([]string{"b", " a ", "b", "", "  "})
	if len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Errorf("unexpected tags %v", got)
	}
	if got := normalizeTags(nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}
