package records

import (
	"path"
	"strings"
)

// File categories.
const (
	CategoryImaging       = "imaging"
	CategoryLabResults    = "lab-results"
	CategoryReports       = "reports"
	CategoryPrescriptions = "prescriptions"
	CategoryInsurance     = "insurance"
	CategoryDocuments     = "documents"
	CategoryPhotos        = "photos"
	CategoryGeneral       = "general"
)

// Categories lists valid file category values.
var Categories = map[string]bool{
	CategoryImaging:       true,
	CategoryLabResults:    true,
	CategoryReports:       true,
	CategoryPrescriptions: true,
	CategoryInsurance:     true,
	CategoryDocuments:     true,
	CategoryPhotos:        true,
	CategoryGeneral:       true,
}

// keyword rules are checked in order; the first hit wins. Keywords shorter
// than four letters only match whole name tokens.
var categoryKeywords = []struct {
	category string
	words    []string
}{
	{CategoryImaging, []string{"xray", "x-ray", "mri", "ct", "scan", "ultrasound", "dicom"}},
	{CategoryLabResults, []string{"lab", "blood", "test", "panel"}},
	{CategoryPrescriptions, []string{"prescription", "rx"}},
	{CategoryInsurance, []string{"insurance", "claim"}},
	{CategoryReports, []string{"report", "summary", "discharge"}},
}

var documentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/rtf":    true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// ClassifyFile derives a category from a file's name and MIME type.
func ClassifyFile(name, mimeType string) string {
	lname := strings.ToLower(name)
	tokens := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(lname, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		tokens[tok] = true
	}
	mt := strings.ToLower(strings.TrimSpace(mimeType))

	if strings.Contains(mt, "dicom") || path.Ext(lname) == ".dcm" {
		return CategoryImaging
	}
	for _, rule := range categoryKeywords {
		for _, w := range rule.words {
			if tokens[w] || (len(w) >= 4 && strings.Contains(lname, w)) {
				return rule.category
			}
		}
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		return CategoryPhotos
	case documentTypes[mt], strings.HasPrefix(mt, "text/"):
		return CategoryDocuments
	}
	return CategoryGeneral
}

// normalizeTags trims tags, drops blanks and duplicates, and keeps the order
// of first appearance.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
