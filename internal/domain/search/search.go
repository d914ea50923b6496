// Package search filters in-memory record collections. Every function is
// pure: inputs are never modified and no I/O happens, so callers may run them
// on every keystroke.
package search

import (
	"strings"

	"github.com/ehr/dashboard/internal/domain/records"
)

// Patients returns the patients whose first name, last name, phone number,
// email or "first last" contains query, ignoring case. Order is preserved.
// A blank query returns all unchanged.
func Patients(all []records.Patient, query string) []records.Patient {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all
	}
	out := make([]records.Patient, 0, len(all))
	for _, p := range all {
		if patientMatches(&p, q) {
			out = append(out, p)
		}
	}
	return out
}

func patientMatches(p *records.Patient, q string) bool {
	fields := [...]string{
		p.FirstName,
		p.LastName,
		p.PhoneNumber,
		p.Email,
		p.FirstName + " " + p.LastName,
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Files returns the files whose name, description or one of whose tags
// contains query, ignoring case. A non-empty category must match exactly.
func Files(all []records.File, query, category string) []records.File {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" && category == "" {
		return all
	}
	out := make([]records.File, 0, len(all))
	for _, f := range all {
		if category != "" && f.Category != category {
			continue
		}
		if q != "" && !fileMatches(&f, q) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func fileMatches(f *records.File, q string) bool {
	if strings.Contains(strings.ToLower(f.Name), q) || strings.Contains(strings.ToLower(f.Description), q) {
		return true
	}
	for _, t := range f.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}
