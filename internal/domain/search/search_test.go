package search

import (
	"reflect"
	"testing"

	"github.com/ehr/dashboard/internal/domain/records"
)

func samplePatients() []records.Patient {
	return []records.Patient{
		{ID: 1, FirstName: "John", LastName: "Smith", PhoneNumber: "(555) 123-4567", Email: "john.smith@email.com"},
		{ID: 2, FirstName: "Sarah", LastName: "Johnson", PhoneNumber: "(555) 234-5678", Email: "sarah.j@email.com"},
		{ID: 3, FirstName: "Robert", LastName: "Williams", PhoneNumber: "(555) 345-6789", Email: "r.williams@email.com"},
	}
}

func ids(ps []records.Patient) []int64 {
	out := []int64{}
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestPatients(t *testing.T) {
	tests := []struct {
		query string
		want  []int64
	}{
		{"john", []int64{1, 2}},
		{"JOHN SMITH", []int64{1}},
		{"345-67", []int64{3}},
		{"@email.com", []int64{1, 2, 3}},
		{"nobody", []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := ids(Patients(samplePatients(), tt.query)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Patients(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestPatients_BlankQueryReturnsAll(t *testing.T) {
	all := samplePatients()
	for _, q := range []string{"", "   "} {
		if got := Patients(all, q); !reflect.DeepEqual(got, all) {
			t.Errorf("blank query %q returned %v, want %v in the same order", q, ids(got), ids(all))
		}
	}
}

func TestPatients_PureAndIdempotent(t *testing.T) {
	all := samplePatients()
	before := samplePatients()

	first := Patients(all, "sa")
	second := Patients(all, "sa")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same query gave different results: %v vs %v", ids(first), ids(second))
	}
	if !reflect.DeepEqual(ids(first), []int64{2}) {
		t.Errorf("expected [2], got %v", ids(first))
	}
	if !reflect.DeepEqual(all, before) {
		t.Error("input was modified")
	}
}

func sampleFiles() []records.File {
	return []records.File{
		{ID: 10, Name: "chest_xray.png", Category: records.CategoryImaging, Description: "Annual chest film", Tags: []string{"chest"}},
		{ID: 11, Name: "blood_panel.pdf", Category: records.CategoryLabResults, Description: "Lipid panel", Tags: []string{"cholesterol", "fasting"}},
		{ID: 12, Name: "card.jpg", Category: records.CategoryInsurance, Tags: []string{"Medicare"}},
	}
}

func fileIDs(fs []records.File) []int64 {
	out := []int64{}
	for _, f := range fs {
		out = append(out, f.ID)
	}
	return out
}

func TestFiles(t *testing.T) {
	tests := []struct {
		name, query, category string
		want                  []int64
	}{
		{"no filters", "", "", []int64{10, 11, 12}},
		{"by name", "XRAY", "", []int64{10}},
		{"by description", "lipid", "", []int64{11}},
		{"by tag", "medic", "", []int64{12}},
		{"category only", "", records.CategoryLabResults, []int64{11}},
		{"query and category", "chest", records.CategoryLabResults, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fileIDs(Files(sampleFiles(), tt.query, tt.category)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Files(%q, %q) = %v, want %v", tt.query, tt.category, got, tt.want)
			}
		})
	}
}
