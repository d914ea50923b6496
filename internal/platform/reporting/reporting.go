// Package reporting computes the dashboard's summary figures by scanning
// record snapshots. All functions are pure; the caller supplies "now".
package reporting

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ehr/dashboard/internal/domain/records"
)

// UnknownPatient labels activity whose patient no longer exists.
const UnknownPatient = "Unknown Patient"

// DefaultTopDiagnoses is used when TopDiagnoses is given a non-positive n.
const DefaultTopDiagnoses = 5

const week = 7 * 24 * time.Hour

// Statistics are the dashboard's headline counts.
type Statistics struct {
	TotalPatients     int `json:"totalPatients"`
	TodayExaminations int `json:"todayExaminations"`
	TotalFiles        int `json:"totalFiles"`
	ActivePatients    int `json:"activePatients"`
}

// Activity is one row of the recent-activity feed.
type Activity struct {
	ExaminationID int64     `json:"examinationId"`
	PatientID     int64     `json:"patientId"`
	PatientName   string    `json:"patientName"`
	Type          string    `json:"type"`
	Diagnosis     string    `json:"diagnosis,omitempty"`
	Date          time.Time `json:"date"`
}

// WindowTrend compares the trailing week with the week before it.
type WindowTrend struct {
	ThisWeek int `json:"thisWeek"`
	LastWeek int `json:"lastWeek"`
	TrendPct int `json:"trendPct"`
}

// Trends holds examination and new-patient trends.
type Trends struct {
	Examinations WindowTrend `json:"examinations"`
	NewPatients  WindowTrend `json:"newPatients"`
}

// DiagnosisCount is one entry of the top-diagnoses list.
type DiagnosisCount struct {
	Diagnosis  string `json:"diagnosis"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// Summary bundles everything the dashboard view renders.
type Summary struct {
	GeneratedAt    time.Time        `json:"generatedAt"`
	Statistics     Statistics       `json:"statistics"`
	RecentActivity []Activity       `json:"recentActivity"`
	Trends         Trends           `json:"trends"`
	TopDiagnoses   []DiagnosisCount `json:"topDiagnoses"`
}

// ComputeStatistics counts patients, files, active patients and the
// examinations dated on now's calendar day in now's location.
func ComputeStatistics(now time.Time, patients []records.Patient, examinations []records.Examination, files []records.File) Statistics {
	st := Statistics{
		TotalPatients: len(patients),
		TotalFiles:    len(files),
	}
	for _, p := range patients {
		if p.Status == records.StatusActive {
			st.ActivePatients++
		}
	}
	for _, e := range examinations {
		if sameDay(e.Date, now) {
			st.TodayExaminations++
		}
	}
	return st
}

func sameDay(t, now time.Time) bool {
	y1, m1, d1 := t.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// RecentActivity returns up to limit examinations, newest first, joined with
// their patient's name. Dangling patient references get UnknownPatient.
func RecentActivity(examinations []records.Examination, patients []records.Patient, limit int) []Activity {
	names := make(map[int64]string, len(patients))
	for i := range patients {
		names[patients[i].ID] = patients[i].DisplayName()
	}

	sorted := make([]records.Examination, len(examinations))
	copy(sorted, examinations)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })

	if limit < 0 {
		limit = 0
	}
	if limit < len(sorted) {
		sorted = sorted[:limit]
	}

	out := make([]Activity, 0, len(sorted))
	for _, e := range sorted {
		name, ok := names[e.PatientID]
		if !ok {
			name = UnknownPatient
		}
		out = append(out, Activity{
			ExaminationID: e.ID,
			PatientID:     e.PatientID,
			PatientName:   name,
			Type:          e.Type,
			Diagnosis:     e.Diagnosis,
			Date:          e.Date,
		})
	}
	return out
}

// ComputeTrends counts examinations (by date) and new patients (by dateAdded)
// in the windows (now-7d, now] and (now-14d, now-7d].
func ComputeTrends(now time.Time, examinations []records.Examination, patients []records.Patient) Trends {
	var tr Trends
	for _, e := range examinations {
		bucket(&tr.Examinations, now, e.Date)
	}
	for _, p := range patients {
		bucket(&tr.NewPatients, now, p.DateAdded)
	}
	tr.Examinations.TrendPct = trendPct(tr.Examinations.ThisWeek, tr.Examinations.LastWeek)
	tr.NewPatients.TrendPct = trendPct(tr.NewPatients.ThisWeek, tr.NewPatients.LastWeek)
	return tr
}

func bucket(w *WindowTrend, now, t time.Time) {
	switch {
	case t.After(now):
	case t.After(now.Add(-week)):
		w.ThisWeek++
	case t.After(now.Add(-2 * week)):
		w.LastWeek++
	}
}

func trendPct(this, last int) int {
	if last == 0 {
		return 0
	}
	return int(math.Round(float64(this-last) / float64(last) * 100))
}

// TopDiagnoses groups non-empty diagnoses case-insensitively and returns the
// n most frequent. Percentages are relative to all examinations that carry a
// diagnosis.
func TopDiagnoses(examinations []records.Examination, n int) []DiagnosisCount {
	if n <= 0 {
		n = DefaultTopDiagnoses
	}

	type group struct {
		label string
		count int
		first int
	}
	groups := make(map[string]*group)
	total := 0
	for i, e := range examinations {
		d := strings.TrimSpace(e.Diagnosis)
		if d == "" {
			continue
		}
		total++
		key := strings.ToLower(d)
		g, ok := groups[key]
		if !ok {
			g = &group{label: d, first: i}
			groups[key] = g
		}
		g.count++
	}

	list := make([]*group, 0, len(groups))
	for _, g := range groups {
		list = append(list, g)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].first < list[j].first
	})
	if len(list) > n {
		list = list[:n]
	}

	out := make([]DiagnosisCount, 0, len(list))
	for _, g := range list {
		out = append(out, DiagnosisCount{
			Diagnosis:  g.label,
			Count:      g.count,
			Percentage: int(math.Round(float64(g.count) / float64(total) * 100)),
		})
	}
	return out
}

// Dashboard computes every figure at once.
func Dashboard(now time.Time, snap records.Snapshot, activityLimit, topN int) Summary {
	return Summary{
		GeneratedAt:    now,
		Statistics:     ComputeStatistics(now, snap.Patients, snap.Examinations, snap.Files),
		RecentActivity: RecentActivity(snap.Examinations, snap.Patients, activityLimit),
		Trends:         ComputeTrends(now, snap.Examinations, snap.Patients),
		TopDiagnoses:   TopDiagnoses(snap.Examinations, topN),
	}
}
