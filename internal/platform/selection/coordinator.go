// Package selection tracks which patient is selected and which dashboard view
// is active, and fans change notifications out to the view adapters that
// depend on them. Dispatch is synchronous and in registration order.
package selection

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/domain/records"
)

// ViewID identifies a dashboard view.
type ViewID string

const (
	ViewDashboard    ViewID = "dashboard"
	ViewPatients     ViewID = "patients"
	ViewExaminations ViewID = "examinations"
	ViewFiles        ViewID = "files"
	ViewStatistics   ViewID = "statistics"
)

// Views lists the known views.
var Views = map[ViewID]bool{
	ViewDashboard:    true,
	ViewPatients:     true,
	ViewExaminations: true,
	ViewFiles:        true,
	ViewStatistics:   true,
}

var (
	ErrUnknownPatient = errors.New("selection: patient does not exist")
	ErrUnknownView    = errors.New("selection: unknown view")
	// ErrReentrantDispatch is returned when a listener tries to change the
	// selection or view while a notification is still being delivered.
	ErrReentrantDispatch = errors.New("selection: state change from inside a listener")
)

// PatientLookup resolves patient ids. *records.Store satisfies it.
type PatientLookup interface {
	GetPatient(ctx context.Context, id int64) (*records.Patient, bool)
}

type (
	// SelectionListener receives the new selection, nil when cleared.
	SelectionListener func(patientID *int64)
	// ViewListener receives the newly active view.
	ViewListener func(view ViewID)
	// DataListener receives committed store changes.
	DataListener func(change records.Change)
)

// Coordinator owns the selection state. It is not safe for concurrent use.
type Coordinator struct {
	patients PatientLookup
	logger   zerolog.Logger

	selected *int64
	view     ViewID

	onSelection []SelectionListener
	onView      []ViewListener
	onData      []DataListener
	dispatching bool
}

// NewCoordinator returns a coordinator with nothing selected and the
// dashboard view active.
func NewCoordinator(patients PatientLookup, logger zerolog.Logger) *Coordinator {
	return &Coordinator{patients: patients, logger: logger, view: ViewDashboard}
}

func (c *Coordinator) OnSelectionChanged(l SelectionListener) { c.onSelection = append(c.onSelection, l) }

func (c *Coordinator) OnViewChanged(l ViewListener) { c.onView = append(c.onView, l) }

func (c *Coordinator) OnDataChanged(l DataListener) { c.onData = append(c.onData, l) }

// SelectedPatientID returns the selected patient, if any.
func (c *Coordinator) SelectedPatientID() (int64, bool) {
	if c.selected == nil {
		return 0, false
	}
	return *c.selected, true
}

// ActiveView returns the active view.
func (c *Coordinator) ActiveView() ViewID { return c.view }

// SelectPatient selects an existing patient and notifies selection listeners
// before returning. An unknown id leaves the state untouched.
func (c *Coordinator) SelectPatient(ctx context.Context, id int64) error {
	if c.dispatching {
		return ErrReentrantDispatch
	}
	if _, ok := c.patients.GetPatient(ctx, id); !ok {
		c.logger.Warn().Int64("patient_id", id).Msg("cannot select unknown patient")
		return ErrUnknownPatient
	}
	c.selected = &id
	c.emitSelection()
	return nil
}

// ClearSelection deselects the current patient.
func (c *Coordinator) ClearSelection() error {
	if c.dispatching {
		return ErrReentrantDispatch
	}
	c.selected = nil
	c.emitSelection()
	return nil
}

// SwitchView activates view. Listeners are expected to re-query fresh data.
func (c *Coordinator) SwitchView(view ViewID) error {
	if c.dispatching {
		return ErrReentrantDispatch
	}
	if !Views[view] {
		return ErrUnknownView
	}
	c.view = view
	c.dispatch(func() {
		for _, l := range c.onView {
			l(view)
		}
	})
	return nil
}

// Reset returns to the initial state, as on logout.
func (c *Coordinator) Reset() error {
	if c.dispatching {
		return ErrReentrantDispatch
	}
	if c.selected != nil {
		c.selected = nil
		c.emitSelection()
	}
	if c.view != ViewDashboard {
		c.view = ViewDashboard
		c.dispatch(func() {
			for _, l := range c.onView {
				l(ViewDashboard)
			}
		})
	}
	return nil
}

// HandleChange is registered as a store listener. Deleting the selected
// patient clears the selection before data listeners are told.
func (c *Coordinator) HandleChange(change records.Change) {
	if c.dispatching {
		c.logger.Error().Strs("kinds", kinds(change)).Msg("store mutated from inside a listener, notification dropped")
		if c.deletesSelected(change) {
			c.selected = nil
		}
		return
	}
	if c.deletesSelected(change) {
		c.selected = nil
		c.emitSelection()
	}
	c.dispatch(func() {
		for _, l := range c.onData {
			l(change)
		}
	})
}

func (c *Coordinator) deletesSelected(change records.Change) bool {
	return change.DeletedPatientID != nil && c.selected != nil && *change.DeletedPatientID == *c.selected
}

func (c *Coordinator) emitSelection() {
	c.dispatch(func() {
		for _, l := range c.onSelection {
			var id *int64
			if c.selected != nil {
				v := *c.selected
				id = &v
			}
			l(id)
		}
	})
}

func (c *Coordinator) dispatch(fn func()) {
	c.dispatching = true
	defer func() { c.dispatching = false }()
	fn()
}

func kinds(change records.Change) []string {
	out := make([]string, len(change.Kinds))
	for i, k := range change.Kinds {
		out[i] = string(k)
	}
	return out
}
