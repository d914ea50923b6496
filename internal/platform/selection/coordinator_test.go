package selection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/domain/records"
)

func newStoreWithPatients(t *testing.T, n int) (*records.Store, []int64) {
	t.Helper()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	s := records.NewStore(nil, records.WithClock(func() time.Time { return now }))
	var ids []int64
	for i := 0; i < n; i++ {
		p, err := s.AddPatient(context.Background(), records.PatientInput{
			FirstName:   "Pat",
			LastName:    "Number",
			DateOfBirth: "1970-01-01",
			Gender:      records.GenderOther,
			PhoneNumber: "555-000-0000",
		})
		if err != nil {
			t.Fatalf("AddPatient: %v", err)
		}
		ids = append(ids, p.ID)
	}
	return s, ids
}

func TestSelectPatient(t *testing.T) {
	store, ids := newStoreWithPatients(t, 2)
	coord := NewCoordinator(store, zerolog.Nop())

	var got []*int64
	coord.OnSelectionChanged(func(id *int64) { got = append(got, id) })

	if err := coord.SelectPatient(context.Background(), ids[1]); err != nil {
		t.Fatalf("SelectPatient: %v", err)
	}
	if id, ok := coord.SelectedPatientID(); !ok || id != ids[1] {
		t.Errorf("expected %d selected, got %d (%v)", ids[1], id, ok)
	}
	if len(got) != 1 || got[0] == nil || *got[0] != ids[1] {
		t.Errorf("expected one notification for %d, got %v", ids[1], got)
	}
}

func TestSelectPatient_Unknown(t *testing.T) {
	store, ids := newStoreWithPatients(t, 1)
	coord := NewCoordinator(store, zerolog.Nop())
	if err := coord.SelectPatient(context.Background(), ids[0]); err != nil {
		t.Fatalf("SelectPatient: %v", err)
	}

	notified := false
	coord.OnSelectionChanged(func(*int64) { notified = true })
	if err := coord.SelectPatient(context.Background(), 999); !errors.Is(err, ErrUnknownPatient) {
		t.Fatalf("expected ErrUnknownPatient, got %v", err)
	}
	if id, _ := coord.SelectedPatientID(); id != ids[0] {
		t.Error("unknown id must leave selection untouched")
	}
	if notified {
		t.Error("no notification expected")
	}
}

func TestDeletingSelectedPatientClearsSelection(t *testing.T) {
	store, ids := newStoreWithPatients(t, 3)
	coord := NewCoordinator(store, zerolog.Nop())
	store.Subscribe(coord.HandleChange)
	ctx := context.Background()

	var events []string
	coord.OnSelectionChanged(func(id *int64) {
		if id == nil {
			events = append(events, "selection:nil")
		} else {
			events = append(events, "selection:set")
		}
	})
	coord.OnDataChanged(func(c records.Change) {
		if _, ok := coord.SelectedPatientID(); ok {
			t.Error("data listeners must observe the cleared selection")
		}
		events = append(events, "data")
	})

	if err := coord.SelectPatient(ctx, ids[1]); err != nil {
		t.Fatalf("SelectPatient: %v", err)
	}
	if _, err := store.DeletePatient(ctx, ids[1]); err != nil {
		t.Fatalf("DeletePatient: %v", err)
	}

	if _, ok := coord.SelectedPatientID(); ok {
		t.Error("expected selection to be cleared")
	}
	want := []string{"selection:set", "selection:nil", "data"}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, events)
		}
	}
}

func TestDeletingOtherPatientKeepsSelection(t *testing.T) {
	store, ids := newStoreWithPatients(t, 2)
	coord := NewCoordinator(store, zerolog.Nop())
	store.Subscribe(coord.HandleChange)
	ctx := context.Background()

	if err := coord.SelectPatient(ctx, ids[0]); err != nil {
		t.Fatalf("SelectPatient: %v", err)
	}
	if _, err := store.DeletePatient(ctx, ids[1]); err != nil {
		t.Fatalf("DeletePatient: %v", err)
	}
	if id, ok := coord.SelectedPatientID(); !ok || id != ids[0] {
		t.Error("selection of another patient must survive")
	}
}

func TestSwitchView(t *testing.T) {
	store, _ := newStoreWithPatients(t, 0)
	coord := NewCoordinator(store, zerolog.Nop())
	if coord.ActiveView() != ViewDashboard {
		t.Fatalf("expected dashboard view initially, got %s", coord.ActiveView())
	}

	var views []ViewID
	coord.OnViewChanged(func(v ViewID) { views = append(views, v) })

	if err := coord.SwitchView(ViewFiles); err != nil {
		t.Fatalf("SwitchView: %v", err)
	}
	if err := coord.SwitchView("settings"); !errors.Is(err, ErrUnknownView) {
		t.Errorf("expected ErrUnknownView, got %v", err)
	}
	if coord.ActiveView() != ViewFiles {
		t.Errorf("expected files view, got %s", coord.ActiveView())
	}
	if len(views) != 1 || views[0] != ViewFiles {
		t.Errorf("unexpected view notifications %v", views)
	}
}

func TestListenersRunInRegistrationOrder(t *testing.T) {
	store, ids := newStoreWithPatients(t, 1)
	coord := NewCoordinator(store, zerolog.Nop())
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		coord.OnSelectionChanged(func(*int64) { order = append(order, i) })
	}
	if err := coord.SelectPatient(context.Background(), ids[0]); err != nil {
		t.Fatalf("SelectPatient: %v", err)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("expected [1 2 3], got %v", order)
	}
}

func TestReentrantChangeIsRejected(t *testing.T) {
	store, ids := newStoreWithPatients(t, 2)
	coord := NewCoordinator(store, zerolog.Nop())
	ctx := context.Background()

	var inner error
	coord.OnSelectionChanged(func(*int64) {
		inner = coord.SelectPatient(ctx, ids[0])
	})
	if err := coord.SelectPatient(ctx, ids[1]); err != nil {
		t.Fatalf("SelectPatient: %v", err)
	}
	if !errors.Is(inner, ErrReentrantDispatch) {
		t.Errorf("expected ErrReentrantDispatch from listener, got %v", inner)
	}
	if id, _ := coord.SelectedPatientID(); id != ids[1] {
		t.Errorf("outer selection must win, got %d", id)
	}
}

func TestStoreMutationFromListenerIsDropped(t *testing.T) {
	store, ids := newStoreWithPatients(t, 1)
	coord := NewCoordinator(store, zerolog.Nop())
	store.Subscribe(coord.HandleChange)
	ctx := context.Background()

	dataEvents := 0
	coord.OnDataChanged(func(records.Change) { dataEvents++ })
	coord.OnViewChanged(func(ViewID) {
		// A listener writing to the store must not recurse into dispatch.
		if _, err := store.DeletePatient(ctx, ids[0]); err != nil {
			t.Errorf("DeletePatient: %v", err)
		}
	})

	if err := coord.SwitchView(ViewPatients); err != nil {
		t.Fatalf("SwitchView: %v", err)
	}
	if dataEvents != 0 {
		t.Errorf("expected nested data notification to be dropped, got %d", dataEvents)
	}
	if _, ok := store.GetPatient(ctx, ids[0]); ok {
		t.Error("the mutation itself still applies")
	}
}

func TestReset(t *testing.T) {
	store, ids := newStoreWithPatients(t, 1)
	coord := NewCoordinator(store, zerolog.Nop())
	ctx := context.Background()
	if err := coord.SelectPatient(ctx, ids[0]); err != nil {
		t.Fatalf("SelectPatient: %v", err)
	}
	if err := coord.SwitchView(ViewStatistics); err != nil {
		t.Fatalf("SwitchView: %v", err)
	}

	var sel, view int
	coord.OnSelectionChanged(func(*int64) { sel++ })
	coord.OnViewChanged(func(ViewID) { view++ })
	if err := coord.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, ok := coord.SelectedPatientID(); ok || coord.ActiveView() != ViewDashboard {
		t.Error("expected initial state after reset")
	}
	if sel != 1 || view != 1 {
		t.Errorf("expected one notification each, got %d/%d", sel, view)
	}

	if err := coord.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if sel != 1 || view != 1 {
		t.Error("reset from initial state must not notify")
	}
}
