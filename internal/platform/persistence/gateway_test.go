package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/domain/records"
	"github.com/ehr/dashboard/internal/platform/kvstore"
)

type failingPuts struct {
	*kvstore.Memory
	err error
}

func (f *failingPuts) Put(context.Context, string, []byte) error { return f.err }

// failingGets fails the next n reads, then behaves like the wrapped store.
type failingGets struct {
	*kvstore.Memory
	n   int
	err error
}

func (f *failingGets) Get(ctx context.Context, key string) ([]byte, error) {
	if f.n > 0 {
		f.n--
		return nil, f.err
	}
	return f.Memory.Get(ctx, key)
}

func TestKeysFor(t *testing.T) {
	k := KeysFor("")
	if k.Patients != "dashboard.patients" || k.Examinations != "dashboard.examinations" || k.Files != "dashboard.files" {
		t.Errorf("unexpected default keys %+v", k)
	}
	if KeysFor("clinic").Files != "clinic.files" {
		t.Error("expected namespace prefix")
	}
}

func TestLoadOrSeed_EmptyStoreSeedsOnce(t *testing.T) {
	kv := kvstore.NewMemory()
	g := NewGateway(kv, "", zerolog.Nop())
	ctx := context.Background()

	first, err := g.LoadOrSeed(ctx)
	if err != nil {
		t.Fatalf("LoadOrSeed: %v", err)
	}
	if len(first.Patients) != 3 || len(first.Examinations) != 3 || len(first.Files) != 4 {
		t.Fatalf("expected 3/3/4 seed records, got %d/%d/%d", len(first.Patients), len(first.Examinations), len(first.Files))
	}
	if len(first.Seeded) != 3 {
		t.Errorf("expected all keys seeded, got %v", first.Seeded)
	}
	if kv.Keys() != 3 {
		t.Errorf("expected seed to be written back, got %d keys", kv.Keys())
	}
	if !reflect.DeepEqual(first.Snapshot, SeedSnapshot()) {
		t.Error("loaded data differs from seed literal")
	}

	second, err := g.LoadOrSeed(ctx)
	if err != nil {
		t.Fatalf("LoadOrSeed: %v", err)
	}
	if len(second.Seeded) != 0 {
		t.Errorf("second load must not re-seed, got %v", second.Seeded)
	}
	if !reflect.DeepEqual(first.Snapshot, second.Snapshot) {
		t.Error("second load returned different data")
	}
}

func TestLoadOrSeed_PartialPresence(t *testing.T) {
	kv := kvstore.NewMemory()
	g := NewGateway(kv, "", zerolog.Nop())
	ctx := context.Background()

	stored := []records.Patient{{ID: 77, FirstName: "Only", LastName: "Stored", Status: records.StatusActive}}
	data, _ := json.Marshal(stored)
	if err := kv.Put(ctx, g.Keys().Patients, data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := kv.Put(ctx, g.Keys().Files, []byte("{not json")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	res, err := g.LoadOrSeed(ctx)
	if err != nil {
		t.Fatalf("LoadOrSeed: %v", err)
	}
	if len(res.Patients) != 1 || res.Patients[0].ID != 77 {
		t.Errorf("expected stored patient, got %+v", res.Patients)
	}
	if len(res.Examinations) != 3 || len(res.Files) != 4 {
		t.Errorf("expected seeded examinations and files, got %d/%d", len(res.Examinations), len(res.Files))
	}
	want := []string{g.Keys().Examinations, g.Keys().Files}
	if !reflect.DeepEqual(res.Seeded, want) {
		t.Errorf("expected seeded %v, got %v", want, res.Seeded)
	}
}

func TestLoadOrSeed_EmptyArrayIsNotReseeded(t *testing.T) {
	kv := kvstore.NewMemory()
	g := NewGateway(kv, "", zerolog.Nop())
	ctx := context.Background()
	for _, k := range []string{g.Keys().Patients, g.Keys().Examinations, g.Keys().Files} {
		if err := kv.Put(ctx, k, []byte("[]")); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	res, err := g.LoadOrSeed(ctx)
	if err != nil {
		t.Fatalf("LoadOrSeed: %v", err)
	}
	if len(res.Patients) != 0 || len(res.Seeded) != 0 {
		t.Errorf("an emptied collection must stay empty, got %d patients, seeded %v", len(res.Patients), res.Seeded)
	}
}

func storedPatient(t *testing.T, g *Gateway) {
	t.Helper()
	ctx := context.Background()
	stored := []records.Patient{{ID: 77, FirstName: "Kept", LastName: "Record", Status: records.StatusActive}}
	if err := g.PersistAll(ctx, stored, []records.Examination{}, []records.File{}); err != nil {
		t.Fatalf("PersistAll: %v", err)
	}
}

func TestLoadOrSeed_ReadFailureKeepsStoredData(t *testing.T) {
	mem := kvstore.NewMemory()
	kv := &failingGets{Memory: mem, err: errors.New("i/o timeout")}
	g := NewGateway(kv, "", zerolog.Nop())
	storedPatient(t, g)
	ctx := context.Background()

	kv.n = 1
	res, err := g.LoadOrSeed(ctx)
	if err == nil {
		t.Fatal("expected read failure to abort the load")
	}
	if records.IsStorageWarning(err) {
		t.Errorf("read failure must not be reported as a storage warning: %v", err)
	}
	if len(res.Seeded) != 0 || len(res.Patients) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}

	raw, err := mem.Get(ctx, g.Keys().Patients)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var patients []records.Patient
	if err := json.Unmarshal(raw, &patients); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(patients) != 1 || patients[0].ID != 77 {
		t.Fatalf("stored patients were overwritten: %+v", patients)
	}

	res, err = g.LoadOrSeed(ctx)
	if err != nil {
		t.Fatalf("LoadOrSeed after recovery: %v", err)
	}
	if len(res.Patients) != 1 || res.Patients[0].ID != 77 || len(res.Seeded) != 0 {
		t.Errorf("expected stored data once reads recover, got %+v seeded %v", res.Patients, res.Seeded)
	}
}

func TestLoadOrSeed_WrongEncryptionKeyKeepsStoredData(t *testing.T) {
	mem := kvstore.NewMemory()
	ctx := context.Background()

	right, err := kvstore.NewEncrypted(mem, bytes.Repeat([]byte{1}, 32))
	if err != nil {
		t.Fatalf("NewEncrypted: %v", err)
	}
	storedPatient(t, NewGateway(right, "", zerolog.Nop()))

	wrong, err := kvstore.NewEncrypted(mem, bytes.Repeat([]byte{2}, 32))
	if err != nil {
		t.Fatalf("NewEncrypted: %v", err)
	}
	if _, err := NewGateway(wrong, "", zerolog.Nop()).LoadOrSeed(ctx); err == nil {
		t.Fatal("expected decrypt failure to abort the load")
	}

	res, err := NewGateway(right, "", zerolog.Nop()).LoadOrSeed(ctx)
	if err != nil {
		t.Fatalf("original key can no longer read the data: %v", err)
	}
	if len(res.Patients) != 1 || res.Patients[0].ID != 77 {
		t.Errorf("expected stored patient, got %+v", res.Patients)
	}
}

func TestLoadOrSeed_SeedWriteFailure(t *testing.T) {
	kv := &failingPuts{Memory: kvstore.NewMemory(), err: errors.New("quota exceeded")}
	g := NewGateway(kv, "", zerolog.Nop())

	res, err := g.LoadOrSeed(context.Background())
	if !records.IsStorageWarning(err) {
		t.Fatalf("expected storage warning, got %v", err)
	}
	if len(res.Patients) != 3 {
		t.Error("seed data must still be returned")
	}
}

func TestPersistAll_RoundTrip(t *testing.T) {
	kv := kvstore.NewMemory()
	g := NewGateway(kv, "test", zerolog.Nop())
	ctx := context.Background()

	snap := SeedSnapshot()
	snap.Patients = snap.Patients[:1]
	if err := g.PersistAll(ctx, snap.Patients, nil, snap.Files); err != nil {
		t.Fatalf("PersistAll: %v", err)
	}

	raw, err := kv.Get(ctx, "test.examinations")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(raw) != "[]" {
		t.Errorf("empty collection must be stored as [], got %s", raw)
	}

	res, err := g.LoadOrSeed(ctx)
	if err != nil {
		t.Fatalf("LoadOrSeed: %v", err)
	}
	if !reflect.DeepEqual(res.Patients, snap.Patients) || !reflect.DeepEqual(res.Files, snap.Files) {
		t.Error("round trip changed the data")
	}
	if len(res.Examinations) != 0 || len(res.Seeded) != 0 {
		t.Errorf("expected empty examinations without seeding, got %d / %v", len(res.Examinations), res.Seeded)
	}
}

func TestPersistAll_Failure(t *testing.T) {
	g := NewGateway(&failingPuts{Memory: kvstore.NewMemory(), err: errors.New("boom")}, "", zerolog.Nop())
	err := g.PersistAll(context.Background(), nil, nil, nil)
	if !errors.Is(err, records.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestStoreWriteThroughAndReload(t *testing.T) {
	kv := kvstore.NewMemory()
	g := NewGateway(kv, "", zerolog.Nop())
	ctx := context.Background()

	res, err := g.LoadOrSeed(ctx)
	if err != nil {
		t.Fatalf("LoadOrSeed: %v", err)
	}
	store := records.NewStore(g)
	store.Load(res.Snapshot)

	if _, err := store.DeletePatient(ctx, 1); err != nil {
		t.Fatalf("DeletePatient: %v", err)
	}

	reloaded, err := g.LoadOrSeed(ctx)
	if err != nil {
		t.Fatalf("LoadOrSeed: %v", err)
	}
	if len(reloaded.Patients) != 2 {
		t.Errorf("expected 2 patients after delete, got %d", len(reloaded.Patients))
	}
	for _, f := range reloaded.Files {
		if f.PatientID == 1 {
			t.Error("cascaded file was persisted")
		}
	}
	for _, e := range reloaded.Examinations {
		if e.PatientID == 1 {
			t.Error("cascaded examination was persisted")
		}
	}
}

func TestReset(t *testing.T) {
	kv := kvstore.NewMemory()
	g := NewGateway(kv, "", zerolog.Nop())
	ctx := context.Background()
	if _, err := g.LoadOrSeed(ctx); err != nil {
		t.Fatalf("LoadOrSeed: %v", err)
	}
	if err := g.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if kv.Keys() != 0 {
		t.Errorf("expected no keys after reset, got %d", kv.Keys())
	}
}
