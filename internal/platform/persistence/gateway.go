// Package persistence bridges the records store to a kvstore.Store. Each
// collection lives under its own namespaced key as a JSON array, and first
// runs fall back to a fixed seed dataset key by key.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/domain/records"
	"github.com/ehr/dashboard/internal/platform/kvstore"
)

// DefaultNamespace prefixes every key when none is configured.
const DefaultNamespace = "dashboard"

// Collection names.
const (
	CollectionPatients     = "patients"
	CollectionExaminations = "examinations"
	CollectionFiles        = "files"
)

// Keys are the three storage keys of a namespace.
type Keys struct {
	Patients     string
	Examinations string
	Files        string
}

// KeysFor returns the keys under namespace.
func KeysFor(namespace string) Keys {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return Keys{
		Patients:     namespace + "." + CollectionPatients,
		Examinations: namespace + "." + CollectionExaminations,
		Files:        namespace + "." + CollectionFiles,
	}
}

// LoadResult is what LoadOrSeed read.
type LoadResult struct {
	records.Snapshot
	// Seeded lists the keys that fell back to seed data.
	Seeded []string
}

// Gateway serializes the store's collections to a kvstore.Store.
type Gateway struct {
	kv     kvstore.Store
	keys   Keys
	logger zerolog.Logger
}

// NewGateway returns a gateway over kv using namespace for its keys.
func NewGateway(kv kvstore.Store, namespace string, logger zerolog.Logger) *Gateway {
	return &Gateway{kv: kv, keys: KeysFor(namespace), logger: logger}
}

// Keys returns the storage keys in use.
func (g *Gateway) Keys() Keys { return g.keys }

// LoadOrSeed reads the three collections. Each key that is missing or does
// not parse is replaced by its seed collection, which is written back right
// away. A failed seed write is returned as a *records.StorageError next to a
// usable result.
//
// Any other read failure aborts the load before anything is written, so
// stored data is never replaced because a backend was briefly unreachable
// or a value could not be decrypted.
func (g *Gateway) LoadOrSeed(ctx context.Context) (LoadResult, error) {
	var res LoadResult

	havePatients, err := readKey(ctx, g, g.keys.Patients, &res.Patients)
	if err != nil {
		return LoadResult{}, err
	}
	haveExams, err := readKey(ctx, g, g.keys.Examinations, &res.Examinations)
	if err != nil {
		return LoadResult{}, err
	}
	haveFiles, err := readKey(ctx, g, g.keys.Files, &res.Files)
	if err != nil {
		return LoadResult{}, err
	}

	var errs []error
	if !havePatients {
		res.Seeded = append(res.Seeded, g.keys.Patients)
		errs = append(errs, seedKey(ctx, g, g.keys.Patients, &res.Patients, SeedPatients))
	}
	if !haveExams {
		res.Seeded = append(res.Seeded, g.keys.Examinations)
		errs = append(errs, seedKey(ctx, g, g.keys.Examinations, &res.Examinations, SeedExaminations))
	}
	if !haveFiles {
		res.Seeded = append(res.Seeded, g.keys.Files)
		errs = append(errs, seedKey(ctx, g, g.keys.Files, &res.Files, SeedFiles))
	}

	if joined := errors.Join(errs...); joined != nil {
		return res, &records.StorageError{Err: joined}
	}
	return res, nil
}

// readKey decodes key into dst. It reports false when the key is absent,
// null or does not parse; read errors from the backend are returned as is.
func readKey[T any](ctx context.Context, g *Gateway, key string, dst *[]T) (bool, error) {
	data, err := g.kv.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		g.logger.Error().Err(err).Str("key", key).Msg("failed to read stored collection")
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	var items []T
	if jerr := json.Unmarshal(data, &items); jerr != nil {
		g.logger.Warn().Err(jerr).Str("key", key).Msg("stored collection is unreadable, using seed data")
		return false, nil
	}
	if items == nil {
		return false, nil
	}
	*dst = items
	return true, nil
}

// seedKey stores seed() under key and returns it through dst.
func seedKey[T any](ctx context.Context, g *Gateway, key string, dst *[]T, seed func() []T) error {
	*dst = seed()
	g.logger.Info().Str("key", key).Int("count", len(*dst)).Msg("seeding collection")
	return g.put(ctx, key, *dst)
}

// PersistAll writes each collection to its key. All three writes are
// attempted; failures are joined into one *records.StorageError.
func (g *Gateway) PersistAll(ctx context.Context, patients []records.Patient, examinations []records.Examination, files []records.File) error {
	err := errors.Join(
		g.put(ctx, g.keys.Patients, nonNil(patients)),
		g.put(ctx, g.keys.Examinations, nonNil(examinations)),
		g.put(ctx, g.keys.Files, nonNil(files)),
	)
	if err != nil {
		return &records.StorageError{Err: err}
	}
	return nil
}

// Reset removes the three keys so the next LoadOrSeed starts from seed data.
func (g *Gateway) Reset(ctx context.Context) error {
	return errors.Join(
		g.kv.Delete(ctx, g.keys.Patients),
		g.kv.Delete(ctx, g.keys.Examinations),
		g.kv.Delete(ctx, g.keys.Files),
	)
}

func (g *Gateway) put(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := g.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// nonNil keeps empty collections encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
