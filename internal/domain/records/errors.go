package records

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation matches any *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrReferentialIntegrity matches any *ReferentialIntegrityError via errors.Is.
	ErrReferentialIntegrity = errors.New("referential integrity violation")
	// ErrStorage matches any *StorageError via errors.Is.
	ErrStorage = errors.New("storage write failed")
)

// ValidationError reports field-level problems. A write that fails validation
// is never applied.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ReferentialIntegrityError is returned when a child record names a patient
// that does not exist.
type ReferentialIntegrityError struct {
	Entity    string
	PatientID int64
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s references unknown patient %d", e.Entity, e.PatientID)
}

func (e *ReferentialIntegrityError) Is(target error) bool { return target == ErrReferentialIntegrity }

// StorageError means the in-memory mutation succeeded but persisting it did
// not. The in-memory state is authoritative; storage may lag behind.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("changes kept in memory only, not saved: %v", e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// IsStorageWarning reports whether err only signals a persistence lag, i.e.
// the returned value is valid and the mutation was applied.
func IsStorageWarning(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
