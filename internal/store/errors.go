// ABOUTME: Error taxonomy for the store package and driver-error classification
// ABOUTME: Isolates DuckDB error-text matching to a single adapter function

package store

import (
	"errors"
	"strings"
)

// Validation errors, raised before any I/O is attempted.
var (
	// ErrInvalidMode is returned when a mode string does not normalize to
	// local, cloud, or hybrid.
	ErrInvalidMode = errors.New("invalid database mode")

	// ErrMissingToken is returned when cloud or hybrid mode is requested
	// without a MotherDuck token.
	ErrMissingToken = errors.New("motherduck token is required")

	// ErrInvalidToken is returned when a supplied token matches neither
	// accepted token shape.
	ErrInvalidToken = errors.New("motherduck token is malformed")

	// ErrInvalidDatabaseName is returned when the remote database name fails
	// validation.
	ErrInvalidDatabaseName = errors.New("invalid motherduck database name")
)

// Data-access errors, derived from constraint violations.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateCategory is returned when an envelope insert or update
	// would violate the unique category constraint.
	ErrDuplicateCategory = errors.New("envelope category already exists")

	// ErrUnknownEnvelope is returned when a transaction references an
	// envelope that does not exist.
	ErrUnknownEnvelope = errors.New("envelope does not exist")
)

// Sync precondition errors.
var (
	// ErrCloudUnavailable is returned by sync operations when no cloud
	// connection was established.
	ErrCloudUnavailable = errors.New("cloud connection not available")

	// ErrNotApplicable is returned by sync operations in pure cloud mode,
	// where the cloud copy is the only copy.
	ErrNotApplicable = errors.New("sync not applicable in cloud mode")
)

// classifyConstraintError maps a DuckDB constraint-violation error onto the
// store's typed errors. DuckDB reports violations as text, so this is the one
// place in the package that matches on error strings; if the driver's error
// format changes, only this function needs to follow.
//
// Errors that are not recognized constraint violations are returned unchanged.
func classifyConstraintError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key"):
		return ErrDuplicateCategory
	case strings.Contains(msg, "foreign key constraint"):
		return ErrUnknownEnvelope
	}
	return err
}
