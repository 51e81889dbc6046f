// Package errors provides error handling for turbine.
//
// This package re-exports github.com/cockroachdb/errors and declares the
// sentinels of the compiler's error taxonomy. Typed errors elsewhere in the
// module (spec.ValidationError, resolve.ReferenceError, resolve.CycleError,
// emit.EmissionError) match these sentinels through errors.Is.
//
// Usage:
//
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	if errors.Is(err, errors.ErrSchemaValidation) {
//	    // report the offending paths
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	UnwrapAll     = crdb.UnwrapAll
	GetAllHints   = crdb.GetAllHints
	FlattenHints  = crdb.FlattenHints
	GetAllDetails = crdb.GetAllDetails
)

// Sentinels of the compiler error taxonomy.
var (
	// ErrSchemaValidation marks a malformed, missing or mistyped
	// specification field. Reported before any generation step runs.
	ErrSchemaValidation = New("schema validation failed")

	// ErrReference marks a configuration naming an entity or field that
	// does not exist.
	ErrReference = New("unresolved reference")

	// ErrCircularDependency marks a belongsTo cycle among entities.
	ErrCircularDependency = New("circular dependency")

	// ErrEmission marks an artifact rule that met a combination of
	// concerns it has no rule for.
	ErrEmission = New("emission failed")
)

// Sentinels used by the HTTP and storage layers.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")
)

// IsCompileError reports whether err belongs to the compiler taxonomy, as
// opposed to an I/O or transport failure.
func IsCompileError(err error) bool {
	return IsAny(err, ErrSchemaValidation, ErrReference, ErrCircularDependency, ErrEmission)
}
