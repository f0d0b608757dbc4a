package backlogdb

import (
	"errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var (
	// ErrNotFound is a sentinel error returned by Find operations when no record
	// matching the criteria is found in the database.
	ErrNotFound = errors.New("record not found")

	// ErrNotUnique is returned by FindOne when more than one record matches.
	ErrNotUnique = errors.New("more than one record found")

	// ErrConstraintViolation is returned when a write is rejected by a
	// store-level uniqueness constraint installed by Setup.
	ErrConstraintViolation = errors.New("constraint violation")
)

const constraintViolationCode = "Neo.ClientError.Schema.ConstraintValidationFailed"

// IsConstraintViolation reports whether err is, or wraps, a Neo4j schema
// constraint failure.
func IsConstraintViolation(err error) bool {
	if errors.Is(err, ErrConstraintViolation) {
		return true
	}
	var neoErr *neo4j.Neo4jError
	return errors.As(err, &neoErr) && neoErr.Code == constraintViolationCode
}

// constraintError keeps the driver error in the chain while also matching
// ErrConstraintViolation.
type constraintError struct {
	err error
}

func (e *constraintError) Error() string { return e.err.Error() }

func (e *constraintError) Unwrap() []error { return []error{ErrConstraintViolation, e.err} }

func classify(err error) error {
	if err == nil || errors.Is(err, ErrConstraintViolation) {
		return err
	}
	if IsConstraintViolation(err) {
		return &constraintError{err: err}
	}
	return err
}
