package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyText is returned when a request carries no usable text.
	ErrEmptyText = errors.New("text is required")

	ErrNotFound = errors.New("not found")
)

// InputError is a user-correctable request problem.
type InputError struct {
	Field string
	Err   error
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// RetrievalError reports a corpus store failure while gathering context.
type RetrievalError struct {
	Stage string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed at %s: %v", e.Stage, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// RemoteVerifierError wraps any failure of the LLM-backed verifier.
type RemoteVerifierError struct {
	Stage string
	Err   error
}

func (e *RemoteVerifierError) Error() string {
	return fmt.Sprintf("remote verifier failed at %s: %v", e.Stage, e.Err)
}

func (e *RemoteVerifierError) Unwrap() error { return e.Err }

// IngestionError is a structural write failure while replacing a corpus.
type IngestionError struct {
	Stage string
	Err   error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed at %s: %v", e.Stage, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }
