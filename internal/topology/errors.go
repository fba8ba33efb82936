package topology

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks. The typed errors below match them.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrSchema            = errors.New("schema error")
	ErrImmutableOverride = errors.New("patch field not set")
	ErrDuplicate         = errors.New("duplicate resource")
)

// NotFoundError is returned when a name lookup against a parent collection
// (or an operator collection) fails.
type NotFoundError struct {
	Kind   string
	Name   string
	Parent string
}

func (e *NotFoundError) Error() string {
	if e.Parent == "" {
		return fmt.Sprintf("topology: %s %q not found", e.Kind, e.Name)
	}
	return fmt.Sprintf("topology: %s %q not found in %s", e.Kind, e.Name, e.Parent)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// SchemaError reports a missing required field or an invalid value in a
// loaded document or an entity spec.
type SchemaError struct {
	Path   string
	Field  string
	Reason string
	// Err is the underlying decoding error, if any.
	Err error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema: %s: %v", e.Path, e.Err)
	}
	reason := e.Reason
	if reason == "" {
		reason = "missing required field"
	}
	if e.Path == "" {
		return fmt.Sprintf("schema: %s %q", reason, e.Field)
	}
	return fmt.Sprintf("schema: %s: %s %q", e.Path, reason, e.Field)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

func (e *SchemaError) Unwrap() error { return e.Err }

// ImmutableOverrideError is returned when the value of a patch field that was
// never set is requested.
type ImmutableOverrideError struct {
	Field string
}

func (e *ImmutableOverrideError) Error() string {
	return fmt.Sprintf("topology: patch field %q is not set", e.Field)
}

func (e *ImmutableOverrideError) Is(target error) bool { return target == ErrImmutableOverride }

// DuplicateError is returned when a child is registered under a name that is
// already taken in its parent.
type DuplicateError struct {
	Kind   string
	Name   string
	Parent string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("topology: %s %q already exists in %s", e.Kind, e.Name, e.Parent)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }
