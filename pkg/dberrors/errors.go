package dberrors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidKeyShape       = errors.New("pkrouting: invalid key shape")
	ErrUnsupportedSchemeKind = errors.New("pkrouting: unsupported partitioning scheme kind")
	ErrPartitionNotFound     = errors.New("pkrouting: partition not found")
	ErrLookupCancelled       = errors.New("pkrouting: lookup cancelled")
	ErrInvalidArgument       = errors.New("pkrouting: invalid argument")
)

// LookupError carries the container and the effective key or range a
// routing lookup was attempted for.
type LookupError struct {
	Container string
	Key       string
	Range     string
	Err       error
}

func (e *LookupError) Error() string {
	target := e.Key
	if e.Range != "" {
		target = e.Range
	}
	return fmt.Sprintf("lookup container=%s target=%s: %v", e.Container, target, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}
