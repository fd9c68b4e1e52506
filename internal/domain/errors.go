// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested agent or type does not exist.
var ErrNotFound = errors.New("not found")

// ErrBusy indicates an execution was skipped because a previous run
// for the same instance is still in flight.
var ErrBusy = errors.New("execution already in flight")
