package graph

import (
	"errors"
	"fmt"
)

// ErrReference is matched by errors raised when a relationship names a
// component that is not in the graph.
var ErrReference = errors.New("component reference not found")

// ReferenceError describes which endpoint of a relationship is dangling
type ReferenceError struct {
	RelationshipID string
	Endpoint       string // "source" or "target"
	ComponentID    string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("relationship %s: %s component %s not found", e.RelationshipID, e.Endpoint, e.ComponentID)
}

func (e *ReferenceError) Unwrap() error {
	return ErrReference
}
