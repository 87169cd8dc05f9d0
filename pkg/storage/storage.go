// Package storage persists the knowledge graph between runs.
//
// Every backend implements Storage. Saving and then loading must reproduce
// the same component IDs, types, metadata and relationship order.
package storage

import (
	"errors"
	"fmt"

	"github.com/ritzau/codegraph/pkg/model"
)

// ErrCorrupt is matched by errors raised for stored data that cannot be decoded
var ErrCorrupt = errors.New("corrupt knowledge base data")

// Storage is the load/save contract used by the graph store
type Storage interface {
	LoadComponents() ([]*model.Component, error)
	LoadRelationships() ([]*model.Relationship, error)
	ProjectInfo() (model.ProjectInfo, error)

	SaveProjectInfo(info model.ProjectInfo) error
	SaveComponents(components []*model.Component) error
	SaveRelationships(relationships []*model.Relationship) error

	Close() error
}

// Backend names accepted by Open
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Open creates the storage backend rooted at dir
func Open(backend, dir string) (Storage, error) {
	switch backend {
	case "", BackendJSON:
		return NewJSONStorage(dir), nil
	case BackendSQLite:
		return NewSQLiteStorage(dir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func corrupt(where string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrCorrupt, where, err)
}
