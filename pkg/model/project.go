package model

import "time"

// ProjectInfo describes the analyzed project. The graph store carries it
// along without interpreting it.
type ProjectInfo struct {
	Name        string    `json:"name" yaml:"name"`
	Version     string    `json:"version" yaml:"version"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Root        string    `json:"root,omitempty" yaml:"root,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero" yaml:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitzero" yaml:"updated_at,omitempty"`
}

// DefaultProjectInfo is used when no project info has been saved yet
func DefaultProjectInfo() ProjectInfo {
	return ProjectInfo{
		Name:    "unknown",
		Version: "0.1.0",
	}
}
