package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ritzau/codegraph/pkg/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS components (
  position INTEGER NOT NULL,
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  type TEXT NOT NULL,
  file_path TEXT NOT NULL DEFAULT '',
  line_number INTEGER NOT NULL DEFAULT 0,
  metadata TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_components_name ON components (name);
CREATE INDEX IF NOT EXISTS idx_components_type ON components (type);

CREATE TABLE IF NOT EXISTS relationships (
  position INTEGER PRIMARY KEY,
  id TEXT NOT NULL,
  source_id TEXT NOT NULL,
  target_id TEXT NOT NULL,
  type TEXT NOT NULL,
  metadata TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships (source_id);
CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships (target_id);

CREATE TABLE IF NOT EXISTS project_info (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  data TEXT NOT NULL
);
`

// SQLiteStorage keeps the graph in a single SQLite database at
// <dir>/kb/graph.db. Saves replace table contents inside a transaction.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens (creating if needed) the database under dir
func NewSQLiteStorage(dir string) (*SQLiteStorage, error) {
	kbDir := filepath.Join(dir, "kb")
	if err := os.MkdirAll(kbDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", kbDir, err)
	}

	path := filepath.Join(kbDir, "graph.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	// One connection keeps writes serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema in %s: %w", path, err)
	}

	return &SQLiteStorage{db: db, path: path}, nil
}

// LoadComponents reads components in saved order
func (s *SQLiteStorage) LoadComponents() ([]*model.Component, error) {
	rows, err := s.db.Query(`SELECT id, name, type, file_path, line_number, metadata
FROM components ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	defer rows.Close()

	var components []*model.Component
	for rows.Next() {
		var (
			c        model.Component
			metadata string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.FilePath, &c.LineNumber, &metadata); err != nil {
			return nil, corrupt(s.path, err)
		}
		if err := json.Unmarshal([]byte(metadata), &c.Metadata); err != nil {
			return nil, corrupt(s.path, fmt.Errorf("component %s metadata: %w", c.ID, err))
		}
		if err := c.Validate(); err != nil {
			return nil, corrupt(s.path, err)
		}
		components = append(components, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read components: %w", err)
	}
	return components, nil
}

// LoadRelationships reads relationships in saved order
func (s *SQLiteStorage) LoadRelationships() ([]*model.Relationship, error) {
	rows, err := s.db.Query(`SELECT id, source_id, target_id, type, metadata
FROM relationships ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	var relationships []*model.Relationship
	for rows.Next() {
		var (
			r        model.Relationship
			metadata string
		)
		if err := rows.Scan(&r.ID, &r.SourceID, &r.TargetID, &r.Type, &metadata); err != nil {
			return nil, corrupt(s.path, err)
		}
		if err := json.Unmarshal([]byte(metadata), &r.Metadata); err != nil {
			return nil, corrupt(s.path, fmt.Errorf("relationship %s metadata: %w", r.ID, err))
		}
		if err := r.Validate(); err != nil {
			return nil, corrupt(s.path, err)
		}
		relationships = append(relationships, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read relationships: %w", err)
	}
	return relationships, nil
}

// ProjectInfo reads the project info, falling back to the defaults
func (s *SQLiteStorage) ProjectInfo() (model.ProjectInfo, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM project_info WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultProjectInfo(), nil
	}
	if err != nil {
		return model.ProjectInfo{}, fmt.Errorf("failed to query project info: %w", err)
	}

	var info model.ProjectInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return model.ProjectInfo{}, corrupt(s.path, err)
	}
	return info, nil
}

// SaveProjectInfo upserts the single project info row
func (s *SQLiteStorage) SaveProjectInfo(info model.ProjectInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode project info: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO project_info (id, data) VALUES (1, ?)
ON CONFLICT (id) DO UPDATE SET data = excluded.data`, string(data))
	if err != nil {
		return fmt.Errorf("failed to save project info: %w", err)
	}
	return nil
}

// SaveComponents replaces all stored components
func (s *SQLiteStorage) SaveComponents(components []*model.Component) error {
	return s.replace("components", `INSERT INTO components
(position, id, name, type, file_path, line_number, metadata) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		len(components), func(stmt *sql.Stmt, i int) error {
			c := components[i]
			metadata, err := json.Marshal(c.Metadata)
			if err != nil {
				return fmt.Errorf("failed to encode component %s metadata: %w", c.ID, err)
			}
			_, err = stmt.Exec(i, c.ID, c.Name, string(c.Type), c.FilePath, c.LineNumber, string(metadata))
			return err
		})
}

// SaveRelationships replaces all stored relationships
func (s *SQLiteStorage) SaveRelationships(relationships []*model.Relationship) error {
	return s.replace("relationships", `INSERT INTO relationships
(position, id, source_id, target_id, type, metadata) VALUES (?, ?, ?, ?, ?, ?)`,
		len(relationships), func(stmt *sql.Stmt, i int) error {
			r := relationships[i]
			metadata, err := json.Marshal(r.Metadata)
			if err != nil {
				return fmt.Errorf("failed to encode relationship %s metadata: %w", r.ID, err)
			}
			_, err = stmt.Exec(i, r.ID, r.SourceID, r.TargetID, string(r.Type), string(metadata))
			return err
		})
}

// replace clears table and inserts n rows in one transaction
func (s *SQLiteStorage) replace(table, insert string, n int, exec func(*sql.Stmt, int) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	stmt, err := tx.Prepare(insert)
	if err != nil {
		return fmt.Errorf("failed to prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			return fmt.Errorf("failed to save %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table, err)
	}
	return nil
}

// Close closes the database
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
