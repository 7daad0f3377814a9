package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Karmadibsa/VibeSlicer/internal/segment"
)

// Project is one editing session: a source file, its canonical copy and the
// timeline-wide parameters the segments were built against.
type Project struct {
	ID             string
	Name           string
	SourcePath     string
	CanonicalPath  string
	FrameRate      int
	DurationFrames int64
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProjectStore persists projects and their segment lists in SQLite so an
// editing session survives a restart.
type ProjectStore struct {
	db *sql.DB
}

// NewProjectStore opens (and if needed initializes) the database at dbPath.
func NewProjectStore(dbPath string) (*ProjectStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		source_path TEXT NOT NULL,
		canonical_path TEXT,
		frame_rate INTEGER NOT NULL,
		duration_frames INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS segments (
		project_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		id TEXT NOT NULL,
		start_frame INTEGER NOT NULL,
		end_frame INTEGER NOT NULL,
		kind TEXT NOT NULL,
		active INTEGER NOT NULL,
		text TEXT,
		PRIMARY KEY (project_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_projects_created_at ON projects(created_at);
	CREATE INDEX IF NOT EXISTS idx_segments_project ON segments(project_id);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	return &ProjectStore{db: db}, nil
}

// SaveProject inserts or updates a project row.
func (ps *ProjectStore) SaveProject(p Project) error {
	query := `
	INSERT INTO projects (id, name, source_path, canonical_path, frame_rate, duration_frames, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		canonical_path = excluded.canonical_path,
		frame_rate = excluded.frame_rate,
		duration_frames = excluded.duration_frames,
		status = excluded.status,
		updated_at = excluded.updated_at
	`

	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	_, err := ps.db.Exec(query, p.ID, p.Name, p.SourcePath, p.CanonicalPath,
		p.FrameRate, p.DurationFrames, p.Status, p.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("failed to save project: %v", err)
	}
	return nil
}

// GetProject retrieves a project by id.
func (ps *ProjectStore) GetProject(id string) (Project, error) {
	query := `
	SELECT id, name, source_path, canonical_path, frame_rate, duration_frames, status, created_at, updated_at
	FROM projects WHERE id = ?
	`

	var p Project
	var canonical sql.NullString
	err := ps.db.QueryRow(query, id).Scan(&p.ID, &p.Name, &p.SourcePath, &canonical,
		&p.FrameRate, &p.DurationFrames, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Project{}, fmt.Errorf("failed to get project: %v", err)
	}
	p.CanonicalPath = canonical.String
	return p, nil
}

// ListProjects returns the most recent projects.
func (ps *ProjectStore) ListProjects(limit int) ([]Project, error) {
	query := `
	SELECT id, name, source_path, canonical_path, frame_rate, duration_frames, status, created_at, updated_at
	FROM projects ORDER BY created_at DESC LIMIT ?
	`

	rows, err := ps.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %v", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		var canonical sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.SourcePath, &canonical,
			&p.FrameRate, &p.DurationFrames, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			continue
		}
		p.CanonicalPath = canonical.String
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// SaveSegments replaces a project's segment list with the given ordered
// snapshot. The delete and inserts run in one transaction so a crash never
// leaves a half-written timeline.
func (ps *ProjectStore) SaveSegments(projectID string, segs []segment.Segment) error {
	tx, err := ps.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM segments WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("failed to clear segments: %v", err)
	}

	stmt, err := tx.Prepare(`
	INSERT INTO segments (project_id, position, id, start_frame, end_frame, kind, active, text)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %v", err)
	}
	defer stmt.Close()

	for i, s := range segs {
		active := 0
		if s.Active {
			active = 1
		}
		if _, err := stmt.Exec(projectID, i, s.ID, s.StartFrame, s.EndFrame,
			string(s.Kind), active, s.Text); err != nil {
			return fmt.Errorf("failed to insert segment %d: %v", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit segments: %v", err)
	}
	return nil
}

// LoadSegments returns a project's segments in timeline order.
func (ps *ProjectStore) LoadSegments(projectID string) ([]segment.Segment, error) {
	query := `
	SELECT id, start_frame, end_frame, kind, active, text
	FROM segments WHERE project_id = ? ORDER BY position
	`

	rows, err := ps.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load segments: %v", err)
	}
	defer rows.Close()

	var segs []segment.Segment
	for rows.Next() {
		var s segment.Segment
		var kind string
		var active int
		var text sql.NullString
		if err := rows.Scan(&s.ID, &s.StartFrame, &s.EndFrame, &kind, &active, &text); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %v", err)
		}
		s.Kind = segment.Kind(kind)
		s.Active = active != 0
		s.Text = text.String
		segs = append(segs, s)
	}

	return segs, rows.Err()
}

// Close closes the database connection.
func (ps *ProjectStore) Close() error {
	return ps.db.Close()
}
