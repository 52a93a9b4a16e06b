// Package store persists projects in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"classkitd/pkg/types"
)

// Role selects which share token column to match.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  created_at TEXT NOT NULL,
  title TEXT NOT NULL,
  subject TEXT NOT NULL DEFAULT '',
  grade TEXT NOT NULL DEFAULT '',
  source_notes TEXT NOT NULL DEFAULT '',
  slides_json TEXT NOT NULL DEFAULT '',
  poster_json TEXT NOT NULL DEFAULT '',
  assignment_json TEXT NOT NULL DEFAULT '',
  teacher_token TEXT NOT NULL,
  student_token TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_teacher_token ON projects(teacher_token);
CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_student_token ON projects(student_token);
`)
	return err
}

// ErrNotFound reports a missing project or token.
var ErrNotFound = sql.ErrNoRows

// docJSON marshals a document pointer, mapping nil to the empty string the
// schema uses for "not generated yet".
func docJSON[T any](d *T) (string, error) {
	if d == nil {
		return "", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Create inserts a new project. Tokens and created_at must be set.
func (s *Store) Create(ctx context.Context, p *types.Project) error {
	slides, err := docJSON(p.Slides)
	if err != nil {
		return err
	}
	poster, err := docJSON(p.Poster)
	if err != nil {
		return err
	}
	assignment, err := docJSON(p.Assignment)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO projects(id, created_at, title, subject, grade, source_notes, slides_json, poster_json, assignment_json, teacher_token, student_token)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, p.ID, p.CreatedAt.UTC().Format(time.RFC3339Nano), p.Title, p.Subject, p.Grade, p.SourceNotes,
		slides, poster, assignment, p.TeacherToken, p.StudentToken)
	return err
}

// Save updates the mutable fields of an existing project. Tokens and
// created_at are never touched, so a share link stays valid across edits.
func (s *Store) Save(ctx context.Context, p *types.Project) error {
	slides, err := docJSON(p.Slides)
	if err != nil {
		return err
	}
	poster, err := docJSON(p.Poster)
	if err != nil {
		return err
	}
	assignment, err := docJSON(p.Assignment)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE projects SET title=?, subject=?, grade=?, source_notes=?, slides_json=?, poster_json=?, assignment_json=?
WHERE id=?;
`, p.Title, p.Subject, p.Grade, p.SourceNotes, slides, poster, assignment, p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const projectColumns = `id, created_at, title, subject, grade, source_notes, slides_json, poster_json, assignment_json, teacher_token, student_token`

func scanProject(row interface{ Scan(...any) error }) (*types.Project, error) {
	var p types.Project
	var createdAt, slides, poster, assignment string
	if err := row.Scan(&p.ID, &createdAt, &p.Title, &p.Subject, &p.Grade, &p.SourceNotes,
		&slides, &poster, &assignment, &p.TeacherToken, &p.StudentToken); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("decode created_at for %s: %w", p.ID, err)
	}
	p.CreatedAt = ts
	if slides != "" {
		var d types.SlideDeck
		if err := json.Unmarshal([]byte(slides), &d); err != nil {
			return nil, fmt.Errorf("decode slides for %s: %w", p.ID, err)
		}
		p.Slides = &d
	}
	if poster != "" {
		var d types.Poster
		if err := json.Unmarshal([]byte(poster), &d); err != nil {
			return nil, fmt.Errorf("decode poster for %s: %w", p.ID, err)
		}
		p.Poster = &d
	}
	if assignment != "" {
		var d types.Assignment
		if err := json.Unmarshal([]byte(assignment), &d); err != nil {
			return nil, fmt.Errorf("decode assignment for %s: %w", p.ID, err)
		}
		p.Assignment = &d
	}
	return &p, nil
}

// Get loads a project by id. Returns ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, id string) (*types.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?;`, id)
	return scanProject(row)
}

// GetByToken loads a project by teacher or student share token.
func (s *Store) GetByToken(ctx context.Context, token string, role Role) (*types.Project, error) {
	col := "student_token"
	if role == RoleTeacher {
		col = "teacher_token"
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE `+col+`=?;`, token)
	return scanProject(row)
}

// List returns project summaries, newest first.
func (s *Store) List(ctx context.Context) ([]types.ProjectSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, subject, grade, created_at FROM projects ORDER BY created_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.ProjectSummary
	for rows.Next() {
		var ps types.ProjectSummary
		if err := rows.Scan(&ps.ID, &ps.Title, &ps.Subject, &ps.Grade, &ps.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}
