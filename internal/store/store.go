// Package store provides SQLite-backed persistence for annotation projects,
// documents, and annotation jobs.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/openscribe/scribe/core/errors"
	"github.com/openscribe/scribe/core/pack"
	"github.com/openscribe/scribe/core/sqlite"
	"github.com/openscribe/scribe/internal/validation"
)

// schema holds the database schema. Statements are idempotent so Open can
// run them on every startup.
const schema = `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		ontology TEXT NOT NULL,
		owner TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL,
		pack TEXT NOT NULL,
		revision TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (project_id, name),
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id);
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		assignee TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		created_at TEXT NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_document ON jobs(document_id);
`

// Job statuses.
const (
	JobStatusOpen     = "open"
	JobStatusAssigned = "assigned"
	JobStatusDone     = "done"
)

// Project is an annotation project: a named ontology plus its documents.
// An empty Owner means the project is open to all callers.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Ontology  string    `json:"ontology"`
	Owner     string    `json:"owner,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CheckAccess reports whether actor may modify the project. Unowned
// projects accept any actor.
func (p *Project) CheckAccess(operation, actor string) error {
	if p.Owner == "" || actor == p.Owner {
		return nil
	}
	return errors.NewPermission(operation, "project "+p.Name, "actor is not the project owner")
}

// Document is a single annotated text belonging to a project. Pack holds the
// serialized wire payload; Revision is a content hash used for optimistic
// concurrency.
type Document struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Name      string    `json:"name"`
	Pack      string    `json:"pack"`
	Revision  string    `json:"revision"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Job tracks an annotation assignment on a document.
type Job struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Assignee   string    `json:"assignee"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store wraps a SQLite database holding projects, documents, and jobs.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, errors.NewIO("configure", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewIO("migrate", path, err)
	}

	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing database without applying the schema.
// Suited for inspection commands that must not create or migrate files.
func OpenReadOnly(path string) (*Store, error) {
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying database handle for maintenance commands.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Revision computes the revision token for a serialized pack.
func Revision(packData string) string {
	return pack.HashString(packData)
}

// CreateProject creates a project with the given name and serialized ontology.
// Owner may be empty for an unrestricted project.
func (s *Store) CreateProject(ctx context.Context, name, ontology, owner string) (*Project, error) {
	if name == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "project name required")
	}
	if err := validation.ValidateOntologyPayload([]byte(ontology)); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}

	p := &Project{
		ID:        uuid.NewString(),
		Name:      name,
		Ontology:  ontology,
		Owner:     owner,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, ontology, owner, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Ontology, p.Owner, p.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if exists, checkErr := s.projectNameExists(ctx, name); checkErr == nil && exists {
			return nil, errors.Wrapf(errors.ErrAlreadyExists, "project %q", name)
		}
		return nil, errors.NewIO("insert", "projects", err)
	}

	return p, nil
}

func (s *Store) projectNameExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE name = ?`, name).Scan(&count)
	return count > 0, err
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	return s.scanProject(s.db.QueryRowContext(ctx,
		`SELECT id, name, ontology, owner, created_at FROM projects WHERE id = ?`, id), id)
}

// GetProjectByName retrieves a project by its unique name.
func (s *Store) GetProjectByName(ctx context.Context, name string) (*Project, error) {
	return s.scanProject(s.db.QueryRowContext(ctx,
		`SELECT id, name, ontology, owner, created_at FROM projects WHERE name = ?`, name), name)
}

func (s *Store) scanProject(row *sql.Row, ref string) (*Project, error) {
	var p Project
	var createdAt string
	err := row.Scan(&p.ID, &p.Name, &p.Ontology, &p.Owner, &createdAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("project", ref)
	}
	if err != nil {
		return nil, errors.NewIO("query", "projects", err)
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// ListProjects returns all projects ordered by name.
func (s *Store) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, ontology, owner, created_at FROM projects ORDER BY name`)
	if err != nil {
		return nil, errors.NewIO("query", "projects", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Ontology, &p.Owner, &createdAt); err != nil {
			return nil, errors.NewIO("scan", "projects", err)
		}
		p.CreatedAt = parseTime(createdAt)
		projects = append(projects, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIO("iterate", "projects", err)
	}
	return projects, nil
}

// UpdateProjectOntology replaces a project's ontology definition.
func (s *Store) UpdateProjectOntology(ctx context.Context, id, ontology string) error {
	if err := validation.ValidateOntologyPayload([]byte(ontology)); err != nil {
		return errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET ontology = ? WHERE id = ?`, ontology, id)
	if err != nil {
		return errors.NewIO("update", "projects", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewIO("update", "projects", err)
	}
	if n == 0 {
		return errors.NewNotFound("project", id)
	}
	return nil
}

// DeleteProject removes a project and, via cascade, its documents and jobs.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return errors.NewIO("delete", "projects", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewIO("delete", "projects", err)
	}
	if n == 0 {
		return errors.NewNotFound("project", id)
	}
	return nil
}

// CreateDocument adds a document with its serialized pack to a project.
func (s *Store) CreateDocument(ctx context.Context, projectID, name, packData string) (*Document, error) {
	if name == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "document name required")
	}
	if err := validation.ValidatePackPayload([]byte(packData)); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	d := &Document{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		Pack:      packData,
		Revision:  Revision(packData),
		UpdatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, project_id, name, pack, revision, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.ProjectID, d.Name, d.Pack, d.Revision, d.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if exists, checkErr := s.documentNameExists(ctx, projectID, name); checkErr == nil && exists {
			return nil, errors.Wrapf(errors.ErrAlreadyExists, "document %q in project %s", name, projectID)
		}
		return nil, errors.NewIO("insert", "documents", err)
	}

	return d, nil
}

func (s *Store) documentNameExists(ctx context.Context, projectID, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE project_id = ? AND name = ?`, projectID, name).Scan(&count)
	return count > 0, err
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, name, pack, revision, updated_at FROM documents WHERE id = ?`, id)
	return scanDocument(row, id)
}

func scanDocument(row *sql.Row, ref string) (*Document, error) {
	var d Document
	var updatedAt string
	err := row.Scan(&d.ID, &d.ProjectID, &d.Name, &d.Pack, &d.Revision, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("document", ref)
	}
	if err != nil {
		return nil, errors.NewIO("query", "documents", err)
	}
	d.UpdatedAt = parseTime(updatedAt)
	return &d, nil
}

// ListDocuments returns all documents in a project ordered by name.
func (s *Store) ListDocuments(ctx context.Context, projectID string) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, name, pack, revision, updated_at FROM documents WHERE project_id = ? ORDER BY name`,
		projectID)
	if err != nil {
		return nil, errors.NewIO("query", "documents", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var d Document
		var updatedAt string
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Name, &d.Pack, &d.Revision, &updatedAt); err != nil {
			return nil, errors.NewIO("scan", "documents", err)
		}
		d.UpdatedAt = parseTime(updatedAt)
		docs = append(docs, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIO("iterate", "documents", err)
	}
	return docs, nil
}

// LoadDocument retrieves a document together with its owning project, so
// callers have both the pack payload and the ontology in one call.
func (s *Store) LoadDocument(ctx context.Context, id string) (*Document, *Project, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	proj, err := s.GetProject(ctx, doc.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return doc, proj, nil
}

// SaveDocumentPack replaces a document's pack payload. The caller must supply
// the revision it last read; a mismatch means another writer got there first
// and yields a ConflictError.
func (s *Store) SaveDocumentPack(ctx context.Context, id, packData, expectedRevision string) (*Document, error) {
	if err := validation.ValidatePackPayload([]byte(packData)); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewIO("begin", "documents", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT revision FROM documents WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("document", id)
	}
	if err != nil {
		return nil, errors.NewIO("query", "documents", err)
	}

	if expectedRevision != "" && expectedRevision != current {
		return nil, errors.NewConflict("document", id, expectedRevision, current)
	}

	revision := Revision(packData)
	updatedAt := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET pack = ?, revision = ?, updated_at = ? WHERE id = ?`,
		packData, revision, updatedAt.Format(time.RFC3339Nano), id)
	if err != nil {
		return nil, errors.NewIO("update", "documents", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewIO("commit", "documents", err)
	}

	return s.GetDocument(ctx, id)
}

// DeleteDocument removes a document and its jobs.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return errors.NewIO("delete", "documents", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewIO("delete", "documents", err)
	}
	if n == 0 {
		return errors.NewNotFound("document", id)
	}
	return nil
}

// CreateJob records an annotation assignment on a document.
func (s *Store) CreateJob(ctx context.Context, documentID, assignee string) (*Job, error) {
	if _, err := s.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}

	status := JobStatusOpen
	if assignee != "" {
		status = JobStatusAssigned
	}

	j := &Job{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Assignee:   assignee,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, document_id, assignee, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		j.ID, j.DocumentID, j.Assignee, j.Status, j.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, errors.NewIO("insert", "jobs", err)
	}

	return j, nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, assignee, status, created_at FROM jobs WHERE id = ?`, id)

	var j Job
	var createdAt string
	err := row.Scan(&j.ID, &j.DocumentID, &j.Assignee, &j.Status, &createdAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("job", id)
	}
	if err != nil {
		return nil, errors.NewIO("query", "jobs", err)
	}
	j.CreatedAt = parseTime(createdAt)
	return &j, nil
}

// ListJobs returns all jobs on a document ordered by creation time.
func (s *Store) ListJobs(ctx context.Context, documentID string) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, assignee, status, created_at FROM jobs WHERE document_id = ? ORDER BY created_at`,
		documentID)
	if err != nil {
		return nil, errors.NewIO("query", "jobs", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		var j Job
		var createdAt string
		if err := rows.Scan(&j.ID, &j.DocumentID, &j.Assignee, &j.Status, &createdAt); err != nil {
			return nil, errors.NewIO("scan", "jobs", err)
		}
		j.CreatedAt = parseTime(createdAt)
		jobs = append(jobs, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIO("iterate", "jobs", err)
	}
	return jobs, nil
}

// ListJobsByAssignee returns all jobs assigned to one annotator, across
// documents, ordered by creation time.
func (s *Store) ListJobsByAssignee(ctx context.Context, assignee string) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, assignee, status, created_at FROM jobs WHERE assignee = ? ORDER BY created_at`,
		assignee)
	if err != nil {
		return nil, errors.NewIO("query", "jobs", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		var j Job
		var createdAt string
		if err := rows.Scan(&j.ID, &j.DocumentID, &j.Assignee, &j.Status, &createdAt); err != nil {
			return nil, errors.NewIO("scan", "jobs", err)
		}
		j.CreatedAt = parseTime(createdAt)
		jobs = append(jobs, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIO("iterate", "jobs", err)
	}
	return jobs, nil
}

// UpdateJobStatus transitions a job to a new status and optionally reassigns it.
func (s *Store) UpdateJobStatus(ctx context.Context, id, status, assignee string) error {
	switch status {
	case JobStatusOpen, JobStatusAssigned, JobStatusDone:
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "unknown job status %q", status)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, assignee = ? WHERE id = ?`, status, assignee, id)
	if err != nil {
		return errors.NewIO("update", "jobs", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewIO("update", "jobs", err)
	}
	if n == 0 {
		return errors.NewNotFound("job", id)
	}
	return nil
}

// DeleteJob removes a job.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return errors.NewIO("delete", "jobs", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewIO("delete", "jobs", err)
	}
	if n == 0 {
		return errors.NewNotFound("job", id)
	}
	return nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
