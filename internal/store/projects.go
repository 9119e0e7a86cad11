package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tracker-backend/internal/db"
)

// ProjectStore reads and writes projects, milestones, issues and subtasks.
type ProjectStore struct {
	db  *db.DB
	now func() time.Time
}

func NewProjectStore(database *db.DB) *ProjectStore {
	return &ProjectStore{db: database, now: func() time.Time { return time.Now().UTC() }}
}

// CreateProject inserts a project; names are unique case-insensitively.
func (ps *ProjectStore) CreateProject(ctx context.Context, name, description string) (*Project, error) {
	name = strings.TrimSpace(name)
	v := validator{}
	v.required("name", name)
	if err := v.err(); err != nil {
		return nil, err
	}
	var exists int
	if err := ps.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE lower(name) = lower($1)`, name,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check project name: %w", err)
	}
	if exists > 0 {
		return nil, &ValidationError{Fields: map[string]string{"name": "already exists"}}
	}

	p := &Project{ID: uuid.NewString(), Name: name, Description: strings.TrimSpace(description), CreatedAt: ps.now()}
	if _, err := ps.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, description, created_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Name, p.Description, p.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return p, nil
}

func (ps *ProjectStore) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	err := ps.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM projects WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

func (ps *ProjectStore) ListProjects(ctx context.Context) ([]Project, error) {
	return ps.queryProjects(ctx, `SELECT id, name, description, created_at FROM projects ORDER BY name`)
}

// ProjectNames lists every project name; it backs extractor normalisation.
func (ps *ProjectStore) ProjectNames(ctx context.Context) ([]string, error) {
	projects, err := ps.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.Name)
	}
	return names, nil
}

// FindProjectsByName returns projects whose name equals, contains, or is
// contained in name, ignoring case. Ranking is left to the caller.
func (ps *ProjectStore) FindProjectsByName(ctx context.Context, name string) ([]Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	// both sides are escaped so % and _ in names and input match literally
	return ps.queryProjects(ctx, `
		SELECT id, name, description, created_at
		FROM projects
		WHERE lower(name) = lower($1)
		   OR lower(name) LIKE '%' || lower($2) || '%' ESCAPE '\'
		   OR lower($1) LIKE '%' || replace(replace(replace(lower(name), '\', '\\'), '%', '\%'), '_', '\_') || '%' ESCAPE '\'
		ORDER BY name`, name, escapeLike(name))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match itself literally inside a LIKE pattern that
// declares ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (ps *ProjectStore) queryProjects(ctx context.Context, query string, args ...any) ([]Project, error) {
	rows, err := ps.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()
	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (ps *ProjectStore) CreateMilestone(ctx context.Context, projectID, name, dueDate string) (*Milestone, error) {
	name = strings.TrimSpace(name)
	v := validator{}
	v.required("projectId", projectID)
	v.required("name", name)
	v.date("dueDate", dueDate, true)
	if err := v.err(); err != nil {
		return nil, err
	}
	if _, err := ps.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	m := &Milestone{ID: uuid.NewString(), ProjectID: projectID, Name: name, DueDate: dueDate, CreatedAt: ps.now()}
	if _, err := ps.db.ExecContext(ctx,
		`INSERT INTO milestones (id, project_id, name, due_date, created_at) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.ProjectID, m.Name, m.DueDate, m.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create milestone: %w", err)
	}
	return m, nil
}

func (ps *ProjectStore) FindMilestonesByProject(ctx context.Context, projectID string) ([]Milestone, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT id, project_id, name, due_date, created_at
		FROM milestones
		WHERE project_id = $1
		ORDER BY created_at, name`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query milestones: %w", err)
	}
	defer rows.Close()
	var out []Milestone
	for rows.Next() {
		var m Milestone
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Name, &m.DueDate, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan milestone: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (ps *ProjectStore) CreateIssue(ctx context.Context, in IssueInput) (*Issue, error) {
	v := validator{}
	v.required("projectId", in.ProjectID)
	v.required("title", in.Title)
	v.required("owner", in.Owner)
	v.date("dueDate", in.DueDate, false)
	v.oneOf("priority", in.Priority, Priorities)
	if err := v.err(); err != nil {
		return nil, err
	}
	is := &Issue{
		ID:        uuid.NewString(),
		ProjectID: in.ProjectID,
		Title:     strings.TrimSpace(in.Title),
		Owner:     strings.TrimSpace(in.Owner),
		DueDate:   in.DueDate,
		Priority:  in.Priority,
		Status:    StatusOpen,
		CreatedAt: ps.now(),
	}
	if _, err := ps.db.ExecContext(ctx, `
		INSERT INTO issues (id, project_id, title, owner, due_date, priority, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		is.ID, is.ProjectID, is.Title, is.Owner, is.DueDate, is.Priority, is.Status, is.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}
	return is, nil
}

func (ps *ProjectStore) ListIssues(ctx context.Context, projectID string) ([]Issue, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT id, project_id, title, owner, due_date, priority, status, created_at
		FROM issues
		WHERE project_id = $1
		ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()
	var out []Issue
	for rows.Next() {
		var is Issue
		if err := rows.Scan(&is.ID, &is.ProjectID, &is.Title, &is.Owner, &is.DueDate, &is.Priority, &is.Status, &is.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		out = append(out, is)
	}
	return out, rows.Err()
}

func (ps *ProjectStore) CreateSubtask(ctx context.Context, in SubtaskInput) (*Subtask, error) {
	v := validator{}
	v.required("milestoneId", in.MilestoneID)
	v.required("title", in.Title)
	v.required("owner", in.Owner)
	v.date("dueDate", in.DueDate, false)
	if err := v.err(); err != nil {
		return nil, err
	}
	st := &Subtask{
		ID:          uuid.NewString(),
		MilestoneID: in.MilestoneID,
		Title:       strings.TrimSpace(in.Title),
		Owner:       strings.TrimSpace(in.Owner),
		DueDate:     in.DueDate,
		Status:      StatusTodo,
		CreatedAt:   ps.now(),
	}
	if _, err := ps.db.ExecContext(ctx, `
		INSERT INTO subtasks (id, milestone_id, title, owner, due_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		st.ID, st.MilestoneID, st.Title, st.Owner, st.DueDate, st.Status, st.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create subtask: %w", err)
	}
	return st, nil
}

// ListSubtasksByProject returns subtasks under any milestone of the project,
// newest first.
func (ps *ProjectStore) ListSubtasksByProject(ctx context.Context, projectID string) ([]Subtask, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT s.id, s.milestone_id, s.title, s.owner, s.due_date, s.status, s.created_at
		FROM subtasks s
		JOIN milestones m ON m.id = s.milestone_id
		WHERE m.project_id = $1
		ORDER BY s.created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subtasks: %w", err)
	}
	defer rows.Close()
	var out []Subtask
	for rows.Next() {
		var st Subtask
		if err := rows.Scan(&st.ID, &st.MilestoneID, &st.Title, &st.Owner, &st.DueDate, &st.Status, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subtask: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
