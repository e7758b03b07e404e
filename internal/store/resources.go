package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/p-blackswan/allocation-timeline/internal/models"
)

// UpsertResource creates or renames a resource.
func (s *Store) UpsertResource(ctx context.Context, r models.ResourceSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	query := `
	INSERT INTO resources (id, name, default_role, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		default_role = excluded.default_role,
		updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, r.ID, r.Name, r.DefaultRole, now, now); err != nil {
		return fmt.Errorf("failed to save resource: %w", err)
	}
	return nil
}

// GetResource retrieves a resource by id. It returns nil when there is none.
func (s *Store) GetResource(ctx context.Context, id string) (*models.ResourceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := &models.ResourceSummary{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, default_role FROM resources WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &r.DefaultRole)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return r, nil
}

// ListResources returns every resource ordered by name.
func (s *Store) ListResources(ctx context.Context) ([]models.ResourceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, default_role FROM resources ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var out []models.ResourceSummary
	for rows.Next() {
		var r models.ResourceSummary
		if err := rows.Scan(&r.ID, &r.Name, &r.DefaultRole); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		out = append(out, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resources: %w", err)
	}
	return out, nil
}

// UpsertProject creates or updates a project.
func (s *Store) UpsertProject(ctx context.Context, p models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Color == "" {
		p.Color = models.ColorBlue
	}
	now := time.Now().UnixMilli()
	query := `
	INSERT INTO projects (id, name, color, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		color = excluded.color,
		updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, p.ID, p.Name, string(p.Color), now, now); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by id. It returns nil when there is none.
func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := &models.Project{}
	var color string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, color FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &color)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	p.Color = models.Color(color)
	return p, nil
}

// ListProjects returns every project ordered by name.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color FROM projects ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		var p models.Project
		var color string
		if err := rows.Scan(&p.ID, &p.Name, &color); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.Color = models.Color(color)
		out = append(out, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return out, nil
}
