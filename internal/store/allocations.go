package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/p-blackswan/allocation-timeline/internal/models"
)

// AllocationQuery selects allocations overlapping [Start, End]. Empty
// fields do not restrict.
type AllocationQuery struct {
	Start      time.Time
	End        time.Time
	ResourceID string
	ProjectID  string
}

const allocationColumns = `id, resource_id, project_id, start_date, end_date, status, effort, role`

// SaveAllocation inserts a, assigning an id when it has none, or replaces
// the stored allocation with the same id.
func (s *Store) SaveAllocation(ctx context.Context, a *models.Allocation) error {
	if err := a.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UnixMilli()
	query := `
	INSERT INTO allocations (
		id, resource_id, project_id, start_date, end_date, status, effort, role,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		resource_id = excluded.resource_id,
		project_id = excluded.project_id,
		start_date = excluded.start_date,
		end_date = excluded.end_date,
		status = excluded.status,
		effort = excluded.effort,
		role = excluded.role,
		updated_at = excluded.updated_at
	`
	var projectID sql.NullString
	if a.ProjectID != nil {
		projectID = sql.NullString{String: *a.ProjectID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.ResourceID, projectID,
		models.FormatDate(a.StartDate), models.FormatDate(a.EndDate),
		string(a.Status), string(a.Effort), a.Role,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save allocation: %w", err)
	}
	return nil
}

// GetAllocation retrieves an allocation by id. It returns nil when there is
// none.
func (s *Store) GetAllocation(ctx context.Context, id string) (*models.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+allocationColumns+` FROM allocations WHERE id = ?`, id)
	a, err := scanAllocation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get allocation: %w", err)
	}
	return a, nil
}

// DeleteAllocation removes an allocation and reports whether it existed.
func (s *Store) DeleteAllocation(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM allocations WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete allocation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete allocation: %w", err)
	}
	return n > 0, nil
}

// ListAllocations returns the allocations matching q in stable order: by
// start date, then creation, then id.
func (s *Store) ListAllocations(ctx context.Context, q AllocationQuery) ([]models.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any
	if !q.End.IsZero() {
		where = append(where, "start_date <= ?")
		args = append(args, models.FormatDate(q.End))
	}
	if !q.Start.IsZero() {
		where = append(where, "end_date >= ?")
		args = append(args, models.FormatDate(q.Start))
	}
	if q.ResourceID != "" {
		where = append(where, "resource_id = ?")
		args = append(args, q.ResourceID)
	}
	if q.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, q.ProjectID)
	}

	query := `SELECT ` + allocationColumns + ` FROM allocations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY start_date, created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	defer rows.Close()

	var out []models.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		out = append(out, *a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocations: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAllocation(row scanner) (*models.Allocation, error) {
	var (
		a              models.Allocation
		projectID      sql.NullString
		start, end     string
		status, effort string
	)
	if err := row.Scan(&a.ID, &a.ResourceID, &projectID, &start, &end, &status, &effort, &a.Role); err != nil {
		return nil, err
	}
	var err error
	if a.StartDate, err = models.ParseDate(start); err != nil {
		return nil, err
	}
	if a.EndDate, err = models.ParseDate(end); err != nil {
		return nil, err
	}
	if projectID.Valid {
		a.ProjectID = models.StringPtr(projectID.String)
	}
	a.Status = models.Status(status)
	a.Effort = models.Effort(effort)
	return &a, nil
}
