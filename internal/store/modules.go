package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sitewerk/sitesync/internal/record"
)

// UpsertModule inserts or updates a text module, preserving the
// record's lastUpdated exactly as given (merge adoption path).
func (s *Store) UpsertModule(m *record.Module) error {
	return s.UpsertModuleContext(context.Background(), m)
}

// UpsertModuleContext inserts or updates a module with context support.
func (s *Store) UpsertModuleContext(ctx context.Context, m *record.Module) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid module: %w", err)
	}

	query := `
	INSERT INTO modules (id, category, content, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		category = excluded.category,
		content = excluded.content,
		updated_at = excluded.updated_at
	`

	if _, err := s.conn.ExecContext(ctx, query, m.ID, m.Category, m.Content, m.LastUpdated); err != nil {
		return fmt.Errorf("failed to upsert module %s: %w", m.ID, err)
	}
	return nil
}

// SaveModule refreshes the module's lastUpdated and upserts it (local
// mutation path).
func (s *Store) SaveModule(m *record.Module) error {
	return s.SaveModuleContext(context.Background(), m)
}

// SaveModuleContext refreshes lastUpdated and upserts with context support.
func (s *Store) SaveModuleContext(ctx context.Context, m *record.Module) error {
	m.Touch()
	return s.UpsertModuleContext(ctx, m)
}

// GetModule retrieves a single module by id.
// Returns ErrNotFound if no module has that id.
func (s *Store) GetModule(id string) (*record.Module, error) {
	return s.GetModuleContext(context.Background(), id)
}

// GetModuleContext retrieves a module by id with context support.
func (s *Store) GetModuleContext(ctx context.Context, id string) (*record.Module, error) {
	var m record.Module
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, category, content, updated_at FROM modules WHERE id = ?`, id).
		Scan(&m.ID, &m.Category, &m.Content, &m.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("module %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module %s: %w", id, err)
	}
	return &m, nil
}

// ListModules returns every module in the store, grouped by category.
// An empty store yields an empty slice, not an error.
func (s *Store) ListModules() ([]*record.Module, error) {
	return s.ListModulesContext(context.Background())
}

// ListModulesContext returns every module with context support.
func (s *Store) ListModulesContext(ctx context.Context) ([]*record.Module, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, category, content, updated_at FROM modules ORDER BY category, updated_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	mods := []*record.Module{}
	for rows.Next() {
		var m record.Module
		if err := rows.Scan(&m.ID, &m.Category, &m.Content, &m.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		mods = append(mods, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating modules: %w", err)
	}
	return mods, nil
}

// DeleteModule removes the module if present. Deleting an absent id is
// a no-op success.
func (s *Store) DeleteModule(id string) error {
	return s.DeleteModuleContext(context.Background(), id)
}

// DeleteModuleContext removes a module with context support.
func (s *Store) DeleteModuleContext(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM modules WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete module %s: %w", id, err)
	}
	return nil
}

// ModuleCount returns the number of modules in the store.
func (s *Store) ModuleCount() (int, error) {
	return s.ModuleCountContext(context.Background())
}

// ModuleCountContext returns the module count with context support.
func (s *Store) ModuleCountContext(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM modules`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count modules: %w", err)
	}
	return count, nil
}

// SeedModulesIfEmpty populates an empty modules collection with the
// built-in starter modules. A non-empty collection is left untouched.
func (s *Store) SeedModulesIfEmpty(ctx context.Context) (int, error) {
	count, err := s.ModuleCountContext(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	seeded := 0
	for _, m := range record.SeedModules() {
		if err := s.UpsertModuleContext(ctx, m); err != nil {
			return seeded, fmt.Errorf("failed to seed module: %w", err)
		}
		seeded++
	}
	return seeded, nil
}
