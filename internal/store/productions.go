package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"reelsmith/internal/production"
)

// Summary is the listing view of a stored production.
type Summary struct {
	ID        string           `json:"id"`
	Theme     string           `json:"theme"`
	Stage     production.Stage `json:"stage"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Current   bool             `json:"current"`
}

// Create inserts a new production.
func (s *Store) Create(ctx context.Context, p *production.Production) error {
	if p == nil {
		return errors.New("production is nil")
	}
	data, err := json.Marshal(p.Record())
	if err != nil {
		return fmt.Errorf("marshal production: %w", err)
	}
	_, err = s.exec(ctx,
		`INSERT INTO productions (id, theme, stage, created_at, updated_at, record_json)
         VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Theme, string(p.Stage), formatTime(p.CreatedAt), formatTime(p.UpdatedAt), string(data),
	)
	if err != nil {
		return fmt.Errorf("insert production: %w", err)
	}
	return nil
}

// Save persists the current state of an existing production.
func (s *Store) Save(ctx context.Context, p *production.Production) error {
	if p == nil {
		return errors.New("production is nil")
	}
	data, err := json.Marshal(p.Record())
	if err != nil {
		return fmt.Errorf("marshal production: %w", err)
	}
	res, err := s.exec(ctx,
		`UPDATE productions SET theme = ?, stage = ?, updated_at = ?, record_json = ? WHERE id = ?`,
		p.Theme, string(p.Stage), formatTime(p.UpdatedAt), string(data), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update production: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("save %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

// Get loads a production by ID. Unique ID prefixes are accepted.
func (s *Store) Get(ctx context.Context, id string) (*production.Production, error) {
	row := s.db.QueryRowContext(ctx, `SELECT record_json FROM productions WHERE id = ?`, id)
	p, err := scanProduction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return s.getByPrefix(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get production: %w", err)
	}
	return p, nil
}

func (s *Store) getByPrefix(ctx context.Context, prefix string) (*production.Production, error) {
	if len(prefix) < 4 {
		return nil, fmt.Errorf("%q: %w", prefix, ErrNotFound)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT record_json FROM productions WHERE id LIKE ? || '%' LIMIT 2`, prefix)
	if err != nil {
		return nil, fmt.Errorf("find production: %w", err)
	}
	defer rows.Close()
	var matches []*production.Production
	for rows.Next() {
		p, err := scanProduction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan production: %w", err)
		}
		matches = append(matches, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate productions: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%q: %w", prefix, ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return nil, fmt.Errorf("%q matches more than one production: %w", prefix, ErrNotFound)
}

// List returns production summaries, most recently updated first. When
// stages are provided only productions in those stages are returned.
func (s *Store) List(ctx context.Context, stages ...production.Stage) ([]Summary, error) {
	query := `SELECT p.id, p.theme, p.stage, p.created_at, p.updated_at, s.production_id IS NOT NULL
              FROM productions p
              LEFT JOIN session s ON s.key = ? AND s.production_id = p.id`
	args := []any{currentSessionKey}
	if len(stages) > 0 {
		query += " WHERE p.stage IN (" + makePlaceholders(len(stages)) + ")"
		for _, stage := range stages {
			args = append(args, string(stage))
		}
	}
	query += " ORDER BY p.updated_at DESC, p.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list productions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			summary    Summary
			stage      string
			createdRaw string
			updatedRaw string
			current    bool
		)
		if err := rows.Scan(&summary.ID, &summary.Theme, &stage, &createdRaw, &updatedRaw, &current); err != nil {
			return nil, fmt.Errorf("scan production: %w", err)
		}
		summary.Stage = production.Stage(stage)
		summary.Current = current
		if t, err := parseTimeString(createdRaw); err == nil {
			summary.CreatedAt = t
		}
		if t, err := parseTimeString(updatedRaw); err == nil {
			summary.UpdatedAt = t
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// Delete removes a production. Deleting the current production clears the
// session pointer.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM productions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete production: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetCurrent records id as the session's current production.
func (s *Store) SetCurrent(ctx context.Context, id string) error {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM productions WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check production: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("use %s: %w", id, ErrNotFound)
	}
	_, err := s.exec(ctx,
		`INSERT INTO session (key, production_id, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET production_id = excluded.production_id, updated_at = excluded.updated_at`,
		currentSessionKey, id, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("set current production: %w", err)
	}
	return nil
}

// Current loads the session's current production.
func (s *Store) Current(ctx context.Context) (*production.Production, error) {
	var id sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT production_id FROM session WHERE key = ?`, currentSessionKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return nil, ErrNoCurrent
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return s.Get(ctx, id.String)
}

func scanProduction(scanner interface{ Scan(dest ...any) error }) (*production.Production, error) {
	var raw string
	if err := scanner.Scan(&raw); err != nil {
		return nil, err
	}
	var rec production.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode production record: %w", err)
	}
	return production.FromRecord(rec)
}
