package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgSearch implements Searcher with a plain ILIKE scan over people. It is
// the fallback when Meilisearch is unavailable.
type PgSearch struct {
	db *sql.DB
}

// NewPgSearch creates a Postgres searcher.
func NewPgSearch(db *sql.DB) *PgSearch {
	return &PgSearch{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgSearch) Healthy() bool {
	return true
}

// Search matches the query text against the person's assembled name and
// title, case-insensitively, scoped to the owning user.
func (p *PgSearch) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + q.Text + "%"

	where := `user_id = $1 AND (
		trim(concat_ws(' ', first_name, nullif(middle_name, ''), nullif(last_name, ''))) ILIKE $2
		OR coalesce(title, '') ILIKE $2
	)`

	var total int
	countSQL := "SELECT count(*) FROM people WHERE " + where
	if err := p.db.QueryRowContext(ctx, countSQL, q.UserID, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count people search: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT id,
			trim(concat_ws(' ', first_name, nullif(middle_name, ''), nullif(last_name, ''))),
			coalesce(title, '')
		FROM people
		WHERE %s
		ORDER BY last_name NULLS LAST, first_name
		LIMIT %d`, where, limit)

	rows, err := p.db.QueryContext(ctx, dataSQL, q.UserID, pattern)
	if err != nil {
		return nil, 0, fmt.Errorf("query people search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Name, &r.Title); err != nil {
			return nil, 0, fmt.Errorf("scan people search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate people search rows: %w", err)
	}
	return results, total, nil
}
