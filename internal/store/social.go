package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"kith/api/internal/social"
)

// UpsertOrDeleteSocialLink trims the handle and either removes the binding
// (blank handle, idempotent) or upserts it on the (user, person, platform)
// uniqueness key.
func (s *PostgresStore) UpsertOrDeleteSocialLink(ctx context.Context, userID, personID string, platform social.Platform, handle string, connectedAt *time.Time) error {
	trimmed := strings.TrimSpace(handle)
	if trimmed == "" {
		if _, err := s.db.ExecContext(ctx, `
			DELETE FROM social_links
			WHERE user_id=$1 AND person_id=$2 AND platform=$3
		`, userID, personID, platform); err != nil {
			return persistErr("delete social link", err)
		}
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO social_links (user_id, person_id, platform, handle, connected_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, person_id, platform)
		DO UPDATE SET handle=EXCLUDED.handle, connected_at=EXCLUDED.connected_at
	`, userID, personID, platform, trimmed, connectedAt); err != nil {
		return persistErr("upsert social link", err)
	}
	return nil
}

// FindPersonIDBySocialHandle resolves a handle to a person id. A blank
// trimmed handle short-circuits to "" without querying; a miss returns ""
// rather than an error.
func (s *PostgresStore) FindPersonIDBySocialHandle(ctx context.Context, userID string, platform social.Platform, handle string) (string, error) {
	trimmed := strings.TrimSpace(handle)
	if trimmed == "" {
		return "", nil
	}
	var personID string
	err := s.db.QueryRowContext(ctx, `
		SELECT person_id FROM social_links
		WHERE user_id=$1 AND platform=$2 AND handle=$3
	`, userID, platform, trimmed).Scan(&personID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", persistErr("find person by handle", err)
	}
	return personID, nil
}

// AttachSocial loads per-platform handles for every requested person id.
// Rows whose stored platform is not recognized are skipped so newer data
// never breaks older readers.
func (s *PostgresStore) AttachSocial(ctx context.Context, userID string, personIDs []string) (map[string]social.Links, error) {
	result := make(map[string]social.Links, len(personIDs))
	if len(personIDs) == 0 {
		return result, nil
	}
	for _, id := range personIDs {
		result[id] = social.Links{}
	}

	args := make([]any, 0, len(personIDs)+1)
	args = append(args, userID)
	for _, id := range personIDs {
		args = append(args, id)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT person_id, platform, handle
		FROM social_links
		WHERE user_id=$1 AND person_id IN (`+placeholders(2, len(personIDs))+`)
	`, args...)
	if err != nil {
		return nil, persistErr("list social links", err)
	}
	defer rows.Close()

	for rows.Next() {
		var personID, rawPlatform, handle string
		if err := rows.Scan(&personID, &rawPlatform, &handle); err != nil {
			return nil, persistErr("scan social link", err)
		}
		platform, ok := social.ParsePlatform(rawPlatform)
		if !ok {
			continue
		}
		links := result[personID]
		links.Set(platform, handle)
		result[personID] = links
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate social links", err)
	}
	return result, nil
}

// FindPeopleByLinkedInHandles maps each given handle to the owning person
// id, for batch duplicate checks during import. Absent handles are simply
// not in the result.
func (s *PostgresStore) FindPeopleByLinkedInHandles(ctx context.Context, userID string, handles []string) (map[string]string, error) {
	result := make(map[string]string, len(handles))
	if len(handles) == 0 {
		return result, nil
	}

	args := make([]any, 0, len(handles)+2)
	args = append(args, userID, social.LinkedIn)
	for _, handle := range handles {
		args = append(args, handle)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT handle, person_id
		FROM social_links
		WHERE user_id=$1 AND platform=$2 AND handle IN (`+placeholders(3, len(handles))+`)
	`, args...)
	if err != nil {
		return nil, persistErr("find people by linkedin handles", err)
	}
	defer rows.Close()

	for rows.Next() {
		var handle, personID string
		if err := rows.Scan(&handle, &personID); err != nil {
			return nil, persistErr("scan linkedin handle", err)
		}
		result[handle] = personID
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate linkedin handles", err)
	}
	return result, nil
}
