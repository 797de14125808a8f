package store

import (
	"context"

	"golang.org/x/sync/errgroup"

	"kith/api/internal/channel"
)

// ReplaceChannels swaps a person's stored entries of one channel kind for
// the supplied complete list. Delete and insert run in a single transaction
// so a failed insert never leaves the person without channels. Entry order
// is preserved through sort_order = slice index.
func (s *PostgresStore) ReplaceChannels(ctx context.Context, userID, personID string, kind channel.Kind, entries []ChannelRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin replace channels", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM contact_channels
		WHERE user_id=$1 AND person_id=$2 AND kind=$3
	`, userID, personID, kind); err != nil {
		return persistErr("delete channels", err)
	}

	for i, entry := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO contact_channels (user_id, person_id, kind, prefix, value, channel_type, preferred, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, userID, personID, kind, entry.Prefix, entry.Value, entry.Type, entry.Preferred, i); err != nil {
			return persistErr("insert channel", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return persistErr("commit replace channels", err)
	}
	return nil
}

// AttachChannels loads phones and emails for every requested person id.
// Every id gets an entry, even those without rows; an empty id list returns
// an empty map without querying. The two kind queries run concurrently.
func (s *PostgresStore) AttachChannels(ctx context.Context, userID string, personIDs []string) (map[string]ChannelSet, error) {
	result := make(map[string]ChannelSet, len(personIDs))
	if len(personIDs) == 0 {
		return result, nil
	}
	for _, id := range personIDs {
		result[id] = ChannelSet{Phones: []ChannelRow{}, Emails: []ChannelRow{}}
	}

	var phones, emails map[string][]ChannelRow
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		phones, err = s.listChannelRows(groupCtx, userID, personIDs, channel.KindPhone)
		return err
	})
	group.Go(func() error {
		var err error
		emails, err = s.listChannelRows(groupCtx, userID, personIDs, channel.KindEmail)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	for id := range result {
		set := result[id]
		if rows, ok := phones[id]; ok {
			set.Phones = rows
		}
		if rows, ok := emails[id]; ok {
			set.Emails = rows
		}
		result[id] = set
	}
	return result, nil
}

func (s *PostgresStore) listChannelRows(ctx context.Context, userID string, personIDs []string, kind channel.Kind) (map[string][]ChannelRow, error) {
	args := make([]any, 0, len(personIDs)+2)
	args = append(args, userID, kind)
	for _, id := range personIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT person_id, prefix, value, channel_type, preferred
		FROM contact_channels
		WHERE user_id=$1 AND kind=$2 AND person_id IN (`+placeholders(3, len(personIDs))+`)
		ORDER BY sort_order ASC, created_at ASC
	`, args...)
	if err != nil {
		return nil, persistErr("list channels", err)
	}
	defer rows.Close()

	byPerson := make(map[string][]ChannelRow)
	for rows.Next() {
		var personID string
		var entry ChannelRow
		if err := rows.Scan(&personID, &entry.Prefix, &entry.Value, &entry.Type, &entry.Preferred); err != nil {
			return nil, persistErr("scan channel", err)
		}
		byPerson[personID] = append(byPerson[personID], entry)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate channels", err)
	}
	return byPerson, nil
}
