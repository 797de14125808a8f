package store

import (
	"context"
	"database/sql"
)

func (s *PostgresStore) InsertGroup(ctx context.Context, group Group) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO groups (id, user_id, name) VALUES ($1, $2, $3)
	`, group.ID, group.UserID, group.Name)
	if err != nil {
		return persistErr("insert group", err)
	}
	return nil
}

func (s *PostgresStore) ListGroups(ctx context.Context, userID string) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.user_id, g.name, g.created_at,
			(SELECT COUNT(*) FROM group_members gm WHERE gm.group_id=g.id) AS member_count
		FROM groups g
		WHERE g.user_id=$1
		ORDER BY g.name ASC
	`, userID)
	if err != nil {
		return nil, persistErr("list groups", err)
	}
	defer rows.Close()

	items := make([]Group, 0)
	for rows.Next() {
		var item Group
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.CreatedAt, &item.MemberCount); err != nil {
			return nil, persistErr("scan group", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate groups", err)
	}
	return items, nil
}

func (s *PostgresStore) DeleteGroup(ctx context.Context, userID, groupID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM groups WHERE user_id=$1 AND id=$2`, userID, groupID)
	if err != nil {
		return persistErr("delete group", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return persistErr("delete group rows", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) AddGroupMember(ctx context.Context, userID, groupID, personID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_members (group_id, person_id)
		SELECT g.id, p.id
		FROM groups g, people p
		WHERE g.id=$2 AND g.user_id=$1 AND p.id=$3 AND p.user_id=$1
		ON CONFLICT (group_id, person_id) DO NOTHING
	`, userID, groupID, personID)
	if err != nil {
		return persistErr("add group member", err)
	}
	return nil
}

func (s *PostgresStore) RemoveGroupMember(ctx context.Context, userID, groupID, personID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM group_members gm
		USING groups g
		WHERE gm.group_id=g.id AND g.user_id=$1 AND gm.group_id=$2 AND gm.person_id=$3
	`, userID, groupID, personID)
	if err != nil {
		return persistErr("remove group member", err)
	}
	return nil
}

func (s *PostgresStore) ListGroupMemberIDs(ctx context.Context, userID, groupID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT gm.person_id
		FROM group_members gm
		JOIN groups g ON g.id=gm.group_id
		WHERE g.user_id=$1 AND gm.group_id=$2
		ORDER BY gm.added_at ASC
	`, userID, groupID)
	if err != nil {
		return nil, persistErr("list group members", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, persistErr("scan group member", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate group members", err)
	}
	return ids, nil
}

func (s *PostgresStore) InsertActivity(ctx context.Context, activity Activity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, user_id, person_id, kind, note, happened_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, activity.ID, activity.UserID, activity.PersonID, activity.Kind, activity.Note, activity.HappenedAt)
	if err != nil {
		return persistErr("insert activity", err)
	}
	return nil
}

func (s *PostgresStore) ListActivities(ctx context.Context, userID, personID string, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, person_id, kind, note, happened_at, created_at
		FROM activities
		WHERE user_id=$1 AND person_id=$2
		ORDER BY happened_at DESC
		LIMIT $3
	`, userID, personID, limit)
	if err != nil {
		return nil, persistErr("list activities", err)
	}
	defer rows.Close()

	items := make([]Activity, 0)
	for rows.Next() {
		var item Activity
		if err := rows.Scan(&item.ID, &item.UserID, &item.PersonID, &item.Kind, &item.Note, &item.HappenedAt, &item.CreatedAt); err != nil {
			return nil, persistErr("scan activity", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate activities", err)
	}
	return items, nil
}
