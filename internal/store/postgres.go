package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash)
		VALUES ($1, LOWER($2), $3, $4)
	`, user.ID, user.Email, user.DisplayName, user.PasswordHash)
	if err != nil {
		return persistErr("create user", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM users
		WHERE email = LOWER($1)
	`, email).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

const personColumns = `
	id, user_id, first_name, COALESCE(middle_name, ''), COALESCE(last_name, ''),
	COALESCE(title, ''), avatar_key, imported_at, created_at, updated_at
`

func scanPerson(row interface{ Scan(...any) error }) (Person, error) {
	var item Person
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.FirstName,
		&item.MiddleName,
		&item.LastName,
		&item.Title,
		&item.AvatarKey,
		&item.ImportedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) InsertPerson(ctx context.Context, person Person) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO people (id, user_id, first_name, middle_name, last_name, title, avatar_key, imported_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8)
	`, person.ID, person.UserID, person.FirstName, person.MiddleName, person.LastName, person.Title, person.AvatarKey, person.ImportedAt)
	if err != nil {
		return persistErr("insert person", err)
	}
	return nil
}

func (s *PostgresStore) GetPerson(ctx context.Context, userID, personID string) (Person, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+personColumns+`
		FROM people
		WHERE user_id=$1 AND id=$2
	`, userID, personID)
	return scanPerson(row)
}

func (s *PostgresStore) ListPeople(ctx context.Context, userID string) ([]Person, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+personColumns+`
		FROM people
		WHERE user_id=$1
		ORDER BY first_name ASC, last_name ASC, created_at ASC
	`, userID)
	if err != nil {
		return nil, persistErr("list people", err)
	}
	defer rows.Close()

	items := make([]Person, 0)
	for rows.Next() {
		item, err := scanPerson(rows)
		if err != nil {
			return nil, persistErr("scan person", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate people", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdatePerson(ctx context.Context, person Person) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE people
		SET first_name=$3, middle_name=NULLIF($4, ''), last_name=NULLIF($5, ''),
			title=NULLIF($6, ''), updated_at=NOW()
		WHERE user_id=$1 AND id=$2
	`, person.UserID, person.ID, person.FirstName, person.MiddleName, person.LastName, person.Title)
	if err != nil {
		return persistErr("update person", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return persistErr("update person rows", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeletePerson(ctx context.Context, userID, personID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM people WHERE user_id=$1 AND id=$2`, userID, personID)
	if err != nil {
		return persistErr("delete person", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return persistErr("delete person rows", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) SetPersonAvatarKey(ctx context.Context, userID, personID, key string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE people SET avatar_key=$3, updated_at=NOW() WHERE user_id=$1 AND id=$2
	`, userID, personID, key)
	if err != nil {
		return persistErr("set avatar key", err)
	}
	return nil
}

// IsNotFound reports whether err is the row-absence sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// placeholders builds "$start, $start+1, ..." for IN clauses.
func placeholders(start, count int) string {
	out := ""
	for i := 0; i < count; i++ {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("$%d", start+i)
	}
	return out
}
