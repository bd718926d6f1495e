package pg

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/folio-dev/folio/internal/domain"
	internal_errors "github.com/folio-dev/folio/internal/errors"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const userColumns = `uuid, COALESCE(email, ''), name, access_level, notes, created_at, last_seen`

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.Uuid, &u.Email, &u.Name, &u.AccessLevel, &u.Notes, &u.CreatedAt, &u.LastSeen)
	if err == sql.ErrNoRows {
		return domain.User{}, &internal_errors.ErrorWithStatusCode{Message: "User not found", StatusCode: http.StatusNotFound}
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}

// SaveUser inserts a new user row. A duplicate email surfaces as a 409 so
// the caller can re-resolve the winning identity.
func (s *Storage) SaveUser(user domain.User) error {
	_, err := s.db.Exec(`
		INSERT INTO users (uuid, email, name, access_level)
		VALUES ($1, NULLIF($2, ''), $3, $4)`,
		user.Uuid, user.Email, user.Name, user.AccessLevel,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return &internal_errors.ErrorWithStatusCode{Message: "User already exists", StatusCode: http.StatusConflict}
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *Storage) UserByEmail(email domain.Email) (domain.User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *Storage) UserByUuid(uuid domain.Uuid) (domain.User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE uuid = $1`, uuid)
	return scanUser(row)
}

// UserByToken resolves an opaque identity token, which historically may be
// either a visitor uuid or a raw email address.
func (s *Storage) UserByToken(token string) (domain.User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE uuid = $1 OR email = $1`, token)
	return scanUser(row)
}

// BackfillEmail fills in the email and name of a previously anonymous user
// and bumps last_seen.
func (s *Storage) BackfillEmail(uuid domain.Uuid, email domain.Email, name string) error {
	_, err := s.db.Exec(`
		UPDATE users SET email = NULLIF($2, ''), name = $3, last_seen = now()
		WHERE uuid = $1`,
		uuid, email, name,
	)
	if err != nil {
		return fmt.Errorf("failed to backfill user email: %w", err)
	}
	return nil
}

func (s *Storage) TouchLastSeen(uuid domain.Uuid) error {
	_, err := s.db.Exec(`UPDATE users SET last_seen = now() WHERE uuid = $1`, uuid)
	if err != nil {
		return fmt.Errorf("failed to bump last_seen: %w", err)
	}
	return nil
}

// Users returns the most recently seen users, newest first.
func (s *Storage) Users(limit int) ([]domain.User, error) {
	rows, err := s.db.Query(`
		SELECT `+userColumns+` FROM users ORDER BY last_seen DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.Uuid, &u.Email, &u.Name, &u.AccessLevel, &u.Notes, &u.CreatedAt, &u.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func (s *Storage) SetAccessLevel(uuid domain.Uuid, level int) error {
	result, err := s.db.Exec(`UPDATE users SET access_level = $2 WHERE uuid = $1`, uuid, level)
	if err != nil {
		return fmt.Errorf("failed to set access level: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return &internal_errors.ErrorWithStatusCode{Message: "User not found", StatusCode: http.StatusNotFound}
	}
	return nil
}

// SetAccessLevelByEmail updates the level of the user owning email, if any.
// Used by unsubscribe/whitelist flows where no user row is not an error.
func (s *Storage) SetAccessLevelByEmail(email domain.Email, level int) error {
	_, err := s.db.Exec(`UPDATE users SET access_level = $2 WHERE email = $1`, email, level)
	if err != nil {
		return fmt.Errorf("failed to set access level by email: %w", err)
	}
	return nil
}

func (s *Storage) DeleteUser(uuid domain.Uuid) error {
	result, err := s.db.Exec(`DELETE FROM users WHERE uuid = $1`, uuid)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return &internal_errors.ErrorWithStatusCode{Message: "User not found", StatusCode: http.StatusNotFound}
	}
	return nil
}
