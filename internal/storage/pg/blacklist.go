package pg

import (
	"fmt"

	"github.com/folio-dev/folio/internal/domain"
)

func (s *Storage) IsBlacklisted(email domain.Email) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM blacklist WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return exists, nil
}

// AddToBlacklist is idempotent: banning an already-banned email is a no-op,
// the original reason is preserved.
func (s *Storage) AddToBlacklist(email domain.Email, reason string) error {
	_, err := s.db.Exec(`
		INSERT INTO blacklist (email, reason) VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING`,
		email, reason,
	)
	if err != nil {
		return fmt.Errorf("failed to blacklist email: %w", err)
	}
	return nil
}

// RemoveFromBlacklist reports whether a row was actually deleted.
func (s *Storage) RemoveFromBlacklist(email domain.Email) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM blacklist WHERE email = $1`, email)
	if err != nil {
		return false, fmt.Errorf("failed to remove from blacklist: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected > 0, nil
}

// BlacklistEntries returns all banned emails, newest first.
func (s *Storage) BlacklistEntries() ([]domain.BlacklistEntry, error) {
	rows, err := s.db.Query(`
		SELECT email, reason, created_at FROM blacklist ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query blacklist: %w", err)
	}
	defer rows.Close()

	var entries []domain.BlacklistEntry
	for rows.Next() {
		var e domain.BlacklistEntry
		if err := rows.Scan(&e.Email, &e.Reason, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan blacklist entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blacklist: %w", err)
	}
	return entries, nil
}
