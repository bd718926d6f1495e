package pg

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	internal_errors "github.com/folio-dev/folio/internal/errors"
)

// Cooldown returns the last time the keyed action fired. 404 when it never
// has.
func (s *Storage) Cooldown(key string) (time.Time, error) {
	var ts time.Time
	err := s.db.QueryRow(`SELECT ts FROM cooldowns WHERE key = $1`, key).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, &internal_errors.ErrorWithStatusCode{Message: "Cooldown not found", StatusCode: http.StatusNotFound}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query cooldown: %w", err)
	}
	return ts, nil
}

func (s *Storage) UpsertCooldown(key string, ts time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO cooldowns (key, ts) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET ts = EXCLUDED.ts`,
		key, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cooldown: %w", err)
	}
	return nil
}
