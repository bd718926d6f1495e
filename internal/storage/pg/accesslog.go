package pg

import (
	"fmt"

	"github.com/folio-dev/folio/internal/domain"
)

// LogAccess appends one row to the audit log. The log is append-only; there
// is deliberately no update or delete path.
func (s *Storage) LogAccess(entry domain.AccessLogEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO access_logs (uuid, email, name, ip, user_agent, payload)
		VALUES (NULLIF($1, ''), NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6)`,
		entry.Uuid, entry.Email, entry.Name, entry.IP, entry.UserAgent, entry.Payload,
	)
	if err != nil {
		return fmt.Errorf("failed to write access log: %w", err)
	}
	return nil
}
