package pg

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-dev/folio/internal/domain"
	internal_errors "github.com/folio-dev/folio/internal/errors"
)

func TestCooldown(t *testing.T) {
	requireStorage(t)

	t.Run("missing key returns 404", func(t *testing.T) {
		truncateAll(t)

		_, err := storage.Cooldown("unsub_email:ghost@test.com")
		require.Error(t, err)

		var statusErr *internal_errors.ErrorWithStatusCode
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	})

	t.Run("upsert then read back", func(t *testing.T) {
		truncateAll(t)

		ts := time.Now().UTC().Truncate(time.Millisecond)
		require.NoError(t, storage.UpsertCooldown("unsub_email:alice@test.com", ts))

		got, err := storage.Cooldown("unsub_email:alice@test.com")
		require.NoError(t, err)
		assert.WithinDuration(t, ts, got, time.Millisecond)
	})

	t.Run("upsert overwrites existing timestamp", func(t *testing.T) {
		truncateAll(t)

		old := time.Now().UTC().Add(-24 * time.Hour)
		require.NoError(t, storage.UpsertCooldown("unsub_email:alice@test.com", old))

		fresh := time.Now().UTC().Truncate(time.Millisecond)
		require.NoError(t, storage.UpsertCooldown("unsub_email:alice@test.com", fresh))

		got, err := storage.Cooldown("unsub_email:alice@test.com")
		require.NoError(t, err)
		assert.WithinDuration(t, fresh, got, time.Millisecond)
	})
}

func TestLogAccess(t *testing.T) {
	requireStorage(t)
	truncateAll(t)

	err := storage.LogAccess(domain.AccessLogEntry{
		Uuid:      "uuid-1",
		Email:     "alice@test.com",
		Name:      "Portfolio View",
		IP:        "192.0.2.1",
		UserAgent: "test-agent",
		Payload:   `{"type":"contact"}`,
	})
	require.NoError(t, err)

	// Empty identity fields are fine, the row still lands.
	err = storage.LogAccess(domain.AccessLogEntry{IP: "192.0.2.2", UserAgent: "test-agent"})
	require.NoError(t, err)

	var count int
	require.NoError(t, storage.db.QueryRow(`SELECT COUNT(*) FROM access_logs`).Scan(&count))
	assert.Equal(t, 2, count)

	var email, name string
	err = storage.db.QueryRow(`
		SELECT COALESCE(email, ''), COALESCE(name, '') FROM access_logs WHERE ip = '192.0.2.1'`).
		Scan(&email, &name)
	require.NoError(t, err)
	assert.Equal(t, "alice@test.com", email)
	assert.Equal(t, "Portfolio View", name)
}
