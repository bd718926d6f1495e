package utils

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_errors "github.com/folio-dev/folio/internal/errors"
)

func TestWriteErrorAndStatusCode(t *testing.T) {
	t.Run("status-carrying error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteErrorAndStatusCode(rr, &internal_errors.ErrorWithStatusCode{Message: "Access denied", StatusCode: http.StatusForbidden})

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "Access denied\n", rr.Body.String())
	})

	t.Run("plain error defaults to 500", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteErrorAndStatusCode(rr, errors.New("boom"))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestGetIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
		wantErr    bool
	}{
		{"host and port", "10.1.2.3:4567", nil, "10.1.2.3", false},
		{"bare ip", "10.1.2.3", nil, "10.1.2.3", false},
		{"ipv6", "[::1]:8080", nil, "::1", false},
		{"garbage", "not-an-ip", nil, "", true},
		{
			name:       "proxy headers are not trusted",
			remoteAddr: "10.1.2.3:4567",
			headers:    map[string]string{"X-Forwarded-For": "99.99.99.99"},
			want:       "10.1.2.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			ip, err := GetIP(r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ip)
		})
	}
}

func TestDecodeValidate(t *testing.T) {
	type payload struct {
		Email string `json:"email" validate:"required,email"`
		Name  string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"email": "a@b.c", "name": "A"}`, false},
		{"invalid json", `{`, true},
		{"missing required field", `{"name": "A"}`, true},
		{"invalid email format", `{"email": "nope"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			err := DecodeValidate(io.NopCloser(strings.NewReader(tt.body)), &p)
			if tt.wantErr {
				require.Error(t, err)
				var statusErr *internal_errors.ErrorWithStatusCode
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
