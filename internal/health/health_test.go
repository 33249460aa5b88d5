package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceMock struct{ connected bool }

func (m sourceMock) Connected() bool { return m.connected }

func init() {
	gin.SetMode(gin.TestMode)
}

func TestLive(t *testing.T) {
	t.Parallel()

	s := NewServer(":0", sourceMock{}, zerolog.Nop())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bot is alive", rec.Body.String())
}

func TestHealth_ReportsConnection(t *testing.T) {
	t.Parallel()

	for _, connected := range []bool{true, false} {
		s := NewServer(":0", sourceMock{connected: connected}, zerolog.Nop())
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp Response
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "ok", resp.Status)
		assert.False(t, resp.Timestamp.IsZero())
		if connected {
			assert.Equal(t, "online", resp.WhatsApp)
		} else {
			assert.Equal(t, "offline", resp.WhatsApp)
		}
	}
}

func TestHealth_UnknownPath(t *testing.T) {
	t.Parallel()

	s := NewServer(":0", nil, zerolog.Nop())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
