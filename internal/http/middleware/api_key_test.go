package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callWithKey(t *testing.T, configured, sent string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if sent != "" {
		req.Header.Set("X-API-Key", sent)
	}
	rec := httptest.NewRecorder()

	reached := false
	h := APIKeyMiddleware(configured)(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec, reached
}

func TestAPIKeyEmptyConfigDisablesAuth(t *testing.T) {
	rec, reached := callWithKey(t, "", "")
	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyMissingHeader(t *testing.T) {
	rec, reached := callWithKey(t, "secret", "")
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyWrongKey(t *testing.T) {
	rec, reached := callWithKey(t, "secret", "nope")
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyCorrectKey(t *testing.T) {
	rec, reached := callWithKey(t, "secret", "secret")
	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
}
