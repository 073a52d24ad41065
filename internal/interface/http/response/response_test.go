package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
)

func run(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestOK_MergesPayload(t *testing.T) {
	w, body := run(t, func(c *gin.Context) { OK(c, gin.H{"mission": gin.H{"id": "m1"}}) })

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body, "mission")
}

func TestError_MapsTaxonomy(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperror.Validation("bad"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{apperror.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{apperror.Forbidden("no"), http.StatusForbidden, "FORBIDDEN"},
		{apperror.ErrMissionNotFound, http.StatusNotFound, "NOT_FOUND"},
		{apperror.ErrMissionTaken, http.StatusConflict, "CONFLICT"},
		{apperror.State("done"), http.StatusConflict, "STATE_ERROR"},
	}
	for _, tc := range cases {
		w, body := run(t, func(c *gin.Context) { Error(c, tc.err, false) })
		assert.Equal(t, tc.status, w.Code)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, tc.code, body["code"])
	}
}

func TestError_MasksUnknownErrors(t *testing.T) {
	_, masked := run(t, func(c *gin.Context) { Error(c, errors.New("pq: connection refused"), false) })
	assert.Equal(t, internalMessage, masked["error"])
	assert.Equal(t, "INTERNAL_ERROR", masked["code"])

	_, exposed := run(t, func(c *gin.Context) { Error(c, errors.New("pq: connection refused"), true) })
	assert.Equal(t, "pq: connection refused", exposed["error"])
}
