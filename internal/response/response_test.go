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

	"github.com/soundbridge-live/service-bookings/internal/domain"
)

func runError(t *testing.T, err error) (*httptest.ResponseRecorder, ErrorBody) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, err)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestError_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", domain.NewValidationError("amount must be positive"), http.StatusBadRequest},
		{"unauthorized", domain.NewUnauthorizedError("token expired"), http.StatusUnauthorized},
		{"forbidden", domain.NewForbiddenError("not your booking"), http.StatusForbidden},
		{"not found", domain.NewNotFoundError("booking", "abc"), http.StatusNotFound},
		{"conflict", domain.NewConflictError("stale version"), http.StatusConflict},
		{"finalized", domain.NewFinalizedError("cancelled"), http.StatusBadRequest},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := runError(t, tc.err)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestError_InvalidTransitionCarriesStates(t *testing.T) {
	w, body := runError(t, domain.NewInvalidTransitionError("pending", "completed"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "pending", body.From)
	assert.Equal(t, "completed", body.To)
}

func TestError_InternalErrorIsOpaque(t *testing.T) {
	_, body := runError(t, errors.New("pq: password authentication failed"))
	assert.Equal(t, "internal server error", body.Error)
}
