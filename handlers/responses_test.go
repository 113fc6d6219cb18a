package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayCleanAPI/internal/apperr"
)

func TestRespondWithServiceErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"validation maps to 400", apperr.Validation("room name is required"), http.StatusBadRequest, "room name is required"},
		{"conflict maps to 409", apperr.Conflict("you already have an active streak"), http.StatusConflict, "you already have an active streak"},
		{"not found maps to 404", apperr.NotFound("room not found"), http.StatusNotFound, "room not found"},
		{"unknown maps to 500 with generic body", errors.New("pq: connection refused"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			respondWithServiceError(rr, tc.err)

			assert.Equal(t, tc.wantStatus, rr.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tc.wantBody, body["error"])
		})
	}
}

func TestRespondWithServiceErrorUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("leave room: %w", apperr.Validation("you are not in a room"))

	rr := httptest.NewRecorder()
	respondWithServiceError(rr, wrapped)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
