package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/voice-interviewer/backend/internal/apperror"
)

func TestRespondAppError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   ErrorBody
	}{
		{
			name:   "not found",
			err:    apperror.Wrap(apperror.KindNotFound, "op", "session not found", errors.New("session not found")),
			status: http.StatusNotFound,
			body:   ErrorBody{Error: "session not found", Kind: "not_found", Detail: "session not found"},
		},
		{
			name:   "provider failure",
			err:    apperror.Wrap(apperror.KindGeneration, "op", "failed to generate reply", errors.New("429 too many requests")),
			status: http.StatusBadGateway,
			body:   ErrorBody{Error: "failed to generate reply", Kind: "generation_failure", Detail: "429 too many requests"},
		},
		{
			name:   "unclassified",
			err:    errors.New("disk full"),
			status: http.StatusInternalServerError,
			body:   ErrorBody{Error: "internal error", Kind: "internal", Detail: "disk full"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondAppError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusBadRequest, apperror.KindValidation, "session_id is required")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"session_id is required","kind":"validation_failure"}`, rec.Body.String())
}
