package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-studio/internal/apperror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantField  string
	}{
		{"validation", apperror.ValidationFailed("title", "snippet title is required"), http.StatusBadRequest, "validation_error", "title"},
		{"unauthenticated", apperror.Unauthenticated("sign in"), http.StatusUnauthorized, "unauthenticated", ""},
		{"forbidden", apperror.Forbidden("not yours"), http.StatusForbidden, "forbidden", ""},
		{"not found", apperror.NotFound("snippet", "abc"), http.StatusNotFound, "not_found", ""},
		{"wrapped not found", fmt.Errorf("loading: %w", apperror.NotFound("snippet", "abc")), http.StatusNotFound, "not_found", ""},
		{"precondition", apperror.PreconditionFailed("no code"), http.StatusUnprocessableEntity, "precondition_failed", ""},
		{"upstream", apperror.Upstream("usage", errors.New("dial tcp")), http.StatusBadGateway, "upstream_error", ""},
		{"unknown", errors.New("sqlite: disk I/O error"), http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.wantKind, resp.Error)
			assert.Equal(t, tt.wantField, resp.Field)
			assert.NotContains(t, resp.Message, "sqlite")
			assert.NotContains(t, resp.Message, "dial tcp")
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Code string `json:"code"`
	}

	t.Run("empty body is allowed", func(t *testing.T) {
		var dst body
		r := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
		assert.NoError(t, decodeJSON(httptest.NewRecorder(), r, &dst))
	})

	t.Run("malformed", func(t *testing.T) {
		var dst body
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":`))
		err := decodeJSON(httptest.NewRecorder(), r, &dst)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("too large", func(t *testing.T) {
		var dst body
		big := `{"code":"` + strings.Repeat("x", maxBodyBytes) + `"}`
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		err := decodeJSON(httptest.NewRecorder(), r, &dst)
		require.ErrorIs(t, err, apperror.ErrValidation)
		assert.Contains(t, err.Error(), "exceeds")
	})
}
