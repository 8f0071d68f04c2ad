package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SemenBogdanov/dpms-system/internal/api/shared"
	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/service"
)

func TestGetPathUUID(t *testing.T) {
	validUUID := uuid.New()

	tests := []struct {
		name        string
		urlParam    string
		expectError bool
		expectedID  uuid.UUID
	}{
		{
			name:        "valid UUID parameter",
			urlParam:    validUUID.String(),
			expectError: false,
			expectedID:  validUUID,
		},
		{
			name:        "invalid UUID format",
			urlParam:    "not-a-uuid",
			expectError: true,
			expectedID:  uuid.Nil,
		},
		{
			name:        "empty parameter",
			urlParam:    "",
			expectError: true,
			expectedID:  uuid.Nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tc.urlParam)
			req := httptest.NewRequest(http.MethodGet, "/tasks/"+tc.urlParam, nil)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			id, err := getPathUUID(req, "id")
			if tc.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.expectedID, id)
		})
	}
}

func TestGetActor(t *testing.T) {
	t.Run("actor present", func(t *testing.T) {
		want := service.Actor{ID: uuid.New(), Role: domain.RoleExecutor, League: domain.LeagueB}
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req = req.WithContext(context.WithValue(req.Context(), shared.ActorContextKey, want))
		rec := httptest.NewRecorder()

		actor, ok := getActor(rec, req)
		require.True(t, ok)
		assert.Equal(t, want, actor)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing actor writes 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		rec := httptest.NewRecorder()

		_, ok := getActor(rec, req)
		require.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestDecodeAndValidate(t *testing.T) {
	type body struct {
		Title string `json:"title" validate:"required"`
	}

	t.Run("well-formed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewBufferString(`{"title":"Build widget"}`))
		rec := httptest.NewRecorder()

		var v body
		require.True(t, decodeAndValidate(rec, req, &v))
		assert.Equal(t, "Build widget", v.Title)
	})

	t.Run("malformed JSON writes 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewBufferString(`{"title":`))
		rec := httptest.NewRecorder()

		var v body
		require.False(t, decodeAndValidate(rec, req, &v))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("failing validation writes 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewBufferString(`{}`))
		rec := httptest.NewRecorder()

		var v body
		require.False(t, decodeAndValidate(rec, req, &v))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
