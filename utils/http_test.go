package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()
		data := map[string]string{"message": "test"}

		err := WriteJSON(w, http.StatusOK, data)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		err = json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, "test", response["message"])
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusNoContent, nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteOK(w, map[string]string{"result": "success"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)

	var response SuccessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, http.StatusOK, response.StatusCode)
	dataMap := response.Data.(map[string]interface{})
	assert.Equal(t, "success", dataMap["result"])
}

func TestWriteCreated(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteCreated(w, map[string]string{"id": "123"}))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"statusCode":201,"data":{"id":"123"}}`, w.Body.String())
}

func TestWriteNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	WriteNoContent(w)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name     string
		write    func(w http.ResponseWriter) error
		wantCode int
		wantBody string
	}{
		{
			name: "bad request with details",
			write: func(w http.ResponseWriter) error {
				return WriteBadRequest(w, "Password is incorrect!", map[string]interface{}{"field": "password"})
			},
			wantCode: http.StatusBadRequest,
			wantBody: `{"statusCode":400,"message":"Password is incorrect!","details":{"field":"password"}}`,
		},
		{
			name:     "unauthorized default message",
			write:    func(w http.ResponseWriter) error { return WriteUnauthorized(w, "") },
			wantCode: http.StatusUnauthorized,
			wantBody: `{"statusCode":401,"message":"Authentication required"}`,
		},
		{
			name: "forbidden",
			write: func(w http.ResponseWriter) error {
				return WriteForbidden(w, "Access Denied - You don't have permission to: edit room")
			},
			wantCode: http.StatusForbidden,
			wantBody: `{"statusCode":403,"message":"Access Denied - You don't have permission to: edit room"}`,
		},
		{
			name:     "not found falls back to status text",
			write:    func(w http.ResponseWriter) error { return WriteNotFound(w, "") },
			wantCode: http.StatusNotFound,
			wantBody: `{"statusCode":404,"message":"Not Found"}`,
		},
		{
			name:     "internal error default message",
			write:    func(w http.ResponseWriter) error { return WriteInternalServerError(w, "") },
			wantCode: http.StatusInternalServerError,
			wantBody: `{"statusCode":500,"message":"Internal server error"}`,
		},
		{
			name:     "arbitrary status",
			write:    func(w http.ResponseWriter) error { return WriteError(w, http.StatusNotImplemented, "", nil) },
			wantCode: http.StatusNotImplemented,
			wantBody: `{"statusCode":501,"message":"Not Implemented"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, tt.write(w))
			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Email string `json:"email"`
	}

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"email":"a@example.com"}`, false},
		{"empty", ``, true},
		{"malformed", `{"email":`, true},
		{"unknown field", `{"email":"a@example.com","admin":true}`, true},
		{"trailing object", `{"email":"a@example.com"}{"email":"b@example.com"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			var dst body
			err := DecodeJSON(r, &dst)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a@example.com", dst.Email)
		})
	}
}
