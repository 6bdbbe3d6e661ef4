package httpx

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/oauth"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/quick-forms/database"
	"github.com/mbolis/quick-forms/log"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"10.0.0.1:5555", "10.0.0.1"},
		{"[::1]:80", "::1"},
		{"10.0.0.2", "10.0.0.2"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remote
		assert.Equal(t, tt.want, ClientIP(r), tt.remote)
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"), "burst exhausted")
	assert.True(t, rl.Allow("b"), "limits are per IP")

	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("a"), "one token refilled")

	now = now.Add(10 * time.Minute)
	rl.Allow("c")
	assert.NotContains(t, rl.visitors, "b", "stale visitors are dropped")
	assert.Contains(t, rl.visitors, "c")
}

func TestRateLimit_Middleware(t *testing.T) {
	h := RateLimit(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusNoContent, do().Code)
	w := do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimit_Disabled(t *testing.T) {
	h := RateLimit(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for i := 0; i < 100; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestRequestLogger(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		fmt.Fprint(w, "short and stout")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pot", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "short and stout", w.Body.String())
}

func TestRequestLogger_Output(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
	})

	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Contains(t, buf.String(), "http.request")
	assert.Contains(t, buf.String(), "status=404")
	assert.Contains(t, buf.String(), "path=/nowhere")

	buf.Reset()
	log.SetLevel(log.ErrorLevel)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Empty(t, buf.String(), "warnings are muted above their level")
}

func TestResponseBuffer(t *testing.T) {
	buf := NewResponseBuffer()
	assert.Equal(t, 0, buf.Status())

	buf.Header().Set("x-test", "1")
	buf.Write([]byte(`{"a":1}`))
	assert.Equal(t, http.StatusOK, buf.Status(), "implicit status")

	var body map[string]int
	require.NoError(t, buf.DecodeJSON(&body))
	assert.Equal(t, map[string]int{"a": 1}, body)

	w := httptest.NewRecorder()
	require.NoError(t, buf.Flush(w))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("x-test"))
	assert.Equal(t, `{"a":1}`, w.Body.String())

	buf = NewResponseBuffer()
	buf.WriteHeader(http.StatusUnauthorized)
	buf.WriteHeader(http.StatusOK)
	assert.Equal(t, http.StatusUnauthorized, buf.Status(), "first status wins")
}

func TestLogValidation(t *testing.T) {
	var err *multierror.Error
	err = multierror.Append(err, errors.New("title: must not be blank"), errors.New("fields: at least one field is required"))

	w := httptest.NewRecorder()
	LogValidation(w, httptest.NewRequest(http.MethodPost, "/", nil), "test.validate", err)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body struct {
		Problems []string `json:"problems"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"title: must not be blank", "fields: at least one field is required"}, body.Problems)
}

func TestLogDBError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("form x: %w", database.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("form x: %w", database.ErrConflict), http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		LogDBError(w, "test.db", "x", tt.err)
		assert.Equal(t, tt.want, w.Code, tt.err.Error())
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCredentialsVerifier(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, database.UpsertUser(ctx, db, "alice", "s3cret", database.RoleAdmin, database.RolePresident))

	cv := CredentialsVerifier(db)
	r := httptest.NewRequest(http.MethodPost, "/", nil)

	assert.NoError(t, cv.ValidateUser("alice", "s3cret", "", r))
	assert.Error(t, cv.ValidateUser("alice", "nope", "", r))
	assert.Error(t, cv.ValidateUser("bob", "s3cret", "", r))
	assert.Error(t, cv.ValidateClient("client", "secret", "", r))

	claims, err := cv.AddClaims(oauth.BearerToken, "alice", "t1", "", r)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"roles": "admin,president"}, claims)

	require.NoError(t, cv.StoreTokenID(oauth.BearerToken, "alice", "t1", "r1"))
	assert.NoError(t, cv.ValidateTokenID(oauth.BearerToken, "alice", "t1", "r1"))
	assert.Error(t, cv.ValidateTokenID(oauth.BearerToken, "alice", "t1", "r1"), "single use")
}
