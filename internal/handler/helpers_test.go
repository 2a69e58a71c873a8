package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"casefile/internal/auth"
	"casefile/internal/domain/models"
	editingModels "casefile/internal/domain/models/editing"
	editingSvc "casefile/internal/domain/services/editing"
	"casefile/internal/httputil"
	"casefile/internal/middleware"
	"casefile/internal/repository/memory"
	editingService "casefile/internal/service/editing"
	"casefile/internal/session"
	"casefile/internal/storage/blob"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testSecret        = "handler-test-secret"
	testInternalToken = "internal-test-token"
)

var testUsers = map[string]string{
	"alice": "Alice",
	"bob":   "Bob",
	"carol": "Carol",
}

type testServer struct {
	t        *testing.T
	handler  http.Handler
	blobs    *blob.MemoryStore
	versions editingSvc.VersionService
	registry *session.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.NewStore()
	blobs := blob.NewMemoryStore(3*time.Hour, 5*time.Hour)
	coordinator := editingService.NewCoordinator(&editingService.Config{
		Documents: store.Documents(),
		Locks:     store.Locks(),
		Versions:  store.Versions(),
		Content:   blobs,
		TxManager: store.TxManager(),
		LockTTL:   2 * time.Minute,
		Logger:    logger,
	})
	locks := editingService.NewLockService(coordinator)
	versions := editingService.NewVersionService(coordinator)
	tiers := editingService.NewTierService(coordinator)

	registry := session.NewRegistry(time.Hour, nil, logger)
	t.Cleanup(func() { registry.CloseAll(context.Background()) })

	verifier, err := auth.NewHMACVerifier(testSecret, logger)
	require.NoError(t, err)

	router := NewRouter(&Handlers{
		Documents: NewDocumentHandler(versions, logger),
		Locks:     NewLockHandler(locks, logger),
		Versions:  NewVersionHandler(versions, logger),
		Tiers:     NewTierHandler(tiers, logger),
		Sessions: NewSessionHandler(locks, versions, registry, SessionConfig{
			AutosaveDelay:     time.Hour,
			HeartbeatInterval: time.Hour,
		}, logger),
	}, testInternalToken)

	return &testServer{
		t:        t,
		handler:  middleware.AuthMiddleware(verifier)(router),
		blobs:    blobs,
		versions: versions,
		registry: registry,
	}
}

func testToken(t *testing.T, userID string) string {
	t.Helper()
	claims := &models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role:         "authenticated",
		UserMetadata: map[string]any{"full_name": testUsers[userID]},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

// request describes one call; empty user sends no token
type request struct {
	method  string
	path    string
	user    string
	session string
	body    interface{}
	bearer  string // overrides the user token
}

func (s *testServer) do(req request) *httptest.ResponseRecorder {
	s.t.Helper()
	var body io.Reader
	if req.body != nil {
		if raw, ok := req.body.(string); ok {
			body = bytes.NewBufferString(raw)
		} else {
			payload, err := json.Marshal(req.body)
			require.NoError(s.t, err)
			body = bytes.NewReader(payload)
		}
	}

	r := httptest.NewRequest(req.method, req.path, body)
	switch {
	case req.bearer != "":
		r.Header.Set("Authorization", "Bearer "+req.bearer)
	case req.user != "":
		r.Header.Set("Authorization", "Bearer "+testToken(s.t, req.user))
	}
	if req.session != "" {
		r.Header.Set(httputil.SessionHeader, req.session)
	}
	if req.body != nil {
		r.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// createDocument creates a document owned by alice
func (s *testServer) createDocument(content string) *editingModels.Document {
	s.t.Helper()
	rec := s.do(request{
		method: http.MethodPost,
		path:   "/api/documents",
		user:   "alice",
		body:   map[string]string{"name": "Engagement Letter", "content": content},
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[DocumentWithVersion](s.t, rec).Document
}

func (s *testServer) acquire(documentID, user, sessionID string) {
	s.t.Helper()
	rec := s.do(request{method: http.MethodPost, path: "/api/documents/" + documentID + "/lock", user: user, session: sessionID})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
}

func (s *testServer) saveVersion(documentID, user, sessionID, content string) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.do(request{
		method:  http.MethodPost,
		path:    "/api/documents/" + documentID + "/versions",
		user:    user,
		session: sessionID,
		body:    map[string]string{"content": content},
	})
}
