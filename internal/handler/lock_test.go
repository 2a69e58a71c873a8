package handler

import (
	"net/http"
	"testing"

	editingModels "casefile/internal/domain/models/editing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockLifecycle(t *testing.T) {
	srv := newTestServer(t)
	doc := srv.createDocument("Dear client")
	lockPath := "/api/documents/" + doc.ID + "/lock"

	rec := srv.do(request{method: http.MethodGet, path: lockPath, user: "bob"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[LockStatus](t, rec).Locked)

	srv.acquire(doc.ID, "alice", "s-alice")

	// Another editor sees who holds it
	rec = srv.do(request{method: http.MethodPost, path: lockPath, user: "bob", session: "s-bob"})
	require.Equal(t, http.StatusLocked, rec.Code)
	problem := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "lock_held", problem["code"])
	assert.Equal(t, "Alice", problem["holder_name"])
	assert.Equal(t, "alice", problem["holder_id"])

	rec = srv.do(request{method: http.MethodGet, path: lockPath, user: "bob"})
	status := decode[LockStatus](t, rec)
	require.True(t, status.Locked)
	assert.Equal(t, "alice", status.Lock.HolderID)
	assert.NotContains(t, rec.Body.String(), "s-alice")

	// Heartbeats only work for the holder
	rec = srv.do(request{method: http.MethodPost, path: lockPath + "/heartbeat", user: "alice", session: "s-alice"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(request{method: http.MethodPost, path: lockPath + "/heartbeat", user: "bob", session: "s-bob"})
	require.Equal(t, http.StatusConflict, rec.Code)
	problem = decode[map[string]interface{}](t, rec)
	assert.Equal(t, "lock_not_held", problem["code"])
	assert.Equal(t, "Alice", problem["holder_name"])

	// Release is idempotent and frees the document
	rec = srv.do(request{method: http.MethodDelete, path: lockPath, user: "alice", session: "s-alice"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = srv.do(request{method: http.MethodDelete, path: lockPath, user: "alice", session: "s-alice"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(request{method: http.MethodGet, path: lockPath, user: "bob"})
	assert.False(t, decode[LockStatus](t, rec).Locked)

	srv.acquire(doc.ID, "bob", "s-bob")
}

func TestLock_SessionIDFromAnotherUserIsRejected(t *testing.T) {
	srv := newTestServer(t)
	doc := srv.createDocument("Dear client")
	docPath := "/api/documents/" + doc.ID
	lockPath := docPath + "/lock"
	srv.acquire(doc.ID, "alice", "s-alice")

	rec := srv.do(request{method: http.MethodGet, path: docPath, user: "bob"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "s-alice")

	rec = srv.saveVersion(doc.ID, "bob", "s-alice", "Dear opposing counsel")
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "lock_not_held", decode[map[string]interface{}](t, rec)["code"])

	rec = srv.do(request{method: http.MethodPost, path: lockPath + "/heartbeat", user: "bob", session: "s-alice"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(request{method: http.MethodDelete, path: lockPath, user: "bob", session: "s-alice"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(request{method: http.MethodGet, path: lockPath, user: "bob"})
	status := decode[LockStatus](t, rec)
	require.True(t, status.Locked)
	assert.Equal(t, "alice", status.Lock.HolderID)

	rec = srv.do(request{method: http.MethodGet, path: docPath + "/versions", user: "bob"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[VersionPage](t, rec).Versions, 1)
}

func TestLockRoutes_Validation(t *testing.T) {
	srv := newTestServer(t)
	doc := srv.createDocument("Dear client")
	lockPath := "/api/documents/" + doc.ID + "/lock"

	tests := []struct {
		name     string
		method   string
		path     string
		session  string
		wantCode int
	}{
		{"acquire without session", http.MethodPost, lockPath, "", http.StatusBadRequest},
		{"heartbeat without session", http.MethodPost, lockPath + "/heartbeat", "", http.StatusBadRequest},
		{"release without session", http.MethodDelete, lockPath, "", http.StatusBadRequest},
		{"bad release reason", http.MethodDelete, lockPath + "?reason=bored", "s1", http.StatusBadRequest},
		{"unknown document", http.MethodPost, "/api/documents/missing/lock", "s1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(request{method: tt.method, path: tt.path, user: "alice", session: tt.session})
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestReleaseLock_RecordsReason(t *testing.T) {
	srv := newTestServer(t)
	doc := srv.createDocument("Dear client")
	srv.acquire(doc.ID, "alice", "s1")

	rec := srv.do(request{
		method:  http.MethodDelete,
		path:    "/api/documents/" + doc.ID + "/lock?reason=" + string(editingModels.ReleaseSaveCompleted),
		user:    "alice",
		session: "s1",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
