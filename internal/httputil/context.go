package httputil

import (
	"context"
	"net/http"
)

// Context key type to avoid collisions
type contextKey string

const (
	userIDKey   contextKey = "userID"
	userNameKey contextKey = "userName"
)

// SessionHeader carries the client's edit session id on lock-gated requests
const SessionHeader = "X-Edit-Session"

// WithUser adds the authenticated user to the request context
func WithUser(r *http.Request, userID, userName string) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	ctx = context.WithValue(ctx, userNameKey, userName)
	return r.WithContext(ctx)
}

// GetUserID retrieves userID from context, returns empty string if not found
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

// GetUserName retrieves the display name, falling back to the user id
func GetUserName(r *http.Request) string {
	if name, _ := r.Context().Value(userNameKey).(string); name != "" {
		return name
	}
	return GetUserID(r)
}

// GetSessionID returns the edit session id sent by the client
func GetSessionID(r *http.Request) string {
	return r.Header.Get(SessionHeader)
}
