package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"casefile/internal/domain"
	editingSvc "casefile/internal/domain/services/editing"
	"casefile/internal/httputil"
	"casefile/internal/session"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
	maxMessage = 24 << 20
)

// Client -> server message types
const (
	msgEdit  = "edit"
	msgSave  = "save"
	msgRetry = "retry"
	msgClose = "close"
)

// Server -> client message types
const (
	msgState  = "state"
	msgError  = "error"
	msgClosed = "closed"
)

// clientMessage is one frame sent by the editor
type clientMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Save    bool   `json:"save,omitempty"` // close only: save pending edits first
}

// serverMessage is one frame pushed to the editor
type serverMessage struct {
	Type     string                         `json:"type"`
	Snapshot *session.Snapshot              `json:"snapshot,omitempty"`
	Content  *string                        `json:"content,omitempty"`
	Result   *editingSvc.CreateVersionResult `json:"result,omitempty"`
	Error    string                         `json:"error,omitempty"`
	Code     string                         `json:"code,omitempty"`
}

// SessionConfig carries the timings sessions are created with
type SessionConfig struct {
	AutosaveDelay     time.Duration
	HeartbeatInterval time.Duration
	Timers            session.Timers
	AllowedOrigins    []string
}

// SessionHandler serves edit sessions over websockets. A session outlives
// its socket: a client that reconnects with the same session_id picks up
// where it left off until the registry expires the session.
type SessionHandler struct {
	locks    editingSvc.LockService
	versions editingSvc.VersionService
	registry *session.Registry
	cfg      SessionConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]*wsClient // session id -> attached socket
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	locks editingSvc.LockService,
	versions editingSvc.VersionService,
	registry *session.Registry,
	cfg SessionConfig,
	logger *slog.Logger,
) *SessionHandler {
	h := &SessionHandler{
		locks:    locks,
		versions: versions,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		clients:  make(map[string]*wsClient),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *SessionHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// wsClient is one attached socket
type wsClient struct {
	conn      *websocket.Conn
	send      chan serverMessage
	done      chan struct{}
	closeOnce sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan serverMessage, sendBuffer),
		done: make(chan struct{}),
	}
}

// push queues a message, dropping it if the socket is gone or backed up.
// State frames are full snapshots so a dropped one is superseded by the next.
func (c *wsClient) push(msg serverMessage) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
	}
}

func (c *wsClient) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.shutdown()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}
		case <-c.done:
			// Flush what is queued so a final "closed" frame reaches the client
			for {
				select {
				case msg := <-c.send:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteJSON(msg); err != nil {
						return
					}
				default:
					c.conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(writeWait))
					return
				}
			}
		}
	}
}

// Connect upgrades the request and attaches it to a new or resumed session
// GET /api/documents/{id}/session?session_id=
func (h *SessionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	userID := httputil.GetUserID(r)
	userName := httputil.GetUserName(r)
	sessionID := r.URL.Query().Get("session_id")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Warn("websocket upgrade failed", "document_id", documentID, "error", err)
		return
	}

	client := newWSClient(conn)
	go client.writePump()

	sess, err := h.attach(r.Context(), client, documentID, userID, userName, sessionID)
	if err != nil {
		client.push(errorMessage(err))
		client.shutdown()
		return
	}

	content := sess.Content()
	snap := sess.Snapshot()
	client.push(serverMessage{Type: msgState, Snapshot: &snap, Content: &content})

	h.readPump(r.Context(), client, sess)
}

// attach resumes a registered session owned by the same user and document,
// or opens a new one
func (h *SessionHandler) attach(ctx context.Context, client *wsClient, documentID, userID, userName, sessionID string) (*session.EditSession, error) {
	if sessionID != "" {
		if sess, ok := h.registry.Get(sessionID); ok {
			if sess.UserID() != userID || sess.DocumentID() != documentID {
				return nil, &domain.ConflictError{
					Message:      "session belongs to another user or document",
					ResourceType: "session",
					ResourceID:   sessionID,
				}
			}
			h.setClient(sessionID, client)
			h.logger.Info("session resumed", "session_id", sessionID, "document_id", documentID)
			return sess, nil
		}
	} else {
		sessionID = uuid.NewString()
	}

	sess := session.New(session.Config{
		DocumentID:        documentID,
		UserID:            userID,
		UserName:          userName,
		SessionID:         sessionID,
		Locks:             h.locks,
		Versions:          h.versions,
		Timers:            h.cfg.Timers,
		AutosaveDelay:     h.cfg.AutosaveDelay,
		HeartbeatInterval: h.cfg.HeartbeatInterval,
		Observer:          h.publish,
		Logger:            h.logger,
	})

	h.setClient(sessionID, client)
	if _, err := sess.Open(ctx); err != nil {
		h.detach(sessionID, client)
		return nil, err
	}
	if !h.registry.Add(sess) {
		h.detach(sessionID, client)
		if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
			h.logger.Warn("failed to close duplicate session", "session_id", sessionID, "error", err)
		}
		return nil, &domain.ConflictError{Message: "session id already in use", ResourceType: "session", ResourceID: sessionID}
	}
	return sess, nil
}

func (h *SessionHandler) readPump(ctx context.Context, client *wsClient, sess *session.EditSession) {
	defer func() {
		h.detach(sess.ID(), client)
		client.shutdown()
	}()

	client.conn.SetReadLimit(maxMessage)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		h.registry.Get(sess.ID())
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", "session_id", sess.ID(), "error", err)
			}
			return
		}
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		h.registry.Get(sess.ID())

		if done := h.dispatch(ctx, client, sess, msg); done {
			return
		}
	}
}

// dispatch applies one client message, reporting whether the session ended
func (h *SessionHandler) dispatch(ctx context.Context, client *wsClient, sess *session.EditSession, msg clientMessage) bool {
	switch msg.Type {
	case msgEdit:
		if err := sess.Edit(msg.Content); err != nil {
			client.push(errorMessage(err))
		}

	case msgSave:
		result, err := sess.Save(ctx)
		if err != nil {
			client.push(errorMessage(err))
			return false
		}
		snap := sess.Snapshot()
		client.push(serverMessage{Type: msgState, Snapshot: &snap, Result: result})

	case msgRetry:
		snap, err := sess.RetryAcquire(ctx)
		if err != nil {
			client.push(errorMessage(err))
			return false
		}
		content := sess.Content()
		client.push(serverMessage{Type: msgState, Snapshot: &snap, Content: &content})

	case msgClose:
		var err error
		if msg.Save {
			_, err = sess.SaveAndClose(ctx)
		} else {
			err = sess.Close(ctx)
		}
		h.registry.Remove(sess.ID())
		if err != nil {
			client.push(errorMessage(err))
		}
		snap := sess.Snapshot()
		client.push(serverMessage{Type: msgClosed, Snapshot: &snap})
		return true

	default:
		client.push(serverMessage{Type: msgError, Code: "unknown_message", Error: "unknown message type " + msg.Type})
	}
	return false
}

// publish forwards session snapshots to the attached socket, if any
func (h *SessionHandler) publish(snap session.Snapshot) {
	h.mu.Lock()
	client := h.clients[snap.SessionID]
	h.mu.Unlock()
	if client != nil {
		client.push(serverMessage{Type: msgState, Snapshot: &snap})
	}
}

func (h *SessionHandler) setClient(sessionID string, client *wsClient) {
	h.mu.Lock()
	previous := h.clients[sessionID]
	h.clients[sessionID] = client
	h.mu.Unlock()
	if previous != nil && previous != client {
		previous.shutdown()
	}
}

// detach drops the socket unless a reconnect already replaced it
func (h *SessionHandler) detach(sessionID string, client *wsClient) {
	h.mu.Lock()
	if h.clients[sessionID] == client {
		delete(h.clients, sessionID)
	}
	h.mu.Unlock()
}

// errorMessage renders an error frame with a machine-readable code
func errorMessage(err error) serverMessage {
	msg := serverMessage{Type: msgError, Error: err.Error(), Code: "internal"}

	var (
		heldErr    *domain.LockHeldByOtherError
		notHeldErr *domain.LockNotHeldError
	)
	switch {
	case errors.As(err, &heldErr):
		msg.Code = "lock_held"
	case errors.As(err, &notHeldErr):
		msg.Code = "lock_not_held"
	case errors.Is(err, session.ErrNotWritable):
		msg.Code = "not_writable"
	case errors.Is(err, session.ErrSessionClosed):
		msg.Code = "session_closed"
	case errors.Is(err, session.ErrRetryTooSoon):
		msg.Code = "retry_too_soon"
	case errors.Is(err, domain.ErrPersistence):
		msg.Code = "persistence_failure"
	case errors.Is(err, domain.ErrNotFound):
		msg.Code = "not_found"
	case errors.Is(err, domain.ErrValidation):
		msg.Code = "validation"
	case errors.Is(err, domain.ErrConflict):
		msg.Code = "conflict"
	}
	return msg
}
