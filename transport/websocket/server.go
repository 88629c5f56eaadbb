package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/timetravel-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/timetravel-tictactoe/internal/entity"
	"github.com/rocketscienceinc/timetravel-tictactoe/internal/usecase"
	"github.com/rocketscienceinc/timetravel-tictactoe/internal/view"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
)

var ErrUnknownAction = errors.New("unknown action")

type uSession interface {
	Get(ctx context.Context, id string) (*entity.Session, error)
	ApplyMove(ctx context.Context, id string, index int) (*entity.Session, error)
	JumpTo(ctx context.Context, id string, step int) (*entity.Session, error)
	SetSortOrder(ctx context.Context, id string, ascending bool) (*entity.Session, error)
}

type Server struct {
	logger   *slog.Logger
	uSession uSession

	upgrader   websocket.Upgrader
	hub        *hub
	sendBuffer int

	handlers map[string]func(ctx context.Context, c *client, payload *Payload) (*entity.Session, error)
}

func New(logger *slog.Logger, uSession uSession, sendBuffer int) *Server {
	if sendBuffer <= 0 {
		sendBuffer = 16
	}

	server := &Server{
		logger:   logger.With("component", "websocket"),
		uSession: uSession,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		hub:        newHub(),
		sendBuffer: sendBuffer,

		handlers: make(map[string]func(context.Context, *client, *Payload) (*entity.Session, error)),
	}

	server.handlers[actionSessionState] = server.handleState
	server.handlers[actionMoveApply] = server.handleApplyMove
	server.handlers[actionMoveJump] = server.handleJumpTo
	server.handlers[actionOrderSet] = server.handleSetOrder

	return server
}

// ServeHTTP - upgrades the request for the session in the {id} URL parameter.
func (that *Server) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeHTTP")

	sessionID := chi.URLParam(req, "id")
	if _, err := that.uSession.Get(req.Context(), sessionID); err != nil {
		if errors.Is(err, apperror.ErrSessionNotFound) {
			http.Error(writer, "session not found", http.StatusNotFound)
			return
		}

		log.Error("failed to get session", "session", sessionID, "error", err)
		http.Error(writer, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	c := newClient(sessionID, conn, that.sendBuffer)

	err = that.hub.register(c, func() error {
		session, err := that.uSession.Get(req.Context(), sessionID)
		if err != nil {
			return err
		}
		return that.sendSession(c, actionSessionState, session)
	})
	if err != nil {
		log.Error("failed to register connection", "session", sessionID, "error", err)
		_ = conn.Close()
		return
	}

	log.Info("WebSocket connection established", "session", sessionID)

	go that.writePump(c)
	that.readPump(c)
}

// HandleEvent pushes session changes to the connected clients. It is meant
// to be subscribed to the session manager.
func (that *Server) HandleEvent(event usecase.Event) {
	log := that.logger.With("method", "HandleEvent", "session", event.Session.ID)

	if event.Deleted {
		data, err := encodeMessage(actionSessionDeleted, map[string]string{"id": event.Session.ID})
		if err != nil {
			log.Error("failed to encode message", "error", err)
			return
		}

		that.hub.closeSession(event.Session.ID, data)
		return
	}

	data, err := encodeMessage(actionSessionState, view.FromSession(event.Session))
	if err != nil {
		log.Error("failed to encode message", "error", err)
		return
	}

	sent := that.hub.broadcast(event.Session.ID, data)
	log.Debug("session broadcast", "clients", sent)
}

// Close disconnects every client.
func (that *Server) Close() {
	that.hub.closeAll()
}

func (that *Server) readPump(c *client) {
	log := that.logger.With("method", "readPump", "session", c.sessionID)

	defer func() {
		that.hub.remove(c)
		c.close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("error reading message", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			c.enqueue(encodeError("", "invalid message"))
			continue
		}

		if err = that.processMessage(c, &message); err != nil {
			log.Debug("error processing message", "action", message.Action, "error", err)
			c.enqueue(encodeError(message.Action, errorText(err)))
		}
	}
}

func (that *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage - runs the handler for the message action and replies to the sender.
func (that *Server) processMessage(c *client, message *Message) error {
	handler, ok := that.handlers[message.Action]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, message.Action)
	}

	var payload Payload
	if len(message.Payload) > 0 {
		if err := json.Unmarshal(message.Payload, &payload); err != nil {
			return fmt.Errorf("%w: %w", errBadPayload, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	session, err := handler(ctx, c, &payload)
	if err != nil {
		return err
	}

	return that.sendSession(c, message.Action, session)
}

func (that *Server) sendSession(c *client, action string, session *entity.Session) error {
	data, err := encodeMessage(action, view.FromSession(session))
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	c.enqueue(data)

	return nil
}

// errorText hides internal failures from clients.
func errorText(err error) string {
	switch {
	case errors.Is(err, ErrUnknownAction),
		errors.Is(err, errBadPayload),
		errors.Is(err, apperror.ErrInvalidCell),
		errors.Is(err, apperror.ErrInvalidStep),
		errors.Is(err, apperror.ErrSessionNotFound):
		return err.Error()
	default:
		return "internal error"
	}
}
