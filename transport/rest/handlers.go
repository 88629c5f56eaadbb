package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/timetravel-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/timetravel-tictactoe/internal/entity"
	"github.com/rocketscienceinc/timetravel-tictactoe/internal/view"
)

var (
	errBadBody  = errors.New("invalid request body")
	errBadOrder = errors.New("order must be asc or desc")
)

type uSession interface {
	Create(ctx context.Context) (*entity.Session, error)
	Get(ctx context.Context, id string) (*entity.Session, error)
	ApplyMove(ctx context.Context, id string, index int) (*entity.Session, error)
	JumpTo(ctx context.Context, id string, step int) (*entity.Session, error)
	SetSortOrder(ctx context.Context, id string, ascending bool) (*entity.Session, error)
	Delete(ctx context.Context, id string) error
}

type moveRequest struct {
	Index *int `json:"index"`
}

type jumpRequest struct {
	Step *int `json:"step"`
}

type orderRequest struct {
	Ascending *bool `json:"ascending"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Handlers struct {
	logger   *slog.Logger
	uSession uSession
}

func NewHandlers(logger *slog.Logger, uSession uSession) *Handlers {
	return &Handlers{
		logger:   logger.With("component", "rest"),
		uSession: uSession,
	}
}

func (that *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := that.uSession.Create(r.Context())
	if err != nil {
		that.sendError(w, "CreateSession", err)
		return
	}

	that.sendJSON(w, http.StatusCreated, view.FromSession(session))
}

// GetSession - returns the session view. The optional order query parameter
// overrides the stored move-list order for this response only.
func (that *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := that.uSession.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		that.sendError(w, "GetSession", err)
		return
	}

	ascending := session.Ascending
	switch r.URL.Query().Get("order") {
	case "":
	case "asc":
		ascending = true
	case "desc":
		ascending = false
	default:
		that.sendError(w, "GetSession", errBadOrder)
		return
	}

	that.sendJSON(w, http.StatusOK, view.FromSessionOrdered(session, ascending))
}

func (that *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := that.uSession.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		that.sendError(w, "DeleteSession", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *Handlers) ApplyMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeBody(r, &req); err != nil {
		that.sendError(w, "ApplyMove", err)
		return
	}
	if req.Index == nil {
		that.sendError(w, "ApplyMove", fmt.Errorf("%w: index is required", errBadBody))
		return
	}

	session, err := that.uSession.ApplyMove(r.Context(), chi.URLParam(r, "id"), *req.Index)
	if err != nil {
		that.sendError(w, "ApplyMove", err)
		return
	}

	that.sendJSON(w, http.StatusOK, view.FromSession(session))
}

func (that *Handlers) JumpTo(w http.ResponseWriter, r *http.Request) {
	var req jumpRequest
	if err := decodeBody(r, &req); err != nil {
		that.sendError(w, "JumpTo", err)
		return
	}
	if req.Step == nil {
		that.sendError(w, "JumpTo", fmt.Errorf("%w: step is required", errBadBody))
		return
	}

	session, err := that.uSession.JumpTo(r.Context(), chi.URLParam(r, "id"), *req.Step)
	if err != nil {
		that.sendError(w, "JumpTo", err)
		return
	}

	that.sendJSON(w, http.StatusOK, view.FromSession(session))
}

func (that *Handlers) SetSortOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeBody(r, &req); err != nil {
		that.sendError(w, "SetSortOrder", err)
		return
	}
	if req.Ascending == nil {
		that.sendError(w, "SetSortOrder", fmt.Errorf("%w: ascending is required", errBadBody))
		return
	}

	session, err := that.uSession.SetSortOrder(r.Context(), chi.URLParam(r, "id"), *req.Ascending)
	if err != nil {
		that.sendError(w, "SetSortOrder", err)
		return
	}

	that.sendJSON(w, http.StatusOK, view.FromSession(session))
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errBadBody, err)
	}

	return nil
}

func (that *Handlers) sendJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}

func (that *Handlers) sendError(w http.ResponseWriter, method string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "method", method, "error", err)
		that.sendJSON(w, status, errorResponse{Error: http.StatusText(status)})
		return
	}

	that.sendJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrInvalidCell),
		errors.Is(err, apperror.ErrInvalidStep),
		errors.Is(err, errBadBody),
		errors.Is(err, errBadOrder):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
