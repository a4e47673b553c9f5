package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/avvvet/gatortots-services/internal/auth"
	"github.com/avvvet/gatortots-services/internal/comm"
	"github.com/avvvet/gatortots-services/internal/gamesvc/models"
	"github.com/avvvet/gatortots-services/internal/gamesvc/service"
	"github.com/avvvet/gatortots-services/internal/gamesvc/store"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

const maxBody = 16 << 10

type Users interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
}

type Rooms interface {
	CreateRoom(ctx context.Context, hostID int64, in service.CreateRoomInput) (*models.GameRoom, error)
	GetRoom(ctx context.Context, roomID int64) (*models.GameRoom, error)
	ListRooms(ctx context.Context, limit int) ([]models.RoomSummary, error)
}

type Chat interface {
	History(ctx context.Context, roomID, before int64, limit int) ([]models.Message, error)
}

// Live reads rooms that have a running actor.
type Live interface {
	Snapshot(ctx context.Context, roomID int64) (comm.GameUpdate, bool, error)
}

type Results interface {
	Recent(ctx context.Context, limit int64) ([]models.GameResult, error)
}

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	port      string

	users   Users
	rooms   Rooms
	chat    Chat
	live    Live
	results Results
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RoomDetail struct {
	Room *models.GameRoom `json:"room"`
	Game *comm.GameUpdate `json:"game,omitempty"`
}

// NewHandler wires the HTTP api. results may be nil when no archive is
// configured.
func NewHandler(tokenAuth *jwtauth.JWTAuth, port string, users Users, rooms Rooms, chat Chat, live Live, results Results) *Handler {
	return &Handler{
		tokenAuth: tokenAuth,
		port:      port,
		users:     users,
		rooms:     rooms,
		chat:      chat,
		live:      live,
		results:   results,
	}
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "game service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}

func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "user registered", Code: http.StatusCreated, Data: user})
}

func (h *Handler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	user, err := auth.FromContext(r.Context())
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: err.Error()})
		return
	}

	var in service.CreateRoomInput
	if err := decodeBody(w, r, &in); err != nil {
		h.fail(w, err)
		return
	}

	room, err := h.rooms.CreateRoom(r.Context(), user.ID, in)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "room created", Code: http.StatusCreated, Data: room})
}

func (h *Handler) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.fail(w, err)
		return
	}

	rooms, err := h.rooms.ListRooms(r.Context(), int(limit))
	if err != nil {
		h.fail(w, err)
		return
	}
	if rooms == nil {
		rooms = []models.RoomSummary{}
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: rooms})
}

// GetRoomHandler returns the stored room and, while a game actor runs, its
// live public state.
func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID, err := pathID(r, "roomID")
	if err != nil {
		h.fail(w, err)
		return
	}

	room, err := h.rooms.GetRoom(r.Context(), roomID)
	if err != nil {
		h.fail(w, err)
		return
	}

	detail := RoomDetail{Room: room}
	update, ok, err := h.live.Snapshot(r.Context(), roomID)
	if err != nil {
		log.Warnf("room %d live snapshot: %v", roomID, err)
	} else if ok {
		detail.Game = &update
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: detail})
}

func (h *Handler) MessagesHandler(w http.ResponseWriter, r *http.Request) {
	roomID, err := pathID(r, "roomID")
	if err != nil {
		h.fail(w, err)
		return
	}
	before, err := queryInt(r, "before")
	if err != nil {
		h.fail(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.fail(w, err)
		return
	}

	if _, err := h.rooms.GetRoom(r.Context(), roomID); err != nil {
		h.fail(w, err)
		return
	}

	msgs, err := h.chat.History(r.Context(), roomID, before, int(limit))
	if err != nil {
		h.fail(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: msgs})
}

func (h *Handler) ResultsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.fail(w, err)
		return
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	results, err := h.results.Recent(r.Context(), limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	if results == nil {
		results = []models.GameResult{}
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: results})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	code := statusCode(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.Errorf("request failed: %v", err)
		msg = "internal error"
	}
	h.CreateResponse(w, Response{Code: code, Error: msg})
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, store.ErrInvalidReference):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(service.ErrInvalidInput, err)
	}
	return nil
}

func pathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Join(service.ErrInvalidInput, errors.New(key+" must be a positive integer"))
	}
	return id, nil
}

// queryInt returns 0 for a missing parameter.
func queryInt(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, errors.Join(service.ErrInvalidInput, errors.New(key+" must be a non-negative integer"))
	}
	return v, nil
}
