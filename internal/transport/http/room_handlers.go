package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/codeshare-server/internal/collab"
	"github.com/vovakirdan/codeshare-server/internal/core"
	"github.com/vovakirdan/codeshare-server/internal/keygen"
	"github.com/vovakirdan/codeshare-server/internal/store"
)

// RoomHandlers provides HTTP handlers for room endpoints.
type RoomHandlers struct {
	hub   *core.Hub
	store store.RoomStore
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub *core.Hub, st store.RoomStore, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub:   hub,
		store: st,
		log:   logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateRoomResponse carries a fresh room key.
type CreateRoomResponse struct {
	Key string `json:"key"`
}

// RoomSummary is a persisted room in listings.
type RoomSummary struct {
	Key       string `json:"key"`
	Language  string `json:"language"`
	UpdatedAt string `json:"updated_at"`
}

// RoomSnapshot is the live state of a room.
type RoomSnapshot struct {
	Key      string         `json:"key"`
	Language string         `json:"language"`
	Code     string         `json:"code"`
	Users    map[string]any `json:"users"`
}

// CreateRoom hands out a new room key. The room itself comes into existence
// on its first write.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	key := keygen.NewKey()
	h.log.Debug().Str("room", key).Msg("room key issued")
	c.JSON(http.StatusCreated, CreateRoomResponse{Key: key})
}

// ListRooms lists persisted rooms, most recently updated first.
// GET /api/rooms?limit=N
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	out := []RoomSummary{}
	if h.store == nil {
		c.JSON(http.StatusOK, out)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	rooms, err := h.store.ListRooms(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	for _, r := range rooms {
		out = append(out, RoomSummary{
			Key:       r.Key,
			Language:  r.Language,
			UpdatedAt: r.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, out)
}

// GetRoom returns the live state of a room. Absent fields are defaulted.
// GET /api/rooms/:key
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	key := c.Param("key")
	if !keygen.Valid(key) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room key"})
		return
	}

	v, err := h.hub.Snapshot(c.Request.Context(), core.JoinPath(key))
	if err != nil {
		h.log.Error().Err(err).Str("room", key).Msg("failed to read room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	data := core.Children(v)
	snap := RoomSnapshot{Key: key, Language: collab.DefaultLanguage, Users: map[string]any{}}
	if lang, ok := data["language"].(string); ok && lang != "" {
		snap.Language = lang
	}
	if code, ok := data["code"].(string); ok {
		snap.Code = code
	}
	if users := core.Children(data["users"]); users != nil {
		snap.Users = users
	}
	c.JSON(http.StatusOK, snap)
}
