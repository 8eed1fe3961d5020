package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dkeye/relay/internal/core"
	"github.com/dkeye/relay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// MaxRoomList caps GET /api/rooms and is its default limit.
const MaxRoomList = 100

// ActiveCounter exposes the number of live sessions.
type ActiveCounter interface {
	ActiveCount() int64
}

type CreateRoomRequest struct {
	Code string `json:"code" form:"code"`
}

type RoomResponse struct {
	RoomID   domain.RoomID   `json:"room_id"`
	RoomCode domain.RoomCode `json:"room_code"`
}

type RoomListResponse struct {
	Rooms          []RoomResponse `json:"rooms"`
	ActiveSessions int64          `json:"active_sessions"`
}

type StatusResponse struct {
	ActiveSessions int64 `json:"active_sessions"`
}

type Handlers struct {
	rooms      core.RoomStore
	active     ActiveCounter
	visitorKey string
}

func NewHandlers(rooms core.RoomStore, active ActiveCounter, visitorKey string) *Handlers {
	return &Handlers{rooms: rooms, active: active, visitorKey: visitorKey}
}

func (h *Handlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{ActiveSessions: h.active.ActiveCount()})
}

// CreateRoom accepts the code as query, form or JSON body.
func (h *Handlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBind(&req); err != nil || req.Code == "" {
		req.Code = c.Query("code")
	}
	room, err := h.rooms.CreateRoom(c.Request.Context(), req.Code)
	switch {
	case errors.Is(err, domain.ErrRoomCodeEmpty), errors.Is(err, domain.ErrRoomCodeTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "transport.http").Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create room failed"})
		return
	}
	log.Info().
		Str("module", "transport.http").
		Str("room", string(room.ID)).
		Str("visitor", c.GetString(h.visitorKey)).
		Msg("room created")
	c.JSON(http.StatusCreated, RoomResponse{RoomID: room.ID, RoomCode: room.Code})
}

func (h *Handlers) GetRoom(c *gin.Context) {
	id := domain.RoomID(c.Param("room_id"))
	code, err := h.rooms.Code(c.Request.Context(), id)
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "transport.http").Msg("get room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, RoomResponse{RoomID: id, RoomCode: code})
}

// ListRooms mirrors the home page: known rooms next to the live session count.
func (h *Handlers) ListRooms(c *gin.Context) {
	limit := MaxRoomList
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, MaxRoomList)
	}
	rooms, err := h.rooms.ListRooms(c.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Str("module", "transport.http").Msg("list rooms")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list rooms failed"})
		return
	}
	c.JSON(http.StatusOK, RoomListResponse{
		Rooms: lo.Map(rooms, func(r domain.Room, _ int) RoomResponse {
			return RoomResponse{RoomID: r.ID, RoomCode: r.Code}
		}),
		ActiveSessions: h.active.ActiveCount(),
	})
}

func (h *Handlers) TooManyRequests(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many rooms created, slow down"})
}
