package http

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/tunesync-server/internal/auth"
	"github.com/vovakirdan/tunesync-server/internal/core"
	"github.com/vovakirdan/tunesync-server/internal/store"
)

// RoomHandlers provides the REST surface over the room services. The
// WebSocket bridge remains the primary interface; these endpoints serve
// lobby UIs and tooling.
type RoomHandlers struct {
	sessions *core.SessionManager
	store    store.RoomStore
	jwt      *auth.JWTConfig
	log      *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(deps Deps, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		sessions: deps.Sessions,
		store:    deps.Store,
		jwt:      deps.JWT,
		log:      logger,
	}
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	Name       string `json:"name" binding:"max=64"`
	Visibility string `json:"visibility"`
	Secret     string `json:"secret"`
}

// CreateRoomResponse carries the id of the freshly created room.
type CreateRoomResponse struct {
	ID string `json:"id"`
}

// RoomSummaryResponse is one directory entry in API responses.
type RoomSummaryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Visibility  string `json:"visibility"`
	MemberCount int    `json:"member_count"`
}

// TokenRequest asks for a listener token for the given identity.
type TokenRequest struct {
	Listener string `json:"listener" binding:"required,min=1,max=64"`
}

// TokenResponse carries the signed listener token.
type TokenResponse struct {
	Token string `json:"token"`
}

// CreateRoom handles room creation.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	listener, exists := c.Get(ContextKeyListener)
	if !exists {
		h.log.Error().Msg("listener not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	id, err := h.sessions.CreateRoom(c.Request.Context(), core.CreateRoomSpec{
		Name:       req.Name,
		Visibility: store.Visibility(req.Visibility),
		Secret:     req.Secret,
		CreatorID:  listener.(string),
	})
	if err != nil {
		h.writeCoreError(c, err)
		return
	}

	h.log.Info().Str("room_id", id).Str("creator", listener.(string)).Msg("room created over rest")
	c.JSON(http.StatusCreated, CreateRoomResponse{ID: id})
}

// ListRooms handles the public room directory.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms, err := h.store.ListAll(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]RoomSummaryResponse, 0, len(rooms))
	for _, room := range rooms {
		summary := core.SummaryOf(room)
		response = append(response, RoomSummaryResponse{
			ID:          summary.ID,
			Name:        summary.Name,
			Visibility:  string(summary.Visibility),
			MemberCount: summary.MemberCount,
		})
	}
	sort.Slice(response, func(i, j int) bool { return response[i].ID < response[j].ID })

	c.JSON(http.StatusOK, response)
}

// Visibility answers whether a room needs a secret before joining.
// GET /api/rooms/:id/visibility
func (h *RoomHandlers) Visibility(c *gin.Context) {
	roomID := strings.TrimSpace(c.Param("id"))

	visibility, err := h.sessions.Visibility(c.Request.Context(), roomID)
	if err != nil {
		h.writeCoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":    roomID,
		"private": visibility == store.VisibilityPrivate,
	})
}

// IssueToken signs a listener token for clients that want a stable
// identity across reconnects.
// POST /api/token
func (h *RoomHandlers) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, err := auth.GenerateToken(h.jwt, req.Listener)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to sign token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (h *RoomHandlers) writeCoreError(c *gin.Context, err error) {
	var cerr *core.CoreError
	if !errors.As(err, &cerr) {
		h.log.Error().Err(err).Msg("unexpected error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch cerr.Code {
	case core.ErrCodeRoomNotFound:
		status = http.StatusNotFound
	case core.ErrCodeUnauthorized:
		status = http.StatusForbidden
	case core.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case core.ErrCodeConflict:
		status = http.StatusConflict
	}
	c.JSON(status, ErrorResponse{Error: cerr.Message})
}
