package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/tunesync-server/internal/auth"
	"github.com/vovakirdan/tunesync-server/internal/config"
	"github.com/vovakirdan/tunesync-server/internal/core"
	"github.com/vovakirdan/tunesync-server/internal/store"
)

// Deps bundles everything the transport needs from the rest of the app.
type Deps struct {
	Hub      *core.Hub
	Sessions *core.SessionManager
	Queue    *core.QueueEngine
	Chat     *core.ChatRelay
	Dispatch *core.Dispatcher
	Store    store.RoomStore
	JWT      *auth.JWTConfig
}

// NewServer builds the HTTP server: health probe, REST room API, and
// the WebSocket bridge.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	rooms := NewRoomHandlers(deps, logger)
	api := router.Group("/api")
	{
		api.GET("/rooms", rooms.ListRooms)
		api.GET("/rooms/:id/visibility", rooms.Visibility)
		api.POST("/rooms", AuthMiddleware(deps.JWT, logger), rooms.CreateRoom)
		api.POST("/token", rooms.IssueToken)
	}

	ws := NewWSHandler(deps, cfg, logger)
	router.GET("/ws", gin.WrapH(ws))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
