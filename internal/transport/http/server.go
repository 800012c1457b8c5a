package http

import (
	stdhttp "net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/codeshare-server/internal/config"
	"github.com/vovakirdan/codeshare-server/internal/core"
	"github.com/vovakirdan/codeshare-server/internal/store"
)

const sessionName = "codeshare"

// NewServer builds an HTTP server with all routes. st may be nil, in which
// case room listing is empty.
func NewServer(hub *core.Hub, st store.RoomStore, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(hub, st, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter builds the gin engine.
func NewRouter(hub *core.Hub, st store.RoomStore, cfg config.Config, logger *zerolog.Logger) *gin.Engine {
	if logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger))

	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 365, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, sessionStore))

	r.GET("/health", healthHandler)
	r.GET("/ws", gin.WrapH(NewWSHandler(hub, cfg, logger)))

	rooms := NewRoomHandlers(hub, st, logger)
	api := r.Group("/api")
	api.POST("/rooms", rooms.CreateRoom)
	api.GET("/rooms", rooms.ListRooms)
	api.GET("/rooms/:key", rooms.GetRoom)

	nav := NewNavHandlers(logger)
	r.GET("/editor", nav.Editor)
	r.GET("/editor/:key", nav.Editor)
	r.GET("/settings", nav.Settings)
	r.GET("/settings/:key", nav.Settings)
	r.POST("/settings", nav.SaveSettings)
	r.POST("/settings/:key", nav.SaveSettings)

	return r
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
