package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Sundussheikhdev/sync-board-BE/internal/blob"
	"github.com/Sundussheikhdev/sync-board-BE/internal/config"
	"github.com/Sundussheikhdev/sync-board-BE/internal/session"
	"github.com/Sundussheikhdev/sync-board-BE/internal/store"
)

// NewServer builds the HTTP server with all routes wired.
func NewServer(mgr *session.Manager, st store.Store, blobs blob.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(mgr, st, blobs, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter wires the gin engine. Split from NewServer so handler tests can
// drive it through httptest directly.
func NewRouter(mgr *session.Manager, st store.Store, blobs blob.Store, cfg config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(LoggerMiddleware(logger))
	engine.Use(CORSMiddleware(cfg.AllowedOrigins))

	roomHandlers := NewRoomHandlers(st, mgr, cfg.ChatMessageLimit, logger)
	userHandlers := NewUserHandlers(st, mgr, logger)
	uploadHandlers := NewUploadHandlers(blobs, cfg.AllowedFileTypes, cfg.MaxUploadSize, logger)
	adminHandlers := NewAdminHandlers(mgr, logger)
	wsHandler := NewWSHandler(mgr, cfg.AllowedOrigins, logger)

	engine.GET("/health", healthHandler)
	engine.GET("/ws/:room_id", wsHandler.Serve)
	engine.GET("/files/:key", uploadHandlers.ServeFile)

	api := engine.Group("/api")
	{
		api.POST("/rooms", roomHandlers.CreateRoom)
		api.GET("/rooms", roomHandlers.ListRooms)
		api.GET("/rooms/:room_id/info", roomHandlers.RoomInfo)
		api.GET("/rooms/:room_id/users", roomHandlers.RoomUsers)
		api.GET("/rooms/:room_id/messages", roomHandlers.RoomMessages)

		api.POST("/users/check", userHandlers.CheckName)
		api.GET("/users", userHandlers.ListActive)

		api.POST("/upload", uploadHandlers.Upload)

		api.POST("/cleanup", adminHandlers.TriggerCleanup)
		api.GET("/cleanup/status", adminHandlers.CleanupStatus)
		api.POST("/cleanup/rooms/:room_id", adminHandlers.PurgeRoom)
	}

	return engine
}

func healthHandler(c *gin.Context) {
	c.JSON(stdhttp.StatusOK, gin.H{"status": "ok"})
}
