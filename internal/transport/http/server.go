package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ilyabarkov/directline-server/internal/auth"
	"github.com/ilyabarkov/directline-server/internal/config"
	"github.com/ilyabarkov/directline-server/internal/core"
	"github.com/ilyabarkov/directline-server/internal/store"
)

// NewServer builds the HTTP server: REST API, health check and the
// WebSocket relay endpoint.
func NewServer(registry *core.Registry, engine *core.Engine, authService *auth.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(registry, engine, logger)))

	apiHandlers := NewAPIHandlers(authService, logger)
	messageHandlers := NewMessageHandlers(st, logger)
	userHandlers := NewUserHandlers(st, logger)

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)
	api.POST("/guest", apiHandlers.GuestLogin)

	authorized := api.Group("")
	authorized.Use(AuthMiddleware(authService, logger))
	authorized.GET("/messages/:userId", messageHandlers.History)
	authorized.POST("/messages", messageHandlers.Send)
	authorized.GET("/chats", messageHandlers.ChatPartners)
	authorized.GET("/users", userHandlers.List)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
