package handler

import (
	"log/slog"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/hafizbahtiar/console/internal/client"
	"github.com/hafizbahtiar/console/internal/config"
)

// NewRouter assembles the guard server: request IDs, logging, CORS, health
// and session endpoints, then the guard in front of the upstream proxy.
func NewRouter(cfg config.GuardConfig, log *slog.Logger) (*gin.Engine, error) {
	proxy, err := NewUpstreamProxy(cfg.Upstream, log)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.New(requestid.WithCustomHeaderStrKey(client.HeaderRequestID)))
	r.Use(RequestLogger(log))
	r.Use(CORSMiddleware(cfg.AllowedOrigins, true))

	r.GET("/ping", Ping)
	r.GET("/healthz", Root)

	sessions := NewSessionHandler(cfg)
	r.GET("/_session", sessions.Status)
	r.POST("/_session", sessions.Establish)
	r.DELETE("/_session", sessions.Clear)

	r.NoRoute(GuardMiddleware(cfg), proxy)
	return r, nil
}
