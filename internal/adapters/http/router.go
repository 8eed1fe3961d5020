package http

import (
	"context"

	"github.com/dkeye/relay/internal/adapters/signal"
	"github.com/dkeye/relay/internal/app/orch"
	"github.com/dkeye/relay/internal/config"
	transport "github.com/dkeye/relay/internal/transport/http"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const sessionName = "RelaySessions"

// VisitorMiddleware keeps a stable per-browser token in the cookie session.
// It only correlates logs; every socket still gets a fresh
// session id.
func VisitorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		token, _ := s.Get(signal.VisitorKey).(string)
		if token == "" {
			token = uuid.NewString()
			s.Set(signal.VisitorKey, token)
			if err := s.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save visitor session")
			}
		}
		c.Set(signal.VisitorKey, token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(VisitorMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := transport.NewHandlers(o.Rooms, o, signal.VisitorKey)
	limiter := NewRoomRateLimiter(cfg.CreateLimit, cfg.CreateInterval)

	api := r.Group("/api")
	api.GET("/status", h.Status)
	api.GET("/rooms", h.ListRooms)
	api.POST("/rooms", func(c *gin.Context) {
		// keyed by address: a cookieless client gets a new visitor token per request
		if !limiter.Allow(c.ClientIP()) {
			h.TooManyRequests(c)
			return
		}
		h.CreateRoom(c)
	})
	api.GET("/rooms/:room_id", h.GetRoom)

	ctrl := signal.NewSignalWSController(o, cfg)
	r.GET("/ws/:room_id", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("room", c.Param("room_id")).Msg("ws endpoint hit")
		ctrl.HandleRoom(ctx, c)
	})

	return r
}
