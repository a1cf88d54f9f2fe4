package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/quangtran88/signalbot/internal/bot"
	engerrors "github.com/quangtran88/signalbot/internal/errors"
	"github.com/quangtran88/signalbot/internal/monitoring"
)

// Handler serves the HTTP control surface over the engine.
type Handler struct {
	engine *bot.Engine
	log    zerolog.Logger
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(engine *bot.Engine, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	h := &Handler{engine: engine, log: log}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/metrics", gin.WrapH(monitoring.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/account", h.account)
		api.GET("/positions", h.positions)

		api.GET("/strategies", h.listStrategies)
		api.POST("/strategies", h.createStrategy)
		api.GET("/strategies/:name", h.getStrategy)
		api.PUT("/strategies/:name", h.updateStrategy)
		api.DELETE("/strategies/:name", h.deleteStrategy)

		api.GET("/watchlist", h.getWatchlist)
		api.PUT("/watchlist", h.setWatchlist)

		api.POST("/scheduler/start", h.startScheduler)
		api.POST("/scheduler/stop", h.stopScheduler)
		api.GET("/scheduler/status", h.schedulerStatus)

		api.GET("/pending-signals", h.listPending)
		api.POST("/pending-signals/:id/confirm", h.confirmPending)
		api.POST("/pending-signals/:id/reject", h.rejectPending)

		api.GET("/analyze/:symbol", h.analyze)
		api.GET("/sentiment", h.marketSentiment)
		api.GET("/sentiment/:symbol", h.symbolSentiment)

		api.GET("/signals", h.listSignals)
	}
	return r
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}

// writeError maps engine error categories to HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch engerrors.CategoryOf(err) {
	case engerrors.CategoryConfig:
		status = http.StatusBadRequest
	case engerrors.CategoryInvalidState:
		status = http.StatusConflict
	case engerrors.CategoryRateLimited:
		status = http.StatusTooManyRequests
	case engerrors.CategoryUnavailable, engerrors.CategoryNetwork, engerrors.CategoryTimeout:
		status = http.StatusBadGateway
	case engerrors.CategoryInsufficientData:
		status = http.StatusUnprocessableEntity
	}
	if errors.Is(err, engerrors.ErrNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
