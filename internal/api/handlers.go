package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quangtran88/signalbot/internal/config"
	"github.com/quangtran88/signalbot/internal/signalstore"
)

func (h *Handler) health(c *gin.Context) {
	st := h.engine.SchedulerStatus()
	status := "ok"
	if !st.Healthy {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"scheduler": st,
	})
}

func (h *Handler) account(c *gin.Context) {
	snap, err := h.engine.AccountSnapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) positions(c *gin.Context) {
	snap, err := h.engine.AccountSnapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": snap.Positions})
}

func (h *Handler) listStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strategies": h.engine.Strategies().List()})
}

func (h *Handler) getStrategy(c *gin.Context) {
	cfg, ok := h.engine.Strategies().Get(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "strategy not found"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *Handler) createStrategy(c *gin.Context) {
	var cfg config.StrategyConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.Strategies().Create(&cfg); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, &cfg)
}

func (h *Handler) updateStrategy(c *gin.Context) {
	var cfg config.StrategyConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg.Name = c.Param("name")
	if err := h.engine.Strategies().Update(&cfg); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, &cfg)
}

func (h *Handler) deleteStrategy(c *gin.Context) {
	if err := h.engine.Strategies().Delete(c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getWatchlist(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"watchlist": h.engine.Watchlist()})
}

func (h *Handler) setWatchlist(c *gin.Context) {
	var body struct {
		Symbols []string `json:"symbols" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.SetWatchlist(body.Symbols); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watchlist": h.engine.Watchlist()})
}

func (h *Handler) startScheduler(c *gin.Context) {
	if err := h.engine.StartScheduler(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.engine.SchedulerStatus())
}

func (h *Handler) stopScheduler(c *gin.Context) {
	if err := h.engine.StopScheduler(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.engine.SchedulerStatus())
}

func (h *Handler) schedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.SchedulerStatus())
}

func (h *Handler) listPending(c *gin.Context) {
	status := signalstore.Status(c.Query("status"))
	c.JSON(http.StatusOK, gin.H{"signals": h.engine.Pending().List(status)})
}

func (h *Handler) confirmPending(c *gin.Context) {
	ps, err := h.engine.Pending().Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ps)
}

func (h *Handler) rejectPending(c *gin.Context) {
	ps, err := h.engine.Pending().Reject(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ps)
}

func (h *Handler) analyze(c *gin.Context) {
	strategyName := c.DefaultQuery("strategy", "default")
	timeframe := c.Query("timeframe")

	analysis, err := h.engine.Analyze(c.Request.Context(), c.Param("symbol"), timeframe, strategyName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (h *Handler) symbolSentiment(c *gin.Context) {
	score, err := h.engine.Sentiment(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

func (h *Handler) marketSentiment(c *gin.Context) {
	score, err := h.engine.MarketSentiment(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

func (h *Handler) listSignals(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	c.JSON(http.StatusOK, gin.H{"signals": h.engine.Audit().List(limit)})
}
