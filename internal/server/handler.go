package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"menuscout/internal/cache"
	"menuscout/internal/events"
	"menuscout/internal/formatter"
	"menuscout/internal/presenter"
	"menuscout/internal/watcher"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Refresher runs a guarded extraction of the watched page.
type Refresher interface {
	Run(ctx context.Context) (*cache.Record, error)
	Status() watcher.Status
}

// Handler serves the cached menu and drives the watcher.
type Handler struct {
	cache     *cache.Cache
	bus       *events.Bus
	refresher Refresher
	limiter   *rate.Limiter
}

// NewHandler creates the API handler. refresher may be nil when no page is
// being watched; refreshes are then rejected.
func NewHandler(c *cache.Cache, bus *events.Bus, refresher Refresher, refreshPerMinute int) *Handler {
	if refreshPerMinute <= 0 {
		refreshPerMinute = 1
	}
	return &Handler{
		cache:     c,
		bus:       bus,
		refresher: refresher,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(refreshPerMinute)), 1),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

type menuQuery struct {
	presenter.Session
	Format string `form:"format"`
}

// GetMenu renders the cached menu filtered by ?category= and ?q=. ?format=
// selects html, text, markdown or csv instead of JSON.
func (h *Handler) GetMenu(c *gin.Context) {
	q := menuQuery{Session: presenter.NewSession(), Format: "json"}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q.Format = formatter.Normalize(q.Format)
	if !formatter.Valid(q.Format) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported output format: " + q.Format})
		return
	}

	record, err := h.cache.Load(c.Request.Context())
	if err != nil {
		h.storageFailure(c, err)
		return
	}

	out, err := formatter.Format(presenter.NewView(record, q.Session, h.cache), q.Format)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render menu"})
		return
	}
	c.Data(http.StatusOK, formatter.ContentType(q.Format), []byte(out))
}

// ClearMenu removes the cached record.
func (h *Handler) ClearMenu(c *gin.Context) {
	if err := h.cache.Clear(c.Request.Context()); err != nil {
		h.storageFailure(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Status reports the watcher state and the age of the cached record.
func (h *Handler) Status(c *gin.Context) {
	record, err := h.cache.Load(c.Request.Context())
	if err != nil {
		h.storageFailure(c, err)
		return
	}

	cacheInfo := gin.H{"cached": false, "age": cache.FormatAge(0, true)}
	if record != nil {
		cacheInfo = gin.H{
			"cached":    true,
			"cachedAt":  record.CachedAt,
			"age":       h.cache.Age(record.CachedAt),
			"fresh":     h.cache.IsFresh(record.CachedAt),
			"items":     len(record.Items),
			"sourceUrl": record.SourceURL,
		}
	}

	resp := gin.H{"cache": cacheInfo, "watcher": nil}
	if h.refresher != nil {
		resp["watcher"] = h.refresher.Status()
	}
	if h.bus != nil {
		resp["listeners"] = h.bus.Subscribers()
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh re-extracts the watched page now.
func (h *Handler) Refresh(c *gin.Context) {
	if h.refresher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no page is being watched"})
		return
	}
	if !h.limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "refresh requested too often"})
		return
	}

	record, err := h.refresher.Run(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"items": len(record.Items), "cachedAt": record.CachedAt})
	case errors.Is(err, watcher.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, watcher.ErrNoItems):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		var storageErr *cache.StorageError
		if errors.As(err, &storageErr) {
			h.storageFailure(c, err)
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// Events streams bus events as server-sent events until the client goes away.
func (h *Handler) Events(c *gin.Context) {
	if h.bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "events are not available"})
		return
	}

	ch, cancel := h.bus.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()
	log.Debug("events client connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Kind), ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
	log.Debug("events client disconnected")
}

func (h *Handler) storageFailure(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}
