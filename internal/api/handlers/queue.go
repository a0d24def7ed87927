package handlers

import (
	"net/http"
	"time"

	"github.com/skillbase-io/skillbase/internal/cache"
	"github.com/skillbase-io/skillbase/internal/jobqueue"
	"github.com/skillbase-io/skillbase/internal/models"
)

const statsCacheKey = "queue:stats"
const statsCacheTTL = 5 * time.Second

type QueueHandler struct {
	queue *jobqueue.Queue
	cache *cache.Cache // nil when redis is not configured
}

func NewQueueHandler(queue *jobqueue.Queue, c *cache.Cache) *QueueHandler {
	return &QueueHandler{queue: queue, cache: c}
}

// Stats reports job counts per status. Counts are cached briefly since
// dashboards poll this endpoint.
func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		var cached map[models.JobStatus]int
		if err := h.cache.Get(r.Context(), statsCacheKey, &cached); err == nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if h.cache != nil {
		// Stale stats are harmless; a failed write only skips the cache.
		_ = h.cache.Set(r.Context(), statsCacheKey, stats, statsCacheTTL)
	}

	writeJSON(w, http.StatusOK, stats)
}
