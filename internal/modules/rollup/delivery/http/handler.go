package handler

import (
	"net/http"

	rollup "anoa.com/campuspulse/internal/modules/rollup/service"
	"anoa.com/campuspulse/pkg/response"
	"github.com/gin-gonic/gin"
)

// RollupHandler exposes the admin controls for the aggregation pipeline.
type RollupHandler struct {
	service   rollup.Service
	batchSize int
}

func NewRollupHandler(service rollup.Service, batchSize int) *RollupHandler {
	return &RollupHandler{service: service, batchSize: batchSize}
}

// RunBatch triggers one aggregation pass immediately instead of waiting for
// the scheduled run.
func (h *RollupHandler) RunBatch(c *gin.Context) {
	processed, err := h.service.RunBatch(c.Request.Context(), h.batchSize)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"processed": processed})
}

// Rebuild truncates derived state and replays the retained event log. Long
// running; callers should not retry while one is in flight.
func (h *RollupHandler) Rebuild(c *gin.Context) {
	if err := h.service.Rebuild(c.Request.Context()); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "rebuild complete"})
}
