package handler

import (
	"net/http"

	"anoa.com/campuspulse/internal/entity"
	ingestDto "anoa.com/campuspulse/internal/modules/ingest/dto"
	ingest "anoa.com/campuspulse/internal/modules/ingest/service"
	"anoa.com/campuspulse/pkg/response"
	"anoa.com/campuspulse/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type IngestHandler struct {
	gateway ingest.Gateway
}

func NewIngestHandler(gateway ingest.Gateway) *IngestHandler {
	return &IngestHandler{gateway: gateway}
}

func (h *IngestHandler) IngestEvent(c *gin.Context) {
	var req ingestDto.IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	scopeID, err := uuid.Parse(c.GetString("scope_id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	input := ingest.Input{
		Type:        entity.EventType(req.EventType),
		ScopeID:     scopeID,
		ContentType: req.ContentType,
		Metadata:    req.Metadata,
	}

	if userStr := c.GetString("user_id"); userStr != "" {
		userID, err := uuid.Parse(userStr)
		if err == nil {
			input.ActorUserID = &userID
		}
	}
	if req.ContentID != "" {
		contentID, err := uuid.Parse(req.ContentID)
		if err == nil {
			input.ContentID = &contentID
		}
	}

	eventID, err := h.gateway.Ingest(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, ingestDto.IngestEventResponse{
		Accepted: true,
		EventID:  eventID.String(),
	})
}
