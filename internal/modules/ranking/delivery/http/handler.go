package handler

import (
	"net/http"
	"strconv"

	rankingDto "anoa.com/campuspulse/internal/modules/ranking/dto"
	ranking "anoa.com/campuspulse/internal/modules/ranking/service"
	"anoa.com/campuspulse/pkg/response"
	"anoa.com/campuspulse/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RankingHandler struct {
	service ranking.Service
}

func NewRankingHandler(service ranking.Service) *RankingHandler {
	return &RankingHandler{service: service}
}

func (h *RankingHandler) CreateContent(c *gin.Context) {
	var req rankingDto.CreateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	scopeID, err := uuid.Parse(c.GetString("scope_id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	content, err := h.service.CreateContent(c.Request.Context(), scopeID, userID, req.Type, req.Title, req.Body)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": content})
}

func (h *RankingHandler) GetContent(c *gin.Context) {
	contentID, err := uuid.Parse(c.Param("content_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content id"})
		return
	}

	content, err := h.service.GetContent(c.Request.Context(), contentID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": content})
}

func (h *RankingHandler) GetTopContent(c *gin.Context) {
	scopeID, err := uuid.Parse(c.GetString("scope_id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	contents, err := h.service.TopContent(c.Request.Context(), scopeID, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": contents})
}

func (h *RankingHandler) ToggleLike(c *gin.Context) {
	contentID, err := uuid.Parse(c.Param("content_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content id"})
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	liked, content, err := h.service.ToggleLike(c.Request.Context(), userID, contentID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, rankingDto.ToggleLikeResponse{
		Liked:    liked,
		HotScore: content.HotScore,
	})
}

func (h *RankingHandler) CreateComment(c *gin.Context) {
	contentID, err := uuid.Parse(c.Param("content_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content id"})
		return
	}

	var req rankingDto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var parentID *uuid.UUID
	if req.ParentID != "" {
		id, err := uuid.Parse(req.ParentID)
		if err == nil {
			parentID = &id
		}
	}

	comment, err := h.service.AddComment(c.Request.Context(), userID, contentID, parentID, req.Body)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": comment})
}

func (h *RankingHandler) ToggleCommentLike(c *gin.Context) {
	commentID, err := uuid.Parse(c.Param("comment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	liked, comment, err := h.service.ToggleCommentLike(c.Request.Context(), userID, commentID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, rankingDto.ToggleLikeResponse{
		Liked:    liked,
		HotScore: comment.HotScore,
	})
}
