package handler

import (
	"net/http"
	"strings"
	"time"

	"anoa.com/campuspulse/internal/entity"
	analyticsDto "anoa.com/campuspulse/internal/modules/analytics/dto"
	analytics "anoa.com/campuspulse/internal/modules/analytics/service"
	"anoa.com/campuspulse/pkg/response"
	"anoa.com/campuspulse/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AnalyticsHandler struct {
	service analytics.Service
}

func NewAnalyticsHandler(service analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

func (h *AnalyticsHandler) GetTimeSeries(c *gin.Context) {
	var filter analyticsDto.TimeSeriesFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	scopeID, err := uuid.Parse(c.GetString("scope_id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	start, end, err := parseRange(filter.Start, filter.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	points, err := h.service.TimeSeries(c.Request.Context(), scopeID, filter.Metric, start, end, entity.Period(filter.Period))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": points})
}

func (h *AnalyticsHandler) GetLeaderboard(c *gin.Context) {
	var filter analyticsDto.LeaderboardFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	scopeID, err := uuid.Parse(c.GetString("scope_id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	period := entity.PeriodDaily
	if filter.Period != "" {
		period = entity.Period(filter.Period)
	}
	limit := filter.Limit
	if limit == 0 {
		limit = 10
	}

	entries, err := h.service.Leaderboard(c.Request.Context(), scopeID, period, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (h *AnalyticsHandler) GetGrowthProjection(c *gin.Context) {
	scopeID, err := uuid.Parse(c.GetString("scope_id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	projection, err := h.service.GrowthProjection(c.Request.Context(), scopeID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": projection})
}

func (h *AnalyticsHandler) CompareScopes(c *gin.Context) {
	var filter analyticsDto.CompareFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	var scopeIDs []uuid.UUID
	for _, raw := range strings.Split(filter.Scopes, ",") {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scope id: " + raw})
			return
		}
		scopeIDs = append(scopeIDs, id)
	}

	start, end, err := parseRange(filter.Start, filter.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	series, err := h.service.Compare(c.Request.Context(), scopeIDs, filter.Metric, entity.Period(filter.Period), start, end)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": series})
}

func (h *AnalyticsHandler) GetLiveDashboard(c *gin.Context) {
	scopeID, err := uuid.Parse(c.GetString("scope_id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	dashboard, err := h.service.LiveDashboard(c.Request.Context(), scopeID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dashboard})
}

func parseRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		// Date-only is accepted for convenience.
		start, err = time.Parse("2006-01-02", startRaw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		end, err = time.Parse("2006-01-02", endRaw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return start.UTC(), end.UTC(), nil
}
