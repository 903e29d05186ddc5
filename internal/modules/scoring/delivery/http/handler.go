package handler

import (
	"math"
	"net/http"
	"time"

	"anoa.com/campuspulse/internal/entity"
	scoringDto "anoa.com/campuspulse/internal/modules/scoring/dto"
	scoring "anoa.com/campuspulse/internal/modules/scoring/service"
	"anoa.com/campuspulse/pkg/response"
	"anoa.com/campuspulse/pkg/validator"
	"github.com/gin-gonic/gin"
)

type ScoringHandler struct {
	service scoring.Service
}

func NewScoringHandler(service scoring.Service) *ScoringHandler {
	return &ScoringHandler{service: service}
}

func (h *ScoringHandler) GetMyStats(c *gin.Context) {
	var filter scoringDto.MyStatsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	period := entity.PeriodDaily
	if filter.Period != "" {
		period = entity.Period(filter.Period)
	}

	date := time.Now().UTC()
	if filter.Date != "" {
		date, _ = time.Parse("2006-01-02", filter.Date)
	}

	record, err := h.service.Snapshot(c.Request.Context(), userID, period, date)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toMyStatsResponse(record)})
}

func toMyStatsResponse(r *entity.UserPeriodRecord) scoringDto.MyStatsResponse {
	round := func(v float64) int { return int(math.Round(v)) }
	return scoringDto.MyStatsResponse{
		Period:          r.Period,
		BucketDate:      r.BucketDate,
		Sessions:        r.Sessions,
		PostsCreated:    r.PostsCreated,
		CommentsCreated: r.CommentsCreated,
		AnswersProvided: r.AnswersProvided,
		AIInteractions:  r.AIInteractions,
		LikesGiven:      r.LikesGiven,
		LikesReceived:   r.LikesReceived,
		Engagement:      round(r.Scores.Engagement),
		Contribution:    round(r.Scores.Contribution),
		Influence:       round(r.Scores.Influence),
		Quality:         round(r.Scores.Quality),
		Overall:         round(r.Scores.Overall),
		Streak:          r.Retention.Streak,
		Retained:        r.Retention.Retained,
		ChurnRisk:       r.Retention.ChurnRisk,
		LoyaltyScore:    r.Retention.LoyaltyScore,
		FinalizedAt:     r.FinalizedAt,
	}
}
