package dto

import (
	"time"

	"anoa.com/campuspulse/internal/entity"
)

type MyStatsFilter struct {
	Period string `form:"period" binding:"omitempty,oneof=daily weekly monthly"`
	Date   string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// MyStatsResponse rounds scores for display. The stored record keeps floats.
type MyStatsResponse struct {
	Period     entity.Period `json:"period"`
	BucketDate time.Time     `json:"bucket_date"`

	Sessions        int64 `json:"sessions"`
	PostsCreated    int64 `json:"posts_created"`
	CommentsCreated int64 `json:"comments_created"`
	AnswersProvided int64 `json:"answers_provided"`
	AIInteractions  int64 `json:"ai_interactions"`
	LikesGiven      int64 `json:"likes_given"`
	LikesReceived   int64 `json:"likes_received"`

	Engagement   int `json:"engagement"`
	Contribution int `json:"contribution"`
	Influence    int `json:"influence"`
	Quality      int `json:"quality"`
	Overall      int `json:"overall"`

	Streak       int     `json:"streak"`
	Retained     bool    `json:"retained"`
	ChurnRisk    float64 `json:"churn_risk"`
	LoyaltyScore float64 `json:"loyalty_score"`

	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
}
