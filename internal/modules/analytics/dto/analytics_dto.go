package dto

import (
	"time"

	"github.com/google/uuid"
)

type TimeSeriesFilter struct {
	Metric string `form:"metric" binding:"required"`
	Period string `form:"period" binding:"required,oneof=hourly daily weekly monthly yearly"`
	Start  string `form:"start" binding:"required"`
	End    string `form:"end" binding:"required"`
}

type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type LeaderboardFilter struct {
	Period string `form:"period" binding:"omitempty,oneof=daily weekly monthly"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// LeaderboardEntry carries scores rounded to integers. This is the
// presentation boundary; everything upstream stays float.
type LeaderboardEntry struct {
	Position     int       `json:"position"`
	UserID       uuid.UUID `json:"user_id"`
	Overall      int       `json:"overall"`
	Engagement   int       `json:"engagement"`
	Contribution int       `json:"contribution"`
	Influence    int       `json:"influence"`
	Quality      int       `json:"quality"`
	Streak       int       `json:"streak"`
}

type GrowthProjection struct {
	MonthlyRate      float64   `json:"monthly_rate"`
	Confidence       float64   `json:"confidence"`
	InsufficientData bool      `json:"insufficient_data"`
	Samples          int       `json:"samples"`
	Projection       []Point   `json:"projection"`
	GeneratedAt      time.Time `json:"generated_at"`
}

type LiveDashboard struct {
	TotalEvents     int64            `json:"total_events"`
	EventsThisHour  int64            `json:"events_this_hour"`
	ActiveUsers     int64            `json:"active_users"`
	EventsByType    map[string]int64 `json:"events_by_type"`
	PopularContent  []PopularItem    `json:"popular_content"`
}

type PopularItem struct {
	ContentID string  `json:"content_id"`
	Score     float64 `json:"score"`
}

type CompareFilter struct {
	Scopes string `form:"scopes" binding:"required"` // comma-separated scope IDs
	Metric string `form:"metric" binding:"required"`
	Period string `form:"period" binding:"required,oneof=hourly daily weekly monthly yearly"`
	Start  string `form:"start" binding:"required"`
	End    string `form:"end" binding:"required"`
}
