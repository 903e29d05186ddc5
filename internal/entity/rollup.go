package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Counter blocks. Everything here is additive (sums), so concurrent batches
// folding into the same bucket commute regardless of arrival order.

type UserCounters struct {
	Sessions int64 `gorm:"default:0" json:"sessions"`
	Logins   int64 `gorm:"default:0" json:"logins"`
	Logouts  int64 `gorm:"default:0" json:"logouts"`
	Follows  int64 `gorm:"default:0" json:"follows"`
}

type ContentCounters struct {
	PostsCreated    int64 `gorm:"default:0" json:"posts_created"`
	CommentsCreated int64 `gorm:"default:0" json:"comments_created"`
	Shares          int64 `gorm:"default:0" json:"shares"`
	Saves           int64 `gorm:"default:0" json:"saves"`
	Views           int64 `gorm:"default:0" json:"views"`
}

type EngagementCounters struct {
	LikesGiven   int64 `gorm:"default:0" json:"likes_given"`
	LikesRemoved int64 `gorm:"default:0" json:"likes_removed"`
	Total        int64 `gorm:"default:0" json:"total"`
}

type AICounters struct {
	Interactions int64 `gorm:"default:0" json:"interactions"`
}

type AcademicCounters struct {
	AnswersProvided int64 `gorm:"default:0" json:"answers_provided"`
}

type PerformanceCounters struct {
	EventsProcessed int64 `gorm:"default:0" json:"events_processed"`
}

// TrendingItem is a content reference ranked by engagement score.
type TrendingItem struct {
	ContentID string  `json:"content_id"`
	Score     float64 `json:"score"`
}

// Anomaly flags a metric whose period-over-period swing exceeded the
// detection threshold.
type Anomaly struct {
	Metric     string    `json:"metric"`
	Previous   float64   `json:"previous"`
	Current    float64   `json:"current"`
	ChangePct  float64   `json:"change_pct"`
	DetectedAt time.Time `json:"detected_at"`
}

// Insights is derived from the counters (plus the previous bucket) and is
// recomputed on every fold. It never holds anything that cannot be rebuilt.
type Insights struct {
	Trending          []TrendingItem `json:"trending,omitempty"`
	Anomalies         []Anomaly      `json:"anomalies,omitempty"`
	ProjectedSessions float64        `json:"projected_sessions,omitempty"`
}

func (i Insights) Value() (driver.Value, error) {
	return json.Marshal(i)
}

func (i *Insights) Scan(value interface{}) error {
	if value == nil {
		*i = Insights{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("insights: unsupported scan type")
	}

	return json.Unmarshal(data, i)
}

// ScopePeriodRollup is the periodic aggregate for one (scope, period, bucket)
// key. Uniqueness is enforced at the store; concurrent first-touches resolve
// through the upsert path, never through duplicate rows.
type ScopePeriodRollup struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ScopeID     uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_scope_period_bucket,priority:1;not null" json:"scope_id"`
	Period      Period    `gorm:"size:16;uniqueIndex:idx_scope_period_bucket,priority:2;not null" json:"period"`
	BucketStart time.Time `gorm:"uniqueIndex:idx_scope_period_bucket,priority:3;not null" json:"bucket_start"`

	Users       UserCounters        `gorm:"embedded;embeddedPrefix:users_" json:"users"`
	Content     ContentCounters     `gorm:"embedded;embeddedPrefix:content_" json:"content"`
	Engagement  EngagementCounters  `gorm:"embedded;embeddedPrefix:engagement_" json:"engagement"`
	AI          AICounters          `gorm:"embedded;embeddedPrefix:ai_" json:"ai"`
	Academic    AcademicCounters    `gorm:"embedded;embeddedPrefix:academic_" json:"academic"`
	Performance PerformanceCounters `gorm:"embedded;embeddedPrefix:perf_" json:"performance"`

	ByType CountMap `gorm:"type:jsonb" json:"by_type"`
	ByRole CountMap `gorm:"type:jsonb" json:"by_role"`

	Insights Insights `gorm:"type:jsonb" json:"insights"`

	// LastEventID is the highest stream entry ID folded into this bucket.
	// Replayed entries at or below it are skipped, which is what makes
	// at-least-once delivery from the log exactly-once-effective here.
	LastEventID string `gorm:"size:64" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *ScopePeriodRollup) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}
