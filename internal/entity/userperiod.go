package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScoreSet holds the five derived behavioral scores, each bounded [0,100].
// Values stay as floats through every calculation; rounding happens only at
// the presentation boundary.
type ScoreSet struct {
	Engagement   float64 `gorm:"default:0" json:"engagement"`
	Contribution float64 `gorm:"default:0" json:"contribution"`
	Influence    float64 `gorm:"default:0" json:"influence"`
	Quality      float64 `gorm:"default:0" json:"quality"`
	Overall      float64 `gorm:"default:0" json:"overall"`
}

// RetentionSet is the streak/churn block derived from this record plus the
// immediately preceding period's record.
type RetentionSet struct {
	Streak       int     `gorm:"default:0" json:"streak"`
	Retained     bool    `gorm:"default:false" json:"retained"`
	ChurnRisk    float64 `gorm:"default:0" json:"churn_risk"`
	LoyaltyScore float64 `gorm:"default:0" json:"loyalty_score"`
}

// UserPeriodRecord is the per-user periodic aggregate. Raw counters are bumped
// synchronously at ingest so "my stats" reads reflect an action immediately;
// derived fields are a pure function of the counters and the prior record.
type UserPeriodRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_period_date,priority:1;not null" json:"user_id"`
	ScopeID    uuid.UUID `gorm:"type:uuid;index;not null" json:"scope_id"`
	Period     Period    `gorm:"size:16;uniqueIndex:idx_user_period_date,priority:2;not null" json:"period"`
	BucketDate time.Time `gorm:"uniqueIndex:idx_user_period_date,priority:3;index:idx_period_date;not null" json:"bucket_date"`

	Sessions         int64 `gorm:"default:0" json:"sessions"`
	PostsCreated     int64 `gorm:"default:0" json:"posts_created"`
	CommentsCreated  int64 `gorm:"default:0" json:"comments_created"`
	AnswersProvided  int64 `gorm:"default:0" json:"answers_provided"`
	AIInteractions   int64 `gorm:"default:0" json:"ai_interactions"`
	LikesGiven       int64 `gorm:"default:0" json:"likes_given"`
	LikesReceived    int64 `gorm:"default:0" json:"likes_received"`
	CommentsReceived int64 `gorm:"default:0" json:"comments_received"`
	SharesReceived   int64 `gorm:"default:0" json:"shares_received"`
	FollowersGained  int64 `gorm:"default:0" json:"followers_gained"`
	FollowersLost    int64 `gorm:"default:0" json:"followers_lost"`

	// Followers is a point-in-time snapshot taken at finalization, used by
	// the influence formula.
	Followers int64 `gorm:"default:0" json:"followers"`

	Scores    ScoreSet     `gorm:"embedded;embeddedPrefix:score_" json:"scores"`
	Retention RetentionSet `gorm:"embedded;embeddedPrefix:retention_" json:"retention"`

	FinalizedAt *time.Time `json:"finalized_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *UserPeriodRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}
