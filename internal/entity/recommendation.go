package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RecommendationChurnRisk = "churn_risk"
	RecommendationAnomaly   = "engagement_anomaly"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Recommendation is the outbound record handed to the notification subsystem.
// Emission is fire-and-forget; nothing in this core waits on delivery.
type Recommendation struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ScopeID  uuid.UUID  `gorm:"type:uuid;index;not null" json:"scope_id"`
	UserID   *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Type     string     `gorm:"size:50;not null" json:"type"`
	Priority string     `gorm:"size:20;not null" json:"priority"`
	Message  string     `gorm:"type:text;not null" json:"message"`
	Action   string     `gorm:"size:100" json:"action"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (r *Recommendation) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}

// College is the tenant boundary (scope) all metrics are partitioned by.
type College struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"size:255;not null" json:"name"`
	Slug string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *College) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}
