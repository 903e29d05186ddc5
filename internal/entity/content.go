package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Content is a rankable post. Engagement counters live denormalized on the
// row; the like set itself is the content_likes table with a composite unique
// key, so a user can hold at most one like per item.
type Content struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ScopeID  uuid.UUID `gorm:"type:uuid;index;not null" json:"scope_id"`
	AuthorID uuid.UUID `gorm:"type:uuid;index;not null" json:"author_id"`
	Type     string    `gorm:"size:30;not null" json:"type"` // 'post', 'question', 'announcement'
	Title    string    `gorm:"size:255" json:"title"`
	Body     string    `gorm:"type:text" json:"body"`

	LikeCount    int64 `gorm:"default:0" json:"like_count"`
	CommentCount int64 `gorm:"default:0" json:"comment_count"`
	Shares       int64 `gorm:"default:0" json:"shares"`
	Saves        int64 `gorm:"default:0" json:"saves"`
	Views        int64 `gorm:"default:0" json:"views"`

	// HotScore is derived from current counts and entity age. It is
	// recomputed synchronously on every like/comment mutation and never
	// read without having been freshly derived.
	HotScore float64 `gorm:"index:idx_content_hot,sort:desc;default:0" json:"hot_score"`

	Likes    []ContentLike `gorm:"foreignKey:ContentID;constraint:OnDelete:CASCADE" json:"-"`
	Comments []Comment     `gorm:"foreignKey:ContentID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Content) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}

type ContentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ContentID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_content_user_like,priority:1;not null" json:"content_id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_content_user_like,priority:2;not null" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Comment is a rankable reply on content. Replies to a comment are rows with
// ParentID set; ReplyCount is maintained on the parent.
type Comment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ContentID uuid.UUID  `gorm:"type:uuid;index;not null" json:"content_id"`
	AuthorID  uuid.UUID  `gorm:"type:uuid;index;not null" json:"author_id"`
	ParentID  *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Body      string     `gorm:"type:text;not null" json:"body"`

	LikeCount  int64 `gorm:"default:0" json:"like_count"`
	ReplyCount int64 `gorm:"default:0" json:"reply_count"`

	HotScore float64 `gorm:"index:idx_comment_hot,sort:desc;default:0" json:"hot_score"`

	Likes []CommentLike `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}

type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_comment_user_like,priority:1;not null" json:"comment_id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_comment_user_like,priority:2;not null" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
