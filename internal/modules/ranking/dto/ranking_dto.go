package dto

type CreateContentRequest struct {
	Type  string `json:"type" binding:"required,oneof=post question announcement"`
	Title string `json:"title" binding:"required,max=255"`
	Body  string `json:"body" binding:"required"`
}

type CreateCommentRequest struct {
	Body     string `json:"body" binding:"required"`
	ParentID string `json:"parent_id" binding:"omitempty,uuid"`
}

type ToggleLikeResponse struct {
	Liked    bool    `json:"liked"`
	HotScore float64 `json:"hot_score"`
}
