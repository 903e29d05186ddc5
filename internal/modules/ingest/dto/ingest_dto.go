package dto

type IngestEventRequest struct {
	EventType   string            `json:"event_type" binding:"required"`
	ContentID   string            `json:"content_id" binding:"omitempty,uuid"`
	ContentType string            `json:"content_type" binding:"omitempty,max=30"`
	Metadata    map[string]string `json:"metadata" binding:"omitempty,max=20"`
}

type IngestEventResponse struct {
	Accepted bool   `json:"accepted"`
	EventID  string `json:"event_id"`
}
