package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType is the closed enumeration of ingestible actions. Unknown types
// are rejected at the gateway, never silently dropped downstream.
type EventType string

const (
	EventLogin          EventType = "login"
	EventLogout         EventType = "logout"
	EventPostCreated    EventType = "post_created"
	EventCommentCreated EventType = "comment_created"
	EventLikeGiven      EventType = "like_given"
	EventLikeRemoved    EventType = "like_removed"
	EventShare          EventType = "share"
	EventSave           EventType = "save"
	EventView           EventType = "view"
	EventFollow         EventType = "follow"
	EventUnfollow       EventType = "unfollow"
	EventAIInteraction  EventType = "ai_interaction"
	EventAnswerProvided EventType = "answer_provided"
)

func (t EventType) Valid() bool {
	switch t {
	case EventLogin, EventLogout, EventPostCreated, EventCommentCreated,
		EventLikeGiven, EventLikeRemoved, EventShare, EventSave, EventView,
		EventFollow, EventUnfollow, EventAIInteraction, EventAnswerProvided:
		return true
	}
	return false
}

// DomainEvent is an immutable fact. It is created once by the gateway,
// appended to the event log, and folded into rollups by the aggregator.
type DomainEvent struct {
	EventID     uuid.UUID
	Type        EventType
	ActorUserID *uuid.UUID
	ScopeID     uuid.UUID
	ContentID   *uuid.UUID
	ContentType string
	Metadata    map[string]string
	OccurredAt  time.Time
}

// Fields flattens the event into stream entry fields. Metadata rides along
// as a single JSON value.
func (e *DomainEvent) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"event_id":    e.EventID.String(),
		"type":        string(e.Type),
		"scope_id":    e.ScopeID.String(),
		"occurred_at": e.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if e.ActorUserID != nil {
		fields["actor_user_id"] = e.ActorUserID.String()
	}
	if e.ContentID != nil {
		fields["content_id"] = e.ContentID.String()
	}
	if e.ContentType != "" {
		fields["content_type"] = e.ContentType
	}
	if len(e.Metadata) > 0 {
		if raw, err := json.Marshal(e.Metadata); err == nil {
			fields["metadata"] = string(raw)
		}
	}
	return fields
}

// ParseEvent rebuilds a DomainEvent from stream entry fields.
func ParseEvent(values map[string]interface{}) (*DomainEvent, error) {
	strField := func(key string) string {
		if v, ok := values[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}

	eventID, err := uuid.Parse(strField("event_id"))
	if err != nil {
		return nil, fmt.Errorf("parse event_id: %w", err)
	}
	scopeID, err := uuid.Parse(strField("scope_id"))
	if err != nil {
		return nil, fmt.Errorf("parse scope_id: %w", err)
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, strField("occurred_at"))
	if err != nil {
		return nil, fmt.Errorf("parse occurred_at: %w", err)
	}

	event := &DomainEvent{
		EventID:     eventID,
		Type:        EventType(strField("type")),
		ScopeID:     scopeID,
		ContentType: strField("content_type"),
		OccurredAt:  occurredAt,
	}

	if s := strField("actor_user_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse actor_user_id: %w", err)
		}
		event.ActorUserID = &id
	}
	if s := strField("content_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse content_id: %w", err)
		}
		event.ContentID = &id
	}
	if s := strField("metadata"); s != "" {
		if err := json.Unmarshal([]byte(s), &event.Metadata); err != nil {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
	}

	return event, nil
}
