package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEventTypeValid(t *testing.T) {
	if !EventLikeGiven.Valid() {
		t.Error("like_given should be valid")
	}
	if EventType("poke").Valid() {
		t.Error("unknown type should be invalid")
	}
	if EventType("").Valid() {
		t.Error("empty type should be invalid")
	}
}

func TestEventFieldsRoundTrip(t *testing.T) {
	actor := uuid.New()
	content := uuid.New()
	event := &DomainEvent{
		EventID:     uuid.New(),
		Type:        EventLikeGiven,
		ActorUserID: &actor,
		ScopeID:     uuid.New(),
		ContentID:   &content,
		ContentType: "post",
		Metadata:    map[string]string{"target_author_id": uuid.New().String()},
		OccurredAt:  time.Date(2026, 3, 18, 14, 37, 21, 123456000, time.UTC),
	}

	parsed, err := ParseEvent(event.Fields())
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}

	if parsed.EventID != event.EventID {
		t.Errorf("event_id = %s, want %s", parsed.EventID, event.EventID)
	}
	if parsed.Type != event.Type {
		t.Errorf("type = %s, want %s", parsed.Type, event.Type)
	}
	if parsed.ScopeID != event.ScopeID {
		t.Errorf("scope_id = %s, want %s", parsed.ScopeID, event.ScopeID)
	}
	if parsed.ActorUserID == nil || *parsed.ActorUserID != actor {
		t.Errorf("actor_user_id = %v, want %s", parsed.ActorUserID, actor)
	}
	if parsed.ContentID == nil || *parsed.ContentID != content {
		t.Errorf("content_id = %v, want %s", parsed.ContentID, content)
	}
	if !parsed.OccurredAt.Equal(event.OccurredAt) {
		t.Errorf("occurred_at = %v, want %v", parsed.OccurredAt, event.OccurredAt)
	}
	if parsed.Metadata["target_author_id"] != event.Metadata["target_author_id"] {
		t.Errorf("metadata = %v, want %v", parsed.Metadata, event.Metadata)
	}
}

func TestEventFieldsOmitsOptional(t *testing.T) {
	event := &DomainEvent{
		EventID:    uuid.New(),
		Type:       EventLogin,
		ScopeID:    uuid.New(),
		OccurredAt: time.Now().UTC(),
	}

	fields := event.Fields()
	for _, key := range []string{"actor_user_id", "content_id", "content_type", "metadata"} {
		if _, ok := fields[key]; ok {
			t.Errorf("field %q should be absent for a minimal event", key)
		}
	}

	parsed, err := ParseEvent(fields)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if parsed.ActorUserID != nil {
		t.Error("actor should be nil")
	}
}

func TestParseEventMalformed(t *testing.T) {
	cases := []struct {
		name   string
		values map[string]interface{}
	}{
		{"empty", map[string]interface{}{}},
		{"bad event id", map[string]interface{}{
			"event_id": "nope", "scope_id": uuid.New().String(),
			"type": "login", "occurred_at": time.Now().UTC().Format(time.RFC3339Nano),
		}},
		{"bad timestamp", map[string]interface{}{
			"event_id": uuid.New().String(), "scope_id": uuid.New().String(),
			"type": "login", "occurred_at": "yesterday",
		}},
		{"bad metadata json", map[string]interface{}{
			"event_id": uuid.New().String(), "scope_id": uuid.New().String(),
			"type": "login", "occurred_at": time.Now().UTC().Format(time.RFC3339Nano),
			"metadata": "{broken",
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseEvent(tc.values); err == nil {
				t.Error("expected error")
			}
		})
	}
}
