// Package events publishes relationship changes after they are committed.
// Publishing is best effort: a failed publish is logged and never rolls
// back or fails the operation that produced it.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	FriendRequestSent      = "friend_request.sent"
	FriendRequestAccepted  = "friend_request.accepted"
	FriendRequestRejected  = "friend_request.rejected"
	FriendRequestCancelled = "friend_request.cancelled"
	FriendRemoved          = "friend.removed"
	UserFollowed           = "follow.created"
	UserUnfollowed         = "follow.deleted"
	CommunityJoined        = "community.joined"
	CommunityLeft          = "community.left"
	StatusChanged          = "status.changed"
)

// Event describes one committed relationship change.
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	ActorID   string            `json:"actorId"`
	TargetID  string            `json:"targetId"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// New builds an event with a fresh id and the current time.
func New(eventType, actorID, targetID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ActorID:   actorID,
		TargetID:  targetID,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() {}

// Recorder keeps published events in memory, for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() {}

// Events returns a copy of what was published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the type of every published event, in order.
func (r *Recorder) Types() []string {
	var types []string
	for _, ev := range r.Events() {
		types = append(types, ev.Type)
	}
	return types
}
