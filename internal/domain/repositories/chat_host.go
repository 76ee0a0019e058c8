package repositories

import (
	"context"

	"dao-ledger.backend/internal/domain/entities"
)

// RoomTimeline is a room's materialized event window. Events are ordered
// oldest first. PaginateBackward prepends up to limit older events and
// returns how many were added; 0 means the history is exhausted.
type RoomTimeline interface {
	Events() []*entities.RoomEvent
	PaginateBackward(ctx context.Context, limit int) (int, error)
}

type TimelineProvider interface {
	Timeline(ctx context.Context, roomID string) (RoomTimeline, error)
}

type MessageSender interface {
	// SendEvent appends an event and returns its id
	SendEvent(ctx context.Context, roomID, senderID, eventType string, content interface{}) (string, error)
}

type EventFetcher interface {
	FetchEvent(ctx context.Context, roomID, eventID string) (*entities.RoomEvent, error)
}

type PowerLevelReader interface {
	// PowerLevels returns nil when the room has no power-level state
	PowerLevels(ctx context.Context, roomID string) (*entities.PowerLevels, error)
}

// SpaceHierarchy resolves the parent/child graph of rooms and spaces
type SpaceHierarchy interface {
	Room(ctx context.Context, roomID string) (*entities.Room, error)
	Parents(ctx context.Context, roomID string) ([]*entities.Room, error)
	Children(ctx context.Context, roomID string) ([]*entities.Room, error)
	RoomsByKind(ctx context.Context, kind entities.RoomKind) ([]*entities.Room, error)
}

type StateStore interface {
	// GetState decodes the state content into out and reports whether it exists
	GetState(ctx context.Context, roomID, eventType, stateKey string, out interface{}) (bool, error)
	PutState(ctx context.Context, roomID, eventType, stateKey, senderID string, content interface{}) error
}

type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// ChatHost is everything the ledger core needs from the chat client
type ChatHost interface {
	TimelineProvider
	MessageSender
	EventFetcher
	PowerLevelReader
	SpaceHierarchy
	StateStore
	UserDirectory
}
