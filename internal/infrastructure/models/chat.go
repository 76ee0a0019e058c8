package models

import (
	"time"

	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
)

// Room is a chat room or space of the local chat store
type Room struct {
	ID                string       `gorm:"type:varchar(255);primaryKey"`
	Name              string       `gorm:"type:varchar(255);not null"`
	Topic             string       `gorm:"type:text"`
	Kind              string       `gorm:"type:varchar(32);not null;index"`
	ContributionValue null.Float64 `gorm:"type:double precision"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

// RoomRelation links a space to one of its child rooms
type RoomRelation struct {
	ParentID  string `gorm:"type:varchar(255);primaryKey"`
	ChildID   string `gorm:"type:varchar(255);primaryKey;index"`
	CreatedAt time.Time
}

// RoomEvent is one timeline event. Seq orders events within a room.
type RoomEvent struct {
	ID             string      `gorm:"type:varchar(255);primaryKey"`
	RoomID         string      `gorm:"type:varchar(255);not null;uniqueIndex:idx_room_events_room_seq"`
	Seq            int64       `gorm:"not null;uniqueIndex:idx_room_events_room_seq"`
	Type           string      `gorm:"type:varchar(255);not null"`
	Sender         string      `gorm:"type:varchar(255);not null"`
	StateKey       null.String `gorm:"type:varchar(255)"`
	Content        string      `gorm:"type:text;not null"`
	OriginServerTS time.Time   `gorm:"column:origin_server_ts;not null"`
}

// RoomState holds the current content of each (type, state key) pair
type RoomState struct {
	RoomID    string `gorm:"type:varchar(255);primaryKey"`
	EventType string `gorm:"type:varchar(255);primaryKey"`
	StateKey  string `gorm:"type:varchar(255);primaryKey"`
	EventID   string `gorm:"type:varchar(255)"`
	Content   string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (RoomState) TableName() string {
	return "room_states"
}

type UserProfile struct {
	UserID      string `gorm:"type:varchar(255);primaryKey"`
	DisplayName string `gorm:"type:varchar(255)"`
	UpdatedAt   time.Time
}

// KVEntry backs the database flavour of the device key-value store
type KVEntry struct {
	Key       string `gorm:"column:entry_key;type:varchar(255);primaryKey"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

// ChatStoreModels lists every model the chat store migrates
func ChatStoreModels() []interface{} {
	return []interface{}{
		&Room{},
		&RoomRelation{},
		&RoomEvent{},
		&RoomState{},
		&UserProfile{},
		&KVEntry{},
	}
}
