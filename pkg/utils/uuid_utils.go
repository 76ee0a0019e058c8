package utils

import (
	"github.com/google/uuid"
)

var newUUIDv7 = uuid.NewV7

// GenerateUUIDv7 generates a new UUID v7
func GenerateUUIDv7() uuid.UUID {
	id, err := newUUIDv7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// NewEventID returns a chat event id backed by a time-ordered UUID
func NewEventID() string {
	return "$" + GenerateUUIDv7().String()
}

// NewRoomID returns a chat room id backed by a time-ordered UUID
func NewRoomID() string {
	return "!" + GenerateUUIDv7().String()
}
