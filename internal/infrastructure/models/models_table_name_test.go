package models

import "testing"

func TestTableNames(t *testing.T) {
	if got := (RoomState{}).TableName(); got != "room_states" {
		t.Fatalf("unexpected RoomState table name: %s", got)
	}
	if got := (KVEntry{}).TableName(); got != "kv_entries" {
		t.Fatalf("unexpected KVEntry table name: %s", got)
	}
}

func TestChatStoreModels(t *testing.T) {
	if got := len(ChatStoreModels()); got != 6 {
		t.Fatalf("expected 6 chat store models, got %d", got)
	}
}
