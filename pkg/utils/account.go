package utils

import "strings"

// Localpart returns "alice" for "@alice:example.org"
func Localpart(userID string) string {
	id := strings.TrimPrefix(userID, "@")
	if i := strings.IndexByte(id, ':'); i >= 0 {
		id = id[:i]
	}
	if id == "" {
		return "unknown"
	}
	return id
}
