package crypto

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var randomRead = rand.Read

// RandomTxHash returns a short random base36 identifier for transfers
func RandomTxHash() (string, error) {
	return randomBase36(6)
}

func randomBase36(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := randomRead(buf); err != nil {
		return "", fmt.Errorf("failed to generate random hash: %w", err)
	}
	var sb strings.Builder
	sb.Grow(length)
	for _, b := range buf {
		sb.WriteByte(base36Alphabet[int(b)%len(base36Alphabet)])
	}
	return sb.String(), nil
}

// StringHash is the 32-bit rolling string hash used for mint records:
// h = h*31 + c over UTF-16 code units with int32 wraparound, rendered as
// the absolute value in hex, left padded to 8 digits.
func StringHash(input string) string {
	var h int32
	for _, unit := range utf16.Encode([]rune(input)) {
		h = (h << 5) - h + int32(unit)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	out := strconv.FormatInt(v, 16)
	if len(out) < 8 {
		out = strings.Repeat("0", 8-len(out)) + out
	}
	return out
}
