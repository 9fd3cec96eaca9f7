package ws

import (
	"crypto/rand"
	"encoding/hex"
)

// newConnID returns a random identifier attached to each gateway connection
// for log correlation.
func newConnID() string {
	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		return "conn-unknown"
	}
	return hex.EncodeToString(id)
}
