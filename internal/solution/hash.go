package solution

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash digests the semantically meaningful fields of a record:
// title, error message, root cause, solution, and comma-joined tags.
// IDs, timestamps, and environment are deliberately excluded so that the
// same knowledge saved twice (or on two machines) hashes identically.
func (s *Solution) ContentHash() string {
	h := sha256.New()
	h.Write([]byte(s.Title))
	h.Write([]byte(s.ErrorMessage))
	h.Write([]byte(s.RootCause))
	h.Write([]byte(s.Solution))
	h.Write([]byte(strings.Join(s.Tags, ",")))
	return hex.EncodeToString(h.Sum(nil))
}
