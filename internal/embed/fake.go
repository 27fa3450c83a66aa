package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/errsolve/errsolve/internal/solution"
)

// Fake is a deterministic in-process Embedder used by tests and by
// environments without an embedding service. Vectors are derived from token
// hashes, so texts sharing words produce similar vectors; the geometry is
// crude but stable.
type Fake struct{}

// Dimension returns the fixed vector width.
func (Fake) Dimension() int { return Dimension }

// Embed returns a deterministic unit vector derived from the text's tokens.
func (Fake) Embed(_ context.Context, text string) ([]float32, error) {
	if len(text) > MaxInputChars {
		text = text[:MaxInputChars]
	}
	vec := make([]float32, Dimension)
	for _, tok := range solution.Tokenize(text) {
		sum := sha256.Sum256([]byte(tok))
		for i := 0; i+4 <= 16; i += 4 {
			slot := binary.LittleEndian.Uint32(sum[i:]) % Dimension
			vec[slot] += 1
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}
