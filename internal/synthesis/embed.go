// Package synthesis links related findings and artifacts by local text
// similarity. Vectors come from signed feature hashing, so no external model
// or network call is involved.
package synthesis

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"regexp"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ModelName identifies the embedding scheme in stored rows. Bump it when the
// hashing changes so stale vectors are recomputed, not reused.
const ModelName = "feathash-256-v1"

// Dims is the embedding dimensionality.
const Dims = 256

var tokenPattern = regexp.MustCompile(`[a-z0-9]{2,}`)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true,
	"has": true, "have": true, "this": true, "that": true, "with": true,
	"from": true, "they": true, "been": true, "were": true, "will": true,
	"would": true, "there": true, "their": true, "what": true, "about": true,
	"which": true, "when": true, "into": true, "more": true, "some": true,
	"than": true, "then": true, "them": true, "these": true, "also": true,
	"its": true, "his": true, "she": true, "him": true,
}

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, tok := range raw {
		if !stopwords[tok] {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Embed maps text to an L2-normalized vector via signed feature hashing.
// Each token hashes to one dimension with a sign bit, term counts accumulate,
// then the vector is normalized. Empty or all-stopword text yields the zero
// vector.
func Embed(text string) []float32 {
	vec := make([]float32, Dims)
	for _, tok := range tokenize(text) {
		h, err := blake2b.New(8, nil)
		if err != nil {
			continue
		}
		h.Write([]byte(tok))
		hv := binary.BigEndian.Uint64(h.Sum(nil))
		idx := hv % Dims
		if hv&(1<<63) != 0 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

// ContentHash identifies the exact text a cached vector was computed from.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Cosine returns the cosine similarity of two equal-length vectors. Inputs
// from Embed are already unit length, so this is a dot product; a zero
// vector scores 0 against everything.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
