package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Derive computes the raw outcome value for a single-draw round.
//
// The value is the big-endian uint32 prefix of
// HMAC-SHA256(serverSeed, "clientSeed:nonce:tag"). Players verify
// settled rounds against this exact construction, so the message
// order and the 4-byte prefix are part of the public fairness
// contract and must never change.
func Derive(serverSeed, clientSeed string, nonce uint64, tag string) uint32 {
	return digestPrefix(serverSeed, fmt.Sprintf("%s:%d:%s", clientSeed, nonce, tag))
}

// DeriveAt computes the raw outcome value for draw subIndex of a
// multi-draw round (mine positions, grid cells, shootout rounds).
// The message gains a ":subIndex" suffix so every draw in a round is
// an independent value under the same seed pair and nonce.
func DeriveAt(serverSeed, clientSeed string, nonce uint64, tag string, subIndex int) uint32 {
	return digestPrefix(serverSeed, fmt.Sprintf("%s:%d:%s:%d", clientSeed, nonce, tag, subIndex))
}

func digestPrefix(serverSeed, message string) uint32 {
	h := hmac.New(sha256.New, []byte(serverSeed))
	h.Write([]byte(message))
	return binary.BigEndian.Uint32(h.Sum(nil)[:4])
}

// Fraction maps a raw value into [0, 1).
func Fraction(raw uint32) float64 {
	return float64(raw) / (1 << 32)
}

// Reduce maps a raw value into [0, n) using a multiply-shift rather
// than a modulo, so domains that do not evenly divide 2^32 stay
// effectively uniform.
func Reduce(raw uint32, n int) int {
	return int((uint64(raw) * uint64(n)) >> 32)
}

// SampleWithoutReplacement draws count distinct positions from
// [0, poolSize). The candidate pool shrinks after each draw, so the
// returned positions never collide. Draw i consumes subIndex i.
func SampleWithoutReplacement(serverSeed, clientSeed string, nonce uint64, tag string, poolSize, count int) []int {
	pool := make([]int, poolSize)
	for i := range pool {
		pool[i] = i
	}

	picks := make([]int, 0, count)
	for i := 0; i < count && len(pool) > 0; i++ {
		raw := DeriveAt(serverSeed, clientSeed, nonce, tag, i)
		idx := Reduce(raw, len(pool))
		picks = append(picks, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return picks
}
