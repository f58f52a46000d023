package engine

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const serverSeedBytes = 32

// DefaultClientSeed is used until the player supplies their own.
const DefaultClientSeed = "default-client-seed"

// NewServerSeed returns a fresh server seed from the system CSPRNG.
// Seeds are hex-encoded ASCII; they are hashed and compared as text,
// never decoded back to bytes.
func NewServerSeed() (string, error) {
	buf := make([]byte, serverSeedBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate server seed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashServerSeed returns the SHA-256 commitment published to the
// player before any round is played against the seed.
func HashServerSeed(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}
