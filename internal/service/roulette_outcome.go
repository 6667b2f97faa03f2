package service

import (
	"GemRushApi/pkg/logger"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// RouletteOutcome is the drawn result of a round: a wheel position plus its
// derived color and label. Derived fields always come from the wheel tables.
type RouletteOutcome struct {
	Position int    `json:"position"`
	Color    string `json:"color"`
	Label    string `json:"label"`
}

// NewServerSeed generates a fresh 32-byte server seed and its SHA-256
// commitment. The commitment is published when the round opens; the seed is
// revealed with the results so clients can verify the draw.
func NewServerSeed() (seed string, hash string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", logger.WrapError(err, "unable to generate server seed")
	}

	seed = hex.EncodeToString(raw)
	return seed, SeedCommitment(seed), nil
}

// SeedCommitment returns the published hash of a server seed.
func SeedCommitment(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// OutcomeFromSeed deterministically draws the wheel position for a round.
// The nonce is the round number, so a revealed seed lets anyone recompute the
// exact outcome; before the reveal the position is not derivable from
// anything a client can observe.
func OutcomeFromSeed(seed string, nonce int64) RouletteOutcome {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", seed, nonce)))
	position := int(binary.BigEndian.Uint64(sum[:8]) % WheelPositions)

	return OutcomeAt(position)
}

// OutcomeAt builds the outcome for a known position, deriving color and
// label through the shared wheel tables.
func OutcomeAt(position int) RouletteOutcome {
	return RouletteOutcome{
		Position: position,
		Color:    ColorOf(position),
		Label:    LabelOf(position),
	}
}
