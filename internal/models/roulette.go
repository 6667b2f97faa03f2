package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Round phases. Exactly one round is in a non-terminal phase at any time;
// a round in RoundPhaseResults with Settled=true is terminal once superseded.
const (
	RoundPhaseBetting  = "betting"
	RoundPhaseSpinning = "spinning"
	RoundPhaseResults  = "results"
)

const (
	BetStatusUnsettled = "unsettled"
	BetStatusWon       = "won"
	BetStatusLost      = "lost"
)

// PositionUnset marks a round whose outcome has not been drawn yet.
const PositionUnset = -1

// RouletteRound is one betting/outcome/settlement cycle of the shared wheel.
// The clock is the only writer of Phase/Deadline and the outcome fields;
// settlement is the only writer of Settled/ResultsJSON.
type RouletteRound struct {
	ID          int64          `gorm:"primaryKey,autoIncrement" json:"-"`
	UUID        uuid.UUID      `gorm:"type:uuid;uniqueIndex" json:"round_id"`
	Number      int64          `gorm:"uniqueIndex;not null" json:"round_number"`
	Phase       string         `gorm:"not null;index" json:"phase"`
	Deadline    time.Time      `gorm:"not null" json:"deadline"`
	ServerSeed  string         `json:"-"`
	SeedHash    string         `gorm:"not null" json:"seed_hash"`
	Position    int            `gorm:"not null;default:-1" json:"position"`
	Color       string         `json:"color"`
	Label       string         `json:"label"`
	Settled     bool           `gorm:"not null;default:false" json:"settled"`
	ResultsJSON datatypes.JSON `json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	SettledAt   *time.Time     `json:"settled_at,omitempty"`
}

// OutcomeKnown reports whether the wheel position has been drawn for this round.
func (r *RouletteRound) OutcomeKnown() bool {
	return r.Position != PositionUnset
}

type RouletteBet struct {
	ID          int64      `gorm:"primaryKey,autoIncrement" json:"-"`
	UUID        uuid.UUID  `gorm:"type:uuid;uniqueIndex" json:"bet_id"`
	RoundID     int64      `gorm:"not null;index" json:"-"`
	UserID      int64      `gorm:"not null;index" json:"user_id"`
	Category    string     `gorm:"not null" json:"category"`
	Selector    string     `gorm:"not null" json:"selector"`
	Stake       int64      `gorm:"not null" json:"stake"`
	Status      string     `gorm:"not null;index" json:"status"`
	Multiplier  int64      `json:"multiplier,omitempty"`
	Payout      int64      `json:"payout"`
	SettleError string     `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	SettledAt   *time.Time `json:"settled_at,omitempty"`
}
