package service

import (
	"GemRushApi/cmd/db"
	"GemRushApi/internal/models"
	"GemRushApi/pkg/logger"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoulettePhaseConfig holds the wall-clock duration of each round phase.
type RoulettePhaseConfig struct {
	Betting  time.Duration
	Spinning time.Duration
	Results  time.Duration
}

const (
	defaultBettingSeconds  = 15
	defaultSpinningSeconds = 4
	defaultResultsSeconds  = 4
)

// LoadRoulettePhaseConfig reads phase durations from the environment,
// falling back to the defaults.
func LoadRoulettePhaseConfig() RoulettePhaseConfig {
	return RoulettePhaseConfig{
		Betting:  envSeconds("ROULETTE_BETTING_SECONDS", defaultBettingSeconds),
		Spinning: envSeconds("ROULETTE_SPINNING_SECONDS", defaultSpinningSeconds),
		Results:  envSeconds("ROULETTE_RESULTS_SECONDS", defaultResultsSeconds),
	}
}

func envSeconds(key string, fallback int) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return time.Duration(fallback) * time.Second
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		logger.Warn("Invalid %s=%q, using %ds", key, raw, fallback)
		return time.Duration(fallback) * time.Second
	}
	return time.Duration(n) * time.Second
}

// RouletteClock owns the single shared round and is the only writer of its
// phase and outcome. All phase reads and writes serialize through mu; the
// periodic tick and the opportunistic advance on the HTTP read path both go
// through AdvanceIfDue, so neither can double-process a transition.
type RouletteClock struct {
	mu      sync.Mutex
	current *models.RouletteRound
	cfg     RoulettePhaseConfig
	ws      *RouletteWebsocketService

	tickMu   sync.RWMutex
	lastTick time.Time
}

// Exported global instance, wired in app.Start.
var RouletteGame *RouletteClock

func NewRouletteClock(cfg RoulettePhaseConfig, ws *RouletteWebsocketService) *RouletteClock {
	return &RouletteClock{
		cfg: cfg,
		ws:  ws,
	}
}

// Resume adopts the newest persisted round after a restart, so a round left
// in RESULTS with unpaid bets gets re-settled before any new round opens.
// With no adoptable round it opens a fresh one.
func (c *RouletteClock) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var round models.RouletteRound
	err := db.DB.Order("number desc").First(&round).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.openNewRoundLocked(time.Now())
	case err != nil:
		return logger.WrapError(err, "")
	}

	if round.Phase == models.RoundPhaseResults && round.Settled {
		return c.openNewRoundLocked(time.Now())
	}

	logger.Info("Adopting round %d in phase %s after restart", round.Number, round.Phase)
	c.current = &round
	return nil
}

// openNewRoundLocked creates the next round in BETTING with a fresh seed
// commitment. Callers hold mu. This is the single creation path; ForceNewRound
// goes through here as well.
func (c *RouletteClock) openNewRoundLocked(now time.Time) error {
	var lastNumber int64
	err := db.DB.Model(&models.RouletteRound{}).
		Select("COALESCE(MAX(number), 0)").
		Scan(&lastNumber).Error
	if err != nil {
		return logger.WrapError(err, "")
	}

	seed, hash, err := NewServerSeed()
	if err != nil {
		return err
	}

	round := &models.RouletteRound{
		UUID:       uuid.New(),
		Number:     lastNumber + 1,
		Phase:      models.RoundPhaseBetting,
		Deadline:   now.Add(c.cfg.Betting),
		ServerSeed: seed,
		SeedHash:   hash,
		Position:   models.PositionUnset,
		CreatedAt:  now,
	}
	if err := db.DB.Create(round).Error; err != nil {
		return logger.WrapError(err, "")
	}

	c.current = round
	logger.Info("Round %d open for betting until %s", round.Number, round.Deadline.UTC().Format(time.RFC3339))

	if c.ws != nil {
		c.ws.BroadcastRoundStarted(round)
	}
	return nil
}

// AdvanceIfDue moves the current round along the BETTING -> SPINNING ->
// RESULTS -> next-round chain when its deadline has passed. Safe to call
// repeatedly and from multiple goroutines: phase writes carry a WHERE guard
// on the expected phase, and settlement is idempotent.
func (c *RouletteClock) AdvanceIfDue(now time.Time) error {
	settle, err := c.advanceLocked(now)
	if err != nil {
		return err
	}
	if settle != nil {
		return c.settleCurrent(settle)
	}
	return nil
}

// advanceLocked performs the mutex-guarded part of an advance and reports
// which round, if any, needs a settlement pass after the lock is released.
// The deferred unlock keeps the mutex safe even if a transition panics.
func (c *RouletteClock) advanceLocked(now time.Time) (*models.RouletteRound, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil, c.openNewRoundLocked(now)
	}

	round := c.current
	if now.Before(round.Deadline) {
		// An unsettled RESULTS round retries settlement every tick; its
		// deadline only gates when the next round may open.
		if round.Phase == models.RoundPhaseResults && !round.Settled {
			return round, nil
		}
		return nil, nil
	}

	switch round.Phase {
	case models.RoundPhaseBetting:
		return nil, c.beginSpinLocked(round, now)

	case models.RoundPhaseSpinning:
		if err := c.beginResultsLocked(round, now); err != nil {
			return nil, err
		}
		return round, nil

	case models.RoundPhaseResults:
		if !round.Settled {
			// Unpaid winners block the next round; a stuck round is
			// preferable to a silently dropped payout.
			return round, nil
		}
		if c.ws != nil {
			c.ws.BroadcastRoundEnded(round)
		}
		return nil, c.openNewRoundLocked(now)
	}

	return nil, logger.WrapError(fmt.Errorf("round %d in unknown phase %s", round.Number, round.Phase), "")
}

// beginSpinLocked fixes the outcome and closes betting. The outcome is drawn
// exactly once here and never changes afterward; the phase guard in the WHERE
// clause makes a lost race a no-op instead of a second draw.
func (c *RouletteClock) beginSpinLocked(round *models.RouletteRound, now time.Time) error {
	outcome := OutcomeFromSeed(round.ServerSeed, round.Number)
	deadline := now.Add(c.cfg.Spinning)

	res := db.DB.Model(&models.RouletteRound{}).
		Where("id = ? AND phase = ?", round.ID, models.RoundPhaseBetting).
		Updates(map[string]interface{}{
			"phase":    models.RoundPhaseSpinning,
			"deadline": deadline,
			"position": outcome.Position,
			"color":    outcome.Color,
			"label":    outcome.Label,
		})
	if res.Error != nil {
		return logger.WrapError(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return nil
	}

	round.Phase = models.RoundPhaseSpinning
	round.Deadline = deadline
	round.Position = outcome.Position
	round.Color = outcome.Color
	round.Label = outcome.Label

	logger.Info("Round %d spinning", round.Number)

	// Outcome stays concealed until RESULTS; renderers only need the phase.
	if c.ws != nil {
		c.ws.BroadcastPhaseChanged(round, nil)
	}
	return nil
}

// beginResultsLocked reveals the outcome and opens the display window.
func (c *RouletteClock) beginResultsLocked(round *models.RouletteRound, now time.Time) error {
	deadline := now.Add(c.cfg.Results)

	res := db.DB.Model(&models.RouletteRound{}).
		Where("id = ? AND phase = ?", round.ID, models.RoundPhaseSpinning).
		Updates(map[string]interface{}{
			"phase":    models.RoundPhaseResults,
			"deadline": deadline,
		})
	if res.Error != nil {
		return logger.WrapError(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return nil
	}

	round.Phase = models.RoundPhaseResults
	round.Deadline = deadline

	outcome := OutcomeAt(round.Position)
	logger.Info("Round %d landed on %d (%s)", round.Number, outcome.Position, outcome.Color)

	if c.ws != nil {
		c.ws.BroadcastPhaseChanged(round, &outcome)
	}
	return nil
}

// settleCurrent runs one settlement pass for the round. The database pass
// works on a private copy so a slow wallet credit never blocks state reads or
// bet placement; the shared round is only read and written under mu, and the
// results broadcast fires for exactly one pass.
func (c *RouletteClock) settleCurrent(round *models.RouletteRound) error {
	c.mu.Lock()
	snapshot := *round
	c.mu.Unlock()

	if !snapshot.OutcomeKnown() {
		return logger.WrapError(errors.New("refusing to settle round without outcome"), "")
	}

	outcome := OutcomeAt(snapshot.Position)

	report, err := SettleRound(&snapshot, outcome)
	if err != nil {
		return err
	}
	if !snapshot.Settled {
		logger.Warn("Round %d still has %d unresolved bets; holding in results", snapshot.Number, report.Failed)
		return nil
	}

	c.mu.Lock()
	first := !round.Settled
	round.Settled = true
	round.SettledAt = snapshot.SettledAt
	round.ResultsJSON = snapshot.ResultsJSON
	c.mu.Unlock()

	if first && c.ws != nil {
		c.ws.BroadcastRoundResults(&snapshot, outcome, report)
		c.ws.CacheRoundResult(&snapshot)
	}
	return nil
}

// ForceNewRound is the administrative escape hatch for a wedged round. It
// walks the current round through the normal transitions (drawing the outcome
// and settling if needed) and opens the next round via the usual creation
// path. It refuses to rotate while any bet is unresolved.
func (c *RouletteClock) ForceNewRound(now time.Time) error {
	round, err := c.forceCloseLocked(now)
	if err != nil {
		return err
	}

	if round != nil {
		if err := c.settleCurrent(round); err != nil {
			return err
		}
		c.mu.Lock()
		settled := round.Settled
		c.mu.Unlock()
		if !settled {
			return errors.New("round has unresolved bets, not opening a new one")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != round {
		// A concurrent tick already rotated.
		return nil
	}
	if round != nil && c.ws != nil {
		c.ws.BroadcastRoundEnded(round)
	}
	return c.openNewRoundLocked(now)
}

// forceCloseLocked walks the current round out of its live phases under the
// mutex, drawing the outcome if betting was still open.
func (c *RouletteClock) forceCloseLocked(now time.Time) (*models.RouletteRound, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	round := c.current
	if round != nil && round.Phase == models.RoundPhaseBetting {
		if err := c.beginSpinLocked(round, now); err != nil {
			return nil, err
		}
	}
	if round != nil && round.Phase == models.RoundPhaseSpinning {
		if err := c.beginResultsLocked(round, now); err != nil {
			return nil, err
		}
	}
	return round, nil
}

// RouletteState is the pull-side snapshot for polling and resynchronizing
// clients.
type RouletteState struct {
	RoundID       uuid.UUID        `json:"round_id"`
	RoundNumber   int64            `json:"round_number"`
	Phase         string           `json:"phase"`
	TimeRemaining float64          `json:"time_remaining"`
	Deadline      time.Time        `json:"deadline"`
	SeedHash      string           `json:"seed_hash"`
	Outcome       *RouletteOutcome `json:"outcome"`
	Settled       bool             `json:"settled"`
	LastTick      time.Time        `json:"last_tick"`
}

// CurrentState returns a snapshot of the shared round. It takes only the
// round mutex and touches no I/O, so it cannot block or fail. The outcome is
// included only once betting has closed.
func (c *RouletteClock) CurrentState(now time.Time) RouletteState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := RouletteState{LastTick: c.LastTick()}
	round := c.current
	if round == nil {
		return state
	}

	state.RoundID = round.UUID
	state.RoundNumber = round.Number
	state.Phase = round.Phase
	state.Deadline = round.Deadline
	state.SeedHash = round.SeedHash
	state.Settled = round.Settled

	if remaining := round.Deadline.Sub(now); remaining > 0 {
		state.TimeRemaining = remaining.Seconds()
	}

	if round.Phase != models.RoundPhaseBetting && round.OutcomeKnown() {
		outcome := OutcomeAt(round.Position)
		state.Outcome = &outcome
	}
	return state
}

// LastTick reports when the clock last completed a tick successfully.
// Monitoring uses it to detect a stalled loop.
func (c *RouletteClock) LastTick() time.Time {
	c.tickMu.RLock()
	defer c.tickMu.RUnlock()
	return c.lastTick
}

// Tick runs one scheduler beat: advance if due, then push the countdown to
// connected clients. Any panic or error is contained here so a bad tick can
// never kill the loop; lastTick moves only when the tick fully succeeds.
func (c *RouletteClock) Tick(now time.Time) {
	ok := true

	func() {
		defer func() {
			if r := recover(); r != nil {
				ok = false
				logger.Error("Roulette tick panicked: %v", r)
			}
		}()

		if err := c.AdvanceIfDue(now); err != nil {
			ok = false
			logger.Error("Roulette tick: %v", err)
			return
		}

		if c.ws != nil {
			state := c.CurrentState(now)
			c.ws.BroadcastTimerTick(state)
		}
	}()

	if ok {
		c.tickMu.Lock()
		c.lastTick = now
		c.tickMu.Unlock()
	}
}

// Run ticks the clock once per second, forever.
func (c *RouletteClock) Run() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		c.Tick(time.Now())
	}
}

// SuperviseRoulette keeps the round loop alive. Tick already isolates
// per-tick faults; this is the outer belt in case the loop goroutine itself
// ever dies.
func SuperviseRoulette(clock *RouletteClock) {
	for {
		logger.Info("Starting roulette round loop")

		done := make(chan bool)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Roulette round loop panicked: %v", r)
					done <- true
				}
			}()

			clock.Run()
		}()

		<-done
		time.Sleep(5 * time.Second)
	}
}

// GetRouletteState handles GET requests for the current round state. The read
// path advances the round opportunistically so a paused ticker can never
// freeze what clients see.
func GetRouletteState(c *gin.Context) {
	now := time.Now()
	if err := RouletteGame.AdvanceIfDue(now); err != nil {
		logger.Error("%v", err)
	}
	c.JSON(200, RouletteGame.CurrentState(now))
}

// ForceRouletteRound handles POST requests to rotate a stuck round.
func ForceRouletteRound(c *gin.Context) {
	if err := RouletteGame.ForceNewRound(time.Now()); err != nil {
		logger.Error("%v", err)
		c.JSON(409, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, RouletteGame.CurrentState(time.Now()))
}
