package service

import (
	"GemRushApi/cmd/db"
	"GemRushApi/internal/middleware"
	"GemRushApi/internal/models"
	"GemRushApi/pkg/logger"
	"GemRushApi/pkg/redis"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// upgrader is used to upgrade HTTP connections to WebSocket connections.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeTimeout = 5 * time.Second

// rouletteEvent is one queued outbound message; userID 0 means broadcast.
type rouletteEvent struct {
	userID  int64
	payload gin.H
}

// RouletteWebsocketService fans round events out to connected clients. The
// clock only calls its Broadcast* methods, which enqueue onto a bounded
// outbound queue and never touch the network themselves, so a slow peer can
// never stall a caller holding the round mutex. Transport concerns
// (disconnects, reconnection, multi-tab) stay on this side of the boundary.
type RouletteWebsocketService struct {
	connections      map[int64]*websocket.Conn
	mu               sync.Mutex
	lastActivityTime map[int64]time.Time

	events chan rouletteEvent

	betDistribution map[string]int64
	betMutex        sync.RWMutex

	redisService *redis.RedisService
}

// NewRouletteWebsocketService creates a new instance of RouletteWebsocketService.
// redisService may be nil; the recent-results cache is then skipped.
func NewRouletteWebsocketService(redisService *redis.RedisService) *RouletteWebsocketService {
	service := &RouletteWebsocketService{
		connections:      make(map[int64]*websocket.Conn),
		lastActivityTime: make(map[int64]time.Time),
		events:           make(chan rouletteEvent, 256),
		betDistribution:  make(map[string]int64),
		redisService:     redisService,
	}
	go service.dispatchEvents()
	go service.cleanupInactiveConnections()
	return service
}

func (ws *RouletteWebsocketService) dispatchEvents() {
	for event := range ws.events {
		if event.userID != 0 {
			ws.writeToUser(event.userID, event.payload)
			continue
		}
		ws.writeToAll(event.payload)
	}
}

func (ws *RouletteWebsocketService) cleanupInactiveConnections() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		ws.mu.Lock()
		now := time.Now()
		for userID, lastActivity := range ws.lastActivityTime {
			if now.Sub(lastActivity) > 30*time.Minute {
				if conn, ok := ws.connections[userID]; ok {
					conn.Close()
					delete(ws.connections, userID)
					delete(ws.lastActivityTime, userID)
				}
			}
		}
		ws.mu.Unlock()
	}
}

// LiveRouletteWebsocketHandler handles the WebSocket connection for live round events.
func (ws *RouletteWebsocketService) LiveRouletteWebsocketHandler(c *gin.Context) {
	userID, err := middleware.GetUserIDFromGinContext(c)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("%v", err)
		return
	}

	ws.mu.Lock()
	ws.connections[userID] = conn
	ws.lastActivityTime[userID] = time.Now()
	ws.mu.Unlock()

	defer func() {
		ws.mu.Lock()
		delete(ws.connections, userID)
		delete(ws.lastActivityTime, userID)
		ws.mu.Unlock()
		conn.Close()
	}()

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
		ws.mu.Lock()
		ws.lastActivityTime[userID] = time.Now()
		ws.mu.Unlock()
	}
}

// broadcast queues a payload for every connected client. Non-blocking: when
// the queue is full the event is dropped rather than stalling the caller.
func (ws *RouletteWebsocketService) broadcast(payload gin.H) {
	ws.enqueue(rouletteEvent{payload: payload})
}

func (ws *RouletteWebsocketService) enqueue(event rouletteEvent) {
	select {
	case ws.events <- event:
	default:
		logger.Warn("Event queue full, dropping %v", event.payload["type"])
	}
}

func (ws *RouletteWebsocketService) writeToAll(payload gin.H) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	for userID, conn := range ws.connections {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(payload); err != nil {
			logger.Error("Failed to broadcast to user %d: %v", userID, err)
			conn.Close()
			delete(ws.connections, userID)
			delete(ws.lastActivityTime, userID)
		}
	}
}

func (ws *RouletteWebsocketService) writeToUser(userID int64, payload gin.H) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	conn, ok := ws.connections[userID]
	if !ok {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(payload); err != nil {
		logger.Error("Failed to send to user %d: %v", userID, err)
		conn.Close()
		delete(ws.connections, userID)
		delete(ws.lastActivityTime, userID)
	}
}

// BroadcastTimerTick pushes the countdown to every connected client.
func (ws *RouletteWebsocketService) BroadcastTimerTick(state RouletteState) {
	ws.broadcast(gin.H{
		"type":            "timer_tick",
		"round_number":    state.RoundNumber,
		"phase":           state.Phase,
		"remaining_time":  state.TimeRemaining,
		"is_betting_open": state.Phase == models.RoundPhaseBetting,
	})
}

// BroadcastRoundStarted announces a fresh round and its seed commitment.
func (ws *RouletteWebsocketService) BroadcastRoundStarted(round *models.RouletteRound) {
	ws.resetBetDistribution()

	ws.broadcast(gin.H{
		"type":         "round_started",
		"round_id":     round.UUID,
		"round_number": round.Number,
		"deadline":     round.Deadline.UTC(),
		"seed_hash":    round.SeedHash,
	})
}

// BroadcastPhaseChanged announces a phase transition. The outcome pointer is
// nil until the clock is ready to reveal it.
func (ws *RouletteWebsocketService) BroadcastPhaseChanged(round *models.RouletteRound, outcome *RouletteOutcome) {
	payload := gin.H{
		"type":         "phase_changed",
		"round_number": round.Number,
		"phase":        round.Phase,
	}
	if outcome != nil {
		payload["outcome"] = outcome
	}
	ws.broadcast(payload)
}

// BroadcastRoundResults reveals the outcome, the server seed and the per-bet
// summaries once settlement has completed.
func (ws *RouletteWebsocketService) BroadcastRoundResults(round *models.RouletteRound, outcome RouletteOutcome, report *SettlementReport) {
	ws.broadcast(gin.H{
		"type":         "round_results",
		"round_number": round.Number,
		"outcome":      outcome,
		"server_seed":  round.ServerSeed,
		"seed_hash":    round.SeedHash,
		"total_staked": report.TotalStaked,
		"total_paid":   report.TotalPaid,
		"bets":         report.Summaries,
	})

	for _, summary := range report.Summaries {
		ws.sendBetResultToUser(summary)
	}
}

// BroadcastRoundEnded signals that the round is archived and a new one follows.
func (ws *RouletteWebsocketService) BroadcastRoundEnded(round *models.RouletteRound) {
	ws.broadcast(gin.H{
		"type":     "round_ended",
		"round_id": round.UUID,
	})
}

// BroadcastBetPlaced shares an accepted bet and the running stake
// distribution with all clients.
func (ws *RouletteWebsocketService) BroadcastBetPlaced(bet *models.RouletteBet) {
	ws.updateBetDistribution(bet)

	ws.betMutex.RLock()
	distribution := make(map[string]int64, len(ws.betDistribution))
	for selector, staked := range ws.betDistribution {
		distribution[selector] = staked
	}
	ws.betMutex.RUnlock()

	ws.broadcast(gin.H{
		"type":             "bet_placed",
		"user_id":          bet.UserID,
		"category":         bet.Category,
		"selector":         bet.Selector,
		"stake":            bet.Stake,
		"bet_distribution": distribution,
	})
}

// sendBetResultToUser queues a settled bet's result for its owner.
func (ws *RouletteWebsocketService) sendBetResultToUser(summary RouletteBetSummary) {
	ws.enqueue(rouletteEvent{
		userID: summary.UserID,
		payload: gin.H{
			"type":     "bet_result",
			"bet_id":   summary.BetID,
			"category": summary.Category,
			"selector": summary.Selector,
			"stake":    summary.Stake,
			"status":   summary.Status,
			"payout":   summary.Payout,
		},
	})
}

func (ws *RouletteWebsocketService) updateBetDistribution(bet *models.RouletteBet) {
	ws.betMutex.Lock()
	defer ws.betMutex.Unlock()
	ws.betDistribution[bet.Category+":"+bet.Selector] += bet.Stake
}

func (ws *RouletteWebsocketService) resetBetDistribution() {
	ws.betMutex.Lock()
	defer ws.betMutex.Unlock()
	ws.betDistribution = make(map[string]int64)
}

// rouletteResultCache is the cached shape of a finished round.
type rouletteResultCache struct {
	RoundNumber int64  `json:"round_number"`
	Position    int    `json:"position"`
	Color       string `json:"color"`
	Label       string `json:"label"`
	ServerSeed  string `json:"server_seed"`
	SeedHash    string `json:"seed_hash"`
	Timestamp   int64  `json:"timestamp"`
}

const recentResultsLimit = 20

// CacheRoundResult stores a settled round's outcome in Redis for the
// recent-results feed. Zero-padded round numbers keep key order = round order.
func (ws *RouletteWebsocketService) CacheRoundResult(round *models.RouletteRound) {
	if ws.redisService == nil {
		return
	}

	entry := rouletteResultCache{
		RoundNumber: round.Number,
		Position:    round.Position,
		Color:       round.Color,
		Label:       round.Label,
		ServerSeed:  round.ServerSeed,
		SeedHash:    round.SeedHash,
		Timestamp:   time.Now().Unix(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		logger.Error("%v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf("roulette:result:%012d", round.Number)
	if err := ws.redisService.SetKey(ctx, key, string(data), 24*time.Hour); err != nil {
		logger.Error("%v", err)
	}
}

// GetRecentResults handles GET requests for the last settled outcomes.
// Served from Redis when available, from the rounds table otherwise.
func (ws *RouletteWebsocketService) GetRecentResults(c *gin.Context) {
	if ws.redisService != nil {
		results, err := ws.fetchCachedResults(c.Request.Context())
		if err == nil && len(results) > 0 {
			c.JSON(200, results)
			return
		}
		if err != nil {
			logger.Error("%v", err)
		}
	}

	var rounds []models.RouletteRound
	err := db.DB.Where("settled = ?", true).
		Order("number desc").
		Limit(recentResultsLimit).
		Find(&rounds).Error
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	results := make([]rouletteResultCache, 0, len(rounds))
	for _, round := range rounds {
		results = append(results, rouletteResultCache{
			RoundNumber: round.Number,
			Position:    round.Position,
			Color:       round.Color,
			Label:       round.Label,
			ServerSeed:  round.ServerSeed,
			SeedHash:    round.SeedHash,
			Timestamp:   round.CreatedAt.Unix(),
		})
	}
	c.JSON(200, results)
}

func (ws *RouletteWebsocketService) fetchCachedResults(ctx context.Context) ([]rouletteResultCache, error) {
	keys, err := ws.redisService.SortedKeys(ctx, "roulette:result:*")
	if err != nil {
		return nil, err
	}
	if len(keys) > recentResultsLimit {
		keys = keys[len(keys)-recentResultsLimit:]
	}

	results := make([]rouletteResultCache, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- { // newest first
		data, err := ws.redisService.GetKey(ctx, keys[i])
		if err != nil {
			return nil, err
		}

		var entry rouletteResultCache
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, logger.WrapError(err, "")
		}
		results = append(results, entry)
	}
	return results, nil
}
