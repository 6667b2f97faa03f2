package service

import (
	"GemRushApi/internal/models"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// TestBroadcastNeverBlocksOnFullQueue fills the outbound queue with no
// dispatcher draining it and checks that further broadcasts return instead of
// stalling the caller, which may be holding the round mutex.
func TestBroadcastNeverBlocksOnFullQueue(t *testing.T) {
	ws := &RouletteWebsocketService{
		connections:      make(map[int64]*websocket.Conn),
		lastActivityTime: make(map[int64]time.Time),
		events:           make(chan rouletteEvent, 1),
		betDistribution:  make(map[string]int64),
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			ws.BroadcastRoundEnded(&models.RouletteRound{UUID: uuid.New()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full event queue")
	}
}

// TestBetResultRoutedToOwner checks that per-user results are queued as
// targeted events rather than broadcasts.
func TestBetResultRoutedToOwner(t *testing.T) {
	ws := &RouletteWebsocketService{
		connections:      make(map[int64]*websocket.Conn),
		lastActivityTime: make(map[int64]time.Time),
		events:           make(chan rouletteEvent, 4),
		betDistribution:  make(map[string]int64),
	}

	ws.sendBetResultToUser(RouletteBetSummary{UserID: 7, Status: models.BetStatusWon, Payout: 200})

	select {
	case event := <-ws.events:
		if event.userID != 7 {
			t.Errorf("event userID = %d, want 7", event.userID)
		}
		if event.payload["type"] != "bet_result" {
			t.Errorf("event type = %v, want bet_result", event.payload["type"])
		}
	default:
		t.Fatal("no event queued")
	}
}
