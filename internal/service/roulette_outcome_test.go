package service

import "testing"

func TestOutcomeFromSeedIsDeterministic(t *testing.T) {
	const seed = "a3f1c2d4e5b697887766554433221100ffeeddccbbaa99887766554433221100"

	first := OutcomeFromSeed(seed, 42)
	for i := 0; i < 10; i++ {
		if got := OutcomeFromSeed(seed, 42); got != first {
			t.Fatalf("draw %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestOutcomeFromSeedStaysOnWheel(t *testing.T) {
	const seed = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

	seen := map[int]bool{}
	for nonce := int64(1); nonce <= 500; nonce++ {
		outcome := OutcomeFromSeed(seed, nonce)
		if !ValidPosition(outcome.Position) {
			t.Fatalf("nonce %d: position %d off the wheel", nonce, outcome.Position)
		}
		if outcome.Color != ColorOf(outcome.Position) {
			t.Fatalf("nonce %d: color %s does not match position %d", nonce, outcome.Color, outcome.Position)
		}
		if outcome.Label != LabelOf(outcome.Position) {
			t.Fatalf("nonce %d: label %s does not match position %d", nonce, outcome.Label, outcome.Position)
		}
		seen[outcome.Position] = true
	}

	// 500 draws over 37 pockets should hit most of the wheel.
	if len(seen) < 30 {
		t.Errorf("only %d distinct positions over 500 draws", len(seen))
	}
}

func TestOutcomeVariesWithNonce(t *testing.T) {
	const seed = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

	first := OutcomeFromSeed(seed, 1).Position
	for nonce := int64(2); nonce <= 100; nonce++ {
		if OutcomeFromSeed(seed, nonce).Position != first {
			return
		}
	}
	t.Error("100 consecutive nonces produced the same position")
}

func TestNewServerSeed(t *testing.T) {
	seed, hash, err := NewServerSeed()
	if err != nil {
		t.Fatalf("NewServerSeed: %v", err)
	}
	if len(seed) != 64 {
		t.Errorf("seed length = %d, want 64 hex chars", len(seed))
	}
	if hash != SeedCommitment(seed) {
		t.Error("published hash does not match the seed commitment")
	}

	second, _, err := NewServerSeed()
	if err != nil {
		t.Fatalf("NewServerSeed: %v", err)
	}
	if second == seed {
		t.Error("two seeds in a row were identical")
	}
}

func TestOutcomeAtDerivesThroughWheelTables(t *testing.T) {
	for p := 0; p < WheelPositions; p++ {
		outcome := OutcomeAt(p)
		if outcome.Position != p || outcome.Color != ColorOf(p) || outcome.Label != LabelOf(p) {
			t.Errorf("OutcomeAt(%d) = %+v", p, outcome)
		}
	}
}
