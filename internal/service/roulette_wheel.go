package service

import (
	"errors"
	"fmt"
	"strconv"
)

// European single-zero wheel: positions 0..36.
const WheelPositions = 37

// BetCategory is the closed set of supported bet kinds. Settlement and
// display both dispatch through EvaluateBet so there is a single source of
// truth for which positions win which selectors.
type BetCategory string

const (
	BetCategorySingle BetCategory = "single"
	BetCategoryColor  BetCategory = "color"
	BetCategoryParity BetCategory = "parity"
	BetCategoryRange  BetCategory = "range"
)

const (
	ColorRed   = "red"
	ColorBlack = "black"
	ColorGreen = "green"

	ParityEven = "even"
	ParityOdd  = "odd"

	RangeLow  = "low"  // 1..18
	RangeHigh = "high" // 19..36
)

var ErrUnknownCategory = errors.New("unknown bet category")
var ErrInvalidSelector = errors.New("invalid selector for category")

// redPositions is the canonical red set of a European wheel.
var redPositions = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// betMultipliers is the static payout table. Payouts are stake-inclusive:
// a winning bet's payout = stake * multiplier, credited as one amount.
var betMultipliers = map[BetCategory]int64{
	BetCategorySingle: 36,
	BetCategoryColor:  2,
	BetCategoryParity: 2,
	BetCategoryRange:  2,
}

// gemLabels maps pocket color to the thematic label shown on the wheel.
var gemLabels = map[string]string{
	ColorGreen: "Emerald",
	ColorRed:   "Ruby",
	ColorBlack: "Onyx",
}

// ValidPosition reports whether position is on the wheel.
func ValidPosition(position int) bool {
	return position >= 0 && position < WheelPositions
}

// ColorOf maps every valid position to exactly one color; 0 is green.
func ColorOf(position int) string {
	if !ValidPosition(position) {
		return ""
	}
	if position == 0 {
		return ColorGreen
	}
	if redPositions[position] {
		return ColorRed
	}
	return ColorBlack
}

// LabelOf returns the thematic gem name of a pocket.
func LabelOf(position int) string {
	return gemLabels[ColorOf(position)]
}

// ParityOf returns even/odd for 1..36. Zero has no parity and loses both
// parity selectors.
func ParityOf(position int) string {
	if !ValidPosition(position) || position == 0 {
		return ""
	}
	if position%2 == 0 {
		return ParityEven
	}
	return ParityOdd
}

// RangeOf returns low (1..18) or high (19..36). Zero is outside both ranges.
func RangeOf(position int) string {
	switch {
	case position >= 1 && position <= 18:
		return RangeLow
	case position >= 19 && position <= 36:
		return RangeHigh
	default:
		return ""
	}
}

// MultiplierFor returns the payout multiplier of a category.
func MultiplierFor(category BetCategory) (int64, error) {
	m, ok := betMultipliers[category]
	if !ok {
		return 0, ErrUnknownCategory
	}
	return m, nil
}

// ValidateSelector checks a selector against its category before a bet row
// is ever created, so settlement never meets a malformed pair.
func ValidateSelector(category BetCategory, selector string) error {
	switch category {
	case BetCategorySingle:
		n, err := strconv.Atoi(selector)
		if err != nil || !ValidPosition(n) {
			return fmt.Errorf("%w: single selector must be 0..36, got %q", ErrInvalidSelector, selector)
		}
	case BetCategoryColor:
		if selector != ColorRed && selector != ColorBlack && selector != ColorGreen {
			return fmt.Errorf("%w: color selector must be red, black or green, got %q", ErrInvalidSelector, selector)
		}
	case BetCategoryParity:
		if selector != ParityEven && selector != ParityOdd {
			return fmt.Errorf("%w: parity selector must be even or odd, got %q", ErrInvalidSelector, selector)
		}
	case BetCategoryRange:
		if selector != RangeLow && selector != RangeHigh {
			return fmt.Errorf("%w: range selector must be low or high, got %q", ErrInvalidSelector, selector)
		}
	default:
		return ErrUnknownCategory
	}
	return nil
}

// EvaluateBet decides whether a (category, selector) pair wins at the given
// position. Total over the closed category set; unknown categories error
// instead of silently losing.
func EvaluateBet(category BetCategory, selector string, position int) (bool, error) {
	if !ValidPosition(position) {
		return false, fmt.Errorf("position %d is off the wheel", position)
	}

	switch category {
	case BetCategorySingle:
		n, err := strconv.Atoi(selector)
		if err != nil {
			return false, fmt.Errorf("%w: %q", ErrInvalidSelector, selector)
		}
		return n == position, nil
	case BetCategoryColor:
		return ColorOf(position) == selector, nil
	case BetCategoryParity:
		return ParityOf(position) == selector, nil
	case BetCategoryRange:
		return RangeOf(position) == selector, nil
	default:
		return false, ErrUnknownCategory
	}
}
