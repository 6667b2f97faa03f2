package service

import (
	"errors"
	"strconv"
	"testing"
)

func TestColorMappingCoversEveryPosition(t *testing.T) {
	counts := map[string]int{}
	for p := 0; p < WheelPositions; p++ {
		color := ColorOf(p)
		if color == "" {
			t.Fatalf("position %d has no color", p)
		}
		counts[color]++
	}

	if counts[ColorGreen] != 1 {
		t.Errorf("expected exactly one green pocket, got %d", counts[ColorGreen])
	}
	if counts[ColorRed] != 18 {
		t.Errorf("expected 18 red pockets, got %d", counts[ColorRed])
	}
	if counts[ColorBlack] != 18 {
		t.Errorf("expected 18 black pockets, got %d", counts[ColorBlack])
	}
	if ColorOf(0) != ColorGreen {
		t.Errorf("position 0 must be green, got %s", ColorOf(0))
	}
}

func TestColorOfOutsideWheel(t *testing.T) {
	if got := ColorOf(-1); got != "" {
		t.Errorf("ColorOf(-1) = %q, want empty", got)
	}
	if got := ColorOf(37); got != "" {
		t.Errorf("ColorOf(37) = %q, want empty", got)
	}
}

func TestLabelFollowsColor(t *testing.T) {
	cases := map[int]string{0: "Emerald", 1: "Ruby", 2: "Onyx"}
	for position, want := range cases {
		if got := LabelOf(position); got != want {
			t.Errorf("LabelOf(%d) = %q, want %q", position, got, want)
		}
	}
}

func TestZeroLosesEverySideBet(t *testing.T) {
	if ParityOf(0) != "" {
		t.Errorf("zero must have no parity, got %q", ParityOf(0))
	}
	if RangeOf(0) != "" {
		t.Errorf("zero must be outside both ranges, got %q", RangeOf(0))
	}

	for _, selector := range []string{ParityEven, ParityOdd} {
		won, err := EvaluateBet(BetCategoryParity, selector, 0)
		if err != nil {
			t.Fatalf("EvaluateBet(parity, %s, 0): %v", selector, err)
		}
		if won {
			t.Errorf("parity %s must lose on zero", selector)
		}
	}
	for _, selector := range []string{RangeLow, RangeHigh} {
		won, err := EvaluateBet(BetCategoryRange, selector, 0)
		if err != nil {
			t.Fatalf("EvaluateBet(range, %s, 0): %v", selector, err)
		}
		if won {
			t.Errorf("range %s must lose on zero", selector)
		}
	}
}

func TestParityAndRangePartitionNonZeroPositions(t *testing.T) {
	parity := map[string]int{}
	ranges := map[string]int{}
	for p := 1; p < WheelPositions; p++ {
		parity[ParityOf(p)]++
		ranges[RangeOf(p)]++
	}

	if parity[ParityEven] != 18 || parity[ParityOdd] != 18 {
		t.Errorf("parity split = %v, want 18/18", parity)
	}
	if ranges[RangeLow] != 18 || ranges[RangeHigh] != 18 {
		t.Errorf("range split = %v, want 18/18", ranges)
	}
}

func TestEvaluateBetSingle(t *testing.T) {
	for p := 0; p < WheelPositions; p++ {
		won, err := EvaluateBet(BetCategorySingle, strconv.Itoa(p), p)
		if err != nil {
			t.Fatalf("EvaluateBet(single, %d, %d): %v", p, p, err)
		}
		if !won {
			t.Errorf("single %d must win at position %d", p, p)
		}

		other := (p + 1) % WheelPositions
		won, err = EvaluateBet(BetCategorySingle, strconv.Itoa(other), p)
		if err != nil {
			t.Fatalf("EvaluateBet(single, %d, %d): %v", other, p, err)
		}
		if won {
			t.Errorf("single %d must lose at position %d", other, p)
		}
	}
}

func TestEvaluateBetColorMatchesMapping(t *testing.T) {
	for p := 0; p < WheelPositions; p++ {
		for _, selector := range []string{ColorRed, ColorBlack, ColorGreen} {
			won, err := EvaluateBet(BetCategoryColor, selector, p)
			if err != nil {
				t.Fatalf("EvaluateBet(color, %s, %d): %v", selector, p, err)
			}
			if won != (ColorOf(p) == selector) {
				t.Errorf("color %s at %d: got %v", selector, p, won)
			}
		}
	}
}

func TestEvaluateBetUnknownCategory(t *testing.T) {
	_, err := EvaluateBet(BetCategory("streak"), "3", 10)
	if !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestEvaluateBetOffWheel(t *testing.T) {
	if _, err := EvaluateBet(BetCategoryColor, ColorRed, 37); err == nil {
		t.Error("expected error for a position off the wheel")
	}
}

func TestMultipliers(t *testing.T) {
	cases := map[BetCategory]int64{
		BetCategorySingle: 36,
		BetCategoryColor:  2,
		BetCategoryParity: 2,
		BetCategoryRange:  2,
	}
	for category, want := range cases {
		got, err := MultiplierFor(category)
		if err != nil {
			t.Fatalf("MultiplierFor(%s): %v", category, err)
		}
		if got != want {
			t.Errorf("MultiplierFor(%s) = %d, want %d", category, got, want)
		}
	}

	if _, err := MultiplierFor(BetCategory("streak")); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestValidateSelector(t *testing.T) {
	valid := []struct {
		category BetCategory
		selector string
	}{
		{BetCategorySingle, "0"},
		{BetCategorySingle, "36"},
		{BetCategoryColor, ColorGreen},
		{BetCategoryParity, ParityOdd},
		{BetCategoryRange, RangeHigh},
	}
	for _, tc := range valid {
		if err := ValidateSelector(tc.category, tc.selector); err != nil {
			t.Errorf("ValidateSelector(%s, %s): %v", tc.category, tc.selector, err)
		}
	}

	invalid := []struct {
		category BetCategory
		selector string
	}{
		{BetCategorySingle, "37"},
		{BetCategorySingle, "-1"},
		{BetCategorySingle, "red"},
		{BetCategoryColor, "purple"},
		{BetCategoryParity, "zero"},
		{BetCategoryRange, "middle"},
	}
	for _, tc := range invalid {
		err := ValidateSelector(tc.category, tc.selector)
		if !errors.Is(err, ErrInvalidSelector) {
			t.Errorf("ValidateSelector(%s, %s) = %v, want ErrInvalidSelector", tc.category, tc.selector, err)
		}
	}

	if err := ValidateSelector(BetCategory("streak"), "x"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
}
