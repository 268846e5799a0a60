package domain

import (
	"errors"
	"testing"
)

func TestRatingSummary(t *testing.T) {
	cases := []struct {
		scores  []int
		average float64
		display int
	}{
		{nil, 0, 0},
		{[]int{5, 5, 5, 4}, 4.75, 4},
		{[]int{1, 2}, 1.5, 1},
		{[]int{3}, 3, 3},
		{[]int{5, 5}, 5, 5},
	}
	for _, tc := range cases {
		s := SummarizeRatings(tc.scores)
		if s.Average() != tc.average {
			t.Fatalf("%v: expected average %v, got %v", tc.scores, tc.average, s.Average())
		}
		if s.Display() != tc.display {
			t.Fatalf("%v: expected display %d, got %d", tc.scores, tc.display, s.Display())
		}
	}
	if AverageRating(nil) != 0 {
		t.Fatalf("expected 0 for empty rating set")
	}
}

func TestValidateScore(t *testing.T) {
	for score := MinScore; score <= MaxScore; score++ {
		if err := ValidateScore(score); err != nil {
			t.Fatalf("score %d: unexpected error %v", score, err)
		}
	}
	for _, score := range []int{0, 6, -1} {
		if err := ValidateScore(score); !errors.Is(err, ErrInvalidScore) {
			t.Fatalf("score %d: expected ErrInvalidScore, got %v", score, err)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[int]string{0: "0m", 45: "45m", 60: "1h", 95: "1h 35m", 125: "2h 5m"}
	for in, want := range cases {
		if got := FormatMinutes(in); got != want {
			t.Fatalf("%d: expected %q, got %q", in, want, got)
		}
	}
	if got := FormatDuration(nil); got != "N/A" {
		t.Fatalf("expected N/A, got %q", got)
	}
}
