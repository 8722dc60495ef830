package matching

import (
	"math"
	"testing"
)

func TestSimilarityReflexive(t *testing.T) {
	inputs := []string{"", "trabuxu bistro", "cafe cordina", "a"}

	for _, input := range inputs {
		if got := Similarity(input, input); got != 1.0 {
			t.Errorf("Similarity(%q, %q) = %f, want 1.0", input, input, got)
		}
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"trabuxu bistro", "trabuxu"},
		{"cafe cordina", "cafe cordina valletta"},
		{"blue bar", "red bar"},
		{"", "something"},
	}

	for _, pair := range pairs {
		ab := Similarity(pair[0], pair[1])
		ba := Similarity(pair[1], pair[0])
		if ab != ba {
			t.Errorf("Similarity(%q, %q) = %f but reversed = %f", pair[0], pair[1], ab, ba)
		}
	}
}

func TestSimilarityBothEmpty(t *testing.T) {
	if got := Similarity("", ""); got != 1.0 {
		t.Errorf("Similarity of two empty strings = %f, want 1.0", got)
	}
}

func TestSimilarityKnownScores(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"abc", "abd", 1.0 - 1.0/3.0},
		{"abc", "", 0.0},
		{"kitten", "sitting", 1.0 - 3.0/7.0},
		{"blue bar", "blue bar", 1.0},
	}

	for _, c := range cases {
		got := Similarity(c.a, c.b)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("Similarity(%q, %q) = %f, want %f", c.a, c.b, got, c.want)
		}
	}
}

func TestSimilarityRange(t *testing.T) {
	pairs := [][2]string{
		{"completely different", "nothing alike xyz"},
		{"a", "zzzzzzzzzz"},
		{"trabuxu", "trabuxu bistro"},
	}

	for _, pair := range pairs {
		got := Similarity(pair[0], pair[1])
		if got < 0.0 || got > 1.0 {
			t.Errorf("Similarity(%q, %q) = %f, outside [0,1]", pair[0], pair[1], got)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"cafe", "café", 1},
	}

	for _, c := range cases {
		if got := levenshtein([]rune(c.a), []rune(c.b)); got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
