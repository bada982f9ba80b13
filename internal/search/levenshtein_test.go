package search

import "testing"

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{name: "identical", a: "телефон", b: "телефон", want: 0},
		{name: "case insensitive", a: "Телефон", b: "телефон", want: 0},
		{name: "empty left", a: "", b: "лампа", want: 5},
		{name: "empty right", a: "лампа", b: "", want: 5},
		{name: "both empty", a: "", b: "", want: 0},
		{name: "substitution", a: "кот", b: "код", want: 1},
		{name: "insertion", a: "кабел", b: "кабель", want: 1},
		{name: "latin", a: "kitten", b: "sitting", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); got != tt.want {
				t.Fatalf("Distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDistanceSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"розетка", "разетка"},
		{"выключатель", "переключатель"},
		{"", "автомат"},
		{"led", "лед"},
	}

	for _, p := range pairs {
		if Distance(p[0], p[1]) != Distance(p[1], p[0]) {
			t.Fatalf("Distance(%q, %q) != Distance(%q, %q)", p[0], p[1], p[1], p[0])
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("", ""); got != 1 {
		t.Fatalf("Similarity of empty strings = %v, want 1", got)
	}

	if got := Similarity("лампа", "лампа"); got != 1 {
		t.Fatalf("Similarity of identical strings = %v, want 1", got)
	}

	got := Similarity("розетка", "разетка")
	want := 6.0 / 7.0
	if got != want {
		t.Fatalf("Similarity = %v, want %v", got, want)
	}
}
