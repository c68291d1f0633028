package rules

import "testing"

func TestParseSquare(t *testing.T) {
	tests := []struct {
		name string
		want Square
		ok   bool
	}{
		{"a8", Square{Row: 0, Col: 0}, true},
		{"h1", Square{Row: 7, Col: 7}, true},
		{"E2", Square{Row: 6, Col: 4}, true},
		{" d5 ", Square{Row: 3, Col: 3}, true},
		{"i1", Square{}, false},
		{"e9", Square{}, false},
		{"", Square{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseSquare(tt.name)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("ParseSquare(%q) = %v,%v want %v,%v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSquareString(t *testing.T) {
	if got := (Square{Row: 6, Col: 4}).String(); got != "e2" {
		t.Fatalf("got %q want e2", got)
	}
	if got := (Square{Row: -1, Col: 4}).String(); got != "-" {
		t.Fatalf("off-board square rendered as %q", got)
	}
	if got := MoveText(Square{Row: 1, Col: 4}, Square{Row: 0, Col: 4}, Queen); got != "e7e8q" {
		t.Fatalf("MoveText = %q", got)
	}
}
