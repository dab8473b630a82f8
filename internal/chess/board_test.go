package chess

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewBoardRows(t *testing.T) {
	b := NewBoard()
	want := []string{
		"rnbqkbnr",
		"pppppppp",
		"........",
		"........",
		"........",
		"........",
		"PPPPPPPP",
		"RNBQKBNR",
	}
	if diff := cmp.Diff(want, b.Rows()); diff != "" {
		t.Fatalf("start position mismatch (-want +got):\n%s", diff)
	}
	p, ok := b.PieceAt(MustSquare("e1"))
	if !ok || p != (Piece{Color: White, Kind: King}) {
		t.Fatalf("e1 = %+v (%v); want white king", p, ok)
	}
	if !b.IsEmptyAt(MustSquare("e4")) {
		t.Fatalf("e4 should be empty")
	}
}

func TestBoardCopyIsIndependent(t *testing.T) {
	b := NewBoard()
	c := b.Copy()
	c.SetPieceAt(MustSquare("e2"), nil)
	if b.IsEmptyAt(MustSquare("e2")) {
		t.Fatalf("mutating the copy changed the original")
	}
	if !c.IsEmptyAt(MustSquare("e2")) {
		t.Fatalf("copy was not mutated")
	}
}

func TestPathClear(t *testing.T) {
	b := NewBoard()
	tests := []struct {
		from, to string
		want     bool
	}{
		{"a1", "a8", false}, // pawns in the way
		{"a2", "a7", true},  // endpoints excluded
		{"c1", "h6", false}, // d2 blocks
		{"d3", "h7", true},
		{"a3", "h3", true},
		{"b1", "c3", false}, // not on a line
		{"e4", "e5", true},  // adjacent
	}
	for _, tt := range tests {
		if got := b.PathClear(MustSquare(tt.from), MustSquare(tt.to)); got != tt.want {
			t.Errorf("PathClear(%s,%s) = %v; want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestBoardJSONRoundTrip(t *testing.T) {
	b := MustBoard(
		"k.......",
		"..Q.....",
		"..K.....",
		"........",
		"........",
		"........",
		"........",
		"........",
	)
	raw, err := b.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Board
	if err := got.UnmarshalJSON(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != b {
		t.Fatalf("board changed across JSON: %v vs %v", got.Rows(), b.Rows())
	}
}

func TestParseMove(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "e2e4", want: "e2e4"},
		{in: "E7E8Q", want: "e7e8q"},
		{in: "a7a8n", want: "a7a8n"},
		{in: "e2e", wantErr: true},
		{in: "e2e4e5", wantErr: true},
		{in: "i2e4", wantErr: true},
		{in: "e9e4", wantErr: true},
		{in: "e7e8k", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		m, err := ParseMove(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrBadNotation) {
				t.Errorf("ParseMove(%q) err = %v; want ErrBadNotation", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMove(%q): %v", tt.in, err)
			continue
		}
		if m.String() != tt.want {
			t.Errorf("ParseMove(%q) = %s; want %s", tt.in, m, tt.want)
		}
	}
}
