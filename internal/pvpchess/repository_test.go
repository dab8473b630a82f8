package pvpchess

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSANMovesReplay(t *testing.T) {
	got, err := sanMoves([]string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5"})
	if err != nil {
		t.Fatalf("sanMoves: %v", err)
	}
	want := []string{"e4", "e5", "Nf3", "Nc6", "Bb5"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("SAN mismatch (-want +got):\n%s", diff)
	}
	if _, err := sanMoves([]string{"e2e5"}); err == nil {
		t.Fatalf("illegal history should fail to replay")
	}
}

func TestBuildPGNForFoolsMate(t *testing.T) {
	g := newTestGame()
	mustPlay(t, g, t0, "f2f3", "e7e5", "g2g4", "d8h4")
	san, err := sanMoves(g.Notations())
	if err != nil {
		t.Fatalf("sanMoves: %v", err)
	}
	pgn := buildPGN(g, san, resultToPGN(g.Result))
	for _, want := range []string{
		`[White "alice"]`,
		`[Black "bob"]`,
		`[TimeControl "300+0"]`,
		`[Termination "Checkmate"]`,
		`[Result "0-1"]`,
		"1. f3 e5 2. g4 Qh4",
	} {
		if !strings.Contains(pgn, want) {
			t.Errorf("pgn missing %q:\n%s", want, pgn)
		}
	}
	if !strings.HasSuffix(pgn, "0-1") {
		t.Errorf("pgn should end with the result: %q", pgn)
	}
}

func TestResultToPGN(t *testing.T) {
	tests := map[Result]string{
		ResultWhiteWin: "1-0",
		ResultBlackWin: "0-1",
		ResultDraw:     "1/2-1/2",
		ResultAborted:  "*",
		ResultOngoing:  "*",
	}
	for r, want := range tests {
		if got := resultToPGN(r); got != want {
			t.Errorf("resultToPGN(%s) = %q; want %q", r, got, want)
		}
	}
}

func TestSaveResultWithoutDatabaseIsNoop(t *testing.T) {
	var r *Repository
	g := newTestGame()
	g.Resign("alice", t0)
	if err := r.SaveResult(context.Background(), g); err != nil {
		t.Fatalf("nil repository: %v", err)
	}
}
