package chessdto

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestDomainErrorMatchesByCode(t *testing.T) {
	tailored := DomainError{Code: CodeIllegalMove, Message: "e2e5 is not legal here"}
	wrapped := fmt.Errorf("make move: %w", tailored)
	if !errors.Is(wrapped, ErrIllegalMove) {
		t.Fatalf("wrapped tailored error should match ErrIllegalMove")
	}
	if errors.Is(wrapped, ErrNotYourTurn) {
		t.Fatalf("different codes must not match")
	}
}

func TestErrorEvent(t *testing.T) {
	ev := ErrorEvent(fmt.Errorf("wrap: %w", ErrNotYourTurn))
	if ev.Type != EventError || ev.Code != CodeNotYourTurn {
		t.Fatalf("unexpected event: %+v", ev)
	}
	ev = ErrorEvent(errors.New("dial tcp: refused"))
	if ev.Code != CodeInternal || ev.Message != ErrInternal.Message {
		t.Fatalf("infrastructure error leaked: %+v", ev)
	}
}

func TestGameOverKeepsFalseStatsFlag(t *testing.T) {
	raw, err := json.Marshal(GameOverEvent("g1", "DRAW", "Stalemate.", false))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := m["statsOk"]; !ok || v != false {
		t.Fatalf("statsOk = %v (present %v); want false", v, ok)
	}
	if m["reason"] != "Stalemate." {
		t.Fatalf("reason = %v", m["reason"])
	}
}
