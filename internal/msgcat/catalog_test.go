package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("game.opponent_disconnected", map[string]any{"Opponent": "bob", "GraceSeconds": 60})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(got, "bob") || !strings.Contains(got, "60 seconds") {
		t.Fatalf("rendered %q", got)
	}
	if _, err := c.Render("game.opponent_disconnected", map[string]any{}); err == nil {
		t.Fatalf("missing template data should fail")
	}
	if got := c.Text("no.such.key", nil); got != "no.such.key" {
		t.Fatalf("Text fallback = %q", got)
	}
}

func TestOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("lobby:\n  waiting: \"hold on\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("lobby.waiting", nil); got != "hold on" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.Text("lobby.left_queue", nil); got != "You left the queue." {
		t.Fatalf("default lost: %q", got)
	}
}

func TestDuplicateOverrideKeys(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("lobby:\n  waiting: x\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("duplicate keys across files should fail")
	}
}

func TestNonStringLeafRejected(t *testing.T) {
	if _, err := parseYAMLToFlat([]byte("lobby:\n  waiting: 3\n")); err == nil {
		t.Fatalf("integer leaf should be rejected")
	}
}
