package sources

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dqstack/veto-engine/internal/dqflags"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const definerYAML = `version: 1
rows:
  - flag: "H1:DMT-OVERFLOW:1"
    category: 1
  - flag: "H1:SUS-GLITCH:1"
    category: 2
    pad_start: -2
    pad_end: 2
    comment: "scattered light"
  - flag: "L1:ONLY:1"
    category: 1
    instruments: [L1]
`

func TestLoadDefinerYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "definer.yaml", definerYAML)
	def, err := LoadDefiner(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(def.Rows()) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(def.Rows()))
	}
	if def.Digest() == "" {
		t.Fatalf("digest missing")
	}
	cats := def.Categories()
	if len(cats) != 2 || cats[0] != 1 || cats[1] != 2 {
		t.Fatalf("unexpected categories %v", cats)
	}
	row := def.Rows()[1]
	if row.PadStart != -2 || row.PadEnd != 2 {
		t.Fatalf("pads not decoded: %+v", row)
	}
}

func TestLoadDefinerJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "definer.json",
		`{"version":1,"rows":[{"flag":"H1:A:1","category":1},{"flag":"H1:B:1","category":2,"pad_end":4}]}`)
	def, err := LoadDefiner(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(def.Rows()) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(def.Rows()))
	}
	if def.Rows()[1].PadEnd != 4 {
		t.Fatalf("pad_end not decoded: %+v", def.Rows()[1])
	}
}

func TestLoadDefinerJSONSchemaRejectsBadCategory(t *testing.T) {
	path := writeFile(t, t.TempDir(), "definer.json",
		`{"rows":[{"flag":"H1:A:1","category":0}]}`)
	_, err := LoadDefiner(path)
	if err == nil {
		t.Fatalf("expected schema validation failure")
	}
	if !strings.Contains(err.Error(), "schema") {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestLoadDefinerJSONSchemaRejectsUnknownField(t *testing.T) {
	path := writeFile(t, t.TempDir(), "definer.json",
		`{"rows":[{"flag":"H1:A:1","category":1,"padding":3}]}`)
	if _, err := LoadDefiner(path); err == nil {
		t.Fatalf("expected schema validation failure for unknown field")
	}
}

func TestLoadDefinerYAMLRejectsBadCategory(t *testing.T) {
	path := writeFile(t, t.TempDir(), "definer.yaml", "rows:\n  - flag: \"H1:A:1\"\n    category: 0\n")
	_, err := LoadDefiner(path)
	if !errors.Is(err, dqflags.ErrBadCategory) {
		t.Fatalf("expected ErrBadCategory, got %v", err)
	}
}

func TestLoadDefinerUnsupportedExtension(t *testing.T) {
	path := writeFile(t, t.TempDir(), "definer.xml", "<rows/>")
	if _, err := LoadDefiner(path); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}

func TestDefinerDigestTracksContent(t *testing.T) {
	dir := t.TempDir()
	a, err := LoadDefiner(writeFile(t, dir, "a.yaml", definerYAML))
	if err != nil {
		t.Fatalf("load a: %v", err)
	}
	b, err := LoadDefiner(writeFile(t, dir, "b.yaml", definerYAML))
	if err != nil {
		t.Fatalf("load b: %v", err)
	}
	if a.Digest() != b.Digest() {
		t.Fatalf("same rows must share a digest")
	}
	c, err := LoadDefiner(writeFile(t, dir, "c.yaml", strings.Replace(definerYAML, "category: 2", "category: 3", 1)))
	if err != nil {
		t.Fatalf("load c: %v", err)
	}
	if a.Digest() == c.Digest() {
		t.Fatalf("different rows must not share a digest")
	}
}

func TestDefinerApplyScoping(t *testing.T) {
	path := writeFile(t, t.TempDir(), "definer.yaml", definerYAML)
	def, err := LoadDefiner(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	reg := dqflags.NewRegistry("H1")
	if err := def.Apply(reg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	snap, err := reg.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if snap.Len() != 2 {
		t.Fatalf("expected 2 H1 flags, got %d", snap.Len())
	}
	if _, ok := snap.Flag("L1:ONLY:1"); ok {
		t.Fatalf("row scoped to L1 leaked into H1 snapshot")
	}
}

func TestDefinerApplyLastRowWins(t *testing.T) {
	path := writeFile(t, t.TempDir(), "definer.yaml", `rows:
  - flag: "H1:A:1"
    category: 1
  - flag: "H1:A:1"
    category: 4
`)
	def, err := LoadDefiner(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	reg := dqflags.NewRegistry("H1")
	if err := def.Apply(reg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	snap, err := reg.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	f, _ := snap.Flag("H1:A:1")
	if f.Category != 4 {
		t.Fatalf("expected last row to win, got category %d", f.Category)
	}
}

func TestNilDefinerIsInert(t *testing.T) {
	var def *Definer
	if def.Digest() != "" || def.Path() != "" || def.Rows() != nil || def.Categories() != nil {
		t.Fatalf("nil definer must be empty")
	}
	reg := dqflags.NewRegistry("H1")
	if err := def.Apply(reg); err != nil {
		t.Fatalf("nil apply: %v", err)
	}
}
