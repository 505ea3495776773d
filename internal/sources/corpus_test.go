package sources

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dqstack/veto-engine/internal/dqflags"
	"github.com/dqstack/veto-engine/pkg/segments"
)

func TestLoaderLoadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	definerPath := writeFile(t, dir, "definer.yaml", `rows:
  - flag: "H1:A:1"
    category: 1
  - flag: "H1:B:1"
    category: 2
  - flag: "L1:C:1"
    category: 1
`)
	writeFile(t, dir, "h1.json",
		`{"instrument": "H1", "span": [0, 100], "flags": [{"name": "H1:A:1", "active": [[0, 50]]}]}`)
	writeFile(t, dir, "h1b.seg", "# flag: H1:B:1\n# span: 0 100\n0\t60\t80\t20\n")
	writeFile(t, dir, "l1.json",
		`{"instrument": "L1", "span": [0, 100], "flags": [{"name": "L1:C:1", "active": [[10, 20]]}]}`)

	loader := NewLoader(nil, definerPath, []string{filepath.Join(dir, "*.json"), filepath.Join(dir, "*.seg")}, nil, nil)
	corpus, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	instruments := corpus.Instruments()
	if len(instruments) != 2 || instruments[0] != "H1" || instruments[1] != "L1" {
		t.Fatalf("unexpected instruments %v", instruments)
	}
	if !corpus.HasInstrument("H1") || corpus.HasInstrument("V1") {
		t.Fatalf("instrument membership wrong")
	}
	if len(corpus.Paths()) != 3 {
		t.Fatalf("expected 3 segment files, got %v", corpus.Paths())
	}
	if corpus.Definer().Digest() == "" {
		t.Fatalf("definer digest missing")
	}
	if corpus.FlagCount("H1") != 2 {
		t.Fatalf("expected 2 H1 flags, got %d", corpus.FlagCount("H1"))
	}

	snap, err := corpus.BuildSnapshot("H1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	a, ok := snap.Flag("H1:A:1")
	if !ok || a.Category != 1 {
		t.Fatalf("H1:A:1 not assembled: %+v", a)
	}
	if !a.Active.Equal(segments.NewList(segments.Segment{Start: 0, End: 50})) {
		t.Fatalf("unexpected active: %v", a.Active)
	}
	b, ok := snap.Flag("H1:B:1")
	if !ok || b.Category != 2 {
		t.Fatalf("H1:B:1 not assembled: %+v", b)
	}
	if _, ok := snap.Flag("L1:C:1"); ok {
		t.Fatalf("L1 flag leaked into H1 snapshot")
	}
}

func TestBuildSnapshotReportsUncategorized(t *testing.T) {
	dir := t.TempDir()
	definerPath := writeFile(t, dir, "definer.yaml", "rows:\n  - flag: \"H1:A:1\"\n    category: 1\n")
	writeFile(t, dir, "h1.json",
		`{"instrument": "H1", "span": [0, 100], "flags": [{"name": "H1:UNLISTED:1", "active": [[0, 10]]}]}`)

	loader := NewLoader(nil, definerPath, []string{filepath.Join(dir, "*.json")}, nil, nil)
	corpus, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	_, err = corpus.BuildSnapshot("H1")
	if !errors.Is(err, dqflags.ErrUncategorized) {
		t.Fatalf("expected ErrUncategorized, got %v", err)
	}
}

func TestLoaderWithoutDefiner(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "h1.json",
		`{"instrument": "H1", "span": [0, 100], "flags": [{"name": "H1:A:1", "active": [[0, 10]]}]}`)
	loader := NewLoader(nil, "", []string{filepath.Join(dir, "*.json")}, nil, nil)
	corpus, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if corpus.Definer() != nil {
		t.Fatalf("expected nil definer")
	}
	if _, err := corpus.BuildSnapshot("H1"); !errors.Is(err, dqflags.ErrUncategorized) {
		t.Fatalf("data without definer must fail finalize, got %v", err)
	}
}

func TestLoaderSurfacesMissingDefiner(t *testing.T) {
	loader := NewLoader(nil, filepath.Join(t.TempDir(), "absent.yaml"), nil, nil, nil)
	if _, err := loader.Load(context.Background()); err == nil {
		t.Fatalf("expected error for missing definer file")
	}
}

func TestWatchTargets(t *testing.T) {
	loader := NewLoader(nil, "/etc/veto/definer.yaml", []string{"/data/segs/*.json", "/data/segs/*.seg", "/spool/*.txt"}, nil, nil)
	targets := loader.WatchTargets()
	want := map[string]bool{"/etc/veto/definer.yaml": true, "/data/segs": true, "/spool": true}
	if len(targets) != len(want) {
		t.Fatalf("unexpected targets %v", targets)
	}
	for _, target := range targets {
		if !want[target] {
			t.Fatalf("unexpected target %q", target)
		}
	}
}

func TestWatcherFiresAfterQuietPeriod(t *testing.T) {
	dir := t.TempDir()
	fired := make(chan struct{}, 1)
	w, err := NewWatcher(nil, []string{dir}, 20*time.Millisecond, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(filepath.Join(dir, "h1.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatalf("watcher did not fire")
	}
}
