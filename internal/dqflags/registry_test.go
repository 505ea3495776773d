package dqflags

import (
	"errors"
	"strings"
	"testing"

	"github.com/dqstack/veto-engine/pkg/segments"
)

func list(t *testing.T, pairs ...[2]int64) segments.List {
	t.Helper()
	segs := make([]segments.Segment, 0, len(pairs))
	for _, p := range pairs {
		seg, err := segments.New(p[0], p[1])
		if err != nil {
			t.Fatalf("bad test segment: %v", err)
		}
		segs = append(segs, seg)
	}
	return segments.NewList(segs...)
}

func TestRegisterMergesSources(t *testing.T) {
	reg := NewRegistry("H1")
	reg.Register("H1:TEST:1", list(t, [2]int64{0, 10}), list(t, [2]int64{0, 50}))
	reg.Register("H1:TEST:1", list(t, [2]int64{5, 20}), list(t, [2]int64{50, 100}))
	if err := reg.AssignCategory("H1:TEST:1", 1, 0, 0); err != nil {
		t.Fatalf("assign: %v", err)
	}

	snap, err := reg.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	f, ok := snap.Flag("H1:TEST:1")
	if !ok {
		t.Fatalf("flag not found in snapshot")
	}
	if !f.Active.Equal(list(t, [2]int64{0, 20})) {
		t.Fatalf("active not merged: %v", f.Active)
	}
	if !f.Coverage.Equal(list(t, [2]int64{0, 100})) {
		t.Fatalf("coverage not merged: %v", f.Coverage)
	}
}

func TestFinalizeRejectsUncategorized(t *testing.T) {
	reg := NewRegistry("L1")
	reg.Register("L1:GOOD:1", list(t, [2]int64{0, 10}), list(t, [2]int64{0, 100}))
	reg.Register("L1:ORPHAN:1", list(t, [2]int64{20, 30}), list(t, [2]int64{0, 100}))
	if err := reg.AssignCategory("L1:GOOD:1", 2, 0, 0); err != nil {
		t.Fatalf("assign: %v", err)
	}

	_, err := reg.Finalize()
	if !errors.Is(err, ErrUncategorized) {
		t.Fatalf("expected ErrUncategorized, got %v", err)
	}
	if !strings.Contains(err.Error(), "L1:ORPHAN:1") {
		t.Fatalf("error must name the offending flag: %v", err)
	}
}

func TestAssignCategoryRejectsNonPositive(t *testing.T) {
	reg := NewRegistry("H1")
	for _, cat := range []int{0, -3} {
		if err := reg.AssignCategory("H1:TEST:1", cat, 0, 0); !errors.Is(err, ErrBadCategory) {
			t.Fatalf("category %d: expected ErrBadCategory, got %v", cat, err)
		}
	}
}

func TestAssignCategoryLastWins(t *testing.T) {
	reg := NewRegistry("H1")
	reg.Register("H1:TEST:1", list(t, [2]int64{0, 10}), list(t, [2]int64{0, 100}))
	if err := reg.AssignCategory("H1:TEST:1", 1, 0, 0); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := reg.AssignCategory("H1:TEST:1", 3, -2, 2); err != nil {
		t.Fatalf("assign: %v", err)
	}

	snap, err := reg.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	f, _ := snap.Flag("H1:TEST:1")
	if f.Category != 3 || f.PadStart != -2 || f.PadEnd != 2 {
		t.Fatalf("expected last assignment to win, got %+v", f)
	}
}

func TestSnapshotOrderAndCumulativeSelection(t *testing.T) {
	reg := NewRegistry("H1")
	cov := list(t, [2]int64{0, 100})
	reg.Register("H1:ZULU:1", list(t, [2]int64{0, 1}), cov)
	reg.Register("H1:ALFA:1", list(t, [2]int64{1, 2}), cov)
	reg.Register("H1:MIKE:1", list(t, [2]int64{2, 3}), cov)
	for name, cat := range map[string]int{"H1:ZULU:1": 1, "H1:ALFA:1": 2, "H1:MIKE:1": 1} {
		if err := reg.AssignCategory(name, cat, 0, 0); err != nil {
			t.Fatalf("assign %s: %v", name, err)
		}
	}

	snap, err := reg.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	var names []string
	for _, f := range snap.Flags() {
		names = append(names, f.Name)
	}
	want := []string{"H1:MIKE:1", "H1:ZULU:1", "H1:ALFA:1"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, names)
		}
	}

	if got := len(snap.FlagsAtOrBelow(1)); got != 2 {
		t.Fatalf("expected 2 flags at category 1, got %d", got)
	}
	if got := len(snap.FlagsAtOrBelow(2)); got != 3 {
		t.Fatalf("expected 3 flags at category 2, got %d", got)
	}
	if got := len(snap.FlagsAtOrBelow(99)); got != 3 {
		t.Fatalf("higher level must include every flag, got %d", got)
	}
	if snap.MaxCategory() != 2 {
		t.Fatalf("expected max category 2, got %d", snap.MaxCategory())
	}
}

func TestEffectiveGatesActiveByCoverage(t *testing.T) {
	f := Flag{
		Active:   list(t, [2]int64{0, 50}),
		Coverage: list(t, [2]int64{10, 30}),
	}
	if got := f.Effective(); !got.Equal(list(t, [2]int64{10, 30})) {
		t.Fatalf("expected [10, 30), got %v", got)
	}
}

func TestEffectiveAppliesPadsBeforeCoverage(t *testing.T) {
	f := Flag{
		PadStart: -2,
		PadEnd:   2,
		Active:   list(t, [2]int64{10, 20}),
		Coverage: list(t, [2]int64{0, 15}),
	}
	if got := f.Effective(); !got.Equal(list(t, [2]int64{8, 15})) {
		t.Fatalf("expected [8, 15), got %v", got)
	}
}

func TestAssignedFlagWithoutDataIsHarmless(t *testing.T) {
	reg := NewRegistry("V1")
	if err := reg.AssignCategory("V1:FUTURE:1", 4, 0, 0); err != nil {
		t.Fatalf("assign: %v", err)
	}
	snap, err := reg.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	f, ok := snap.Flag("V1:FUTURE:1")
	if !ok {
		t.Fatalf("assigned flag must appear in snapshot")
	}
	if len(f.Effective()) != 0 {
		t.Fatalf("flag without data must veto nothing")
	}
}
