package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dqstack/veto-engine/internal/models"
)

func newTestBadger(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := NewBadgerStore(BadgerOptions{InMemory: true}, discardLogger())
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func TestBadgerPutGetRoundTrip(t *testing.T) {
	s := newTestBadger(t)
	ctx := context.Background()

	want := testRecord("run-1", "H1", testBase)
	if err := s.PutRun(ctx, want); err != nil {
		t.Fatalf("PutRun: %v", err)
	}
	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.RunID != want.RunID || got.DefinerDigest != want.DefinerDigest {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if len(got.Records) != 1 || got.Records[0].Label != "CAT1" {
		t.Fatalf("records not preserved: %+v", got.Records)
	}
	if got.Span == nil || got.Span.Start != 100 || got.Span.End != 200 {
		t.Fatalf("span not preserved: %+v", got.Span)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("created at %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

func TestBadgerGetMissingRun(t *testing.T) {
	s := newTestBadger(t)

	_, err := s.GetRun(context.Background(), "no-such-run")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestBadgerPutRequiresID(t *testing.T) {
	s := newTestBadger(t)

	rec := testRecord("", "H1", testBase)
	if err := s.PutRun(context.Background(), rec); err == nil {
		t.Fatal("expected error for record without id")
	}
}

func TestBadgerListNewestFirst(t *testing.T) {
	s := newTestBadger(t)
	ctx := context.Background()

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		rec := testRecord(id, "H1", testBase.Add(time.Duration(i)*time.Minute))
		if err := s.PutRun(ctx, rec); err != nil {
			t.Fatalf("PutRun %s: %v", id, err)
		}
	}

	got, err := s.ListRuns(ctx, models.ListRunsRequest{})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(got))
	}
	wantOrder := []string{"run-c", "run-b", "run-a"}
	for i, want := range wantOrder {
		if got[i].RunID != want {
			t.Fatalf("position %d: got %s, want %s", i, got[i].RunID, want)
		}
	}
}

func TestBadgerListInstrumentFilter(t *testing.T) {
	s := newTestBadger(t)
	ctx := context.Background()

	if err := s.PutRun(ctx, testRecord("run-h", "H1", testBase)); err != nil {
		t.Fatalf("PutRun: %v", err)
	}
	if err := s.PutRun(ctx, testRecord("run-l", "L1", testBase.Add(time.Minute))); err != nil {
		t.Fatalf("PutRun: %v", err)
	}

	got, err := s.ListRuns(ctx, models.ListRunsRequest{Instrument: "L1"})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(got) != 1 || got[0].RunID != "run-l" {
		t.Fatalf("expected only run-l, got %+v", got)
	}
}

func TestBadgerListLimit(t *testing.T) {
	s := newTestBadger(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		rec := testRecord("run-"+id, "H1", testBase.Add(time.Duration(i)*time.Second))
		if err := s.PutRun(ctx, rec); err != nil {
			t.Fatalf("PutRun: %v", err)
		}
	}

	got, err := s.ListRuns(ctx, models.ListRunsRequest{Limit: 2})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(got))
	}
	if got[0].RunID != "run-e" || got[1].RunID != "run-d" {
		t.Fatalf("unexpected page: %s, %s", got[0].RunID, got[1].RunID)
	}
}

func TestBadgerReplaceRunMovesIndexEntry(t *testing.T) {
	s := newTestBadger(t)
	ctx := context.Background()

	if err := s.PutRun(ctx, testRecord("run-1", "H1", testBase)); err != nil {
		t.Fatalf("PutRun: %v", err)
	}
	if err := s.PutRun(ctx, testRecord("run-1", "H1", testBase.Add(time.Hour))); err != nil {
		t.Fatalf("PutRun replace: %v", err)
	}

	got, err := s.ListRuns(ctx, models.ListRunsRequest{})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected a single listing after replace, got %d", len(got))
	}
	if !got[0].CreatedAt.Equal(testBase.Add(time.Hour)) {
		t.Fatalf("listing has stale timestamp %v", got[0].CreatedAt)
	}
}

func TestBadgerPutHonoursCancellation(t *testing.T) {
	s := newTestBadger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.PutRun(ctx, testRecord("run-1", "H1", testBase)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
