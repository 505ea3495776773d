package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dqstack/veto-engine/internal/models"
)

func TestMemoryPutGetRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	want := testRecord("run-1", "H1", testBase)
	if err := s.PutRun(ctx, want); err != nil {
		t.Fatalf("PutRun: %v", err)
	}
	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.RunID != "run-1" || len(got.Records) != 1 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestMemoryGetMissingRun(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.GetRun(context.Background(), "no-such-run")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestMemoryListNewestFirstWithFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.PutRun(ctx, testRecord("run-a", "H1", testBase)); err != nil {
		t.Fatalf("PutRun: %v", err)
	}
	if err := s.PutRun(ctx, testRecord("run-b", "H1", testBase.Add(time.Minute))); err != nil {
		t.Fatalf("PutRun: %v", err)
	}
	if err := s.PutRun(ctx, testRecord("run-l", "L1", testBase.Add(2*time.Minute))); err != nil {
		t.Fatalf("PutRun: %v", err)
	}

	got, err := s.ListRuns(ctx, models.ListRunsRequest{Instrument: "H1"})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(got) != 2 || got[0].RunID != "run-b" || got[1].RunID != "run-a" {
		t.Fatalf("unexpected listing: %+v", got)
	}
}

func TestMemoryListLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		id := string(rune('a' + i))
		if err := s.PutRun(ctx, testRecord("run-"+id, "H1", testBase.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("PutRun: %v", err)
		}
	}

	got, err := s.ListRuns(ctx, models.ListRunsRequest{Limit: 3})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(got) != 3 || got[0].RunID != "run-d" {
		t.Fatalf("unexpected page: %+v", got)
	}
}
