package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/andrepadez/ostt/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndList(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entries := []domain.TranscriptRecord{
		{Text: "first", ModelID: "whisper", Duration: 2 * time.Second, CreatedAt: base},
		{Text: "second", ModelID: "nova-3", Duration: 5 * time.Second, CreatedAt: base.Add(time.Minute)},
		{Text: "third", ModelID: "nova-3", Duration: time.Second, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, rec := range entries {
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	records, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Text != "third" || records[2].Text != "first" {
		t.Fatalf("records not newest-first: %v", records)
	}
	if records[1].Duration != 5*time.Second {
		t.Fatalf("duration not preserved: %v", records[1].Duration)
	}
	if records[0].ID == "" {
		t.Fatalf("missing generated id")
	}
}

func TestListLimit(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := domain.TranscriptRecord{
			Text:      "entry",
			ModelID:   "whisper",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	records, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestListEmpty(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	records, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}
