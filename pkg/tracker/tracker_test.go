package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gildcraft/guildgen/pkg/models"
)

func newTestTracker(t *testing.T) *SQLiteTracker {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	tr, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestRecordAndRecent(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, tokens := range []int{150, 300} {
		rec := models.UsageRecord{
			Template:         "server-name",
			Model:            "llama",
			Source:           models.SourceProvider,
			PromptTokens:     tokens - 50,
			CompletionTokens: 50,
			TotalTokens:      tokens,
			LatencyMs:        420,
			CreatedAt:        now.Add(time.Duration(i) * time.Second),
		}
		if err := tr.Record(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	records, err := tr.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].TotalTokens != 300 {
		t.Errorf("expected newest record first, got %d tokens", records[0].TotalTokens)
	}
	if records[0].LatencyMs != 420 || records[0].Template != "server-name" {
		t.Errorf("unexpected record: %+v", records[0])
	}

	records, err = tr.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected limit of 1, got %d", len(records))
	}
}

func TestRecordStampsTime(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	if err := tr.Record(ctx, models.UsageRecord{Model: "llama", Source: models.SourceCache}); err != nil {
		t.Fatal(err)
	}
	records, err := tr.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if records[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestTotalSince(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := range 3 {
		_ = tr.Record(ctx, models.UsageRecord{
			Model: "llama", Source: models.SourceProvider,
			PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		})
	}
	// Cache hits are free.
	_ = tr.Record(ctx, models.UsageRecord{
		Model: "llama", Source: models.SourceCache, CreatedAt: now,
	})
	// Outside the window.
	_ = tr.Record(ctx, models.UsageRecord{
		Model: "llama", Source: models.SourceProvider, TotalTokens: 1000,
		CreatedAt: now.Add(-2 * time.Hour),
	})

	total, err := tr.TotalSince(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if total != 450 {
		t.Errorf("expected 450, got %d", total)
	}
}

func TestSummary(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = tr.Record(ctx, models.UsageRecord{
		Template: "server-name", Model: "llama", Source: models.SourceProvider,
		PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
		CreatedAt: now,
	})
	_ = tr.Record(ctx, models.UsageRecord{
		Template: "server-name", Model: "llama", Source: models.SourceCache,
		CreatedAt: now,
	})
	_ = tr.Record(ctx, models.UsageRecord{
		Template: "poll", Model: "llama", Source: models.SourceProvider,
		PromptTokens: 200, CompletionTokens: 100, TotalTokens: 300,
		CreatedAt: now,
	})

	summaries, err := tr.Summary(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}

	// Filter by template
	summaries, err = tr.Summary(ctx, "server-name")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	s := summaries[0]
	if s.RequestCount != 2 || s.CacheHits != 1 || s.TotalTokens != 150 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestSummaryEmpty(t *testing.T) {
	tr := newTestTracker(t)

	summaries, err := tr.Summary(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 0 {
		t.Errorf("expected no summaries, got %d", len(summaries))
	}
}

func TestMigrationIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	// Create tracker twice; the second should not fail.
	tr1, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	_ = tr1.Close()

	tr2, err := New(dbPath)
	if err != nil {
		t.Fatal("second New() failed:", err)
	}
	_ = tr2.Close()
}
