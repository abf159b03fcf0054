package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tubescribe/backend/services/store/entity"
)

// backends under test; both must satisfy the same contract.
func testStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "transcripts.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func record(videoID, text string, words int, at time.Time) *entity.TranscriptRecord {
	return &entity.TranscriptRecord{
		VideoID:         videoID,
		Title:           "Title " + videoID,
		ChannelName:     "Channel " + videoID,
		CleanText:       text,
		WordCount:       words,
		CharCount:       len(text),
		Language:        "en",
		IsAutoGenerated: true,
		CapturedAt:      at,
	}
}

func TestSaveUpsertsByVideoID(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC().Truncate(time.Second)

			if _, err := store.Save(ctx, record("vid-1", "first text", 2, now)); err != nil {
				t.Fatalf("first save: %v", err)
			}
			if _, err := store.Save(ctx, record("vid-1", "second text entirely", 3, now.Add(time.Minute))); err != nil {
				t.Fatalf("second save: %v", err)
			}

			all, err := store.GetAll(ctx, 10, 0)
			if err != nil {
				t.Fatalf("get all: %v", err)
			}
			if len(all) != 1 {
				t.Fatalf("record count = %d, want exactly 1 after upsert", len(all))
			}

			rec, err := store.Get(ctx, "vid-1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if rec.CleanText != "second text entirely" {
				t.Errorf("clean text = %q, want second save's text", rec.CleanText)
			}
			if rec.WordCount != 3 {
				t.Errorf("word count = %d, want 3", rec.WordCount)
			}
		})
	}
}

func TestGetMissing(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Save(ctx, record("vid-del", "bye", 1, time.Now())); err != nil {
				t.Fatalf("save: %v", err)
			}
			res, err := store.Delete(ctx, "vid-del")
			if err != nil {
				t.Fatalf("delete: %v", err)
			}
			if res.VideoID != "vid-del" {
				t.Errorf("delete result = %q, want vid-del", res.VideoID)
			}
			if _, err := store.Get(ctx, "vid-del"); !errors.Is(err, ErrNotFound) {
				t.Errorf("get after delete err = %v, want ErrNotFound", err)
			}
			if _, err := store.Delete(ctx, "vid-del"); !errors.Is(err, ErrNotFound) {
				t.Errorf("second delete err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestGetAllOrderAndPaging(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now().UTC().Truncate(time.Second)
			for i, id := range []string{"old", "mid", "new"} {
				if _, err := store.Save(ctx, record(id, "text", 1, base.Add(time.Duration(i)*time.Hour))); err != nil {
					t.Fatalf("save %s: %v", id, err)
				}
			}

			all, err := store.GetAll(ctx, 2, 0)
			if err != nil {
				t.Fatalf("get all: %v", err)
			}
			if len(all) != 2 || all[0].VideoID != "new" || all[1].VideoID != "mid" {
				t.Errorf("page 1 = %v, want [new mid]", ids(all))
			}
			// Listings are summaries: no transcript body.
			if all[0].CleanText != "" {
				t.Error("listing leaked clean text")
			}

			rest, err := store.GetAll(ctx, 2, 2)
			if err != nil {
				t.Fatalf("get all page 2: %v", err)
			}
			if len(rest) != 1 || rest[0].VideoID != "old" {
				t.Errorf("page 2 = %v, want [old]", ids(rest))
			}
		})
	}
}

func TestSearchCaseInsensitive(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()
			saves := []*entity.TranscriptRecord{
				{VideoID: "a", Title: "Cooking with Gas", CleanText: "today we braise", ChannelName: "KitchenTV", CapturedAt: now},
				{VideoID: "b", Title: "Go Concurrency", CleanText: "channels and goroutines", ChannelName: "GopherCon", CapturedAt: now},
				{VideoID: "c", Title: "Unrelated", CleanText: "nothing here", ChannelName: "Misc", CapturedAt: now},
			}
			for _, rec := range saves {
				if _, err := store.Save(ctx, rec); err != nil {
					t.Fatalf("save: %v", err)
				}
			}

			tests := []struct {
				query string
				want  []string
			}{
				{"BRAISE", []string{"a"}},   // matches text
				{"gopher", []string{"b"}},   // matches channel
				{"cooking", []string{"a"}},  // matches title
				{"zebra", nil},
			}
			for _, tt := range tests {
				got, err := store.Search(ctx, tt.query)
				if err != nil {
					t.Fatalf("search %q: %v", tt.query, err)
				}
				if len(got) != len(tt.want) {
					t.Errorf("search %q = %v, want %v", tt.query, ids(got), tt.want)
					continue
				}
				for i := range tt.want {
					if got[i].VideoID != tt.want[i] {
						t.Errorf("search %q = %v, want %v", tt.query, ids(got), tt.want)
					}
				}
			}
		})
	}
}

func TestStats(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			empty, err := store.Stats(ctx)
			if err != nil {
				t.Fatalf("stats on empty store: %v", err)
			}
			if empty.TotalCount != 0 || empty.FirstCapturedAt != nil || empty.LastCapturedAt != nil {
				t.Errorf("empty stats = %+v", empty)
			}

			base := time.Now().UTC().Truncate(time.Second)
			store.Save(ctx, record("s1", "one two", 2, base))
			store.Save(ctx, record("s2", "three four five", 3, base.Add(time.Hour)))

			stats, err := store.Stats(ctx)
			if err != nil {
				t.Fatalf("stats: %v", err)
			}
			if stats.TotalCount != 2 {
				t.Errorf("total count = %d, want 2", stats.TotalCount)
			}
			if stats.TotalWords != 5 {
				t.Errorf("total words = %d, want 5", stats.TotalWords)
			}
			if stats.FirstCapturedAt == nil || !stats.FirstCapturedAt.Equal(base) {
				t.Errorf("first captured = %v, want %v", stats.FirstCapturedAt, base)
			}
			if stats.LastCapturedAt == nil || !stats.LastCapturedAt.Equal(base.Add(time.Hour)) {
				t.Errorf("last captured = %v, want %v", stats.LastCapturedAt, base.Add(time.Hour))
			}
		})
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC().Truncate(time.Second)
			store.Save(ctx, record("e1", "alpha", 1, now))
			store.Save(ctx, record("e2", "beta gamma", 2, now.Add(time.Minute)))

			exported, err := store.ExportAll(ctx)
			if err != nil {
				t.Fatalf("export: %v", err)
			}
			if len(exported) != 2 {
				t.Fatalf("exported %d records, want 2", len(exported))
			}

			dest := NewMemory()
			res, err := dest.ImportAll(ctx, exported)
			if err != nil {
				t.Fatalf("import: %v", err)
			}
			if res.ImportedCount != 2 {
				t.Errorf("imported count = %d, want 2", res.ImportedCount)
			}

			rec, err := dest.Get(ctx, "e2")
			if err != nil {
				t.Fatalf("get after import: %v", err)
			}
			if rec.CleanText != "beta gamma" {
				t.Errorf("imported text = %q", rec.CleanText)
			}
		})
	}
}

func TestImportSkipsBadRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	res, err := store.ImportAll(ctx, []entity.TranscriptRecord{
		{VideoID: "good", CleanText: "kept"},
		{VideoID: "", CleanText: "dropped"},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.ImportedCount != 1 {
		t.Errorf("imported count = %d, want 1", res.ImportedCount)
	}
}

func TestSelectFallsBackToMemory(t *testing.T) {
	// An unreachable postgres must not be fatal; the chain lands on a
	// working backend.
	store, err := Select(context.Background(), Options{
		Preferred:   "postgres",
		PostgresDSN: "host=127.0.0.1 port=1 user=x dbname=x sslmode=disable",
		SQLitePath:  filepath.Join(t.TempDir(), "fallback.db"),
	}, nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	defer store.Close()

	info, err := store.Init(context.Background())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if info.Backend != "sqlite" {
		t.Errorf("backend = %q, want sqlite fallback", info.Backend)
	}
}

func ids(records []entity.TranscriptRecord) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.VideoID
	}
	return out
}
