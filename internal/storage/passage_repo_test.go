package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func seedPassages(t *testing.T, repo *PassageRepo, sourceID string, texts ...string) {
	t.Helper()
	for i, text := range texts {
		err := repo.Insert(context.Background(), &PassageRecord{
			ID:       fmt.Sprintf("%s-p%d", sourceID, i),
			SourceID: sourceID,
			Seq:      i,
			Text:     text,
		})
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
}

func TestPassageRepo_InsertAndGetByID(t *testing.T) {
	db := testDB(t)
	sourceRepo := NewSourceRepo(db)
	repo := NewPassageRepo(db)
	ctx := context.Background()

	insertTestSource(t, sourceRepo, "src-1", "Video", "2026-05-01")

	start := 42.5
	p := &PassageRecord{
		ID:           "p-1",
		SourceID:     "src-1",
		Seq:          0,
		StartTime:    &start,
		Text:         "a transcript passage",
		HasEmbedding: true,
	}
	if err := repo.Insert(ctx, p); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "p-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Text != p.Text || got.SourceID != p.SourceID || !got.HasEmbedding {
		t.Errorf("GetByID() = %+v, want %+v", got, p)
	}
	if got.StartTime == nil || *got.StartTime != start {
		t.Errorf("GetByID() StartTime = %v, want %v", got.StartTime, start)
	}
}

func TestPassageRepo_GetByID_NotFound(t *testing.T) {
	db := testDB(t)
	repo := NewPassageRepo(db)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestPassageRepo_Insert_RejectsOrphans(t *testing.T) {
	db := testDB(t)
	repo := NewPassageRepo(db)

	err := repo.Insert(context.Background(), &PassageRecord{
		ID:       "orphan",
		SourceID: "no-such-source",
		Text:     "text",
	})
	if err == nil {
		t.Error("Insert() expected a foreign key error for an orphan passage")
	}
}

func TestPassageRepo_ListIDsBySource(t *testing.T) {
	db := testDB(t)
	sourceRepo := NewSourceRepo(db)
	repo := NewPassageRepo(db)
	ctx := context.Background()

	insertTestSource(t, sourceRepo, "src-1", "Post", "2026-05-01")
	seedPassages(t, repo, "src-1", "one", "two", "three")

	ids, err := repo.ListIDsBySource(ctx, "src-1")
	if err != nil {
		t.Fatalf("ListIDsBySource() error = %v", err)
	}
	want := []string{"src-1-p0", "src-1-p1", "src-1-p2"}
	if len(ids) != len(want) {
		t.Fatalf("ListIDsBySource() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ListIDsBySource()[%d] = %q, want %q (seq order)", i, ids[i], want[i])
		}
	}

	empty, err := repo.ListIDsBySource(ctx, "no-such-source")
	if err != nil {
		t.Fatalf("ListIDsBySource() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ListIDsBySource() for unknown source = %v, want empty", empty)
	}
}

func TestPassageRepo_KeywordSearch(t *testing.T) {
	db := testDB(t)
	sourceRepo := NewSourceRepo(db)
	repo := NewPassageRepo(db)
	ctx := context.Background()

	insertTestSource(t, sourceRepo, "old", "Cebu island hopping", "2024-03-01")
	insertTestSource(t, sourceRepo, "new", "Diving in Moalboal", "2026-07-01")
	insertTestSource(t, sourceRepo, "accent", "Espresso notes", "2025-05-01")
	seedPassages(t, repo, "old", "We booked a hopping tour in Cebu.", "The boat left at dawn.")
	seedPassages(t, repo, "new", "Sardine run diving near the shore.")
	seedPassages(t, repo, "accent", "CAFÉ CULTURE ABROAD")

	t.Run("matches passage text case-insensitively", func(t *testing.T) {
		hits, err := repo.KeywordSearch(ctx, []string{"cebu"}, 10)
		if err != nil {
			t.Fatalf("KeywordSearch() error = %v", err)
		}
		// "cebu" matches the title of source "old", so both of its passages hit.
		if len(hits) != 2 {
			t.Fatalf("KeywordSearch() = %d hits, want 2", len(hits))
		}
		for _, hit := range hits {
			if hit.Source.ID != "old" {
				t.Errorf("hit from source %q, want \"old\"", hit.Source.ID)
			}
		}
	})

	t.Run("matches source title", func(t *testing.T) {
		hits, err := repo.KeywordSearch(ctx, []string{"moalboal"}, 10)
		if err != nil {
			t.Fatalf("KeywordSearch() error = %v", err)
		}
		if len(hits) != 1 || hits[0].Passage.ID != "new-p0" {
			t.Errorf("KeywordSearch() = %+v, want the Moalboal passage", hits)
		}
	})

	t.Run("orders by source date, newest first", func(t *testing.T) {
		hits, err := repo.KeywordSearch(ctx, []string{"diving", "dawn"}, 10)
		if err != nil {
			t.Fatalf("KeywordSearch() error = %v", err)
		}
		if len(hits) != 2 {
			t.Fatalf("KeywordSearch() = %d hits, want 2", len(hits))
		}
		if hits[0].Source.ID != "new" || hits[1].Source.ID != "old" {
			t.Errorf("hits ordered %q, %q; want newest source first", hits[0].Source.ID, hits[1].Source.ID)
		}
	})

	t.Run("respects the limit", func(t *testing.T) {
		hits, err := repo.KeywordSearch(ctx, []string{"the"}, 1)
		if err != nil {
			t.Fatalf("KeywordSearch() error = %v", err)
		}
		if len(hits) != 1 {
			t.Errorf("KeywordSearch() = %d hits, want 1", len(hits))
		}
	})

	t.Run("wildcards are matched literally", func(t *testing.T) {
		hits, err := repo.KeywordSearch(ctx, []string{"%"}, 10)
		if err != nil {
			t.Fatalf("KeywordSearch() error = %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("KeywordSearch(%%) = %d hits, want 0; wildcard leaked into the pattern", len(hits))
		}
	})

	// sqlite lower() folds ASCII only; this pins the known behavior for
	// uppercase accented text.
	t.Run("case folding is ASCII-only", func(t *testing.T) {
		hits, err := repo.KeywordSearch(ctx, []string{"culture"}, 10)
		if err != nil {
			t.Fatalf("KeywordSearch() error = %v", err)
		}
		if len(hits) != 1 {
			t.Errorf("KeywordSearch(culture) = %d hits, want 1", len(hits))
		}

		hits, err = repo.KeywordSearch(ctx, []string{"café"}, 10)
		if err != nil {
			t.Fatalf("KeywordSearch() error = %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("KeywordSearch(café) = %d hits, want 0 against uppercase É", len(hits))
		}
	})

	t.Run("no tokens yields no query", func(t *testing.T) {
		hits, err := repo.KeywordSearch(ctx, nil, 10)
		if err != nil {
			t.Fatalf("KeywordSearch() error = %v", err)
		}
		if hits != nil {
			t.Errorf("KeywordSearch(nil tokens) = %v, want nil", hits)
		}
	})

	t.Run("rejects a non-positive limit", func(t *testing.T) {
		if _, err := repo.KeywordSearch(ctx, []string{"cebu"}, 0); err == nil {
			t.Error("KeywordSearch() expected error for limit 0")
		}
	})
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"50%", `50\%`},
		{"snake_case", `snake\_case`},
		{`back\slash`, `back\\slash`},
		{`%_\`, `\%\_\\`},
	}

	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPassageRepo_Stats(t *testing.T) {
	db := testDB(t)
	sourceRepo := NewSourceRepo(db)
	repo := NewPassageRepo(db)
	ctx := context.Background()

	insertTestSource(t, sourceRepo, "src-1", "Post", "2026-05-01")
	if err := repo.Insert(ctx, &PassageRecord{ID: "p1", SourceID: "src-1", Seq: 0, Text: "a", HasEmbedding: true}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := repo.Insert(ctx, &PassageRecord{ID: "p2", SourceID: "src-1", Seq: 1, Text: "b"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	want := CorpusStats{Sources: 1, Passages: 2, EmbeddedPassages: 1}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
}
