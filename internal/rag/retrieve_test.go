package rag

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/mock/gomock"

	llmmocks "archivist-ai/internal/llm/mocks"
	"archivist-ai/internal/storage"
	storagemocks "archivist-ai/internal/storage/mocks"
	"archivist-ai/internal/vectorstore"
	vsmocks "archivist-ai/internal/vectorstore/mocks"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "empty query",
			query: "",
			want:  nil,
		},
		{
			name:  "punctuation only",
			query: "?! ... ---",
			want:  nil,
		},
		{
			name:  "lowercases and strips punctuation",
			query: "What's the Cebu itinerary?",
			want:  []string{"what", "the", "cebu", "itinerary"},
		},
		{
			name:  "single-rune tokens dropped",
			query: "a b cc dd",
			want:  []string{"cc", "dd"},
		},
		{
			name:  "korean tokens survive",
			query: "세부 호핑투어",
			want:  []string{"세부", "호핑투어"},
		},
		{
			name:  "mixed scripts and digits",
			query: "2024년 다이빙 log",
			want:  []string{"2024년", "다이빙", "log"},
		},
		{
			name:  "capped at five tokens",
			query: "one two three four five six seven",
			want:  []string{"one", "two", "three", "four", "five"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractKeywords(tt.query)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractKeywords(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func newTestEngine(t *testing.T) (*hybridEngine, *llmmocks.MockEmbedder, *llmmocks.MockGenerator, *llmmocks.MockWebSearcher, *vsmocks.MockVectorStore, *storagemocks.MockPassageStore, *storagemocks.MockSourceStore) {
	t.Helper()
	ctrl := gomock.NewController(t)

	embedder := llmmocks.NewMockEmbedder(ctrl)
	generator := llmmocks.NewMockGenerator(ctrl)
	webSearcher := llmmocks.NewMockWebSearcher(ctrl)
	vectorStore := vsmocks.NewMockVectorStore(ctrl)
	passageRepo := storagemocks.NewMockPassageStore(ctrl)
	sourceRepo := storagemocks.NewMockSourceStore(ctrl)

	engine := NewEngine(embedder, generator, webSearcher, vectorStore, "test-collection", passageRepo, sourceRepo, Options{}).(*hybridEngine)
	return engine, embedder, generator, webSearcher, vectorStore, passageRepo, sourceRepo
}

func TestHybridEngine_Retrieve_MergesBothLegs(t *testing.T) {
	engine, _, _, _, vectorStore, passageRepo, sourceRepo := newTestEngine(t)
	ctx := context.Background()

	queryVector := []float32{0.1, 0.2}
	src := storage.SourceRecord{ID: "src-1", Title: "Dive log"}

	vectorStore.EXPECT().
		Search(gomock.Any(), "test-collection", queryVector, engine.opts.VectorLimit).
		Return([]vectorstore.SearchResult{
			{PointID: "p-vec", Score: 0.91, Meta: map[string]any{"source_id": "src-1"}},
		}, nil)
	sourceRepo.EXPECT().
		GetByIDs(gomock.Any(), []string{"src-1"}).
		Return(map[string]*storage.SourceRecord{"src-1": &src}, nil)
	passageRepo.EXPECT().
		GetByID(gomock.Any(), "p-vec").
		Return(&storage.PassageRecord{ID: "p-vec", SourceID: "src-1", Text: "vector passage"}, nil)
	passageRepo.EXPECT().
		KeywordSearch(gomock.Any(), []string{"diving"}, engine.opts.KeywordLimit).
		Return([]storage.PassageHit{
			{Passage: storage.PassageRecord{ID: "p-kw", SourceID: "src-1", Text: "keyword passage"}, Source: src},
		}, nil)

	candidates := engine.retrieve(ctx, "diving", queryVector)

	if len(candidates) != 2 {
		t.Fatalf("retrieve() returned %d candidates, want 2", len(candidates))
	}
	// Vector candidates come first in the merge.
	if candidates[0].PassageID != "p-vec" || !candidates[0].HasVectorScore || candidates[0].VectorScore != 0.91 {
		t.Errorf("vector candidate malformed: %+v", candidates[0])
	}
	if candidates[1].PassageID != "p-kw" || !candidates[1].KeywordHit || candidates[1].HasVectorScore {
		t.Errorf("keyword candidate malformed: %+v", candidates[1])
	}
}

func TestHybridEngine_Retrieve_SkipsVectorLegWithoutVector(t *testing.T) {
	engine, _, _, _, _, passageRepo, _ := newTestEngine(t)
	ctx := context.Background()

	// No Search expectation: the vector leg must not run on a nil vector.
	passageRepo.EXPECT().
		KeywordSearch(gomock.Any(), []string{"cebu"}, gomock.Any()).
		Return(nil, nil)

	candidates := engine.retrieve(ctx, "cebu", nil)
	if len(candidates) != 0 {
		t.Errorf("retrieve() = %d candidates, want 0", len(candidates))
	}
}

func TestHybridEngine_Retrieve_OneLegFailureKeepsTheOther(t *testing.T) {
	engine, _, _, _, vectorStore, passageRepo, sourceRepo := newTestEngine(t)
	ctx := context.Background()

	queryVector := []float32{0.3}
	src := storage.SourceRecord{ID: "src-1", Title: "Post"}

	t.Run("keyword leg fails", func(t *testing.T) {
		vectorStore.EXPECT().
			Search(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return([]vectorstore.SearchResult{
				{PointID: "p1", Score: 0.8, Meta: map[string]any{"source_id": "src-1"}},
			}, nil)
		sourceRepo.EXPECT().
			GetByIDs(gomock.Any(), gomock.Any()).
			Return(map[string]*storage.SourceRecord{"src-1": &src}, nil)
		passageRepo.EXPECT().
			GetByID(gomock.Any(), "p1").
			Return(&storage.PassageRecord{ID: "p1", SourceID: "src-1", Text: "still here"}, nil)
		passageRepo.EXPECT().
			KeywordSearch(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("sqlite locked"))

		candidates := engine.retrieve(ctx, "query", queryVector)
		if len(candidates) != 1 || candidates[0].PassageID != "p1" {
			t.Errorf("retrieve() = %+v, want the vector candidate to survive", candidates)
		}
	})

	t.Run("vector leg fails", func(t *testing.T) {
		vectorStore.EXPECT().
			Search(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("qdrant unavailable"))
		passageRepo.EXPECT().
			KeywordSearch(gomock.Any(), gomock.Any(), gomock.Any()).
			Return([]storage.PassageHit{
				{Passage: storage.PassageRecord{ID: "p2", SourceID: "src-1", Text: "keyword hit"}, Source: src},
			}, nil)

		candidates := engine.retrieve(ctx, "query", queryVector)
		if len(candidates) != 1 || candidates[0].PassageID != "p2" {
			t.Errorf("retrieve() = %+v, want the keyword candidate to survive", candidates)
		}
	})
}

func TestHybridEngine_Retrieve_SkipsUnresolvablePoints(t *testing.T) {
	engine, _, _, _, vectorStore, passageRepo, sourceRepo := newTestEngine(t)
	ctx := context.Background()

	src := storage.SourceRecord{ID: "src-1", Title: "Post"}

	vectorStore.EXPECT().
		Search(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]vectorstore.SearchResult{
			{PointID: "stale", Score: 0.9, Meta: map[string]any{"source_id": "src-1"}},
			{PointID: "fresh", Score: 0.8, Meta: map[string]any{"source_id": "src-1"}},
			{PointID: "no-meta", Score: 0.7, Meta: map[string]any{}},
		}, nil)
	sourceRepo.EXPECT().
		GetByIDs(gomock.Any(), []string{"src-1"}).
		Return(map[string]*storage.SourceRecord{"src-1": &src}, nil)
	// The stale point's passage row is gone (source deleted mid-flight).
	passageRepo.EXPECT().
		GetByID(gomock.Any(), "stale").
		Return(nil, storage.ErrNotFound)
	passageRepo.EXPECT().
		GetByID(gomock.Any(), "fresh").
		Return(&storage.PassageRecord{ID: "fresh", SourceID: "src-1", Text: "ok"}, nil)
	passageRepo.EXPECT().
		KeywordSearch(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil)

	candidates := engine.retrieve(ctx, "query", []float32{0.1})
	if len(candidates) != 1 || candidates[0].PassageID != "fresh" {
		t.Errorf("retrieve() = %+v, want only the resolvable point", candidates)
	}
}
