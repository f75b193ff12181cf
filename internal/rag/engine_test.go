package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"archivist-ai/internal/llm"
	"archivist-ai/internal/storage"
	"archivist-ai/internal/vectorstore"
)

func TestHybridEngine_Answer_GroundedPath(t *testing.T) {
	engine, embedder, generator, _, vectorStore, passageRepo, sourceRepo := newTestEngine(t)
	ctx := context.Background()

	src := storage.SourceRecord{ID: "src-1", Title: "Cebu travel notes", URL: "https://example.com/cebu", Date: "2026-08-15", Type: storage.SourceTypeArticle}
	queryVector := []float32{0.1, 0.2}

	embedder.EXPECT().Embed(gomock.Any(), "cebu itinerary").Return(queryVector, nil)
	vectorStore.EXPECT().
		Search(gomock.Any(), "test-collection", queryVector, gomock.Any()).
		Return([]vectorstore.SearchResult{
			{PointID: "p1", Score: 0.9, Meta: map[string]any{"source_id": "src-1"}},
		}, nil)
	sourceRepo.EXPECT().
		GetByIDs(gomock.Any(), []string{"src-1"}).
		Return(map[string]*storage.SourceRecord{"src-1": &src}, nil)
	passageRepo.EXPECT().
		GetByID(gomock.Any(), "p1").
		Return(&storage.PassageRecord{ID: "p1", SourceID: "src-1", Text: "Day one we went island hopping."}, nil)
	passageRepo.EXPECT().
		KeywordSearch(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil)

	var prompt string
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p string) (string, error) {
			prompt = p
			return "You went island hopping on day one [[1]].", nil
		})

	resp, err := engine.Answer(ctx, AnswerRequest{Query: "cebu itinerary"})
	if err != nil {
		t.Fatalf("Answer() unexpected error: %v", err)
	}

	if !strings.Contains(prompt, "[[1]] Day one we went island hopping.") {
		t.Errorf("prompt missing tagged passage:\n%s", prompt)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Title != "Cebu travel notes" {
		t.Errorf("Sources = %+v, want the cited source", resp.Sources)
	}
	if resp.Sources[0].URL != src.URL || resp.Sources[0].Date != src.Date {
		t.Errorf("Sources[0] = %+v, want URL and Date carried over", resp.Sources[0])
	}
	if len(resp.Debug) != 1 || resp.Debug[0].SourceTitle != "Cebu travel notes" {
		t.Errorf("Debug = %+v, want one snippet", resp.Debug)
	}
}

func TestHybridEngine_Answer_EmptyRetrievalStillAnswers(t *testing.T) {
	engine, embedder, generator, _, _, passageRepo, _ := newTestEngine(t)
	ctx := context.Background()

	// Embedding fails and keyword search finds nothing: the prompt carries
	// the no-data marker and the response is still well formed.
	embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return(nil, errors.New("backend down"))
	passageRepo.EXPECT().
		KeywordSearch(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil)

	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, prompt string) (string, error) {
			if !strings.Contains(prompt, noInternalDataMarker) {
				t.Errorf("prompt missing empty-context marker:\n%s", prompt)
			}
			return "The archive has no matching information on that.", nil
		})

	resp, err := engine.Answer(ctx, AnswerRequest{Query: "something obscure"})
	if err != nil {
		t.Fatalf("Answer() unexpected error: %v", err)
	}
	if resp.Answer == "" {
		t.Error("Answer is empty; the empty path must still produce text")
	}
	if resp.Sources == nil || len(resp.Sources) != 0 {
		t.Errorf("Sources = %v, want empty non-nil slice", resp.Sources)
	}
	if resp.WebSources == nil || len(resp.WebSources) != 0 {
		t.Errorf("WebSources = %v, want empty non-nil slice", resp.WebSources)
	}
	if len(resp.Debug) != 0 {
		t.Errorf("Debug = %v, want empty", resp.Debug)
	}
}

func TestHybridEngine_Answer_GenerationFailureYieldsApology(t *testing.T) {
	engine, embedder, generator, _, _, passageRepo, _ := newTestEngine(t)
	ctx := context.Background()

	embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return(nil, errors.New("backend down"))
	passageRepo.EXPECT().
		KeywordSearch(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return("", errors.New("model overloaded"))

	resp, err := engine.Answer(ctx, AnswerRequest{Query: "anything"})
	if err != nil {
		t.Fatalf("Answer() must not surface generation errors, got: %v", err)
	}
	if resp.Answer != apologyAnswer {
		t.Errorf("Answer = %q, want the apology", resp.Answer)
	}
	if strings.Contains(resp.Answer, "overloaded") {
		t.Error("raw backend error leaked into the answer")
	}
	if resp.Sources == nil || resp.WebSources == nil {
		t.Error("failure response must keep valid empty slices")
	}
}

func TestHybridEngine_Answer_WebSearch(t *testing.T) {
	t.Run("findings reach the prompt and the response", func(t *testing.T) {
		engine, embedder, generator, webSearcher, _, passageRepo, _ := newTestEngine(t)
		ctx := context.Background()

		embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return(nil, errors.New("backend down"))
		passageRepo.EXPECT().
			KeywordSearch(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, nil)
		webSearcher.EXPECT().
			SearchWeb(gomock.Any(), "typhoon season").
			Return(llm.WebFindings{
				Text:    "Typhoon season peaks between July and October.",
				Sources: []llm.WebSource{{Title: "Weather service", URL: "https://example.com/weather"}},
			}, nil)
		generator.EXPECT().
			Generate(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, prompt string) (string, error) {
				if !strings.Contains(prompt, "Typhoon season peaks") {
					t.Errorf("prompt missing web findings:\n%s", prompt)
				}
				return "It peaks between July and October.", nil
			})

		resp, err := engine.Answer(ctx, AnswerRequest{Query: "typhoon season", UseWebSearch: true})
		if err != nil {
			t.Fatalf("Answer() unexpected error: %v", err)
		}
		if len(resp.WebSources) != 1 || resp.WebSources[0].URL != "https://example.com/weather" {
			t.Errorf("WebSources = %+v, want the web citation", resp.WebSources)
		}
	})

	t.Run("web failure degrades to internal-only", func(t *testing.T) {
		engine, embedder, generator, webSearcher, _, passageRepo, _ := newTestEngine(t)
		ctx := context.Background()

		embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return(nil, errors.New("backend down"))
		passageRepo.EXPECT().
			KeywordSearch(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, nil)
		webSearcher.EXPECT().
			SearchWeb(gomock.Any(), gomock.Any()).
			Return(llm.WebFindings{}, errors.New("search unavailable"))
		generator.EXPECT().
			Generate(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, prompt string) (string, error) {
				if strings.Contains(prompt, "--- Web findings ---") {
					t.Error("prompt must not carry a web section after a failed search")
				}
				return "answer", nil
			})

		resp, err := engine.Answer(ctx, AnswerRequest{Query: "anything", UseWebSearch: true})
		if err != nil {
			t.Fatalf("Answer() unexpected error: %v", err)
		}
		if len(resp.WebSources) != 0 {
			t.Errorf("WebSources = %+v, want empty after a failed search", resp.WebSources)
		}
	})

	t.Run("web search off means no call", func(t *testing.T) {
		engine, embedder, generator, _, _, passageRepo, _ := newTestEngine(t)
		ctx := context.Background()

		// No SearchWeb expectation: the mock controller fails on any call.
		embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return(nil, errors.New("backend down"))
		passageRepo.EXPECT().
			KeywordSearch(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, nil)
		generator.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("answer", nil)

		if _, err := engine.Answer(ctx, AnswerRequest{Query: "anything"}); err != nil {
			t.Fatalf("Answer() unexpected error: %v", err)
		}
	})
}

func TestHybridEngine_Answer_SystemInstructionPrecedence(t *testing.T) {
	engine, embedder, generator, _, _, passageRepo, _ := newTestEngine(t)
	engine.opts.SystemInstruction = "Persisted persona."
	ctx := context.Background()

	embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return(nil, errors.New("down")).Times(2)
	passageRepo.EXPECT().
		KeywordSearch(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil).
		Times(2)

	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, prompt string) (string, error) {
			if !strings.HasPrefix(prompt, "Request persona.") {
				t.Errorf("request instruction must win:\n%s", prompt)
			}
			return "a", nil
		})
	if _, err := engine.Answer(ctx, AnswerRequest{Query: "query", SystemInstruction: "Request persona."}); err != nil {
		t.Fatalf("Answer() unexpected error: %v", err)
	}

	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, prompt string) (string, error) {
			if !strings.HasPrefix(prompt, "Persisted persona.") {
				t.Errorf("persisted instruction must be the fallback:\n%s", prompt)
			}
			return "a", nil
		})
	if _, err := engine.Answer(ctx, AnswerRequest{Query: "query"}); err != nil {
		t.Fatalf("Answer() unexpected error: %v", err)
	}
}

func TestDebugSnippets_TruncatesLongPassages(t *testing.T) {
	long := strings.Repeat("한", debugSnippetMaxRunes+50)
	snippets := debugSnippets([]Candidate{{
		Text:       long,
		FusedScore: 0.42,
		Source:     storage.SourceRecord{Title: "Long one"},
	}})

	if len(snippets) != 1 {
		t.Fatalf("debugSnippets() returned %d snippets, want 1", len(snippets))
	}
	got := snippets[0].Text
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated snippet must end with ellipsis: %q", got)
	}
	if runes := []rune(got); len(runes) != debugSnippetMaxRunes+3 {
		t.Errorf("snippet length = %d runes, want %d", len(runes), debugSnippetMaxRunes+3)
	}
}
