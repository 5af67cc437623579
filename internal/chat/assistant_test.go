package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"skimmer/internal/chat"
	"skimmer/internal/retrieval"
	"skimmer/internal/store"
	"skimmer/internal/testsupport"
)

type stubRetriever struct {
	result retrieval.Result
	err    error
}

func (s *stubRetriever) Retrieve(ctx context.Context, question string) (retrieval.Result, error) {
	return s.result, s.err
}

func TestAnswerGroundsInRetrievedContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedRecipient(t, st, 7, "ada")

	item := testsupport.SeedProcessedItem(t, st, "ctx1", "Llama 4 released", store.Enrichment{
		Summary:  "The long awaited release brings large quality gains across benchmarks.",
		Category: store.CategoryNews,
	})
	retriever := &stubRetriever{result: retrieval.Result{
		Items: []retrieval.ScoredItem{{Item: item, Score: 100}},
	}}
	completer := &testsupport.StubCompleter{Responses: []string{"Llama 4 just shipped."}}

	assistant := chat.NewAssistant(st, completer, retriever, chat.Config{}, nil)
	answer := assistant.Answer(context.Background(), 7, "what happened with llama?")
	if answer != "Llama 4 just shipped." {
		t.Fatalf("unexpected answer %q", answer)
	}

	history, err := st.History(context.Background(), 7)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected question and answer in history, got %d turns", len(history))
	}
	if history[0].Role != store.RoleUser || history[1].Role != store.RoleAssistant {
		t.Fatalf("unexpected roles: %s, %s", history[0].Role, history[1].Role)
	}
}

func TestAnswerCarriesConversationHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedRecipient(t, st, 7, "ada")

	completer := &testsupport.StubCompleter{Responses: []string{"First answer.", "Second answer."}}
	assistant := chat.NewAssistant(st, completer, &stubRetriever{}, chat.Config{MaxHistoryTurns: 10}, nil)

	assistant.Answer(context.Background(), 7, "first question")
	assistant.Answer(context.Background(), 7, "second question")

	history, err := st.History(context.Background(), 7)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(history))
	}
	if history[0].Text != "first question" || history[3].Text != "Second answer." {
		t.Fatalf("history out of order: %+v", history)
	}
}

func TestAnswerFallsBackOnGenerationFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedRecipient(t, st, 7, "ada")

	completer := &testsupport.StubCompleter{Err: errors.New("model unavailable")}
	assistant := chat.NewAssistant(st, completer, &stubRetriever{}, chat.Config{}, nil)

	answer := assistant.Answer(context.Background(), 7, "anything new?")
	if answer != chat.FallbackMessage {
		t.Fatalf("expected fallback, got %q", answer)
	}

	history, err := st.History(context.Background(), 7)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Fatal("failed answers must not be saved to history")
	}
}

func TestAnswerSurvivesRetrievalFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedRecipient(t, st, 7, "ada")

	retriever := &stubRetriever{err: errors.New("store gone")}
	completer := &testsupport.StubCompleter{Responses: []string{"Answered without context."}}
	assistant := chat.NewAssistant(st, completer, retriever, chat.Config{}, nil)

	answer := assistant.Answer(context.Background(), 7, "anything new?")
	if answer != "Answered without context." {
		t.Fatalf("retrieval failure must not block answering, got %q", answer)
	}
}

func TestAnswerRejectsBlankQuestion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	completer := &testsupport.StubCompleter{Responses: []string{"should not be used"}}
	assistant := chat.NewAssistant(st, completer, &stubRetriever{}, chat.Config{}, nil)

	if answer := assistant.Answer(context.Background(), 7, "   "); answer != chat.FallbackMessage {
		t.Fatalf("expected fallback for blank question, got %q", answer)
	}
	if completer.Calls != 0 {
		t.Fatal("blank question must not reach the model")
	}
}

func TestWelcomeAndHelpTexts(t *testing.T) {
	welcome := chat.WelcomeMessage("Ada")
	if !strings.Contains(welcome, "Ada") {
		t.Fatalf("welcome must address the recipient: %q", welcome)
	}
	if chat.HelpMessage() == "" {
		t.Fatal("help message must not be empty")
	}
}
