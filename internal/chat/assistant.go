package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"skimmer/internal/logging"
	"skimmer/internal/retrieval"
	"skimmer/internal/services/llm"
	"skimmer/internal/store"
	"skimmer/internal/textutil"
)

// FallbackMessage is returned when an answer could not be generated. A failed
// answer degrades to this message, never to a raw error.
const FallbackMessage = "I'm sorry, I couldn't generate a response right now. Please try again."

const contextSnippetRunes = 400

// Completer is the LLM surface used for conversational answers.
type Completer interface {
	CompleteText(ctx context.Context, messages []llm.Message) (string, error)
}

// Retriever supplies ranked context items for a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string) (retrieval.Result, error)
}

// Config tunes conversation handling.
type Config struct {
	MaxHistoryTurns int
}

// Assistant answers free-form questions grounded in retrieved items and a
// bounded per-recipient conversation history.
type Assistant struct {
	store     *store.Store
	llm       Completer
	retriever Retriever
	cfg       Config
	logger    *slog.Logger
}

// NewAssistant wires a chat assistant.
func NewAssistant(st *store.Store, completer Completer, retriever Retriever, cfg Config, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.MaxHistoryTurns <= 0 {
		cfg.MaxHistoryTurns = 10
	}
	return &Assistant{
		store:     st,
		llm:       completer,
		retriever: retriever,
		cfg:       cfg,
		logger:    logger.With(logging.String(logging.FieldComponent, "chat")),
	}
}

// Answer responds to a question from a recipient. Retrieval supplies grounding
// context, history carries the conversation, and any failure degrades to the
// fallback message while the error is logged.
func (a *Assistant) Answer(ctx context.Context, recipientID int64, question string) string {
	question = strings.TrimSpace(question)
	if question == "" {
		return FallbackMessage
	}
	logger := a.logger.With(logging.Int64(logging.FieldRecipientID, recipientID))

	history, err := a.store.History(ctx, recipientID)
	if err != nil {
		logger.Warn("load history", logging.Error(err))
		history = nil
	}

	contextBlock := a.buildContext(ctx, question, logger)

	messages := make([]llm.Message, 0, len(history)+3)
	messages = append(messages, llm.Message{Role: "system", Content: llm.ChatSystemPrompt})
	if contextBlock != "" {
		messages = append(messages, llm.Message{
			Role:    "system",
			Content: "Recent posts relevant to this conversation:\n" + contextBlock,
		})
	}
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: string(turn.Role), Content: turn.Text})
	}
	messages = append(messages, llm.Message{Role: "user", Content: question})

	answer, err := a.llm.CompleteText(ctx, messages)
	if err != nil {
		logger.Warn("answer generation failed", logging.Error(err))
		return FallbackMessage
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return FallbackMessage
	}

	updated := append(history,
		store.ConversationTurn{Role: store.RoleUser, Text: question},
		store.ConversationTurn{Role: store.RoleAssistant, Text: answer},
	)
	if err := a.store.SaveHistory(ctx, recipientID, updated, a.cfg.MaxHistoryTurns); err != nil {
		logger.Warn("save history", logging.Error(err))
	}
	return answer
}

func (a *Assistant) buildContext(ctx context.Context, question string, logger *slog.Logger) string {
	if a.retriever == nil {
		return ""
	}
	result, err := a.retriever.Retrieve(ctx, question)
	if err != nil {
		logger.Warn("retrieval failed, answering without context", logging.Error(err))
		return ""
	}
	if len(result.Items) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, scored := range result.Items {
		item := scored.Item
		fmt.Fprintf(&builder, "%d. %s (r/%s, %d upvotes)\n", i+1, item.Title, item.Community, item.Score)
		if summary := strings.TrimSpace(item.Summary); summary != "" {
			fmt.Fprintf(&builder, "   %s\n", textutil.TruncateRunes(summary, contextSnippetRunes))
		}
	}
	return builder.String()
}
