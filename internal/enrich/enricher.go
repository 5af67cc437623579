package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"skimmer/internal/linkfetch"
	"skimmer/internal/logging"
	"skimmer/internal/services"
	"skimmer/internal/services/llm"
	"skimmer/internal/store"
	"skimmer/internal/textutil"
)

const (
	maxKeywords = 10
	// Share of the prompt budget reserved for fetched page text; the rest
	// carries the post body.
	fetchedBudgetShare = 0.7
)

var keywordSanitizer = regexp.MustCompile(`[^\p{L}\p{N}\s-]+`)

// Completer is the LLM surface the enricher needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LinkFetcher retrieves readable text for an external URL.
type LinkFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Config tunes a single enrichment run.
type Config struct {
	BatchSize        int
	RetryBatchSize   int
	MaxFetchAttempts int
	PromptBudget     int
}

// Summary reports what one enrichment run did.
type Summary struct {
	Examined         int
	Processed        int
	FetchFailed      int
	GenerationFailed int
	Skipped          int
}

// Enricher drives pending and retryable items through summarization.
type Enricher struct {
	store   *store.Store
	llm     Completer
	fetcher LinkFetcher
	cfg     Config
	logger  *slog.Logger
}

// NewEnricher wires an enricher.
func NewEnricher(st *store.Store, completer Completer, fetcher LinkFetcher, cfg Config, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.RetryBatchSize < 0 {
		cfg.RetryBatchSize = 0
	}
	if cfg.MaxFetchAttempts <= 0 {
		cfg.MaxFetchAttempts = 4
	}
	if cfg.PromptBudget <= 0 {
		cfg.PromptBudget = 6000
	}
	return &Enricher{
		store:   st,
		llm:     completer,
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger.With(logging.String(logging.FieldComponent, "enrich")),
	}
}

// Run processes one bounded batch of pending items plus a random sample of
// retryable failures. Item failures are isolated: one bad item never stops
// the rest of the batch.
func (e *Enricher) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	pending, err := e.store.PendingBatch(ctx, e.cfg.BatchSize)
	if err != nil {
		return summary, services.Wrap(services.ErrStoreUnavailable, "enrich", "load pending", "", err)
	}
	retryable, err := e.store.SampleRetryable(ctx, e.cfg.RetryBatchSize, e.cfg.MaxFetchAttempts)
	if err != nil {
		return summary, services.Wrap(services.ErrStoreUnavailable, "enrich", "load retryable", "", err)
	}

	batch := append(pending, retryable...)
	summary.Examined = len(batch)
	for _, item := range batch {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		itemCtx := services.WithItemID(ctx, item.ID)
		outcome := e.processItem(itemCtx, item)
		switch outcome {
		case outcomeProcessed:
			summary.Processed++
		case outcomeFetchFailed:
			summary.FetchFailed++
		case outcomeGenerationFailed:
			summary.GenerationFailed++
		case outcomeSkipped:
			summary.Skipped++
		}
	}

	e.logger.Info("enrichment run complete",
		logging.Int("examined", summary.Examined),
		logging.Int("processed", summary.Processed),
		logging.Int("fetch_failed", summary.FetchFailed),
		logging.Int("generation_failed", summary.GenerationFailed),
		logging.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeFetchFailed
	outcomeGenerationFailed
	outcomeSkipped
)

func (e *Enricher) processItem(ctx context.Context, item *store.Item) outcome {
	logger := e.logger.With(
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldExternalID, item.ExternalID),
	)
	fromStatus := item.Status

	fetched, fetchErr := e.fetchLinkedText(ctx, item)
	if fetchErr != nil {
		logger.Warn("link fetch failed", logging.Error(fetchErr),
			logging.Int("attempts", item.URLFetchAttempts+1))
		changed, err := e.store.MarkFetchFailed(ctx, item.ID, fromStatus)
		if err != nil {
			logger.Error("record fetch failure", logging.Error(err))
			return outcomeSkipped
		}
		if !changed {
			logger.Debug("item claimed elsewhere, skipping")
			return outcomeSkipped
		}
		return outcomeFetchFailed
	}

	enrichment, genErr := e.generate(ctx, item, fetched)
	if genErr != nil {
		logger.Warn("generation failed", logging.Error(genErr))
		changed, err := e.store.MarkGenerationFailed(ctx, item.ID, fromStatus)
		if err != nil {
			logger.Error("record generation failure", logging.Error(err))
			return outcomeSkipped
		}
		if !changed {
			logger.Debug("item claimed elsewhere, skipping")
			return outcomeSkipped
		}
		return outcomeGenerationFailed
	}

	changed, err := e.store.MarkProcessed(ctx, item.ID, fromStatus, enrichment)
	if err != nil {
		logger.Error("record enrichment", logging.Error(err))
		return outcomeSkipped
	}
	if !changed {
		logger.Debug("item claimed elsewhere, discarding enrichment")
		return outcomeSkipped
	}
	logger.Info("item enriched", logging.String("category", string(enrichment.Category)))
	return outcomeProcessed
}

// fetchLinkedText fetches the external page for items carrying a link.
// Media URLs and other unsupported payloads are not failures: the item is
// enriched from its own text instead.
func (e *Enricher) fetchLinkedText(ctx context.Context, item *store.Item) (string, error) {
	if !item.HasExternalLink() || e.fetcher == nil {
		return "", nil
	}
	text, err := e.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		if errors.Is(err, linkfetch.ErrUnsupportedContent) {
			return "", nil
		}
		return "", err
	}
	return text, nil
}

func (e *Enricher) generate(ctx context.Context, item *store.Item, fetched string) (store.Enrichment, error) {
	var empty store.Enrichment

	prompt := e.buildPrompt(item, fetched)
	content, err := e.llm.CompleteJSON(ctx, llm.EnrichmentPrompt, prompt)
	if err != nil {
		return empty, err
	}

	var payload struct {
		Summary  string   `json:"summary"`
		Category string   `json:"category"`
		Keywords []string `json:"keywords"`
	}
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return empty, services.Wrap(services.ErrMalformedResponse, "enrich", "decode payload", "", err)
	}
	summary := strings.TrimSpace(payload.Summary)
	if summary == "" {
		return empty, services.Wrap(services.ErrMalformedResponse, "enrich", "validate payload", "empty summary", nil)
	}

	return store.Enrichment{
		Summary:  summary,
		Category: store.NormalizeCategory(payload.Category),
		Keywords: CleanKeywords(payload.Keywords),
	}, nil
}

func (e *Enricher) buildPrompt(item *store.Item, fetched string) string {
	fetchedBudget := int(float64(e.cfg.PromptBudget) * fetchedBudgetShare)
	bodyBudget := e.cfg.PromptBudget - fetchedBudget
	if fetched == "" {
		bodyBudget = e.cfg.PromptBudget
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Title: %s\n", item.Title)
	fmt.Fprintf(&builder, "Community: %s\n", item.Community)
	if body := strings.TrimSpace(item.Body); body != "" {
		fmt.Fprintf(&builder, "Post body:\n%s\n", textutil.TruncateRunes(body, bodyBudget))
	}
	if fetched != "" {
		fmt.Fprintf(&builder, "Linked page text:\n%s\n", textutil.TruncateRunes(fetched, fetchedBudget))
	}
	return builder.String()
}

// CleanKeywords lowercases, strips punctuation, and deduplicates keywords,
// keeping at most ten.
func CleanKeywords(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	cleaned := make([]string, 0, len(raw))
	for _, keyword := range raw {
		folded := textutil.Fold(keyword)
		folded = keywordSanitizer.ReplaceAllString(folded, "")
		folded = textutil.CollapseWhitespace(folded)
		if folded == "" {
			continue
		}
		if _, dup := seen[folded]; dup {
			continue
		}
		seen[folded] = struct{}{}
		cleaned = append(cleaned, folded)
		if len(cleaned) == maxKeywords {
			break
		}
	}
	return cleaned
}
