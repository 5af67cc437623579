package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"skimmer/internal/logging"
	"skimmer/internal/services"
	"skimmer/internal/services/llm"
	"skimmer/internal/store"
	"skimmer/internal/textutil"
)

// Intent classifies what kind of answer a question is after.
type Intent string

const (
	IntentGeneralQuestion Intent = "general_question"
	IntentSpecificTopic   Intent = "specific_topic"
	IntentRecentNews      Intent = "recent_news"
	IntentComparison      Intent = "comparison"
	IntentTutorial        Intent = "tutorial"
	IntentExplanation     Intent = "explanation"
	IntentOther           Intent = "other"
)

var intentSet = map[Intent]struct{}{
	IntentGeneralQuestion: {},
	IntentSpecificTopic:   {},
	IntentRecentNews:      {},
	IntentComparison:      {},
	IntentTutorial:        {},
	IntentExplanation:     {},
	IntentOther:           {},
}

const (
	naiveKeywordLimit = 5
	candidateLimit    = 50
)

// Completer is the LLM surface used for query analysis.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config tunes candidate scoring and result bounds.
type Config struct {
	MaxItems          int
	ContentBudget     int
	TitleHitWeight    int
	SummaryHitWeight  int
	BodyHitWeight     int
	TopicAreaBonus    int
	RecencyBonusMax   int
	DefaultWindowDays int
}

// Analysis is the structured reading of a free-form question.
type Analysis struct {
	Intent     Intent
	Keywords   []string
	TopicAreas []string
	WindowDays int
}

// ScoredItem pairs a candidate with its relevance score.
type ScoredItem struct {
	Item  *store.Item
	Score int64
}

// Result is a ranked, budget-bounded retrieval outcome.
type Result struct {
	Analysis  Analysis
	Items     []ScoredItem
	Truncated bool
}

// Engine ranks processed items against a question.
type Engine struct {
	store  *store.Store
	llm    Completer
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes the engine.
type Option func(*Engine)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine wires a retrieval engine.
func NewEngine(st *store.Store, completer Completer, cfg Config, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 10
	}
	if cfg.ContentBudget <= 0 {
		cfg.ContentBudget = 8000
	}
	if cfg.DefaultWindowDays <= 0 {
		cfg.DefaultWindowDays = 14
	}
	engine := &Engine{
		store:  st,
		llm:    completer,
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "retrieval")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Retrieve analyzes the question, gathers candidates, and returns them ranked
// under the configured content budget and item cap.
func (e *Engine) Retrieve(ctx context.Context, question string) (Result, error) {
	analysis := e.Analyze(ctx, question)

	candidates, err := e.gatherCandidates(ctx, analysis)
	if err != nil {
		return Result{Analysis: analysis}, err
	}

	scored := e.scoreCandidates(candidates, analysis)
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Item.Score > scored[j].Item.Score
	})

	result := Result{Analysis: analysis}
	budget := 0
	for _, candidate := range scored {
		estimate := contentEstimate(candidate.Item)
		if len(result.Items) >= e.cfg.MaxItems || budget+estimate > e.cfg.ContentBudget {
			result.Truncated = true
			break
		}
		budget += estimate
		result.Items = append(result.Items, candidate)
	}

	e.logger.Debug("retrieval complete",
		logging.String("intent", string(analysis.Intent)),
		logging.Int("candidates", len(scored)),
		logging.Int("returned", len(result.Items)),
		logging.Bool("truncated", result.Truncated),
	)
	return result, nil
}

// Analyze turns a question into structured search parameters, falling back to
// naive keyword extraction when the model is unavailable or unparseable.
func (e *Engine) Analyze(ctx context.Context, question string) Analysis {
	if e.llm != nil {
		if analysis, ok := e.analyzeWithModel(ctx, question); ok {
			return analysis
		}
	}
	return e.naiveAnalysis(question)
}

func (e *Engine) analyzeWithModel(ctx context.Context, question string) (Analysis, bool) {
	content, err := e.llm.CompleteJSON(ctx, llm.QueryAnalysisPrompt, question)
	if err != nil {
		e.logger.Warn("query analysis failed, using naive extraction", logging.Error(err))
		return Analysis{}, false
	}

	var payload struct {
		Intent     string   `json:"intent"`
		Keywords   []string `json:"keywords"`
		TopicAreas []string `json:"topic_areas"`
		Timeframe  string   `json:"timeframe"`
	}
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		e.logger.Warn("query analysis unparseable, using naive extraction", logging.Error(err))
		return Analysis{}, false
	}

	analysis := Analysis{
		Intent:     normalizeIntent(payload.Intent),
		Keywords:   normalizeTerms(payload.Keywords, naiveKeywordLimit),
		TopicAreas: normalizeTerms(payload.TopicAreas, 0),
		WindowDays: e.windowDays(payload.Timeframe),
	}
	if len(analysis.Keywords) == 0 {
		return Analysis{}, false
	}
	return analysis, true
}

func (e *Engine) naiveAnalysis(question string) Analysis {
	tokens := textutil.ContentTokens(question)
	if len(tokens) > naiveKeywordLimit {
		tokens = tokens[:naiveKeywordLimit]
	}
	return Analysis{
		Intent:     IntentGeneralQuestion,
		Keywords:   tokens,
		WindowDays: e.cfg.DefaultWindowDays,
	}
}

func (e *Engine) windowDays(timeframe string) int {
	switch strings.ToLower(strings.TrimSpace(timeframe)) {
	case "recent":
		return 3
	case "week":
		return 7
	case "month":
		return 30
	default:
		return e.cfg.DefaultWindowDays
	}
}

func normalizeIntent(value string) Intent {
	normalized := Intent(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := intentSet[normalized]; ok {
		return normalized
	}
	return IntentGeneralQuestion
}

func normalizeTerms(raw []string, limit int) []string {
	seen := make(map[string]struct{}, len(raw))
	terms := make([]string, 0, len(raw))
	for _, term := range raw {
		folded := textutil.Fold(term)
		if folded == "" {
			continue
		}
		if _, dup := seen[folded]; dup {
			continue
		}
		seen[folded] = struct{}{}
		terms = append(terms, folded)
		if limit > 0 && len(terms) == limit {
			break
		}
	}
	return terms
}

// gatherCandidates unions keyword, title, and summary matches with a
// recency-ranked fallback so the result is never empty while any processed
// item exists inside the window.
func (e *Engine) gatherCandidates(ctx context.Context, analysis Analysis) ([]*store.Item, error) {
	since := e.now().UTC().AddDate(0, 0, -analysis.WindowDays)
	base := store.ItemQuery{
		Statuses:     []store.Status{store.StatusProcessed},
		CreatedAfter: &since,
		Limit:        candidateLimit,
	}

	seen := make(map[int64]struct{})
	var candidates []*store.Item
	add := func(items []*store.Item) {
		for _, item := range items {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			candidates = append(candidates, item)
		}
	}

	if len(analysis.Keywords) > 0 {
		byKeyword := base
		byKeyword.KeywordsAny = analysis.Keywords
		items, err := e.store.Search(ctx, byKeyword)
		if err != nil {
			return nil, services.Wrap(services.ErrStoreUnavailable, "retrieval", "keyword search", "", err)
		}
		add(items)

		for _, keyword := range analysis.Keywords {
			byTitle := base
			byTitle.TitleContains = keyword
			items, err := e.store.Search(ctx, byTitle)
			if err != nil {
				return nil, services.Wrap(services.ErrStoreUnavailable, "retrieval", "title search", "", err)
			}
			add(items)

			bySummary := base
			bySummary.SummaryContains = keyword
			items, err = e.store.Search(ctx, bySummary)
			if err != nil {
				return nil, services.Wrap(services.ErrStoreUnavailable, "retrieval", "summary search", "", err)
			}
			add(items)
		}
	}

	fallback := base
	fallback.OrderBy = store.OrderTopScore
	fallback.Limit = e.cfg.MaxItems
	items, err := e.store.Search(ctx, fallback)
	if err != nil {
		return nil, services.Wrap(services.ErrStoreUnavailable, "retrieval", "fallback search", "", err)
	}
	add(items)

	return candidates, nil
}

func (e *Engine) scoreCandidates(candidates []*store.Item, analysis Analysis) []ScoredItem {
	now := e.now().UTC()
	window := time.Duration(analysis.WindowDays) * 24 * time.Hour

	scored := make([]ScoredItem, 0, len(candidates))
	for _, item := range candidates {
		score := item.Score
		score += int64(e.cfg.TitleHitWeight) * int64(textutil.CountHits(item.Title, analysis.Keywords))
		score += int64(e.cfg.SummaryHitWeight) * int64(textutil.CountHits(item.Summary, analysis.Keywords))
		score += int64(e.cfg.BodyHitWeight) * int64(textutil.CountHits(item.Body, analysis.Keywords))
		if matchesTopicArea(item, analysis.TopicAreas) {
			score += int64(e.cfg.TopicAreaBonus)
		}
		score += e.recencyBonus(now, item.CreatedAt, window)
		scored = append(scored, ScoredItem{Item: item, Score: score})
	}
	return scored
}

// recencyBonus decays linearly from the configured maximum at age zero to
// zero at the window edge.
func (e *Engine) recencyBonus(now, createdAt time.Time, window time.Duration) int64 {
	if e.cfg.RecencyBonusMax <= 0 || window <= 0 {
		return 0
	}
	age := now.Sub(createdAt)
	if age < 0 {
		age = 0
	}
	if age >= window {
		return 0
	}
	remaining := float64(window-age) / float64(window)
	return int64(float64(e.cfg.RecencyBonusMax) * remaining)
}

func matchesTopicArea(item *store.Item, topicAreas []string) bool {
	if len(topicAreas) == 0 {
		return false
	}
	haystack := textutil.Fold(item.Title + " " + item.Summary + " " + strings.Join(item.Keywords, " "))
	for _, area := range topicAreas {
		if area != "" && strings.Contains(haystack, area) {
			return true
		}
	}
	return false
}

func contentEstimate(item *store.Item) int {
	return len(item.Title) + len(item.Summary)
}
