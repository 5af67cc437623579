package digest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"skimmer/internal/logging"
	"skimmer/internal/services"
	"skimmer/internal/store"
	"skimmer/internal/textutil"
)

const (
	windowStartOffset = 48 * time.Hour
	windowEndOffset   = 24 * time.Hour

	maxTitleRunes   = 100
	maxSummaryRunes = 200
)

// QuietMessage is sent when no items qualify for the window. An empty window
// is a normal terminal case, not an error.
const QuietMessage = "🤖 **AI Daily Digest**\n\nA quiet period in the AI communities. No standout posts made the cut for this digest. Check back tomorrow!"

type sectionConfig struct {
	category store.Category
	title    string
	emoji    string
}

// Fixed presentation order; categories outside this list trail it ordered by
// item count.
var sectionOrder = []sectionConfig{
	{store.CategoryNews, "Breaking News & Updates", "📰"},
	{store.CategoryTool, "Tools & Applications", "🛠️"},
	{store.CategoryResearch, "Research & Papers", "🔬"},
	{store.CategoryTutorial, "Tutorials & Guides", "📚"},
	{store.CategoryDiscussion, "Community Discussions", "💬"},
	{store.CategoryShowcase, "Projects & Demos", "🚀"},
	{store.CategoryQuestion, "Questions & Help", "❓"},
	{store.CategoryOther, "Other Interesting Posts", "💡"},
}

// Config tunes digest composition.
type Config struct {
	MaxItems         int
	MinSummaryLength int
	Communities      []string
}

// Digest is a composed digest ready to broadcast.
type Digest struct {
	Date    string
	Items   []*store.Item
	Message string
	Quiet   bool
}

// Composer selects and formats qualifying items.
type Composer struct {
	store  *store.Store
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes the composer.
type Option func(*Composer)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(c *Composer) {
		if now != nil {
			c.now = now
		}
	}
}

// NewComposer wires a digest composer.
func NewComposer(st *store.Store, cfg Config, logger *slog.Logger, opts ...Option) *Composer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 5
	}
	if cfg.MinSummaryLength <= 0 {
		cfg.MinSummaryLength = 40
	}
	composer := &Composer{
		store:  st,
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "digest")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(composer)
	}
	return composer
}

// Compose selects up to the configured number of processed items from the
// window [now-48h, now-24h), ordered by engagement. The most recent 24 hours
// are deliberately excluded so engagement scores have time to mature.
func (c *Composer) Compose(ctx context.Context) (*Digest, error) {
	now := c.now().UTC()
	windowStart := now.Add(-windowStartOffset)
	windowEnd := now.Add(-windowEndOffset)
	digestDate := windowEnd.Format("2006-01-02")

	items, err := c.store.Search(ctx, store.ItemQuery{
		Statuses:         []store.Status{store.StatusProcessed},
		CreatedAfter:     &windowStart,
		CreatedBefore:    &windowEnd,
		MinSummaryLength: c.cfg.MinSummaryLength,
		OrderBy:          store.OrderTopScore,
		Limit:            c.cfg.MaxItems,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrStoreUnavailable, "digest", "select items", "", err)
	}

	if len(items) == 0 {
		c.logger.Info("no qualifying items, composing quiet-period digest",
			logging.String("digest_date", digestDate))
		return &Digest{Date: digestDate, Message: QuietMessage, Quiet: true}, nil
	}

	digest := &Digest{
		Date:    digestDate,
		Items:   items,
		Message: c.format(items, windowEnd, now),
	}
	c.logger.Info("digest composed",
		logging.String("digest_date", digestDate),
		logging.Int("items", len(items)))
	return digest, nil
}

// Record persists a digest record for its date, enforcing one digest per day.
func (c *Composer) Record(ctx context.Context, digest *Digest) (*store.DigestRecord, error) {
	exists, err := c.store.DigestExistsForDate(ctx, digest.Date)
	if err != nil {
		return nil, services.Wrap(services.ErrStoreUnavailable, "digest", "check date", "", err)
	}
	if exists {
		return nil, services.Wrap(services.ErrDuplicateKey, "digest", "record",
			fmt.Sprintf("digest already exists for %s", digest.Date), nil)
	}
	externalIDs := make([]string, 0, len(digest.Items))
	for _, item := range digest.Items {
		externalIDs = append(externalIDs, item.ExternalID)
	}
	record, err := c.store.CreateDigest(ctx, digest.Date, externalIDs)
	if err != nil {
		return nil, services.Wrap(services.ErrStoreUnavailable, "digest", "record", "", err)
	}
	return record, nil
}

func (c *Composer) format(items []*store.Item, digestDay, now time.Time) string {
	sections := groupByCategory(items)

	var lines []string
	lines = append(lines,
		"🤖 **AI Daily Digest**",
		fmt.Sprintf("📅 %s", digestDay.Format("January 02, 2006")),
		fmt.Sprintf("📊 %d curated posts from AI communities", len(items)),
		"",
		"🔥 **Top Stories from Reddit's AI Communities**",
		"",
	)

	for _, section := range sections {
		lines = append(lines, fmt.Sprintf("%s **%s**", section.emoji, section.title), "")
		for i, item := range section.items {
			lines = append(lines, formatEntry(item, i+1), "")
		}
		lines = append(lines, "---", "")
	}

	lines = append(lines,
		"💡 **Want to chat about AI?**",
		"Just send me a message - I'm powered by the same AI that creates these summaries!",
		"",
	)
	if len(c.cfg.Communities) > 0 {
		sources := make([]string, len(c.cfg.Communities))
		for i, community := range c.cfg.Communities {
			sources[i] = "r/" + community
		}
		lines = append(lines, fmt.Sprintf("🔗 **Sources:** %s", strings.Join(sources, ", ")), "")
	}
	lines = append(lines, fmt.Sprintf("⏱️ Generated at %s", now.Format("15:04 UTC")))

	return strings.Join(lines, "\n")
}

type section struct {
	title string
	emoji string
	items []*store.Item
}

func groupByCategory(items []*store.Item) []section {
	grouped := make(map[store.Category][]*store.Item)
	for _, item := range items {
		category := store.NormalizeCategory(string(item.Category))
		grouped[category] = append(grouped[category], item)
	}

	var sections []section
	listed := make(map[store.Category]struct{})
	for _, cfg := range sectionOrder {
		listed[cfg.category] = struct{}{}
		if members, ok := grouped[cfg.category]; ok {
			sections = append(sections, section{title: cfg.title, emoji: cfg.emoji, items: members})
		}
	}

	// Anything outside the fixed list trails, largest group first.
	var rest []section
	for category, members := range grouped {
		if _, ok := listed[category]; ok {
			continue
		}
		rest = append(rest, section{title: string(category), emoji: "📄", items: members})
	}
	sort.Slice(rest, func(i, j int) bool {
		if len(rest[i].items) != len(rest[j].items) {
			return len(rest[i].items) > len(rest[j].items)
		}
		return rest[i].title < rest[j].title
	})
	return append(sections, rest...)
}

func formatEntry(item *store.Item, index int) string {
	title := textutil.TruncateRunes(item.Title, maxTitleRunes)
	summary := textutil.TruncateRunes(item.Summary, maxSummaryRunes)

	entryLines := []string{
		fmt.Sprintf("**%d. %s**", index, title),
		fmt.Sprintf("📈 %d upvotes • r/%s", item.Score, item.Community),
		fmt.Sprintf("💬 %s", summary),
	}
	switch {
	case item.URL != "" && item.URL != item.Permalink:
		entryLines = append(entryLines, fmt.Sprintf("🔗 [Read more](%s)", item.URL))
	case item.Permalink != "":
		entryLines = append(entryLines, fmt.Sprintf("🔗 [Discussion](%s)", item.Permalink))
	}
	return strings.Join(entryLines, "\n")
}
