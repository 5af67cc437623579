package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"skimmer/internal/logging"
	"skimmer/internal/services"
	"skimmer/internal/store"
	"skimmer/internal/telegram"
	"skimmer/internal/textutil"
)

// Config tunes alert selection and send pacing.
type Config struct {
	AlertScoreThreshold int64
	AlertWindowHours    int
	SendDelayMillis     int
}

// Report summarizes one dispatch cycle.
type Report struct {
	Recipients int
	Sent       int
	Blocked    int
	Transient  int
	Alerts     int
}

// Dispatcher fans broadcast content out to active recipients.
type Dispatcher struct {
	store  *store.Store
	sender telegram.Sender
	cfg    Config
	logger *slog.Logger
	sleep  func(time.Duration)
	now    func() time.Time
}

// Option customizes the dispatcher.
type Option func(*Dispatcher)

// WithSleeper overrides how pacing delays are performed (useful for tests).
func WithSleeper(sleep func(time.Duration)) Option {
	return func(d *Dispatcher) {
		if sleep != nil {
			d.sleep = sleep
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(st *store.Store, sender telegram.Sender, cfg Config, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.AlertScoreThreshold <= 0 {
		cfg.AlertScoreThreshold = 250
	}
	if cfg.AlertWindowHours <= 0 {
		cfg.AlertWindowHours = 48
	}
	dispatcher := &Dispatcher{
		store:  st,
		sender: sender,
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "broadcast")),
		sleep:  time.Sleep,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(dispatcher)
	}
	return dispatcher
}

// DispatchDigest sends the digest message to every active recipient.
func (d *Dispatcher) DispatchDigest(ctx context.Context, message string) (Report, error) {
	var report Report
	if strings.TrimSpace(message) == "" {
		return report, services.Wrap(services.ErrValidation, "broadcast", "dispatch digest", "empty message", nil)
	}
	recipients, err := d.store.ActiveRecipients(ctx)
	if err != nil {
		return report, services.Wrap(services.ErrStoreUnavailable, "broadcast", "load recipients", "", err)
	}
	report.Recipients = len(recipients)
	d.fanOut(ctx, recipients, message, &report, make(map[int64]struct{}))

	d.logger.Info("digest dispatched",
		logging.Int("recipients", report.Recipients),
		logging.Int("sent", report.Sent),
		logging.Int("blocked", report.Blocked),
		logging.Int("transient", report.Transient),
	)
	return report, nil
}

// DispatchAlerts pushes every unpushed high-engagement item from the recent
// window to all active recipients. After an item's fan-out completes the
// pushed flag is set exactly once, regardless of how many individual sends
// failed; partial non-delivery is accepted to rule out duplicate re-sends.
func (d *Dispatcher) DispatchAlerts(ctx context.Context) (Report, error) {
	var report Report

	since := d.now().UTC().Add(-time.Duration(d.cfg.AlertWindowHours) * time.Hour)
	threshold := d.cfg.AlertScoreThreshold
	candidates, err := d.store.Search(ctx, store.ItemQuery{
		Statuses:     []store.Status{store.StatusProcessed},
		CreatedAfter: &since,
		MinScore:     &threshold,
		Unpushed:     true,
		OrderBy:      store.OrderTopScore,
	})
	if err != nil {
		return report, services.Wrap(services.ErrStoreUnavailable, "broadcast", "load alert candidates", "", err)
	}
	if len(candidates) == 0 {
		d.logger.Info("no alert candidates")
		return report, nil
	}

	recipients, err := d.store.ActiveRecipients(ctx)
	if err != nil {
		return report, services.Wrap(services.ErrStoreUnavailable, "broadcast", "load recipients", "", err)
	}
	report.Recipients = len(recipients)

	// Shared across the whole cycle: once a recipient is blocked during one
	// item's fan-out, no later item may attempt them.
	blocked := make(map[int64]struct{})
	for _, item := range candidates {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		itemLogger := d.logger.With(
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String(logging.FieldExternalID, item.ExternalID),
		)

		d.fanOut(ctx, recipients, formatAlert(item), &report, blocked)

		changed, err := d.store.MarkPushed(ctx, item.ID)
		if err != nil {
			itemLogger.Error("mark pushed", logging.Error(err))
			continue
		}
		if !changed {
			itemLogger.Warn("item already marked pushed")
			continue
		}
		report.Alerts++
		itemLogger.Info("alert dispatched", logging.Int64("score", item.Score))
	}
	return report, nil
}

// fanOut sends one message to each recipient with pacing between sends.
// Permanent recipient failures block the recipient; transient failures are
// counted and the recipient stays active for the next cycle. The blocked set
// is owned by the caller so it persists across fan-outs in the same cycle.
func (d *Dispatcher) fanOut(ctx context.Context, recipients []*store.Recipient, message string, report *Report, blocked map[int64]struct{}) {
	attempted := false
	for _, recipient := range recipients {
		if ctx.Err() != nil {
			return
		}
		if _, gone := blocked[recipient.ID]; gone {
			continue
		}
		if attempted && d.cfg.SendDelayMillis > 0 {
			d.sleep(time.Duration(d.cfg.SendDelayMillis) * time.Millisecond)
		}
		attempted = true

		err := d.sender.SendMessage(ctx, recipient.ID, message)
		if err == nil {
			report.Sent++
			continue
		}
		recipientLogger := d.logger.With(logging.Int64(logging.FieldRecipientID, recipient.ID))
		if services.IsPermanentRecipient(err) {
			recipientLogger.Warn("recipient unreachable, blocking", logging.Error(err))
			if storeErr := d.store.SetRecipientStatus(ctx, recipient.ID, store.RecipientBlocked); storeErr != nil {
				recipientLogger.Error("block recipient", logging.Error(storeErr))
			} else {
				blocked[recipient.ID] = struct{}{}
			}
			report.Blocked++
			continue
		}
		recipientLogger.Warn("transient send failure", logging.Error(err))
		report.Transient++
	}
}

func formatAlert(item *store.Item) string {
	title := textutil.TruncateRunes(item.Title, 100)
	summary := textutil.TruncateRunes(item.Summary, 200)

	lines := []string{
		"🚨 **Trending in AI**",
		"",
		fmt.Sprintf("**%s**", title),
		fmt.Sprintf("📈 %d upvotes • r/%s", item.Score, item.Community),
	}
	if summary != "" {
		lines = append(lines, fmt.Sprintf("💬 %s", summary))
	}
	switch {
	case item.URL != "" && item.URL != item.Permalink:
		lines = append(lines, fmt.Sprintf("🔗 [Read more](%s)", item.URL))
	case item.Permalink != "":
		lines = append(lines, fmt.Sprintf("🔗 [Discussion](%s)", item.Permalink))
	}
	return strings.Join(lines, "\n")
}
