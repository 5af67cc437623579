package broadcast_test

import (
	"context"
	"testing"
	"time"

	"skimmer/internal/broadcast"
	"skimmer/internal/services"
	"skimmer/internal/store"
	"skimmer/internal/telegram"
	"skimmer/internal/testsupport"
)

func TestDispatchDigestFansOutToActiveRecipients(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	testsupport.SeedRecipient(t, st, 1, "ada")
	testsupport.SeedRecipient(t, st, 2, "grace")
	testsupport.SeedRecipient(t, st, 3, "alan")
	if err := st.SetRecipientStatus(context.Background(), 3, store.RecipientBlocked); err != nil {
		t.Fatalf("SetRecipientStatus: %v", err)
	}

	sender := &testsupport.StubSender{}
	dispatcher := broadcast.NewDispatcher(st, sender, broadcast.Config{}, nil)

	report, err := dispatcher.DispatchDigest(context.Background(), "digest body")
	if err != nil {
		t.Fatalf("DispatchDigest failed: %v", err)
	}
	if report.Recipients != 2 || report.Sent != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	for _, msg := range sender.Sent() {
		if msg.ChatID == 3 {
			t.Fatal("blocked recipient must not receive messages")
		}
	}
}

func TestDispatchDigestRejectsEmptyMessage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	dispatcher := broadcast.NewDispatcher(st, &testsupport.StubSender{}, broadcast.Config{}, nil)
	if _, err := dispatcher.DispatchDigest(context.Background(), "   "); err == nil {
		t.Fatal("expected validation error for blank message")
	}
}

func TestDispatchDigestBlocksPermanentFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	testsupport.SeedRecipient(t, st, 10, "ada")
	testsupport.SeedRecipient(t, st, 11, "grace")

	permanent := services.Wrap(services.ErrPermanentRecipient, "telegram", "send", "bot blocked", nil)
	transient := services.Wrap(services.ErrTransient, "telegram", "send", "status 500", nil)
	sender := &testsupport.StubSender{Failures: map[int64]error{10: permanent}}
	dispatcher := broadcast.NewDispatcher(st, sender, broadcast.Config{}, nil)

	report, err := dispatcher.DispatchDigest(context.Background(), "digest body")
	if err != nil {
		t.Fatalf("DispatchDigest failed: %v", err)
	}
	if report.Blocked != 1 || report.Sent != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	recipient, err := st.GetRecipient(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetRecipient: %v", err)
	}
	if recipient.Status != store.RecipientBlocked {
		t.Fatalf("permanent failure must block the recipient, status=%s", recipient.Status)
	}

	// Transient failures keep the recipient active for the next cycle.
	sender = &testsupport.StubSender{Failures: map[int64]error{11: transient}}
	dispatcher = broadcast.NewDispatcher(st, sender, broadcast.Config{}, nil)
	report, err = dispatcher.DispatchDigest(context.Background(), "digest body")
	if err != nil {
		t.Fatalf("DispatchDigest failed: %v", err)
	}
	if report.Transient != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	recipient, err = st.GetRecipient(context.Background(), 11)
	if err != nil {
		t.Fatalf("GetRecipient: %v", err)
	}
	if recipient.Status != store.RecipientActive {
		t.Fatalf("transient failure must not block, status=%s", recipient.Status)
	}
}

func TestDispatchAlertsMarksPushedOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	now := time.Now().UTC()
	testsupport.SeedRecipient(t, st, 1, "ada")
	testsupport.SeedProcessedItem(t, st, "hot", "Model tops the charts", store.Enrichment{
		Summary:  "A breakout release that everyone in the community is talking about.",
		Category: store.CategoryNews,
	}, testsupport.WithScore(900), testsupport.WithCreatedAt(now.Add(-2*time.Hour)))
	testsupport.SeedProcessedItem(t, st, "mild", "Quiet update", store.Enrichment{
		Summary:  "A small release without much community engagement behind it.",
		Category: store.CategoryNews,
	}, testsupport.WithScore(50), testsupport.WithCreatedAt(now.Add(-2*time.Hour)))
	testsupport.SeedProcessedItem(t, st, "old", "Last week's hit", store.Enrichment{
		Summary:  "A big post that is already too old to alert on this cycle.",
		Category: store.CategoryNews,
	}, testsupport.WithScore(900), testsupport.WithCreatedAt(now.Add(-72*time.Hour)))

	sender := &testsupport.StubSender{}
	dispatcher := broadcast.NewDispatcher(st, sender,
		broadcast.Config{AlertScoreThreshold: 250, AlertWindowHours: 48}, nil)

	report, err := dispatcher.DispatchAlerts(context.Background())
	if err != nil {
		t.Fatalf("DispatchAlerts failed: %v", err)
	}
	if report.Alerts != 1 || report.Sent != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	item, err := st.GetByExternalID(context.Background(), "hot")
	if err != nil {
		t.Fatalf("GetByExternalID: %v", err)
	}
	if !item.Pushed {
		t.Fatal("dispatched alert must be marked pushed")
	}

	// A second cycle finds nothing new.
	report, err = dispatcher.DispatchAlerts(context.Background())
	if err != nil {
		t.Fatalf("second DispatchAlerts failed: %v", err)
	}
	if report.Alerts != 0 || report.Sent != 0 {
		t.Fatalf("pushed item re-dispatched: %+v", report)
	}
}

func TestDispatchAlertsMarksPushedDespiteSendFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	now := time.Now().UTC()
	testsupport.SeedRecipient(t, st, 1, "ada")
	testsupport.SeedProcessedItem(t, st, "hot", "Model tops the charts", store.Enrichment{
		Summary:  "A breakout release that everyone in the community is talking about.",
		Category: store.CategoryNews,
	}, testsupport.WithScore(900), testsupport.WithCreatedAt(now.Add(-2*time.Hour)))

	transient := services.Wrap(services.ErrTransient, "telegram", "send", "status 500", nil)
	sender := &testsupport.StubSender{Failures: map[int64]error{1: transient}}
	dispatcher := broadcast.NewDispatcher(st, sender, broadcast.Config{}, nil)

	report, err := dispatcher.DispatchAlerts(context.Background())
	if err != nil {
		t.Fatalf("DispatchAlerts failed: %v", err)
	}
	if report.Transient != 1 || report.Alerts != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	item, err := st.GetByExternalID(context.Background(), "hot")
	if err != nil {
		t.Fatalf("GetByExternalID: %v", err)
	}
	if !item.Pushed {
		t.Fatal("pushed flag must flip even when every send failed")
	}
}

func TestDispatchAlertsSkipsBlockedRecipientForLaterItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	now := time.Now().UTC()
	testsupport.SeedRecipient(t, st, 1, "ada")
	testsupport.SeedRecipient(t, st, 2, "grace")
	testsupport.SeedProcessedItem(t, st, "first", "Model tops the charts", store.Enrichment{
		Summary:  "A breakout release that everyone in the community is talking about.",
		Category: store.CategoryNews,
	}, testsupport.WithScore(900), testsupport.WithCreatedAt(now.Add(-2*time.Hour)))
	testsupport.SeedProcessedItem(t, st, "second", "Benchmark shakeup", store.Enrichment{
		Summary:  "A new leaderboard result that upended the usual model rankings.",
		Category: store.CategoryNews,
	}, testsupport.WithScore(800), testsupport.WithCreatedAt(now.Add(-3*time.Hour)))

	permanent := services.Wrap(services.ErrPermanentRecipient, "telegram", "send", "bot blocked", nil)
	sender := &testsupport.StubSender{Failures: map[int64]error{2: permanent}}
	dispatcher := broadcast.NewDispatcher(st, sender, broadcast.Config{}, nil)

	report, err := dispatcher.DispatchAlerts(context.Background())
	if err != nil {
		t.Fatalf("DispatchAlerts failed: %v", err)
	}
	if report.Alerts != 2 || report.Blocked != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if got := sender.Attempts(2); got != 1 {
		t.Fatalf("blocked recipient attempted %d times in one cycle, want 1", got)
	}
	if got := sender.Attempts(1); got != 2 {
		t.Fatalf("healthy recipient attempted %d times, want 2", got)
	}

	recipient, err := st.GetRecipient(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetRecipient: %v", err)
	}
	if recipient.Status != store.RecipientBlocked {
		t.Fatalf("permanent failure must block the recipient, status=%s", recipient.Status)
	}
}

func TestFanOutPacesBetweenSends(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	testsupport.SeedRecipient(t, st, 1, "ada")
	testsupport.SeedRecipient(t, st, 2, "grace")
	testsupport.SeedRecipient(t, st, 3, "alan")

	var slept []time.Duration
	dispatcher := broadcast.NewDispatcher(st, &testsupport.StubSender{},
		broadcast.Config{SendDelayMillis: 150}, nil,
		broadcast.WithSleeper(func(d time.Duration) { slept = append(slept, d) }))

	if _, err := dispatcher.DispatchDigest(context.Background(), "digest body"); err != nil {
		t.Fatalf("DispatchDigest failed: %v", err)
	}
	if len(slept) != 2 {
		t.Fatalf("expected 2 pacing delays for 3 recipients, got %d", len(slept))
	}
	for _, d := range slept {
		if d != 150*time.Millisecond {
			t.Fatalf("unexpected delay %v", d)
		}
	}
}

var _ telegram.Sender = (*testsupport.StubSender)(nil)
