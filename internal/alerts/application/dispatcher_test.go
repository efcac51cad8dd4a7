package application

import (
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	accounts "prepaid-meter-cloud/internal/accounts/domain"
	accountsmem "prepaid-meter-cloud/internal/accounts/infrastructure/memory"
	alerts "prepaid-meter-cloud/internal/alerts/domain"
	alertsmem "prepaid-meter-cloud/internal/alerts/infrastructure/memory"
)

type sentMessage struct {
	Channel   string
	Recipient string
	Title     string
	Message   string
}

type recordingTransport struct {
	mu    sync.Mutex
	sends []sentMessage
	fail  map[string]error
}

func (t *recordingTransport) Send(_ context.Context, channel, recipient, title, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.fail[channel]; err != nil {
		return err
	}
	t.sends = append(t.sends, sentMessage{Channel: channel, Recipient: recipient, Title: title, Message: message})
	return nil
}

func (t *recordingTransport) Sent() []sentMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]sentMessage(nil), t.sends...)
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestDispatcher(t *testing.T) (*Dispatcher, *alertsmem.AlertRepository, *accountsmem.SettingsRepository, *recordingTransport) {
	t.Helper()
	repo := alertsmem.NewAlertRepository()
	settings := accountsmem.NewSettingsRepository()
	transport := &recordingTransport{fail: map[string]error{}}
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	dispatcher, err := NewDispatcher(repo, settings, transport, clock, log.New(discard{}, "", 0))
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return dispatcher, repo, settings, transport
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func storeSettings(t *testing.T, repo *accountsmem.SettingsRepository, settings *accounts.Settings) {
	t.Helper()
	if err := repo.Put(context.Background(), settings); err != nil {
		t.Fatalf("put settings: %v", err)
	}
}

func TestRaisePersistsUnreadAlert(t *testing.T) {
	dispatcher, repo, _, _ := newTestDispatcher(t)

	alert, err := dispatcher.Raise(context.Background(), "user-1", alerts.KindGeneral, "Hello", "World", map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	stored, err := repo.GetByID(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.IsRead || stored.ReadAt != nil {
		t.Fatal("expected new alert to be unread")
	}
	if stored.EmailSent || stored.SMSSent || stored.PushSent {
		t.Fatal("expected all delivery flags false on raise")
	}

	if _, err := dispatcher.Raise(context.Background(), "user-1", "bogus", "", "", nil); !errors.Is(err, alerts.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestDeliverIsIdempotentPerChannel(t *testing.T) {
	dispatcher, repo, settings, transport := newTestDispatcher(t)
	storeSettings(t, settings, &accounts.Settings{
		UserID: "user-1",
		Email:  "user@example.com",
		Channels: accounts.ChannelPreferences{
			"system": {Email: true},
		},
	})

	alert, err := dispatcher.Raise(context.Background(), "user-1", alerts.KindGeneral, "Hi", "Body", nil)
	if err != nil {
		t.Fatalf("raise: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := dispatcher.Deliver(context.Background(), alert.ID, alerts.ChannelEmail); err != nil {
			t.Fatalf("deliver #%d: %v", i+1, err)
		}
	}

	sends := transport.Sent()
	if len(sends) != 1 {
		t.Fatalf("expected exactly one transport send, got %d", len(sends))
	}
	if sends[0].Recipient != "user@example.com" {
		t.Fatalf("expected email recipient, got %q", sends[0].Recipient)
	}
	stored, _ := repo.GetByID(context.Background(), alert.ID)
	if !stored.EmailSent {
		t.Fatal("expected email_sent flag set")
	}
}

func TestDeliverRespectsChannelPreferences(t *testing.T) {
	dispatcher, repo, settings, transport := newTestDispatcher(t)
	// Defaults: email+push on, sms off.
	storeSettings(t, settings, accounts.DefaultSettings("user-1"))

	alert, err := dispatcher.Raise(context.Background(), "user-1", alerts.KindGeneral, "Hi", "Body", nil)
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	if err := dispatcher.Deliver(context.Background(), alert.ID, alerts.ChannelSMS); !errors.Is(err, alerts.ErrChannelDisabled) {
		t.Fatalf("expected ErrChannelDisabled, got %v", err)
	}
	if len(transport.Sent()) != 0 {
		t.Fatal("expected no transport send for disabled channel")
	}
	stored, _ := repo.GetByID(context.Background(), alert.ID)
	if stored.SMSSent {
		t.Fatal("expected sms_sent flag to stay false")
	}
}

func TestDeliverFailureLeavesFlagFalse(t *testing.T) {
	dispatcher, repo, settings, transport := newTestDispatcher(t)
	storeSettings(t, settings, accounts.DefaultSettings("user-1"))
	transport.fail["email"] = errors.New("smtp down")

	alert, err := dispatcher.Raise(context.Background(), "user-1", alerts.KindGeneral, "Hi", "Body", nil)
	if err != nil {
		t.Fatalf("raise: %v", err)
	}

	err = dispatcher.Deliver(context.Background(), alert.ID, alerts.ChannelEmail)
	var deliveryErr *alerts.DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if deliveryErr.Channel != alerts.ChannelEmail {
		t.Fatalf("expected email channel in error, got %s", deliveryErr.Channel)
	}
	stored, _ := repo.GetByID(context.Background(), alert.ID)
	if stored.EmailSent {
		t.Fatal("expected flag false after failed delivery")
	}

	// Transport recovers; retry succeeds and sets the flag.
	delete(transport.fail, "email")
	if err := dispatcher.Deliver(context.Background(), alert.ID, alerts.ChannelEmail); err != nil {
		t.Fatalf("retry deliver: %v", err)
	}
	stored, _ = repo.GetByID(context.Background(), alert.ID)
	if !stored.EmailSent {
		t.Fatal("expected flag set after successful retry")
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	dispatcher, repo, _, _ := newTestDispatcher(t)

	alert, err := dispatcher.Raise(context.Background(), "user-1", alerts.KindGeneral, "Hi", "Body", nil)
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	if err := dispatcher.MarkRead(context.Background(), alert.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	stored, _ := repo.GetByID(context.Background(), alert.ID)
	if !stored.IsRead || stored.ReadAt == nil {
		t.Fatal("expected alert marked read with read_at set")
	}
	firstReadAt := *stored.ReadAt

	if err := dispatcher.MarkRead(context.Background(), alert.ID); err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	stored, _ = repo.GetByID(context.Background(), alert.ID)
	if !stored.ReadAt.Equal(firstReadAt) {
		t.Fatal("expected read_at unchanged on repeat mark read")
	}
}

func TestClearReadDeletesOnlyReadAlerts(t *testing.T) {
	dispatcher, _, _, _ := newTestDispatcher(t)

	read, err := dispatcher.Raise(context.Background(), "user-1", alerts.KindGeneral, "A", "a", nil)
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	if _, err := dispatcher.Raise(context.Background(), "user-1", alerts.KindGeneral, "B", "b", nil); err != nil {
		t.Fatalf("raise: %v", err)
	}
	if err := dispatcher.MarkRead(context.Background(), read.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	deleted, err := dispatcher.ClearRead(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("clear read: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}
	remaining, err := dispatcher.List(context.Background(), "user-1", false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Title != "B" {
		t.Fatalf("expected only unread alert to remain, got %d", len(remaining))
	}
}

func TestRaiseBumpsNothingOnBadInput(t *testing.T) {
	dispatcher, _, _, _ := newTestDispatcher(t)
	if _, err := dispatcher.Raise(context.Background(), "", alerts.KindGeneral, "", "", nil); !errors.Is(err, alerts.ErrEmptyUserID) {
		t.Fatalf("expected ErrEmptyUserID, got %v", err)
	}
	if _, err := dispatcher.ClearRead(context.Background(), ""); !errors.Is(err, alerts.ErrEmptyUserID) {
		t.Fatalf("expected ErrEmptyUserID, got %v", err)
	}
}
