package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	accounts "prepaid-meter-cloud/internal/accounts/domain"
	alerts "prepaid-meter-cloud/internal/alerts/domain"
	"prepaid-meter-cloud/internal/alerts/notify"
	"prepaid-meter-cloud/internal/observability/metrics"
)

// SettingsReader is the read-only slice of user configuration the alert
// pipeline needs.
type SettingsReader interface {
	Get(ctx context.Context, userID string) (*accounts.Settings, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

// Now returns current time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Dispatcher persists alerts and pushes them out through notification
// channels, keeping the per-channel delivery flags in step.
type Dispatcher struct {
	repo      alerts.AlertRepository
	settings  SettingsReader
	transport notify.Transport
	clock     Clock
	logger    *log.Logger
}

// NewDispatcher constructs a dispatcher. transport may be nil when no
// delivery backend is configured; Deliver then fails with a DeliveryError.
func NewDispatcher(repo alerts.AlertRepository, settings SettingsReader, transport notify.Transport, clock Clock, logger *log.Logger) (*Dispatcher, error) {
	if repo == nil {
		return nil, errors.New("alert dispatcher: nil repository")
	}
	if settings == nil {
		return nil, errors.New("alert dispatcher: nil settings reader")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		repo:      repo,
		settings:  settings,
		transport: transport,
		clock:     clock,
		logger:    logger,
	}, nil
}

// Raise persists a new unread alert with all delivery flags false.
func (d *Dispatcher) Raise(ctx context.Context, userID string, kind alerts.Kind, title, message string, data map[string]any) (*alerts.Alert, error) {
	if userID == "" {
		return nil, alerts.ErrEmptyUserID
	}
	if !kind.Valid() {
		return nil, alerts.ErrInvalidKind
	}

	alert := &alerts.Alert{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: d.clock.Now().UTC(),
	}
	if err := d.repo.Create(ctx, alert); err != nil {
		return nil, err
	}
	metrics.IncAlertRaised(string(kind))
	return alert, nil
}

// Deliver pushes the alert through one channel. Already-sent channels are
// no-ops. Channels the user's preferences disable return
// ErrChannelDisabled without touching the flag. A transport failure leaves
// the flag false and returns a DeliveryError wrapping the cause; callers
// treat it as non-fatal.
func (d *Dispatcher) Deliver(ctx context.Context, alertID string, channel alerts.Channel) error {
	if !channel.Valid() {
		return alerts.ErrInvalidChannel
	}

	alert, err := d.repo.GetByID(ctx, alertID)
	if err != nil {
		return err
	}
	if alert.Sent(channel) {
		return nil
	}

	settings, err := d.settings.Get(ctx, alert.UserID)
	if errors.Is(err, accounts.ErrNotFound) {
		settings = accounts.DefaultSettings(alert.UserID)
		err = nil
	}
	if err != nil {
		return err
	}
	if !settings.Channels.Allows(string(channel), alert.Kind.Category()) {
		metrics.IncAlertDelivery(string(channel), "skipped")
		return alerts.ErrChannelDisabled
	}

	recipient := recipientFor(settings, channel)
	if d.transport == nil {
		deliveryErr := &alerts.DeliveryError{Channel: channel, Err: errors.New("no transport configured")}
		d.logger.Printf("alert dispatcher: %v", deliveryErr)
		metrics.IncAlertDelivery(string(channel), metrics.ResultError)
		return deliveryErr
	}
	if err := d.transport.Send(ctx, string(channel), recipient, alert.Title, alert.Message); err != nil {
		deliveryErr := &alerts.DeliveryError{Channel: channel, Err: err}
		d.logger.Printf("alert dispatcher: %v", deliveryErr)
		metrics.IncAlertDelivery(string(channel), metrics.ResultError)
		return deliveryErr
	}

	if err := d.repo.MarkChannelSent(ctx, alertID, channel); err != nil {
		return err
	}
	metrics.IncAlertDelivery(string(channel), metrics.ResultSuccess)
	return nil
}

// DeliverAll attempts every enabled channel for the alert. Delivery errors
// are logged and swallowed so one channel cannot block the rest.
func (d *Dispatcher) DeliverAll(ctx context.Context, alertID string) {
	for _, channel := range []alerts.Channel{alerts.ChannelEmail, alerts.ChannelSMS, alerts.ChannelPush} {
		err := d.Deliver(ctx, alertID, channel)
		if err == nil || errors.Is(err, alerts.ErrChannelDisabled) {
			continue
		}
		var deliveryErr *alerts.DeliveryError
		if errors.As(err, &deliveryErr) {
			continue // already logged
		}
		d.logger.Printf("alert dispatcher: deliver %s via %s: %v", alertID, channel, err)
	}
}

// MarkRead marks the alert read. Repeat calls are no-ops.
func (d *Dispatcher) MarkRead(ctx context.Context, alertID string) error {
	return d.repo.MarkRead(ctx, alertID, d.clock.Now().UTC())
}

// ClearRead deletes the user's read alerts and returns how many went.
func (d *Dispatcher) ClearRead(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, alerts.ErrEmptyUserID
	}
	return d.repo.DeleteRead(ctx, userID)
}

// List returns the user's alerts, optionally unread only.
func (d *Dispatcher) List(ctx context.Context, userID string, unreadOnly bool) ([]*alerts.Alert, error) {
	if userID == "" {
		return nil, alerts.ErrEmptyUserID
	}
	return d.repo.ListByUser(ctx, userID, unreadOnly)
}

func recipientFor(settings *accounts.Settings, channel alerts.Channel) string {
	switch channel {
	case alerts.ChannelEmail:
		return settings.Email
	case alerts.ChannelSMS:
		return settings.Phone
	default:
		return settings.UserID
	}
}
