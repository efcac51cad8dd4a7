package alerts

import (
	"context"
	"time"
)

// Kind classifies an alert.
type Kind string

const (
	KindLowBalance     Kind = "low_balance"
	KindHighUsage      Kind = "high_usage"
	KindPaymentSuccess Kind = "payment_success"
	KindPaymentFailed  Kind = "payment_failed"
	KindDeviceOffline  Kind = "device_offline"
	KindDeviceOnline   Kind = "device_online"
	KindSystem         Kind = "system"
	KindGeneral        Kind = "general"
)

// Valid reports whether the kind is one of the known values.
func (k Kind) Valid() bool {
	switch k {
	case KindLowBalance, KindHighUsage, KindPaymentSuccess, KindPaymentFailed,
		KindDeviceOffline, KindDeviceOnline, KindSystem, KindGeneral:
		return true
	default:
		return false
	}
}

// Category maps the kind to its preference category.
func (k Kind) Category() string {
	switch k {
	case KindHighUsage:
		return "usage"
	case KindLowBalance:
		return "balance"
	case KindPaymentSuccess, KindPaymentFailed:
		return "payment"
	default:
		return "system"
	}
}

// Channel is a delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Valid reports whether the channel is supported.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush:
		return true
	default:
		return false
	}
}

// Alert is a persisted notification with per-channel delivery flags. A flag
// flips to true at most once; delivery is idempotent per channel.
type Alert struct {
	ID      string
	UserID  string
	Kind    Kind
	Title   string
	Message string
	Data    map[string]any

	IsRead bool
	ReadAt *time.Time

	EmailSent bool
	SMSSent   bool
	PushSent  bool

	CreatedAt time.Time
}

// Sent reports whether the channel flag is already set.
func (a *Alert) Sent(channel Channel) bool {
	switch channel {
	case ChannelEmail:
		return a.EmailSent
	case ChannelSMS:
		return a.SMSSent
	case ChannelPush:
		return a.PushSent
	default:
		return false
	}
}

// AlertRepository persists alerts and their read/delivery state.
type AlertRepository interface {
	Create(ctx context.Context, alert *Alert) error
	GetByID(ctx context.Context, id string) (*Alert, error)
	// MarkRead sets is_read and read_at once; repeat calls are no-ops.
	MarkRead(ctx context.Context, id string, at time.Time) error
	// MarkChannelSent atomically sets the channel flag to true.
	MarkChannelSent(ctx context.Context, id string, channel Channel) error
	// DeleteRead removes the user's read alerts and returns how many.
	DeleteRead(ctx context.Context, userID string) (int64, error)
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*Alert, error)
}
