package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	alerts "prepaid-meter-cloud/internal/alerts/domain"
)

// AlertRepository keeps alerts in memory.
type AlertRepository struct {
	mu   sync.RWMutex
	byID map[string]*alerts.Alert
}

// NewAlertRepository constructs an empty repository.
func NewAlertRepository() *AlertRepository {
	return &AlertRepository{byID: make(map[string]*alerts.Alert)}
}

// Create stores a new alert.
func (r *AlertRepository) Create(_ context.Context, alert *alerts.Alert) error {
	if alert == nil {
		return alerts.ErrNilAlert
	}
	if alert.UserID == "" {
		return alerts.ErrEmptyUserID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := copyAlert(alert)
	r.byID[alert.ID] = copied
	return nil
}

// GetByID returns the alert or ErrNotFound.
func (r *AlertRepository) GetByID(_ context.Context, id string) (*alerts.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.byID[id]
	if !ok {
		return nil, alerts.ErrNotFound
	}
	return copyAlert(stored), nil
}

// MarkRead sets is_read/read_at once; repeat calls are no-ops.
func (r *AlertRepository) MarkRead(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok {
		return alerts.ErrNotFound
	}
	if stored.IsRead {
		return nil
	}
	stored.IsRead = true
	readAt := at.UTC()
	stored.ReadAt = &readAt
	return nil
}

// MarkChannelSent sets the channel flag to true.
func (r *AlertRepository) MarkChannelSent(_ context.Context, id string, channel alerts.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok {
		return alerts.ErrNotFound
	}
	switch channel {
	case alerts.ChannelEmail:
		stored.EmailSent = true
	case alerts.ChannelSMS:
		stored.SMSSent = true
	case alerts.ChannelPush:
		stored.PushSent = true
	default:
		return alerts.ErrInvalidChannel
	}
	return nil
}

// DeleteRead removes the user's read alerts and returns how many.
func (r *AlertRepository) DeleteRead(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, stored := range r.byID {
		if stored.UserID == userID && stored.IsRead {
			delete(r.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

// ListByUser returns the user's alerts, newest first.
func (r *AlertRepository) ListByUser(_ context.Context, userID string, unreadOnly bool) ([]*alerts.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*alerts.Alert
	for _, stored := range r.byID {
		if stored.UserID != userID {
			continue
		}
		if unreadOnly && stored.IsRead {
			continue
		}
		result = append(result, copyAlert(stored))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func copyAlert(alert *alerts.Alert) *alerts.Alert {
	copied := *alert
	if alert.ReadAt != nil {
		readAt := *alert.ReadAt
		copied.ReadAt = &readAt
	}
	if alert.Data != nil {
		copied.Data = make(map[string]any, len(alert.Data))
		for key, value := range alert.Data {
			copied.Data[key] = value
		}
	}
	return &copied
}
