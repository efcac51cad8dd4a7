package memory

import (
	"context"
	"sync"

	accounts "prepaid-meter-cloud/internal/accounts/domain"
)

// SettingsRepository keeps user settings in memory.
type SettingsRepository struct {
	mu     sync.RWMutex
	byUser map[string]*accounts.Settings
}

// NewSettingsRepository constructs an empty repository.
func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{byUser: make(map[string]*accounts.Settings)}
}

// Get returns the stored settings or ErrNotFound.
func (r *SettingsRepository) Get(_ context.Context, userID string) (*accounts.Settings, error) {
	if userID == "" {
		return nil, accounts.ErrEmptyUserID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.byUser[userID]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	copied := *stored
	copied.Channels = make(accounts.ChannelPreferences, len(stored.Channels))
	for category, pref := range stored.Channels {
		copied.Channels[category] = pref
	}
	return &copied, nil
}

// Put creates or replaces the user's settings.
func (r *SettingsRepository) Put(_ context.Context, settings *accounts.Settings) error {
	if settings == nil {
		return accounts.ErrNilSettings
	}
	if settings.UserID == "" {
		return accounts.ErrEmptyUserID
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *settings
	copied.Channels = make(accounts.ChannelPreferences, len(settings.Channels))
	for category, pref := range settings.Channels {
		copied.Channels[category] = pref
	}
	r.byUser[settings.UserID] = &copied
	return nil
}
