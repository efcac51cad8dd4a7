package memory

import (
	"context"
	"sync"
	"time"

	readings "prepaid-meter-cloud/internal/readings/domain"
)

// ReadingRepository is an in-memory reading store for demos/tests.
type ReadingRepository struct {
	mu     sync.RWMutex
	byUser map[string][]readings.Reading
}

// NewReadingRepository constructs a repository.
func NewReadingRepository() *ReadingRepository {
	return &ReadingRepository{byUser: make(map[string][]readings.Reading)}
}

// Insert appends a reading.
func (r *ReadingRepository) Insert(ctx context.Context, reading readings.Reading) error {
	_ = ctx
	if err := reading.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[reading.UserID] = append(r.byUser[reading.UserID], reading)
	return nil
}

// InsertBatch appends several readings atomically.
func (r *ReadingRepository) InsertBatch(ctx context.Context, batch []readings.Reading) error {
	_ = ctx
	for _, reading := range batch {
		if err := reading.Validate(); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reading := range batch {
		r.byUser[reading.UserID] = append(r.byUser[reading.UserID], reading)
	}
	return nil
}

// ListByUserAndDateRange returns readings with timestamp date inside the
// closed interval [startDate, endDate].
func (r *ReadingRepository) ListByUserAndDateRange(ctx context.Context, userID string, startDate, endDate time.Time) ([]readings.Reading, error) {
	_ = ctx
	start := truncateToDay(startDate)
	end := truncateToDay(endDate)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []readings.Reading
	for _, reading := range r.byUser[userID] {
		day := truncateToDay(reading.Timestamp)
		if day.Before(start) || day.After(end) {
			continue
		}
		result = append(result, reading)
	}
	return result, nil
}

// ListByUserSince returns readings at or after the given instant.
func (r *ReadingRepository) ListByUserSince(ctx context.Context, userID string, since time.Time) ([]readings.Reading, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []readings.Reading
	for _, reading := range r.byUser[userID] {
		if reading.Timestamp.Before(since) {
			continue
		}
		result = append(result, reading)
	}
	return result, nil
}

// Latest returns the newest reading by timestamp.
func (r *ReadingRepository) Latest(ctx context.Context, userID string) (*readings.Reading, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *readings.Reading
	for i := range r.byUser[userID] {
		reading := r.byUser[userID][i]
		if latest == nil || reading.Timestamp.After(latest.Timestamp) {
			copied := reading
			latest = &copied
		}
	}
	if latest == nil {
		return nil, readings.ErrNotFound
	}
	return latest, nil
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
