package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	analytics "prepaid-meter-cloud/internal/analytics/domain"
)

// SummaryRepository keeps period summaries in memory. Useful for tests and
// single-node deployments.
type SummaryRepository struct {
	mu   sync.RWMutex
	rows map[string]*analytics.PeriodSummary
}

// NewSummaryRepository constructs an empty repository.
func NewSummaryRepository() *SummaryRepository {
	return &SummaryRepository{rows: make(map[string]*analytics.PeriodSummary)}
}

func summaryKey(userID string, periodType analytics.PeriodType, startDate time.Time) string {
	return fmt.Sprintf("%s|%s|%s", userID, periodType, startDate.UTC().Format("2006-01-02"))
}

// Upsert writes the summary, replacing any row with the same key.
func (r *SummaryRepository) Upsert(_ context.Context, summary *analytics.PeriodSummary) (bool, error) {
	if summary == nil {
		return false, analytics.ErrNilSummary
	}
	key := summaryKey(summary.UserID, summary.PeriodType, summary.StartDate)

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rows[key]
	stored := *summary
	if ok {
		stored.CreatedAt = existing.CreatedAt
	}
	r.rows[key] = &stored
	return !ok, nil
}

// Get returns the summary for the key or ErrSummaryNotFound.
func (r *SummaryRepository) Get(_ context.Context, userID string, periodType analytics.PeriodType, startDate time.Time) (*analytics.PeriodSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.rows[summaryKey(userID, periodType, startDate)]
	if !ok {
		return nil, analytics.ErrSummaryNotFound
	}
	copied := *stored
	return &copied, nil
}

// ListByUser returns the user's summaries of the given type, newest first.
func (r *SummaryRepository) ListByUser(_ context.Context, userID string, periodType analytics.PeriodType) ([]*analytics.PeriodSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*analytics.PeriodSummary
	for _, stored := range r.rows {
		if stored.UserID != userID || stored.PeriodType != periodType {
			continue
		}
		copied := *stored
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartDate.After(result[j].StartDate)
	})
	return result, nil
}
