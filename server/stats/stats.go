// Package stats provides simple local study statistics for a single
// instance. This is a lightweight alternative to an external metrics stack.
package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/studypace/studypace/server/timezone"
	"github.com/studypace/studypace/srs"
	"github.com/studypace/studypace/store"
)

// Stats is one collected snapshot of instance-wide study activity.
type Stats struct {
	// Card totals by memory state.
	TotalCards      int64 `json:"totalCards"`
	NewCards        int64 `json:"newCards"`
	LearningCards   int64 `json:"learningCards"`
	ReviewCards     int64 `json:"reviewCards"`
	RelearningCards int64 `json:"relearningCards"`

	// DueCards counts cards due as of collection time.
	DueCards int64 `json:"dueCards"`

	TotalAttempts    int64 `json:"totalAttempts"`
	AttemptsToday    int64 `json:"attemptsToday"`
	AttemptsLastWeek int64 `json:"attemptsLastWeek"`

	// ActiveUsers counts distinct users with an attempt in the last week.
	ActiveUsers int64 `json:"activeUsers"`

	LastUpdated time.Time `json:"lastUpdated"`
}

// Collector periodically gathers study statistics from the store. Reads and
// the collection tick never block each other for long; GetStats returns the
// last completed snapshot.
type Collector struct {
	store    *store.Store
	interval time.Duration

	mu    sync.RWMutex
	stats Stats

	stopOnce sync.Once
	done     chan struct{}
}

// NewCollector creates a statistics collector ticking at interval.
func NewCollector(st *store.Store, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Collector{
		store:    st,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start runs an initial collection synchronously, then keeps collecting in
// the background until Stop is called or ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	c.collect(ctx)

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.collect(ctx)
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
		}
	}()
}

// Stop halts background collection. Safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

// GetStats returns the most recent snapshot.
func (c *Collector) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

func (c *Collector) collect(ctx context.Context) {
	now := time.Now().UTC()
	snapshot := Stats{LastUpdated: now}

	countByState := func(state srs.State) int64 {
		n, err := c.store.CountCards(ctx, &store.FindCard{States: []string{state.String()}})
		if err != nil {
			slog.Warn("stats: failed to count cards",
				slog.String("state", state.String()),
				slog.String("error", err.Error()))
			return 0
		}
		return n
	}
	snapshot.NewCards = countByState(srs.StateNew)
	snapshot.LearningCards = countByState(srs.StateLearning)
	snapshot.ReviewCards = countByState(srs.StateReview)
	snapshot.RelearningCards = countByState(srs.StateRelearning)
	snapshot.TotalCards = snapshot.NewCards + snapshot.LearningCards +
		snapshot.ReviewCards + snapshot.RelearningCards

	nowTs := now.Unix()
	if n, err := c.store.CountCards(ctx, &store.FindCard{DueBefore: &nowTs}); err == nil {
		snapshot.DueCards = n
	}

	if n, err := c.store.CountAttempts(ctx, &store.FindAttempt{}); err == nil {
		snapshot.TotalAttempts = n
	}
	dayStart, _ := timezone.StudyDayBounds(now, timezone.UTC)
	if n, err := c.store.CountAttempts(ctx, &store.FindAttempt{CreatedAfter: &dayStart}); err == nil {
		snapshot.AttemptsToday = n
	}
	weekAgo := now.AddDate(0, 0, -7).Unix()
	if n, err := c.store.CountAttempts(ctx, &store.FindAttempt{CreatedAfter: &weekAgo}); err == nil {
		snapshot.AttemptsLastWeek = n
	}
	if n, err := c.store.CountActiveUsers(ctx, weekAgo); err == nil {
		snapshot.ActiveUsers = n
	}

	c.mu.Lock()
	c.stats = snapshot
	c.mu.Unlock()
}
