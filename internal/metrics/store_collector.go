package metrics

import (
	"log/slog"
	"sync"
	"time"
)

// Sizer reports how many keys a store tracks
type Sizer interface {
	Len() int
}

// StoreStatsCollector samples a rate limit store into RateLimitTrackedKeys
type StoreStatsCollector struct {
	store    Sizer
	logger   *slog.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewStoreStatsCollector creates a collector for store
func NewStoreStatsCollector(store Sizer, logger *slog.Logger) *StoreStatsCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreStatsCollector{
		store:  store,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start samples the store every interval until Stop is called
func (c *StoreStatsCollector) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				return
			}
		}
	}()

	c.logger.Info("rate limit store collector started", slog.Duration("interval", interval))
}

// Stop ends sampling. It is safe to call more than once.
func (c *StoreStatsCollector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

func (c *StoreStatsCollector) collect() {
	RateLimitTrackedKeys.Set(float64(c.store.Len()))
}
