package metrics

import (
	"time"

	"asset-catalog/internal/logging"
)

// StatsProvider is implemented by the catalog database.
type StatsProvider interface {
	GetStats() (Stats, error)
}

// Stats is a point-in-time snapshot of the catalog.
type Stats struct {
	Sources   int
	Assets    int
	Pending   int
	Retrying  int
	Exhausted int
	Succeeded int
	Skipped   int
}

// Collector periodically refreshes the catalog gauges while a long-running
// command is serving /metrics.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	doneChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop ends the collection loop and waits for it to exit.
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.doneChan
}

func (c *Collector) collectLoop() {
	defer close(c.doneChan)

	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats, err := c.statsProvider.GetStats()
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}
	Publish(stats)

	logging.Debug("Metrics collected: sources=%d, assets=%d, pending=%d, succeeded=%d, skipped=%d",
		stats.Sources, stats.Assets, stats.Pending, stats.Succeeded, stats.Skipped)
}

// Publish writes a snapshot into the catalog gauges.
func Publish(stats Stats) {
	CatalogSourcesTotal.Set(float64(stats.Sources))
	CatalogAssetsTotal.WithLabelValues("pending").Set(float64(stats.Pending))
	CatalogAssetsTotal.WithLabelValues("retrying").Set(float64(stats.Retrying))
	CatalogAssetsTotal.WithLabelValues("exhausted").Set(float64(stats.Exhausted))
	CatalogAssetsTotal.WithLabelValues("succeeded").Set(float64(stats.Succeeded))
	CatalogAssetsTotal.WithLabelValues("skipped").Set(float64(stats.Skipped))
}
