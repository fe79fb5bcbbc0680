package metrics

import (
	"time"

	"github.com/pacwrap/pacwrap/pkg/cache"
	"github.com/pacwrap/pacwrap/pkg/registry"
)

// Collector periodically samples process-wide state that isn't
// naturally observed at the point of a single transaction: the size of
// the container registry by type, and the package cache's running hit
// ratio.
type Collector struct {
	registry *registry.Registry
	cache    *cache.HitCounter
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(reg *registry.Registry, hits *cache.HitCounter) *Collector {
	return &Collector{
		registry: reg,
		cache:    hits,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics on a fixed interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectContainerCounts()
	c.collectCacheRatio()
}

func (c *Collector) collectContainerCounts() {
	if c.registry == nil {
		return
	}

	counts := make(map[string]int)
	for _, container := range c.registry.List() {
		counts[string(container.Type)]++
	}

	for t, count := range counts {
		ContainersTotal.WithLabelValues(t).Set(float64(count))
	}
}

func (c *Collector) collectCacheRatio() {
	if c.cache == nil {
		return
	}
	CacheHitRatio.Set(c.cache.Ratio())
}
