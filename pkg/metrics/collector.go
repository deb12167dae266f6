package metrics

import "time"

// InstanceSource reports the number of active instances the collector polls.
type InstanceSource interface {
	CountActive() (int, error)
}

// ChallengeSource is the subset of pkg/challenge's loaded set the collector polls.
type ChallengeSource interface {
	Count() int
}

// Collector periodically samples gauges from the running manager state,
// grounded on the teacher's ticker+stopCh Collector.
type Collector struct {
	instances  InstanceSource
	challenges ChallengeSource
	interval   time.Duration
	stopCh     chan struct{}
}

// NewCollector creates a collector polling the given sources every 15s.
func NewCollector(instances InstanceSource, challenges ChallengeSource) *Collector {
	return &Collector{
		instances:  instances,
		challenges: challenges,
		interval:   15 * time.Second,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the polling loop in a background goroutine.
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
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

// Stop halts the polling loop.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	if c.instances != nil {
		if n, err := c.instances.CountActive(); err == nil {
			ActiveInstances.Set(float64(n))
		}
	}
	if c.challenges != nil {
		ChallengesLoadedTotal.Set(float64(c.challenges.Count()))
	}
}
