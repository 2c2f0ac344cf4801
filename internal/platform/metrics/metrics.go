package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	mu       sync.Mutex
	workflow map[string]*uint64
}

func New() *Collector {
	return &Collector{workflow: map[string]*uint64{}}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordWorkflow counts an approval workflow event such as "submitted" or
// "conflict".
func (c *Collector) RecordWorkflow(event string) {
	c.mu.Lock()
	counter, ok := c.workflow[event]
	if !ok {
		counter = new(uint64)
		c.workflow[event] = counter
	}
	c.mu.Unlock()
	atomic.AddUint64(counter, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	workflow := make(map[string]uint64, len(c.workflow))
	for event, counter := range c.workflow {
		workflow[event] = atomic.LoadUint64(counter)
	}
	c.mu.Unlock()

	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      errs,
		"rateLimitedTotal": limited,
		"avgDurationMs":    avg,
		"totalDurationMs":  totalMs,
		"workflow":         workflow,
	}
}
