package admission

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"netwarden/internal/models"
	"netwarden/pkg/config"
)

// rateWindow is the sliding window the per-minute threshold is evaluated
// over. The burst window is configurable; this one is fixed by definition.
const rateWindow = time.Minute

// connectionRecord tracks recent request activity from one source address.
// Timestamps are time-ordered and pruned against the retention horizon by
// the maintenance loop, so memory stays bounded by traffic recency rather
// than by an arbitrary count cap.
type connectionRecord struct {
	timestamps   []time.Time
	requestCount uint64
	firstSeen    time.Time
	lastSeen     time.Time
}

// Controller makes the per-request allow/block decision. It owns the
// per-source request history and the active block list; one mutex guards
// both, and hold times are bounded to in-memory work only.
type Controller struct {
	mu      sync.Mutex
	records map[string]*connectionRecord
	blocked map[string]time.Time

	requestsPerMinute int
	burstLimit        int
	burstWindow       time.Duration
	blockDuration     time.Duration

	retention       time.Duration
	cleanupInterval time.Duration
	topLimit        int

	now func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an admission controller from configuration. Call Start to
// launch the background maintenance loop.
func New(cfg *config.Config) *Controller {
	return &Controller{
		records:           make(map[string]*connectionRecord),
		blocked:           make(map[string]time.Time),
		requestsPerMinute: cfg.Admission.RequestsPerMinute,
		burstLimit:        cfg.Admission.BurstLimit,
		burstWindow:       cfg.Admission.BurstWindow,
		blockDuration:     cfg.Admission.BlockDuration,
		retention:         cfg.Admission.Retention,
		cleanupInterval:   cfg.Admission.CleanupInterval,
		topLimit:          cfg.Admission.TopLimit,
		now:               time.Now,
	}
}

// Start launches the periodic maintenance loop.
func (c *Controller) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.maintenanceLoop(ctx)

	log.Println("Admission controller started")
	return nil
}

// Close stops the maintenance loop and waits for it to exit.
func (c *Controller) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return nil
}

// CheckConnection decides whether a request from addr should be admitted.
// A source with an active block is rejected without further bookkeeping.
// Otherwise the request is recorded and evaluated against the sliding
// rate window and the burst window; either violation blocks the source
// for the configured duration and rejects this request.
func (c *Controller) CheckConnection(addr string) bool {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if until, ok := c.blocked[addr]; ok {
		if now.Before(until) {
			log.Printf("Blocked connection attempt from %s", addr)
			return false
		}
		delete(c.blocked, addr) // expired, lift lazily
	}

	rec, ok := c.records[addr]
	if !ok {
		rec = &connectionRecord{firstSeen: now}
		c.records[addr] = rec
	}
	rec.timestamps = append(rec.timestamps, now)
	rec.requestCount++
	rec.lastSeen = now

	if n := countSince(rec.timestamps, now.Add(-rateWindow)); n > c.requestsPerMinute {
		log.Printf("Rate limit exceeded for %s: %d requests/minute", addr, n)
		c.block(addr, now)
		return false
	}
	if n := countSince(rec.timestamps, now.Add(-c.burstWindow)); n > c.burstLimit {
		log.Printf("Burst limit exceeded for %s: %d requests in %v", addr, n, c.burstWindow)
		c.block(addr, now)
		return false
	}

	return true
}

// block records a block entry for addr. Caller holds the mutex.
func (c *Controller) block(addr string, now time.Time) {
	until := now.Add(c.blockDuration)
	c.blocked[addr] = until
	log.Printf("Blocking %s until %s", addr, until.Format(time.RFC3339))
}

// countSince counts timestamps strictly after cutoff. Timestamps are
// appended in order, so walking back from the tail touches only the
// window being measured.
func countSince(ts []time.Time, cutoff time.Time) int {
	n := 0
	for i := len(ts) - 1; i >= 0; i-- {
		if !ts[i].After(cutoff) {
			break
		}
		n++
	}
	return n
}

// maintenanceLoop periodically prunes aged request history and expired
// block entries.
func (c *Controller) maintenanceLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup drops timestamps past the retention horizon, records with no
// recent activity, and block entries whose expiry has passed.
func (c *Controller) cleanup() {
	now := c.now()
	horizon := now.Add(-c.retention)

	c.mu.Lock()
	defer c.mu.Unlock()

	for addr, rec := range c.records {
		i := 0
		for i < len(rec.timestamps) && !rec.timestamps[i].After(horizon) {
			i++
		}
		if i > 0 {
			rec.timestamps = append(rec.timestamps[:0], rec.timestamps[i:]...)
		}
		if len(rec.timestamps) == 0 || rec.lastSeen.Before(horizon) {
			delete(c.records, addr)
		}
	}

	for addr, until := range c.blocked {
		if now.After(until) {
			delete(c.blocked, addr)
		}
	}
}

// GetStatus returns a snapshot of tracked sources, active blocks, current
// thresholds, and the most active addresses.
func (c *Controller) GetStatus() models.ProtectionStatus {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	active := 0
	for _, rec := range c.records {
		active += len(rec.timestamps)
	}

	blocked := make(map[string]models.BlockInfo, len(c.blocked))
	for addr, until := range c.blocked {
		blocked[addr] = models.BlockInfo{
			BlockedUntil:     until.Format(time.RFC3339),
			RemainingSeconds: int(until.Sub(now).Seconds()),
		}
	}

	return models.ProtectionStatus{
		ActiveConnections: active,
		TrackedIPs:        len(c.records),
		BlockedIPs:        blocked,
		Thresholds: models.ThresholdSnapshot{
			RequestsPerMinute: c.requestsPerMinute,
			BurstLimit:        c.burstLimit,
			BurstTime:         int(c.burstWindow.Seconds()),
			BlockDuration:     int(c.blockDuration.Seconds()),
		},
		TopIPs: c.topIPs(c.topLimit),
	}
}

// topIPs ranks tracked addresses by total request count, ties broken by
// address so the ordering is deterministic. Caller holds the mutex.
func (c *Controller) topIPs(limit int) []models.TopIP {
	top := make([]models.TopIP, 0, len(c.records))
	for addr, rec := range c.records {
		top = append(top, models.TopIP{
			IP:           addr,
			RequestCount: rec.requestCount,
			FirstRequest: rec.firstSeen,
			LastRequest:  rec.lastSeen,
		})
	}

	sort.Slice(top, func(i, j int) bool {
		if top[i].RequestCount != top[j].RequestCount {
			return top[i].RequestCount > top[j].RequestCount
		}
		return top[i].IP < top[j].IP
	})

	if len(top) > limit {
		top = top[:limit]
	}
	return top
}

// UpdateThresholds applies a partial threshold update. Recognized keys
// with positive values replace the current setting; everything else is
// ignored without failing the rest of the update.
func (c *Controller) UpdateThresholds(updates map[string]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, value := range updates {
		if value <= 0 {
			continue
		}
		switch key {
		case "requests_per_minute":
			c.requestsPerMinute = int(value)
		case "burst_limit":
			c.burstLimit = int(value)
		case "burst_time":
			c.burstWindow = time.Duration(value * float64(time.Second))
		case "block_duration":
			c.blockDuration = time.Duration(value * float64(time.Second))
		default:
			continue
		}
		log.Printf("Updated %s threshold to %v", key, value)
	}
}
