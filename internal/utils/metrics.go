package utils

import (
	"sync"
	"time"
)

// Tracks performance metrics across the messaging core
type MetricsCollector struct {
	mu           sync.RWMutex
	requestCount uint64
	errorCount   uint64

	// Maps operation name to list of latencies in nanoseconds
	operationTimes map[string][]int64

	// Counts per notification outcome: dispatched, skipped, failed
	notificationOutcomes map[string]uint64

	systemStartTime time.Time
}

// MetricsSnapshot is a point-in-time copy safe to serialize for /health.
type MetricsSnapshot struct {
	Requests      uint64             `json:"requests"`
	Errors        uint64             `json:"errors"`
	UptimeSeconds float64            `json:"uptimeSeconds"`
	AvgLatencyMs  map[string]float64 `json:"avgLatencyMs"`
	Notifications map[string]uint64  `json:"notifications"`
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		operationTimes:       make(map[string][]int64),
		notificationOutcomes: make(map[string]uint64),
		systemStartTime:      time.Now(),
	}
}

func (mc *MetricsCollector) IncrementRequests() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.requestCount++
}

func (mc *MetricsCollector) IncrementErrors() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.errorCount++
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.operationTimes[operationName] = append(
		mc.operationTimes[operationName],
		duration.Nanoseconds(),
	)
}

// RecordNotificationOutcome counts dispatch results ("dispatched", "skipped",
// "failed") so throttling behavior is observable without log scraping.
func (mc *MetricsCollector) RecordNotificationOutcome(outcome string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.notificationOutcomes[outcome]++
}

func (mc *MetricsCollector) Snapshot() MetricsSnapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	avg := make(map[string]float64, len(mc.operationTimes))
	for op, samples := range mc.operationTimes {
		if len(samples) == 0 {
			continue
		}
		var total int64
		for _, ns := range samples {
			total += ns
		}
		avg[op] = float64(total) / float64(len(samples)) / 1e6
	}

	outcomes := make(map[string]uint64, len(mc.notificationOutcomes))
	for k, v := range mc.notificationOutcomes {
		outcomes[k] = v
	}

	return MetricsSnapshot{
		Requests:      mc.requestCount,
		Errors:        mc.errorCount,
		UptimeSeconds: time.Since(mc.systemStartTime).Seconds(),
		AvgLatencyMs:  avg,
		Notifications: outcomes,
	}
}
