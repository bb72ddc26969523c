package storage

import (
	"sync"
	"time"

	"github.com/Caia-Tech/caia-corpus/pkg/logging"
)

// SimpleMetricsCollector keeps storage operation metrics in memory
type SimpleMetricsCollector struct {
	metrics []StorageMetrics
	mutex   sync.RWMutex
}

// NewSimpleMetricsCollector creates a new simple metrics collector
func NewSimpleMetricsCollector() *SimpleMetricsCollector {
	return &SimpleMetricsCollector{
		metrics: make([]StorageMetrics, 0),
	}
}

// RecordMetric records a storage operation metric
func (s *SimpleMetricsCollector) RecordMetric(metric StorageMetrics) {
	s.mutex.Lock()
	s.metrics = append(s.metrics, metric)
	s.mutex.Unlock()

	logger := logging.GetStorageLogger(metric.OperationType, metric.Backend)
	event := logger.Debug().
		Str("artifact", metric.Artifact).
		Int("bytes", metric.Bytes).
		Int64("duration_ns", metric.Duration).
		Bool("success", metric.Success)
	if metric.Error != nil {
		event = event.Err(metric.Error)
	}
	event.Msg("Storage operation metric recorded")
}

// GetMetrics returns a copy of all collected metrics
func (s *SimpleMetricsCollector) GetMetrics() []StorageMetrics {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make([]StorageMetrics, len(s.metrics))
	copy(result, s.metrics)
	return result
}

// OperationStats holds statistics for one backend operation
type OperationStats struct {
	Count         int   `json:"count"`
	SuccessCount  int   `json:"success_count"`
	FailureCount  int   `json:"failure_count"`
	TotalBytes    int64 `json:"total_bytes"`
	TotalDuration int64 `json:"total_duration_ns"`
	MinDuration   int64 `json:"min_duration_ns"`
	MaxDuration   int64 `json:"max_duration_ns"`
	AvgDuration   int64 `json:"avg_duration_ns"`
}

// MetricsSummary groups stats by backend, then operation
type MetricsSummary struct {
	ByBackend       map[string]map[string]*OperationStats `json:"by_backend"`
	TotalOperations int                                   `json:"total_operations"`
}

// GetMetricsSummary aggregates the collected metrics
func (s *SimpleMetricsCollector) GetMetricsSummary() MetricsSummary {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	summary := MetricsSummary{
		ByBackend:       make(map[string]map[string]*OperationStats),
		TotalOperations: len(s.metrics),
	}

	for _, metric := range s.metrics {
		ops := summary.ByBackend[metric.Backend]
		if ops == nil {
			ops = make(map[string]*OperationStats)
			summary.ByBackend[metric.Backend] = ops
		}
		stats := ops[metric.OperationType]
		if stats == nil {
			stats = &OperationStats{MinDuration: metric.Duration, MaxDuration: metric.Duration}
			ops[metric.OperationType] = stats
		}

		stats.Count++
		stats.TotalDuration += metric.Duration
		stats.TotalBytes += int64(metric.Bytes)
		if metric.Success {
			stats.SuccessCount++
		} else {
			stats.FailureCount++
		}
		if metric.Duration < stats.MinDuration {
			stats.MinDuration = metric.Duration
		}
		if metric.Duration > stats.MaxDuration {
			stats.MaxDuration = metric.Duration
		}
		stats.AvgDuration = stats.TotalDuration / int64(stats.Count)
	}

	return summary
}

// ClearMetrics clears all collected metrics
func (s *SimpleMetricsCollector) ClearMetrics() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.metrics = make([]StorageMetrics, 0)
}

// GetSuccessRate returns the success rate as a percentage
func (o *OperationStats) GetSuccessRate() float64 {
	if o.Count == 0 {
		return 0.0
	}
	return float64(o.SuccessCount) / float64(o.Count) * 100.0
}

// GetAvgDurationMs returns the average duration in milliseconds
func (o *OperationStats) GetAvgDurationMs() float64 {
	return float64(o.AvgDuration) / float64(time.Millisecond)
}
