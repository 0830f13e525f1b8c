package dix

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/pierreaubert/dotaddr/ss58"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	conversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dotaddr",
			Name:      "conversions_total",
			Help:      "Address conversions by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	conversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dotaddr",
			Name:      "conversion_duration_seconds",
			Help:      "Time spent converting addresses",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
		[]string{"operation"},
	)

	dbOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dotaddr",
			Name:      "db_operations_total",
			Help:      "Address book operations by kind and outcome",
		},
		[]string{"operation", "outcome"},
	)
)

// Outcome names the result of a conversion for metrics and reports.
func Outcome(err error) string {
	var (
		decErr      *ss58.DecodeError
		malformed   *ss58.MalformedAddressError
		mismatch    *ss58.ChecksumMismatchError
		invalidData *ss58.InvalidInputError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &decErr):
		return "decode_error"
	case errors.As(err, &malformed):
		return "malformed"
	case errors.As(err, &mismatch):
		return "checksum_mismatch"
	case errors.As(err, &invalidData):
		return "invalid_input"
	case errors.Is(err, ErrReservedPrefix):
		return "reserved_prefix"
	}
	return "error"
}

// ObserveConversion feeds the prometheus collectors.
func ObserveConversion(operation string, start time.Time, err error) {
	conversionsTotal.WithLabelValues(operation, Outcome(err)).Inc()
	conversionDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func observeDB(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	dbOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// Bucket tracks latency and failures over a sliding window
type Bucket struct {
	mutex     sync.Mutex
	callCount int
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	failures  int
	name      string
	window    time.Duration
	startedAt time.Time
}

type BucketStats struct {
	Count, Failures int
	Avg, Min, Max   time.Duration
	Rate            float64
}

func NewBucket(name string, window time.Duration) *Bucket {
	return &Bucket{
		minTime:   time.Hour,
		name:      name,
		window:    window,
		startedAt: time.Now(),
	}
}

func (m *Bucket) RecordLatency(start time.Time, count int, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	duration := time.Since(start)

	if time.Since(m.startedAt) >= m.window {
		m.callCount = 0
		m.failures = 0
		m.totalTime = 0
		m.minTime = m.window + time.Minute
		m.maxTime = 0
		m.startedAt = time.Now()
	}
	if err != nil {
		m.failures += count
	} else {
		m.callCount += count
	}
	m.totalTime += duration

	if count > 0 {
		relativeDuration := time.Duration(int64(duration) / int64(count))
		m.minTime = min(relativeDuration, m.minTime)
		m.maxTime = max(relativeDuration, m.maxTime)
	}
}

func (m *Bucket) GetStats() (bs BucketStats) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	bs.Count = m.callCount
	bs.Failures = m.failures

	if bs.Count > 0 {
		bs.Avg = (m.totalTime / time.Duration(bs.Count)).Round(time.Microsecond)
		bs.Min = m.minTime.Round(time.Microsecond)
		bs.Max = m.maxTime.Round(time.Microsecond)
		if tt := time.Since(m.startedAt).Milliseconds(); tt > 0 {
			bs.Rate = float64(bs.Count) * 1000.0 / float64(tt)
		}
	}

	return
}

// FailureRate is the share of failed calls in percent.
func (bs BucketStats) FailureRate() (rate float64) {
	if bs.Count+bs.Failures > 0 {
		rate = float64(bs.Failures) / float64(bs.Count+bs.Failures) * 100
	}
	return
}

// PrintStats prints the current metrics statistics
func (m *Bucket) PrintStats(printHeader bool) {
	bs := m.GetStats()
	if printHeader {
		log.Printf("%s: total: %d failures: %d rate: %.1f/s", m.name, bs.Count, bs.Failures, bs.Rate)
	}
	if bs.Count > 0 {
		log.Printf("  %s latency avg: %v min: %v max: %v success rate: %.2f%%",
			m.window, bs.Avg, bs.Min, bs.Max, 100-bs.FailureRate())
	}
}

// Metrics keeps one Bucket per window: 1 day, 1 hour, 5 minutes and 1 minute.
type Metrics struct {
	Buckets []*Bucket
}

type MetricsStats struct {
	BucketsStats [4]BucketStats
}

func NewMetrics(name string) *Metrics {
	return &Metrics{
		Buckets: []*Bucket{
			NewBucket(name, time.Hour*24),
			NewBucket(name, time.Hour),
			NewBucket(name, time.Minute*5),
			NewBucket(name, time.Minute),
		},
	}
}

func (m *Metrics) RecordLatency(start time.Time, count int, err error) {
	for i := range m.Buckets {
		m.Buckets[i].RecordLatency(start, count, err)
	}
}

func (m *Metrics) GetStats() *MetricsStats {
	s := &MetricsStats{}
	for i := range m.Buckets {
		s.BucketsStats[i] = m.Buckets[i].GetStats()
	}
	return s
}

func (m *Metrics) PrintStats(printHeader bool) {
	for i := range m.Buckets {
		m.Buckets[i].PrintStats(printHeader && i == 0)
	}
}
