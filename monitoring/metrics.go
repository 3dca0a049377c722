package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	registrationOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_operations_total",
			Help: "Total workflow operations by outcome",
		},
		[]string{"operation", "status"},
	)

	checkinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkins_total",
			Help: "Total successful check-ins per event",
		},
		[]string{"event_id"},
	)

	tokenFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_validation_failures_total",
			Help: "Rejected check-in tokens by reason",
		},
		[]string{"reason"},
	)

	eventRegistrations = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "event_registrations",
			Help: "Live registration count per event",
		},
		[]string{"event_id"},
	)

	eventCheckins = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "event_checkins",
			Help: "Live check-in count per event",
		},
		[]string{"event_id"},
	)
)

// TrackOperation records one workflow operation outcome.
func TrackOperation(operation, status string) {
	registrationOps.WithLabelValues(operation, status).Inc()
}

// TrackCheckin records one successful check-in.
func TrackCheckin(eventID string) {
	checkinsTotal.WithLabelValues(eventID).Inc()
}

// TrackTokenFailure records a rejected check-in token.
func TrackTokenFailure(reason string) {
	tokenFailures.WithLabelValues(reason).Inc()
}

// Monitor samples the Redis live counters into gauges.
type Monitor struct {
	redis    *redis.Client
	interval time.Duration
}

func NewMonitor(redisClient *redis.Client, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	monitor := &Monitor{redis: redisClient, interval: interval}

	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for range ticker.C {
		ctx := context.Background()

		m.collectGauge(ctx, "stats:registered:*", eventRegistrations)
		m.collectGauge(ctx, "stats:checkins:*", eventCheckins)
	}
}

func (m *Monitor) collectGauge(ctx context.Context, pattern string, gauge *prometheus.GaugeVec) {
	keys, err := m.redis.Keys(ctx, pattern).Result()
	if err != nil {
		return
	}

	prefixLen := len(pattern) - 1
	for _, key := range keys {
		eventID := key[prefixLen:]
		count, err := m.redis.Get(ctx, key).Int64()
		if err != nil {
			continue
		}
		gauge.WithLabelValues(eventID).Set(float64(count))
	}
}
