package api

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRejectionSpikeAlert(t *testing.T) {
	var mu sync.Mutex
	var alerts []AlertEvent
	collector := newMetricsCollector(func(e AlertEvent) {
		mu.Lock()
		alerts = append(alerts, e)
		mu.Unlock()
	})
	collector.rejections.threshold = 5

	for i := 0; i < 4; i++ {
		collector.recordEvent(AuditLicenseRejected)
	}
	mu.Lock()
	assert.Empty(t, alerts, "no alert below threshold")
	mu.Unlock()

	collector.recordEvent(AuditLicenseRejected)
	mu.Lock()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertRejectionSpike, alerts[0].Type)
	assert.Equal(t, 5, alerts[0].Count)
	mu.Unlock()

	// The counter resets after an alert.
	collector.recordEvent(AuditLicenseRejected)
	mu.Lock()
	assert.Len(t, alerts, 1)
	mu.Unlock()
}

func TestIssueSpikeAlert(t *testing.T) {
	var alerts []AlertEvent
	collector := newMetricsCollector(func(e AlertEvent) { alerts = append(alerts, e) })
	collector.issues.threshold = 3

	for i := 0; i < 3; i++ {
		collector.recordEvent(AuditLicenseIssued)
	}
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertIssueSpike, alerts[0].Type)
}

func TestUnrelatedEventsIgnored(t *testing.T) {
	var alerts []AlertEvent
	collector := newMetricsCollector(func(e AlertEvent) { alerts = append(alerts, e) })
	collector.rejections.threshold = 1
	collector.issues.threshold = 1

	collector.recordEvent(AuditLicenseFetched)
	collector.recordEvent(AuditLicenseValidated)
	assert.Empty(t, alerts)
}

func TestNilCollector(t *testing.T) {
	var collector *metricsCollector
	collector.recordEvent(AuditLicenseRejected)
}

func TestTrimWindow(t *testing.T) {
	now := time.Now()
	times := []time.Time{now.Add(-3 * time.Minute), now.Add(-30 * time.Second), now}
	assert.Len(t, trimWindow(times, now, time.Minute), 2)
}
