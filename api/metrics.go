package api

import (
	"sync"
	"time"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	// AlertRejectionSpike fires when many validations fail in a short window,
	// which usually means someone is guessing credentials.
	AlertRejectionSpike AlertType = "license_rejection_spike"
	// AlertIssueSpike fires when an unusual number of licenses is issued.
	AlertIssueSpike AlertType = "license_issue_spike"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

const (
	defaultRejectionWindow    = 1 * time.Minute
	defaultRejectionThreshold = 50
	defaultIssueWindow        = 5 * time.Minute
	defaultIssueThreshold     = 500
)

// slidingCounter counts events within a trailing window.
type slidingCounter struct {
	events    []time.Time
	window    time.Duration
	threshold int
}

// add records an event at now and reports the count if it reached the
// threshold, resetting the counter so one spike raises one alert.
func (c *slidingCounter) add(now time.Time) (int, bool) {
	c.events = append(c.events, now)
	c.events = trimWindow(c.events, now, c.window)
	if len(c.events) < c.threshold {
		return 0, false
	}
	n := len(c.events)
	c.events = c.events[:0]
	return n, true
}

// metricsCollector turns audit events into anomaly alerts.
type metricsCollector struct {
	mu         sync.Mutex
	rejections slidingCounter
	issues     slidingCounter
	alertFn    AlertFunc
}

func newMetricsCollector(alertFn AlertFunc) *metricsCollector {
	return &metricsCollector{
		rejections: slidingCounter{window: defaultRejectionWindow, threshold: defaultRejectionThreshold},
		issues:     slidingCounter{window: defaultIssueWindow, threshold: defaultIssueThreshold},
		alertFn:    alertFn,
	}
}

// recordEvent inspects an audit event and updates the relevant counters.
func (m *metricsCollector) recordEvent(event AuditEvent) {
	if m == nil || m.alertFn == nil {
		return
	}

	var (
		counter *slidingCounter
		typ     AlertType
		msg     string
	)
	switch event {
	case AuditLicenseRejected:
		counter, typ, msg = &m.rejections, AlertRejectionSpike, "license rejection rate exceeds threshold"
	case AuditLicenseIssued:
		counter, typ, msg = &m.issues, AlertIssueSpike, "license issue rate exceeds threshold"
	default:
		return
	}

	m.mu.Lock()
	now := time.Now()
	n, fire := counter.add(now)
	threshold := counter.threshold
	m.mu.Unlock()

	if fire {
		m.alertFn(AlertEvent{
			Type:      typ,
			Message:   msg,
			Count:     n,
			Threshold: threshold,
			Timestamp: now,
		})
	}
}

// trimWindow removes entries older than (now - window) from the sorted slice.
func trimWindow(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
