package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jmcleod/bequest/envelope"
)

// serviceMetrics are the Prometheus counters exported by the license
// service. A nil *serviceMetrics records nothing.
type serviceMetrics struct {
	issued      prometheus.Counter
	issueErrors prometheus.Counter
	validations *prometheus.CounterVec
	rateLimited prometheus.Counter
}

func newServiceMetrics(reg prometheus.Registerer) *serviceMetrics {
	f := promauto.With(reg)
	m := &serviceMetrics{
		issued: f.NewCounter(prometheus.CounterOpts{
			Namespace: "bequest",
			Name:      "licenses_issued_total",
			Help:      "Licenses issued through the API.",
		}),
		issueErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "bequest",
			Name:      "license_issue_errors_total",
			Help:      "Issue requests that failed after decoding.",
		}),
		validations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bequest",
			Name:      "license_validations_total",
			Help:      "License validations by resulting status.",
		}, []string{"status"}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: "bequest",
			Name:      "license_validations_rate_limited_total",
			Help:      "Validation requests refused by the failure rate limiter.",
		}),
	}
	// Export every status from the start so rates are defined before the
	// first rejection.
	for _, s := range []envelope.Status{envelope.StatusOK, envelope.StatusExpired, envelope.StatusUnauthorized, envelope.StatusTampered} {
		m.validations.WithLabelValues(string(s))
	}
	return m
}

func (m *serviceMetrics) licenseIssued() {
	if m != nil {
		m.issued.Inc()
	}
}

func (m *serviceMetrics) issueFailed() {
	if m != nil {
		m.issueErrors.Inc()
	}
}

func (m *serviceMetrics) licenseValidated(status envelope.Status) {
	if m != nil {
		m.validations.WithLabelValues(string(status)).Inc()
	}
}

func (m *serviceMetrics) validationLimited() {
	if m != nil {
		m.rateLimited.Inc()
	}
}
