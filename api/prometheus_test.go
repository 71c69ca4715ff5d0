package api

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/bequest/envelope"
)

func TestServiceMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newServiceMetrics(reg)

	m.licenseIssued()
	m.licenseIssued()
	m.issueFailed()
	m.licenseValidated(envelope.StatusOK)
	m.licenseValidated(envelope.StatusTampered)
	m.licenseValidated(envelope.StatusTampered)
	m.validationLimited()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.issued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.issueErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validations.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.validations.WithLabelValues("tampered")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.validations.WithLabelValues("expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "bequest_license_validations_total")
	assert.Contains(t, names, "bequest_licenses_issued_total")
}

func TestServiceMetrics_NilIsNoop(t *testing.T) {
	var m *serviceMetrics
	assert.NotPanics(t, func() {
		m.licenseIssued()
		m.issueFailed()
		m.licenseValidated(envelope.StatusOK)
		m.validationLimited()
	})
}
