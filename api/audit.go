package api

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of license action being logged.
type AuditEvent string

const (
	AuditLicenseIssued      AuditEvent = "license_issued"
	AuditLicenseValidated   AuditEvent = "license_validated"
	AuditLicenseFetched     AuditEvent = "license_fetched"
	AuditLicenseRejected    AuditEvent = "license_rejected"
	AuditValidationLimited  AuditEvent = "license_validation_rate_limited"
	AuditLicenseIssueFailed AuditEvent = "license_issue_failed"
)

// auditLogger wraps slog.Logger for structured audit logging. Credentials
// and payloads are never logged.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
	webhook *auditWebhook
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)

	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
	if al.metrics != nil {
		al.metrics.recordEvent(event)
	}
	if al.webhook != nil {
		al.webhook.enqueue(newWebhookEvent(baseAttrs))
	}
}

// logLicense is a convenience for events about a stored license.
func (al *auditLogger) logLicense(event AuditEvent, r *http.Request, licenseID string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("license_id", licenseID),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// logFailure logs a rejected request.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("reason", reason),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}
