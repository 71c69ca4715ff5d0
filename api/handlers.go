package api

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/bequest/envelope"
	"github.com/jmcleod/bequest/internal/uuid"
	"github.com/jmcleod/bequest/license"
	"github.com/jmcleod/bequest/storage"
)

const licenseExt = ".lic"

func licenseName(id string) string {
	return id + licenseExt
}

func summarize(id string, env *envelope.Envelope, size int) LicenseSummary {
	return LicenseSummary{
		LicenseID:          id,
		Checksum:           env.ChecksumHex(),
		RequiresPassword:   env.RequiresPassword(),
		RequiresHardwareID: env.RequiresHardwareID(),
		HasExpiry:          env.HasExpiry(),
		Size:               size,
	}
}

func validationResponse(lic *license.License) ValidateLicenseResponse {
	resp := ValidateLicenseResponse{
		Status:  string(lic.Status()),
		Valid:   lic.Valid(),
		Payload: lic.Payload(),
	}
	if exp, ok := lic.ExpiresAt(); ok {
		exp = exp.UTC()
		resp.ExpiresAt = &exp
	}
	if expired, known := lic.Expired(); known {
		resp.Expired = &expired
	}
	return resp
}

func loadOptions(password, hardwareID string) []license.LoadOption {
	return []license.LoadOption{
		license.WithPassword(password),
		license.WithHardwareID(hardwareID),
	}
}

// Health handles GET /health.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// IssueLicense handles POST /licenses.
// Seals the payload, stores the envelope under a generated ID and returns it.
func (a *API) IssueLicense(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[IssueLicenseRequest](w, r, maxBodySize)
	if !ok {
		return
	}

	if req.ExpiresAt != nil && req.ExpiresAt.IsZero() {
		writeError(w, http.StatusBadRequest, "expires_at must not be the zero time; omit it for a license that never expires")
		return
	}

	opts := []license.CreateOption{
		license.WithPassword(req.Password),
		license.WithHardwareID(req.HardwareID),
	}
	if req.ExpiresAt != nil {
		opts = append(opts, license.WithExpiry(*req.ExpiresAt))
	}

	data, env, err := a.manager.Issue(req.Payload, opts...)
	if err != nil {
		a.audit.logFailure(AuditLicenseIssueFailed, r, err.Error())
		a.metrics.issueFailed()
		mapError(w, err)
		return
	}

	id := uuid.New()
	if err := a.store.WriteBytes(licenseName(id), data); err != nil {
		slog.Error("storing issued license failed", "license_id", id, "error", err)
		a.metrics.issueFailed()
		mapError(w, err)
		return
	}

	a.metrics.licenseIssued()
	summary := summarize(id, env, len(data))
	a.audit.logLicense(AuditLicenseIssued, r, id,
		slog.Bool("requires_password", summary.RequiresPassword),
		slog.Bool("requires_hardware_id", summary.RequiresHardwareID),
		slog.Bool("has_expiry", summary.HasExpiry))
	writeJSON(w, http.StatusCreated, IssueLicenseResponse{
		LicenseSummary: summary,
		License:        data,
	})
}

// ListLicenses handles GET /licenses.
// Summaries come from the envelope headers; nothing is decrypted.
func (a *API) ListLicenses(w http.ResponseWriter, r *http.Request) {
	lister, ok := a.store.(storage.Lister)
	if !ok {
		writeError(w, http.StatusNotImplemented, "license store cannot list")
		return
	}
	names, err := lister.List()
	if err != nil {
		mapError(w, err)
		return
	}

	var ids []string
	for _, name := range names {
		id, ok := strings.CutSuffix(name, licenseExt)
		if ok && uuid.Valid(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	limit, offset := parsePagination(r)
	page, meta := paginate(ids, limit, offset)

	result := make([]LicenseSummary, 0, len(page))
	for _, id := range page {
		data, err := a.store.ReadBytes(licenseName(id))
		if err != nil {
			slog.Debug("list licenses: read failed", "license_id", id, "error", err)
			continue
		}
		env, err := envelope.Unmarshal(data)
		if err != nil {
			slog.Debug("list licenses: skipping unreadable license", "license_id", id, "error", err)
			continue
		}
		result = append(result, summarize(id, env, len(data)))
	}

	writeJSON(w, http.StatusOK, ListLicensesResponse{Licenses: result, PaginationMeta: meta})
}

// GetLicense handles GET /licenses/{licenseID}.
// Returns the raw license file.
func (a *API) GetLicense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "licenseID")
	data, ok := a.readStored(w, id)
	if !ok {
		return
	}

	a.audit.logLicense(AuditLicenseFetched, r, id)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+licenseName(id)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ValidateStoredLicense handles POST /licenses/{licenseID}/validate.
func (a *API) ValidateStoredLicense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "licenseID")
	if !a.allow(w, r, id) {
		return
	}

	req, ok := decodeJSON[ValidateStoredLicenseRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	data, ok := a.readStored(w, id)
	if !ok {
		return
	}

	opts := append(loadOptions(req.Password, req.HardwareID), license.RecordWatermark())
	lic := a.manager.Open(data, opts...)
	a.recordOutcome(r, id, lic)
	writeJSON(w, http.StatusOK, validationResponse(lic))
}

// ValidateLicense handles POST /validate.
// Opens a license supplied in the request body without storing it or
// recording its watermark.
func (a *API) ValidateLicense(w http.ResponseWriter, r *http.Request) {
	if !a.allow(w, r, "") {
		return
	}

	req, ok := decodeJSON[ValidateLicenseRequest](w, r, maxBodySize)
	if !ok {
		return
	}

	lic := a.manager.Open(req.License, loadOptions(req.Password, req.HardwareID)...)
	a.recordOutcome(r, "", lic)
	writeJSON(w, http.StatusOK, validationResponse(lic))
}

// readStored loads a stored license, writing a 404 for unknown or malformed IDs.
func (a *API) readStored(w http.ResponseWriter, id string) ([]byte, bool) {
	if !uuid.Valid(id) {
		writeError(w, http.StatusNotFound, "license not found")
		return nil, false
	}
	data, err := a.store.ReadBytes(licenseName(id))
	if err != nil {
		mapError(w, err)
		return nil, false
	}
	return data, true
}

// allow enforces the per-client and, when licenseID is set, per-license
// failure limits.
func (a *API) allow(w http.ResponseWriter, r *http.Request, licenseID string) bool {
	ip := clientIP(r)
	blocked, retryAfter := a.ipRL.check(ip)
	if !blocked && licenseID != "" {
		blocked, retryAfter = a.licenseRL.check(licenseID)
	}
	if blocked {
		a.metrics.validationLimited()
		a.audit.logFailure(AuditValidationLimited, r, "rate limited",
			slog.String("license_id", licenseID))
		writeRateLimited(w, retryAfter)
		return false
	}
	return true
}

func (a *API) recordOutcome(r *http.Request, licenseID string, lic *license.License) {
	ip := clientIP(r)
	status := slog.String("status", string(lic.Status()))
	a.metrics.licenseValidated(lic.Status())

	switch lic.Status() {
	case envelope.StatusOK, envelope.StatusExpired:
		a.ipRL.recordSuccess(ip)
		if licenseID != "" {
			a.licenseRL.recordSuccess(licenseID)
		}
		a.audit.logLicense(AuditLicenseValidated, r, licenseID, status)
	default:
		a.ipRL.recordFailure(ip)
		if licenseID != "" {
			a.licenseRL.recordFailure(licenseID)
		}
		a.audit.logLicense(AuditLicenseRejected, r, licenseID, status)
	}
}

// RunSweeper drops expired rate-limit records every interval until done is
// closed.
func (a *API) RunSweeper(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			a.ipRL.sweep()
			a.licenseRL.sweep()
		}
	}
}
