package api

import "time"

// ErrorResponse is returned for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// IssueLicenseRequest is the JSON body for POST /licenses. Payload is base64
// encoded. At least one of Password and HardwareID must be non-empty.
type IssueLicenseRequest struct {
	Payload    []byte     `json:"payload" validate:"required"`
	Password   string     `json:"password,omitempty" validate:"max=1024"`
	HardwareID string     `json:"hardware_id,omitempty" validate:"omitempty,max=256,printascii"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// LicenseSummary describes a stored license without opening it.
type LicenseSummary struct {
	LicenseID          string `json:"license_id"`
	Checksum           string `json:"checksum"`
	RequiresPassword   bool   `json:"requires_password"`
	RequiresHardwareID bool   `json:"requires_hardware_id"`
	HasExpiry          bool   `json:"has_expiry"`
	Size               int    `json:"size"`
}

// IssueLicenseResponse is returned from POST /licenses. License holds the
// serialized envelope, base64 encoded.
type IssueLicenseResponse struct {
	LicenseSummary
	License []byte `json:"license"`
}

// ListLicensesResponse is returned from GET /licenses.
type ListLicensesResponse struct {
	Licenses []LicenseSummary `json:"licenses"`
	PaginationMeta
}

// ValidateStoredLicenseRequest is the JSON body for
// POST /licenses/{licenseID}/validate.
type ValidateStoredLicenseRequest struct {
	Password   string `json:"password,omitempty" validate:"max=1024"`
	HardwareID string `json:"hardware_id,omitempty" validate:"omitempty,max=256,printascii"`
}

// ValidateLicenseRequest is the JSON body for POST /validate. License is the
// serialized envelope, base64 encoded.
type ValidateLicenseRequest struct {
	License    []byte `json:"license" validate:"required"`
	Password   string `json:"password,omitempty" validate:"max=1024"`
	HardwareID string `json:"hardware_id,omitempty" validate:"omitempty,max=256,printascii"`
}

// ValidateLicenseResponse reports the outcome of opening a license. ExpiresAt
// and Expired are omitted when no expiry could be recovered; Payload is
// omitted unless Valid is true.
type ValidateLicenseResponse struct {
	Status    string     `json:"status"`
	Valid     bool       `json:"valid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   *bool      `json:"expired,omitempty"`
	Payload   []byte     `json:"payload,omitempty"`
}
