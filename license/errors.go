package license

import "errors"

// ErrNoCredentials is returned when a license would be issued without a
// password or a hardware id.
var ErrNoCredentials = errors.New("at least one of password or hardware id is required")
