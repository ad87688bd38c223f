package webclient

import "errors"

// Target URL validation errors.
var (
	// ErrInvalidTargetURL is returned when a target URL is empty or has
	// no host after normalization.
	ErrInvalidTargetURL = errors.New("invalid target URL: host missing")

	// ErrUnsupportedScheme is returned for target URLs whose scheme is
	// neither http nor https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)
