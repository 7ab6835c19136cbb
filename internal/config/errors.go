package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Check with errors.Is; the wrapped message names the offending value.
var (
	// ErrNoQuery is returned when the search query is empty.
	ErrNoQuery = errors.New("no search query specified")

	// ErrNoOutput is returned when no output path is configured.
	ErrNoOutput = errors.New("no output path specified")

	// ErrInvalidMaxPages is returned when the page limit is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be at least 1")

	// ErrInvalidRetries is returned when the next-page retry bound is not positive.
	ErrInvalidRetries = errors.New("invalid next-page retries: must be at least 1")

	// ErrInvalidDelay is returned for a negative or inverted delay range.
	ErrInvalidDelay = errors.New("invalid delay range: need 0 <= min <= max")

	// ErrInvalidTimeout is returned when a bounded wait is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMode is returned for an unknown browser mode.
	ErrInvalidMode = errors.New("invalid browser mode: use chrome or static")

	// ErrInvalidFormat is returned for an unknown export format.
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrInvalidURL is returned when the base URL is not absolute.
	ErrInvalidURL = errors.New("invalid base URL")

	// ErrInvalid is returned for any other constraint violation.
	ErrInvalid = errors.New("invalid configuration")
)
