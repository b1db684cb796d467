package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors. ErrAuthFailed covers both bad structured-API
	// credentials and an exhausted client-ID extraction; either way the fix
	// is configuration, not retry.
	ErrAuthFailed = fmt.Errorf("authentication failed")

	// Resolution and download errors
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrSourceUnavailable  = fmt.Errorf("source unavailable")
	ErrDownloadFailed     = fmt.Errorf("download failed")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrAPIRequest         = fmt.Errorf("API request failed")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
