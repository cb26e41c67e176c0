package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Token lifecycle errors
	ErrUnauthenticated     = fmt.Errorf("not authenticated")
	ErrTokenExchangeFailed = fmt.Errorf("token exchange failed")
	ErrRefreshFailed       = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken      = fmt.Errorf("no refresh token available")
	ErrNoToken             = fmt.Errorf("no access token in response")
	ErrLoginRequired       = fmt.Errorf("log in to enable playback")
	ErrTimeout             = fmt.Errorf("operation timed out")

	// Upstream and transport errors
	ErrUpstream = fmt.Errorf("upstream request failed")
	ErrNetwork  = fmt.Errorf("network error")

	// Playback errors
	ErrDeviceNotReady = fmt.Errorf("playback device not ready")
	ErrTransferFailed = fmt.Errorf("device transfer failed")
	ErrPlaybackFailed = fmt.Errorf("playback request failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
