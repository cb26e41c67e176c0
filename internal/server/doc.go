// Package server implements the auth proxy HTTP surface.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering and Go 1.22 path patterns.
//
// # Auth Proxy
//
// [Proxy.Forward] forwards a GET request to a fixed upstream URL with the
// current bearer token. It performs at most one refresh-and-retry cycle per
// inbound request: an implicit refresh when no access token is stored (which
// does not consume the retry budget), plus a single refresh after an
// upstream 401. A second 401 surfaces as [shared.ErrUnauthenticated].
//
// # Routes
//
// [App] registers the full surface: the OAuth login/callback/logout flow,
// the proxied provider reads (me, search, artist, album, track), the
// playback-token endpoint for the browser SDK, and the status diagnostic.
package server
