// Package services contains HTTP clients for the provider's Web API.
//
// [PlaybackAPI] covers the playback-control surface the browser widget
// calls directly (play, pause, seek, volume, transfer, state reads). Every
// call fetches its own short-lived bearer token through a [TokenFunc];
// tokens are never cached across calls.
package services
