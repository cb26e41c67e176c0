// Package player implements the browser-side playback core.
//
// # Device lifecycle
//
// [Manager] owns the single playback device per session. Widget instances
// share it through Acquire/Release instead of ambient globals; all mutation
// funnels through its methods. The state machine is Uninitialized →
// Creating → Ready, with NotReady and Errored side states. A failed mount
// keeps the underlying player alive so a remount never registers a
// duplicate device with the provider.
//
// # Tokens
//
// [TokenBroker] fetches a short-lived bearer token from the backend for
// every control call. Tokens are capabilities, never cached or persisted.
//
// # Reconciliation
//
// [Manager.StartPolling] returns a [Handle]; each widget runs its own
// cancellable poll loop against the shared device, copying the SDK's
// authoritative state into the local [PlaybackState].
package player
