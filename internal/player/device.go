package player

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tempo/internal/services"
	"github.com/desertthunder/tempo/internal/shared"
)

// State enumerates the device lifecycle.
type State int

const (
	Uninitialized State = iota
	Creating
	Ready
	NotReady
	Errored
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Creating:
		return "creating"
	case Ready:
		return "ready"
	case NotReady:
		return "not_ready"
	case Errored:
		return "error"
	default:
		return "unknown"
	}
}

const (
	// DefaultPlayerName is the device name registered with the provider.
	DefaultPlayerName = "Tempo Web Player"

	defaultVolume   = 0.8
	defaultDebounce = 150 * time.Millisecond

	// readyWait bounds how long EnsureActive waits for a fresh mount to
	// report ready before giving up on the transfer.
	readyWait = 400 * time.Millisecond
)

// ManagerOpts configures a [Manager].
type ManagerOpts struct {
	Name     string
	Volume   float64
	Factory  Factory
	Broker   *TokenBroker
	API      *services.PlaybackAPI
	Logger   *log.Logger
	Debounce time.Duration
}

// Manager owns the lifecycle of the single playback device per session and
// executes transport controls against it.
//
// Widgets share one Manager via [Manager.Acquire]/[Manager.Release]; all
// device mutation funnels through its methods.
type Manager struct {
	name     string
	factory  Factory
	broker   *TokenBroker
	api      *services.PlaybackAPI
	logger   *log.Logger
	debounce time.Duration

	mu        sync.Mutex
	state     State
	status    string
	deviceID  string
	connected bool
	player    Player
	refs      int
	volume    float64
	playback  PlaybackState
	pending   *time.Timer
}

// NewManager creates a device manager. Factory is required; Name, Volume,
// and Debounce fall back to defaults.
func NewManager(opts ManagerOpts) *Manager {
	if opts.Name == "" {
		opts.Name = DefaultPlayerName
	}
	if opts.Volume <= 0 || opts.Volume > 1 {
		opts.Volume = defaultVolume
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Manager{
		name:     opts.Name,
		factory:  opts.Factory,
		broker:   opts.Broker,
		api:      opts.API,
		logger:   opts.Logger,
		debounce: opts.Debounce,
		volume:   opts.Volume,
	}
}

// Acquire registers a widget instance with the shared device.
func (m *Manager) Acquire() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs++
}

// Release unregisters a widget instance. The underlying player stays alive
// so later widgets reuse the same device registration.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refs > 0 {
		m.refs--
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns the user-visible status text, empty when healthy.
func (m *Manager) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// DeviceID returns the registered device id, empty before ready.
func (m *Manager) DeviceID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deviceID
}

// Snapshot returns a copy of the local playback state.
func (m *Manager) Snapshot() PlaybackState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playback
}

func (m *Manager) setStatus(status string) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

// Mount brings the shared device up. When a player and device id already
// exist the mount is a cheap reattach; a mount already in flight is not
// duplicated; otherwise the player is created and connected.
//
// A mount that fails leaves the manager in Errored with a status message;
// a fresh Mount call restarts the attempt, reusing a previously created
// player rather than registering a second device.
func (m *Manager) Mount(ctx context.Context) error {
	m.mu.Lock()
	if m.player != nil && m.deviceID != "" {
		m.state = Ready
		m.status = ""
		m.mu.Unlock()
		return nil
	}
	if m.state == Creating {
		m.mu.Unlock()
		return nil
	}
	m.state = Creating
	m.mu.Unlock()

	return m.createPlayer(ctx)
}

func (m *Manager) createPlayer(ctx context.Context) error {
	if _, err := m.broker.GetPlaybackToken(ctx); err != nil {
		m.mu.Lock()
		m.state = Errored
		m.status = "Log in to enable playback"
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	existing := m.player
	volume := m.volume
	m.mu.Unlock()

	player := existing
	if player == nil {
		created, err := m.factory(m.name, volume, Events{
			Ready:               m.onReady,
			NotReady:            m.onNotReady,
			InitializationError: func(msg string) { m.onError(fmt.Sprintf("Init error: %s", msg)) },
			AuthenticationError: func(string) { m.onError("Log in to enable playback") },
			AccountError:        func(msg string) { m.onError(fmt.Sprintf("Account error (Premium req'd): %s", msg)) },
			PlaybackError:       func(msg string) { m.onError(fmt.Sprintf("Playback error: %s", msg)) },
		})
		if err != nil {
			m.mu.Lock()
			m.state = Errored
			m.status = "Failed to init player"
			m.mu.Unlock()
			return err
		}
		player = created
	}

	ok, err := player.Connect(ctx)

	m.mu.Lock()
	m.player = player
	if err != nil || !ok {
		m.state = Errored
		if m.status == "" {
			m.status = "Failed to init player"
		}
	}
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: player connect returned false", shared.ErrDeviceNotReady)
	}

	return nil
}

func (m *Manager) onReady(deviceID string) {
	m.mu.Lock()
	m.deviceID = deviceID
	m.connected = true
	m.state = Ready
	m.status = ""
	m.mu.Unlock()

	m.logger.Info("playback device ready", "device_id", deviceID)
}

// onNotReady only demotes the manager when the event names the currently
// active device.
func (m *Manager) onNotReady(deviceID string) {
	m.mu.Lock()
	if m.deviceID == deviceID {
		m.state = NotReady
		m.status = "Device not ready"
	}
	m.mu.Unlock()
}

func (m *Manager) onError(message string) {
	m.mu.Lock()
	m.status = message
	if m.state == Creating {
		m.state = Errored
	}
	m.mu.Unlock()

	m.logger.Warn("player event", "status", message)
}

// PlayURI starts playback of uri on the current device. A 403/404 from the
// provider (device not active) triggers exactly one transfer followed by
// exactly one retry; any further failure surfaces as a playback error.
func (m *Manager) PlayURI(ctx context.Context, uri string) error {
	if uri == "" {
		return nil
	}

	m.mu.Lock()
	deviceID := m.deviceID
	m.mu.Unlock()

	if deviceID == "" {
		m.setStatus("No device - Connect")
		return shared.ErrDeviceNotReady
	}

	uris := []string{uri}
	err := m.api.Play(ctx, deviceID, uris)
	if needsTransfer(err) {
		m.TransferHere(ctx)
		err = m.api.Play(ctx, deviceID, uris)
	}

	if err != nil {
		var se *services.StatusError
		if errors.As(err, &se) {
			m.setStatus(fmt.Sprintf("Play failed (%d)", se.Code))
		} else {
			m.setStatus("Play failed")
		}
		return fmt.Errorf("%w: %v", shared.ErrPlaybackFailed, err)
	}

	m.mu.Lock()
	m.playback.IsPlaying = true
	m.playback.TrackURI = uri
	m.status = ""
	m.mu.Unlock()

	m.refreshNowPlaying(ctx)
	return nil
}

// needsTransfer reports whether the provider rejected the call because the
// device is not the active one.
func needsTransfer(err error) bool {
	var se *services.StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == 403 || se.Code == 404
}

// Pause pauses playback, fetching a fresh token for the call.
func (m *Manager) Pause(ctx context.Context) error {
	m.mu.Lock()
	deviceID := m.deviceID
	m.mu.Unlock()

	if err := m.api.Pause(ctx, deviceID); err != nil {
		m.setStatus("Pause error")
		return err
	}

	m.mu.Lock()
	m.playback.IsPlaying = false
	m.status = ""
	m.mu.Unlock()

	return nil
}

// Toggle plays the current track when paused and pauses when playing. With
// no device yet it mounts, transfers, and plays.
func (m *Manager) Toggle(ctx context.Context) error {
	m.mu.Lock()
	deviceID := m.deviceID
	playing := m.playback.IsPlaying
	uri := m.playback.TrackURI
	m.mu.Unlock()

	if deviceID == "" {
		if err := m.EnsureActive(ctx); err != nil {
			return err
		}
		return m.PlayURI(ctx, uri)
	}
	if playing {
		return m.Pause(ctx)
	}
	return m.PlayURI(ctx, uri)
}

// Seek moves the playhead to fraction of the track, clamped to [0,1] and
// converted to an absolute millisecond offset. The position is updated
// optimistically; the next poll tick reconciles it.
func (m *Manager) Seek(ctx context.Context, fraction float64) error {
	m.mu.Lock()
	duration := m.playback.DurationMS
	deviceID := m.deviceID
	m.mu.Unlock()

	if duration == 0 {
		return nil
	}

	fraction = clamp01(fraction)
	target := int(math.Round(fraction * float64(duration)))

	if err := m.api.SeekMS(ctx, deviceID, target); err != nil {
		return err
	}

	m.mu.Lock()
	m.playback.PositionMS = target
	m.mu.Unlock()

	return nil
}

// SetVolume sets the device volume, clamped to [0,1].
func (m *Manager) SetVolume(ctx context.Context, volume float64) error {
	volume = clamp01(volume)

	m.mu.Lock()
	m.volume = volume
	player := m.player
	m.mu.Unlock()

	if player == nil {
		return nil
	}
	return player.SetVolume(ctx, volume)
}

// Volume returns the last requested volume.
func (m *Manager) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// TransferHere assigns the playback session to this device without
// starting playback. Failures are recorded in the status text so the UI
// can display them without crashing the widget.
func (m *Manager) TransferHere(ctx context.Context) error {
	m.mu.Lock()
	deviceID := m.deviceID
	m.mu.Unlock()

	if deviceID == "" {
		m.setStatus("No device yet - Connect")
		return shared.ErrDeviceNotReady
	}

	if err := m.api.Transfer(ctx, deviceID, false); err != nil {
		var se *services.StatusError
		if errors.As(err, &se) {
			m.setStatus(fmt.Sprintf("Transfer failed (%d)", se.Code))
		} else {
			m.setStatus("Transfer failed")
		}
		return fmt.Errorf("%w: %v", shared.ErrTransferFailed, err)
	}

	m.mu.Lock()
	if m.state == NotReady {
		m.state = Ready
	}
	m.status = ""
	m.mu.Unlock()

	return nil
}

// EnsureActive makes the device the active playback target, mounting it
// first when necessary.
func (m *Manager) EnsureActive(ctx context.Context) error {
	if m.State() != Ready {
		if err := m.Mount(ctx); err != nil {
			return err
		}

		deadline := time.After(readyWait)
		for m.State() != Ready {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-deadline:
				if m.State() != Ready {
					return shared.ErrDeviceNotReady
				}
			case <-time.After(25 * time.Millisecond):
			}
		}
	}

	return m.TransferHere(ctx)
}

// SetTrack reacts to the externally bound track changing. Rapid changes
// within the debounce window coalesce into one ensure-and-play, so
// keystroke-driven navigation does not fire a playback request per track.
func (m *Manager) SetTrack(uri string) {
	if uri == "" {
		return
	}

	m.mu.Lock()
	if m.pending != nil {
		m.pending.Stop()
	}
	m.pending = time.AfterFunc(m.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := m.EnsureActive(ctx); err != nil {
			m.logger.Warn("could not activate device for track change", "error", err)
		}
		if err := m.PlayURI(ctx, uri); err != nil {
			m.logger.Warn("track change playback failed", "error", err)
		}
	})
	m.mu.Unlock()
}

// refreshNowPlaying pulls track metadata after a successful play. Failures
// are ignored; the poll loop catches up.
func (m *Manager) refreshNowPlaying(ctx context.Context) {
	item, err := m.api.CurrentlyPlaying(ctx)
	if err != nil || item == nil {
		return
	}

	m.mu.Lock()
	if item.Name != "" {
		m.playback.Title = item.Name
	}
	if names := item.ArtistNames(); names != "" {
		m.playback.Subtitle = names
	}
	if cover := item.CoverURL(); cover != "" {
		m.playback.CoverURL = cover
	}
	if item.DurationMS > 0 {
		m.playback.DurationMS = item.DurationMS
	}
	m.mu.Unlock()
}

// applySDKState overwrites local state with an authoritative snapshot.
// Metadata fields only fill in when locally absent, mirroring how the
// widget preserves the page-supplied display values.
func (m *Manager) applySDKState(s *SDKState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.playback.IsPlaying = !s.Paused
	if s.DurationMS > 0 {
		m.playback.DurationMS = s.DurationMS
	}
	m.playback.PositionMS = s.PositionMS
	if m.playback.DurationMS > 0 && m.playback.PositionMS > m.playback.DurationMS {
		m.playback.PositionMS = m.playback.DurationMS
	}

	if m.playback.TrackURI == "" && s.TrackURI != "" {
		m.playback.TrackURI = s.TrackURI
	}
	if m.playback.Title == "" && s.TrackName != "" {
		m.playback.Title = s.TrackName
	}
	if m.playback.Subtitle == "" && s.Artists != "" {
		m.playback.Subtitle = s.Artists
	}
	if m.playback.CoverURL == "" && s.CoverURL != "" {
		m.playback.CoverURL = s.CoverURL
	}
}

// playerRef returns the shared player, nil before creation.
func (m *Manager) playerRef() Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.player
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
