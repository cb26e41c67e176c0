package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tempo/internal/services"
	"github.com/desertthunder/tempo/internal/shared"
)

// Events mirrors the playback SDK's listener surface. Nil callbacks are
// simply not invoked.
type Events struct {
	Ready               func(deviceID string)
	NotReady            func(deviceID string)
	InitializationError func(message string)
	AuthenticationError func(message string)
	AccountError        func(message string)
	PlaybackError       func(message string)
}

// SDKState is the player-local playback snapshot returned by state queries.
type SDKState struct {
	Paused     bool
	PositionMS int
	DurationMS int
	TrackURI   string
	TrackName  string
	Artists    string
	CoverURL   string
}

// Player abstracts the underlying SDK player object. At most one exists
// per session.
type Player interface {
	// Connect registers the device with the provider. A false return
	// without an error mirrors the SDK's connect() contract.
	Connect(ctx context.Context) (bool, error)

	// Disconnect stops the player's background work. The device
	// registration itself is left to expire provider-side.
	Disconnect()

	// CurrentState returns the current snapshot, or nil when the device
	// has no active session.
	CurrentState(ctx context.Context) (*SDKState, error)

	// SetVolume sets the device volume in [0,1].
	SetVolume(ctx context.Context, volume float64) error
}

// Factory constructs a player with the given listeners registered.
type Factory func(name string, volume float64, events Events) (Player, error)

// RemotePlayer implements [Player] against the provider Web API: device
// registration is observed by polling the device list, state queries read
// /me/player.
type RemotePlayer struct {
	name     string
	api      *services.PlaybackAPI
	events   Events
	interval time.Duration
	logger   *log.Logger

	mu       sync.Mutex
	deviceID string
	ready    bool

	stop chan struct{}
	once sync.Once
}

// NewRemotePlayer creates a remote player named name. interval controls the
// device watch cadence and defaults to 3s.
func NewRemotePlayer(name string, api *services.PlaybackAPI, events Events, interval time.Duration, logger *log.Logger) *RemotePlayer {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &RemotePlayer{
		name:     name,
		api:      api,
		events:   events,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Connect checks the device list once and starts the watch loop.
func (p *RemotePlayer) Connect(ctx context.Context) (bool, error) {
	if err := p.checkDevices(ctx); err != nil {
		if errors.Is(err, shared.ErrLoginRequired) || errors.Is(err, shared.ErrNoToken) {
			p.emitAuthError(err.Error())
			return false, err
		}
		// Transient errors are tolerated; the watch loop keeps trying.
		p.logger.Warn("device lookup failed on connect", "error", err)
	}

	go p.watch()
	return true, nil
}

// Disconnect stops the watch loop. Idempotent.
func (p *RemotePlayer) Disconnect() {
	p.once.Do(func() { close(p.stop) })
}

// CurrentState queries /me/player and maps it to an [SDKState].
func (p *RemotePlayer) CurrentState(ctx context.Context) (*SDKState, error) {
	state, err := p.api.State(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil || state.Item == nil {
		return nil, nil
	}

	return &SDKState{
		Paused:     !state.IsPlaying,
		PositionMS: state.ProgressMS,
		DurationMS: state.Item.DurationMS,
		TrackURI:   state.Item.URI,
		TrackName:  state.Item.Name,
		Artists:    state.Item.ArtistNames(),
		CoverURL:   state.Item.CoverURL(),
	}, nil
}

// SetVolume maps the [0,1] volume onto the provider's percent scale.
func (p *RemotePlayer) SetVolume(ctx context.Context, volume float64) error {
	p.mu.Lock()
	deviceID := p.deviceID
	p.mu.Unlock()

	return p.api.SetVolume(ctx, deviceID, int(volume*100))
}

func (p *RemotePlayer) watch() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), p.interval)
			err := p.checkDevices(ctx)
			cancel()
			if err != nil && (errors.Is(err, shared.ErrLoginRequired) || errors.Is(err, shared.ErrNoToken)) {
				p.emitAuthError(err.Error())
			}
		}
	}
}

// checkDevices reconciles the ready flag against the provider device list,
// emitting ready/not_ready transitions.
func (p *RemotePlayer) checkDevices(ctx context.Context) error {
	devices, err := p.api.Devices(ctx)
	if err != nil {
		return err
	}

	var found *services.Device
	for i := range devices {
		if devices[i].Name == p.name {
			found = &devices[i]
			break
		}
	}

	p.mu.Lock()
	wasReady := p.ready
	lastID := p.deviceID
	if found != nil {
		p.deviceID = found.ID
		p.ready = true
	} else {
		p.ready = false
	}
	p.mu.Unlock()

	if found != nil && !wasReady && p.events.Ready != nil {
		p.events.Ready(found.ID)
	}
	if found == nil && wasReady && p.events.NotReady != nil {
		p.events.NotReady(lastID)
	}

	return nil
}

func (p *RemotePlayer) emitAuthError(message string) {
	if p.events.AuthenticationError != nil {
		p.events.AuthenticationError(message)
	}
}
