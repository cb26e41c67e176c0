package player

import (
	"fmt"
	"math"
)

// PlaybackState is the locally observable playback snapshot rendered by the
// mini-player. Explicit user actions update it optimistically; the poll
// loop overwrites it with authoritative provider state each tick.
type PlaybackState struct {
	IsPlaying  bool
	PositionMS int
	DurationMS int
	TrackURI   string
	Title      string
	Subtitle   string
	CoverURL   string
}

// ProgressValue maps the playhead onto a 0..1000 slider scale.
func (s PlaybackState) ProgressValue() int {
	if s.DurationMS == 0 {
		return 0
	}
	return int(math.Round(float64(s.PositionMS) / float64(s.DurationMS) * 1000))
}

// RemainingMS returns the milliseconds left in the track, never negative.
func (s PlaybackState) RemainingMS() int {
	if s.DurationMS == 0 {
		return 0
	}
	return max(0, s.DurationMS-s.PositionMS)
}

// RemainingString renders the time left as a countdown, e.g. "-1:30".
func (s PlaybackState) RemainingString() string {
	return "-" + FormatMS(s.RemainingMS())
}

// FormatMS renders a millisecond duration as m:ss.
func FormatMS(ms int) string {
	if ms < 0 {
		ms = 0
	}
	m := ms / 60000
	sec := (ms % 60000) / 1000
	return fmt.Sprintf("%d:%02d", m, sec)
}
