// Package player defines the boundary to the external playback engine and
// the loudness-normalization control plane layered on top of it.
//
// The engine itself (decoding, rendering, transport) is an external
// collaborator. This package speaks to it through the Engine interface and
// two out-of-band commands: SetNormalize toggles normalization, SetLoudness
// announces the measured loudness of the current track.
package player

// Command is an out-of-band control message accepted by the playback engine.
type Command interface {
	command()
}

// SetNormalize toggles loudness normalization on the engine.
type SetNormalize struct {
	Enabled bool
}

// SetLoudness announces the measured loudness of the currently playing
// track, in dB.
type SetLoudness struct {
	TrackLoudnessDb float64
}

func (SetNormalize) command() {}
func (SetLoudness) command()  {}

// Engine is the playback engine boundary. Implementations wrap an actual
// audio pipeline; the normalization tests use an in-process fake.
type Engine interface {
	Play() error
	Pause() error
	Seek(positionMs int) error
	Next() error
	Previous() error
	SetShuffle(enabled bool) error
	SetRepeat(enabled bool) error

	// Send delivers an out-of-band command such as SetNormalize or
	// SetLoudness.
	Send(cmd Command) error
}
