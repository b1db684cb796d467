package player

import (
	"math"
	"sync"
)

// Normalization defaults. Boost range is wider than attenuation range:
// an under-boosted quiet track is more noticeable than a mildly loud one.
const (
	DefaultTargetDb         = -20.0
	DefaultMaxBoostDb       = 12.0
	DefaultMaxAttenuationDb = 6.0

	// minOutputLevel bounds player-level attenuation so loud tracks never
	// drop below half output.
	minOutputLevel = 0.5
)

// Gain is the normalization decision for one track: a digital booster gain
// applied post-decode and a native player output level.
type Gain struct {
	BoosterDb   float64
	OutputLevel float64
}

// ComputeGain converts a track's measured loudness into a clamped gain
// split between the booster and the player volume. Positive corrections go
// through the booster at full output level; negative corrections disable
// the booster (it cannot go below unity) and attenuate the player output,
// bounded at minOutputLevel.
func ComputeGain(trackLoudnessDb, targetDb, maxAttenuationDb, maxBoostDb float64) Gain {
	gainDb := targetDb - trackLoudnessDb
	if gainDb > maxBoostDb {
		gainDb = maxBoostDb
	} else if gainDb < -maxAttenuationDb {
		gainDb = -maxAttenuationDb
	}

	if gainDb >= 0 {
		return Gain{BoosterDb: gainDb, OutputLevel: 1.0}
	}

	level := math.Pow(10, gainDb/20)
	if level < minOutputLevel {
		level = minOutputLevel
	} else if level > 1.0 {
		level = 1.0
	}
	return Gain{BoosterDb: 0, OutputLevel: level}
}

// Normalizer is the engine-side normalization state machine. It is safe for
// concurrent access.
type Normalizer struct {
	mu sync.Mutex

	enabled         bool
	trackLoudnessDb float64
	hasLoudness     bool

	targetDb         float64
	maxBoostDb       float64
	maxAttenuationDb float64

	boosterDb   float64
	outputLevel float64
}

// NormalizerOpts overrides the normalization constants.
type NormalizerOpts struct {
	TargetDb         float64
	MaxBoostDb       float64
	MaxAttenuationDb float64
}

// NewNormalizer creates a Normalizer in the disabled state: booster at
// 0 dB, output level at full.
func NewNormalizer(opts NormalizerOpts) *Normalizer {
	if opts.TargetDb == 0 {
		opts.TargetDb = DefaultTargetDb
	}
	if opts.MaxBoostDb == 0 {
		opts.MaxBoostDb = DefaultMaxBoostDb
	}
	if opts.MaxAttenuationDb == 0 {
		opts.MaxAttenuationDb = DefaultMaxAttenuationDb
	}

	return &Normalizer{
		targetDb:         opts.TargetDb,
		maxBoostDb:       opts.MaxBoostDb,
		maxAttenuationDb: opts.MaxAttenuationDb,
		outputLevel:      1.0,
	}
}

// Apply handles one control command, recomputing gain as needed.
func (n *Normalizer) Apply(cmd Command) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch c := cmd.(type) {
	case SetNormalize:
		n.enabled = c.Enabled
		if !n.enabled {
			// Disabling resets both stages to pass-through.
			n.boosterDb = 0
			n.outputLevel = 1.0
			return
		}
		n.recompute()
	case SetLoudness:
		n.trackLoudnessDb = c.TrackLoudnessDb
		n.hasLoudness = true
		if n.enabled {
			n.recompute()
		}
	}
}

func (n *Normalizer) recompute() {
	if !n.hasLoudness {
		n.boosterDb = 0
		n.outputLevel = 1.0
		return
	}
	gain := ComputeGain(n.trackLoudnessDb, n.targetDb, n.maxAttenuationDb, n.maxBoostDb)
	n.boosterDb = gain.BoosterDb
	n.outputLevel = gain.OutputLevel
}

// BoosterDb returns the current digital booster gain in dB.
func (n *Normalizer) BoosterDb() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.boosterDb
}

// OutputLevel returns the current native player output level (0.5–1.0).
func (n *Normalizer) OutputLevel() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.outputLevel
}

// TargetDb returns the configured normalization target.
func (n *Normalizer) TargetDb() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.targetDb
}
