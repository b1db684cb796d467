package player

import (
	"math"
	"testing"
)

func TestComputeGain(t *testing.T) {
	defaults := func(trackDb float64) Gain {
		return ComputeGain(trackDb, DefaultTargetDb, DefaultMaxAttenuationDb, DefaultMaxBoostDb)
	}

	t.Run("Quiet Track Gets Booster", func(t *testing.T) {
		// -26 dB track, -20 target: +6 dB through the booster, full output.
		gain := defaults(-26)
		if math.Abs(gain.BoosterDb-6) > 1e-9 {
			t.Errorf("expected +6 dB booster, got %f", gain.BoosterDb)
		}
		if gain.OutputLevel != 1.0 {
			t.Errorf("expected full output level, got %f", gain.OutputLevel)
		}
	})

	t.Run("Very Quiet Track Is Boost-Clamped", func(t *testing.T) {
		// -40 dB track wants +20 dB; clamp at +12.
		gain := defaults(-40)
		if math.Abs(gain.BoosterDb-DefaultMaxBoostDb) > 1e-9 {
			t.Errorf("expected boost clamp at %f, got %f", DefaultMaxBoostDb, gain.BoosterDb)
		}
		if gain.OutputLevel != 1.0 {
			t.Errorf("expected full output level, got %f", gain.OutputLevel)
		}
	})

	t.Run("Loud Track Attenuates Output", func(t *testing.T) {
		// -10 dB track wants -10 dB; clamp at -6, applied as output level
		// 10^(-6/20) ≈ 0.501.
		gain := defaults(-10)
		if gain.BoosterDb != 0 {
			t.Errorf("expected booster at unity for attenuation, got %f", gain.BoosterDb)
		}
		want := math.Pow(10, -6.0/20)
		if math.Abs(gain.OutputLevel-want) > 1e-9 {
			t.Errorf("expected output level %f, got %f", want, gain.OutputLevel)
		}
	})

	t.Run("Output Level Never Drops Below Half", func(t *testing.T) {
		// Wide attenuation limit exposes the output floor.
		gain := ComputeGain(0, -20, 40, 12)
		if gain.OutputLevel != minOutputLevel {
			t.Errorf("expected output floor %f, got %f", minOutputLevel, gain.OutputLevel)
		}
	})

	t.Run("At Target Is Pass-Through", func(t *testing.T) {
		gain := defaults(DefaultTargetDb)
		if gain.BoosterDb != 0 || gain.OutputLevel != 1.0 {
			t.Errorf("expected pass-through at target, got %+v", gain)
		}
	})
}

func TestNormalizer(t *testing.T) {
	t.Run("Starts Disabled At Pass-Through", func(t *testing.T) {
		n := NewNormalizer(NormalizerOpts{})
		if n.BoosterDb() != 0 || n.OutputLevel() != 1.0 {
			t.Errorf("expected pass-through state, got %f dB at level %f", n.BoosterDb(), n.OutputLevel())
		}
	})

	t.Run("Enabling Without Loudness Stays Pass-Through", func(t *testing.T) {
		n := NewNormalizer(NormalizerOpts{})
		n.Apply(SetNormalize{Enabled: true})
		if n.BoosterDb() != 0 || n.OutputLevel() != 1.0 {
			t.Errorf("expected pass-through without a measurement, got %f dB at level %f", n.BoosterDb(), n.OutputLevel())
		}
	})

	t.Run("Applies Gain When Enabled And Measured", func(t *testing.T) {
		n := NewNormalizer(NormalizerOpts{})
		n.Apply(SetNormalize{Enabled: true})
		n.Apply(SetLoudness{TrackLoudnessDb: -26})

		if math.Abs(n.BoosterDb()-6) > 1e-9 {
			t.Errorf("expected +6 dB booster, got %f", n.BoosterDb())
		}
	})

	t.Run("Loudness Before Enable Is Remembered", func(t *testing.T) {
		n := NewNormalizer(NormalizerOpts{})
		n.Apply(SetLoudness{TrackLoudnessDb: -26})
		if n.BoosterDb() != 0 {
			t.Error("expected no gain while disabled")
		}

		n.Apply(SetNormalize{Enabled: true})
		if math.Abs(n.BoosterDb()-6) > 1e-9 {
			t.Errorf("expected gain recomputed on enable, got %f", n.BoosterDb())
		}
	})

	t.Run("Disabling Resets Both Stages", func(t *testing.T) {
		n := NewNormalizer(NormalizerOpts{})
		n.Apply(SetNormalize{Enabled: true})
		n.Apply(SetLoudness{TrackLoudnessDb: -10})
		if n.OutputLevel() == 1.0 {
			t.Fatal("expected attenuation before disable")
		}

		n.Apply(SetNormalize{Enabled: false})
		if n.BoosterDb() != 0 || n.OutputLevel() != 1.0 {
			t.Errorf("expected pass-through after disable, got %f dB at level %f", n.BoosterDb(), n.OutputLevel())
		}
	})

	t.Run("Custom Target", func(t *testing.T) {
		n := NewNormalizer(NormalizerOpts{TargetDb: -14})
		n.Apply(SetNormalize{Enabled: true})
		n.Apply(SetLoudness{TrackLoudnessDb: -20})
		if math.Abs(n.BoosterDb()-6) > 1e-9 {
			t.Errorf("expected +6 dB toward -14 target, got %f", n.BoosterDb())
		}
	})
}
