package player

import (
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
)

// fakeEngine records commands and runs them through a Normalizer, standing in
// for a real audio pipeline.
type fakeEngine struct {
	normalizer *Normalizer
	commands   []Command
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{normalizer: NewNormalizer(NormalizerOpts{})}
}

func (e *fakeEngine) Play() error                   { return nil }
func (e *fakeEngine) Pause() error                  { return nil }
func (e *fakeEngine) Seek(positionMs int) error     { return nil }
func (e *fakeEngine) Next() error                   { return nil }
func (e *fakeEngine) Previous() error               { return nil }
func (e *fakeEngine) SetShuffle(enabled bool) error { return nil }
func (e *fakeEngine) SetRepeat(enabled bool) error  { return nil }

func (e *fakeEngine) Send(cmd Command) error {
	e.commands = append(e.commands, cmd)
	e.normalizer.Apply(cmd)
	return nil
}

func loudnessPtr(v float64) *float64 { return &v }

func TestController(t *testing.T) {
	t.Run("Announces Stored Loudness On Track Change", func(t *testing.T) {
		engine := newFakeEngine()
		controller := NewController(engine, 0)
		controller.LoadQueue([]*models.Song{
			{ID: "song-1", Title: "Quiet", LoudnessDb: loudnessPtr(-26)},
			{ID: "song-2", Title: "Unmeasured"},
		})

		if err := controller.SetNormalize(true); err != nil {
			t.Fatalf("SetNormalize failed: %v", err)
		}
		if err := controller.TrackChanged("song-1"); err != nil {
			t.Fatalf("TrackChanged failed: %v", err)
		}

		if got := engine.normalizer.BoosterDb(); got != 6 {
			t.Errorf("expected +6 dB booster for the quiet track, got %f", got)
		}
	})

	t.Run("Unknown Loudness Resets To Target", func(t *testing.T) {
		engine := newFakeEngine()
		controller := NewController(engine, 0)
		controller.LoadQueue([]*models.Song{
			{ID: "song-1", Title: "Quiet", LoudnessDb: loudnessPtr(-26)},
			{ID: "song-2", Title: "Unmeasured"},
		})

		controller.SetNormalize(true)
		controller.TrackChanged("song-1")
		if engine.normalizer.BoosterDb() == 0 {
			t.Fatal("expected gain applied for the measured track")
		}

		// Switching to an unmeasured track must not carry the correction over.
		controller.TrackChanged("song-2")
		if got := engine.normalizer.BoosterDb(); got != 0 {
			t.Errorf("expected gain reset for unmeasured track, got %f", got)
		}
		if got := engine.normalizer.OutputLevel(); got != 1.0 {
			t.Errorf("expected full output for unmeasured track, got %f", got)
		}
	})

	t.Run("Unknown Song ID Behaves Like Unmeasured", func(t *testing.T) {
		engine := newFakeEngine()
		controller := NewController(engine, 0)
		controller.SetNormalize(true)

		if err := controller.TrackChanged("missing"); err != nil {
			t.Fatalf("TrackChanged failed: %v", err)
		}
		if got := engine.normalizer.BoosterDb(); got != 0 {
			t.Errorf("expected no gain for unknown song, got %f", got)
		}
	})

	t.Run("LoadQueue Replaces Previous Queue", func(t *testing.T) {
		engine := newFakeEngine()
		controller := NewController(engine, 0)
		controller.LoadQueue([]*models.Song{{ID: "old", LoudnessDb: loudnessPtr(-30)}})
		controller.LoadQueue([]*models.Song{{ID: "new", LoudnessDb: loudnessPtr(-26)}})

		controller.SetNormalize(true)
		controller.TrackChanged("old")
		if got := engine.normalizer.BoosterDb(); got != 0 {
			t.Errorf("expected old queue entry forgotten, got %f", got)
		}
	})
}
