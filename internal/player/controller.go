package player

import (
	"sync"

	"github.com/desertthunder/mixtape/internal/models"
)

// Controller is the playback-controller side of the normalization protocol.
//
// It keeps its own copy of the current play queue keyed by song ID. Loudness
// lookups never rely on metadata round-tripped through the engine; track
// metadata across the controller/engine boundary is not trusted to survive
// intact.
type Controller struct {
	mu       sync.Mutex
	engine   Engine
	targetDb float64
	queue    map[string]*models.Song
}

// NewController creates a controller for the given engine.
func NewController(engine Engine, targetDb float64) *Controller {
	if targetDb == 0 {
		targetDb = DefaultTargetDb
	}
	return &Controller{
		engine:   engine,
		targetDb: targetDb,
		queue:    make(map[string]*models.Song),
	}
}

// LoadQueue replaces the controller's queue copy.
func (c *Controller) LoadQueue(songs []*models.Song) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queue = make(map[string]*models.Song, len(songs))
	for _, song := range songs {
		c.queue[song.ID] = song
	}
}

// SetNormalize forwards the normalization toggle to the engine.
func (c *Controller) SetNormalize(enabled bool) error {
	return c.engine.Send(SetNormalize{Enabled: enabled})
}

// TrackChanged must be called whenever the actively playing item changes.
// It resolves the new track's stored loudness and announces it to the
// engine. A track with no stored loudness is announced at the target
// loudness (gain 0) so the previous track's correction never carries over.
func (c *Controller) TrackChanged(songID string) error {
	c.mu.Lock()
	song := c.queue[songID]
	c.mu.Unlock()

	loudness := c.targetDb
	if song != nil && song.LoudnessDb != nil {
		loudness = *song.LoudnessDb
	}

	return c.engine.Send(SetLoudness{TrackLoudnessDb: loudness})
}
