package main

import (
	"context"

	"github.com/desertthunder/mixtape/internal/player"
	"github.com/urfave/cli/v3"
)

// Normalize prints the gain the player would apply for a measured loudness
// under the configured normalization settings.
func (r *Runner) Normalize(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	trackDb := cmd.Float("loudness")
	settings := r.config.Normalize

	gain := player.ComputeGain(trackDb, settings.TargetDb, settings.MaxAttenuationDb, settings.MaxBoostDb)

	r.writePlain("Target loudness: %.1f dB\n", settings.TargetDb)
	r.writePlain("Track loudness:  %.1f dB\n", trackDb)
	r.writePlain("Booster:         %.2f dB\n", gain.BoosterDb)
	return r.writePlain("Output level:    %.3f\n", gain.OutputLevel)
}
