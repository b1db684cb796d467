package main

import (
	"context"

	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if err := r.openDatabase(); err != nil {
		return err
	}

	return r.writePlain("Database ready at %s\n", r.config.Database.Path)
}

// ConfigInit writes the example configuration file.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	return r.writePlain("Wrote %s\n", path)
}
