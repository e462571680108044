package cmd

import (
	"errors"

	"github.com/helios-rt/helios/scene/reader"
	"github.com/urfave/cli"
)

// Display scene statistics.
func ShowSceneInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}

	sc, err := reader.ReadScene(ctx.Args().First())
	if err != nil {
		return err
	}

	logger.Noticef("scene information:\n%s", sc.Stats())
	return nil
}
