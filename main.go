package main

import (
	"os"

	"github.com/helios-rt/helios/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	renderFlags := []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Usage: "frame width; overrides the scene camera resolution",
		},
		cli.IntFlag{
			Name:  "height",
			Usage: "frame height; overrides the scene camera resolution",
		},
		cli.IntFlag{
			Name:  "iterations",
			Usage: "number of render iterations; overrides the scene camera setting",
		},
		cli.IntFlag{
			Name:  "depth",
			Usage: "maximum trace depth; overrides the scene camera setting",
		},
		cli.IntFlag{
			Name:  "rr-bounces",
			Value: 3,
			Usage: "minimum depth before russian roulette path elimination",
		},
		cli.Float64Flag{
			Name:  "exposure",
			Value: 1.0,
			Usage: "camera exposure for tone-mapping",
		},
		cli.IntFlag{
			Name:  "tracers",
			Value: 1,
			Usage: "number of attached cpu tracers",
		},
		cli.IntFlag{
			Name:  "workers",
			Usage: "worker goroutines per tracer; defaults to the logical core count",
		},
		cli.BoolFlag{
			Name:  "balance",
			Usage: "rebalance tracer block heights using per-frame timing feedback",
		},
		cli.BoolFlag{
			Name:  "no-bvh",
			Usage: "disable the mesh BVH and intersect triangles linearly",
		},
		cli.BoolFlag{
			Name:  "no-rr",
			Usage: "disable russian roulette path elimination",
		},
		cli.BoolFlag{
			Name:  "sort-materials",
			Usage: "sort paths by material before shading",
		},
		cli.BoolFlag{
			Name:  "compact",
			Usage: "stream-compact terminated paths between bounces",
		},
		cli.BoolFlag{
			Name:  "cache-first-bounce",
			Usage: "reuse first bounce intersections across iterations (disables anti-aliasing)",
		},
		cli.BoolFlag{
			Name:  "gamma-correct",
			Usage: "apply Reinhard tone-mapping and gamma correction to the output",
		},
	}

	app := cli.NewApp()
	app.Name = "helios"
	app.Usage = "render scenes using progressive path tracing"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "render",
			Usage:  "render scene",
			Action: nil,
			Subcommands: []cli.Command{
				{
					Name:        "frame",
					Usage:       "render single frame",
					Description: `Render a scene to an image file. The encoder is picked from the output extension (.png, .webp or .tga).`,
					ArgsUsage:   "scene_file",
					Flags: append(renderFlags,
						cli.StringFlag{
							Name:  "out, o",
							Usage: "image filename for the rendered frame; defaults to the scene FILE declaration",
						},
					),
					Action: cmd.RenderFrame,
				},
				{
					Name:        "interactive",
					Usage:       "render interactive view of the scene",
					Description: `Progressively render the scene into a window. Arrow keys move the camera, the left mouse button rotates it; any camera change restarts convergence.`,
					ArgsUsage:   "scene_file",
					Flags:       renderFlags,
					Action:      cmd.RenderInteractive,
				},
			},
		},
		{
			Name:      "info",
			Usage:     "display scene statistics",
			ArgsUsage: "scene_file",
			Action:    cmd.ShowSceneInfo,
		},
	}

	app.Run(os.Args)
}
