package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/helios-rt/helios/renderer"
	"github.com/helios-rt/helios/scene"
	"github.com/helios-rt/helios/scene/reader"
	"github.com/helios-rt/helios/tracer"
	"github.com/helios-rt/helios/tracer/cpu"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Load the scene given as the command argument and derive the render
// configuration from the scene camera with CLI flag overrides applied.
func setupRender(ctx *cli.Context) (*scene.Scene, cpu.Config, renderer.Options, error) {
	var cfg cpu.Config
	var opts renderer.Options

	if ctx.NArg() != 1 {
		return nil, cfg, opts, errors.New("missing scene file argument")
	}

	sc, err := reader.ReadScene(ctx.Args().First())
	if err != nil {
		return nil, cfg, opts, err
	}

	// The scene camera provides the defaults; flags override.
	camera := sc.Camera
	if ctx.Int("width") > 0 {
		camera.ResolutionX = uint32(ctx.Int("width"))
	}
	if ctx.Int("height") > 0 {
		camera.ResolutionY = uint32(ctx.Int("height"))
	}
	if ctx.Int("iterations") > 0 {
		camera.Iterations = uint32(ctx.Int("iterations"))
	}
	if ctx.Int("depth") > 0 {
		camera.TraceDepth = uint32(ctx.Int("depth"))
	}
	camera.Update()

	cfg = cpu.DefaultConfig()
	cfg.NumBounces = camera.TraceDepth
	cfg.MinBouncesForRR = uint32(ctx.Int("rr-bounces"))
	cfg.Exposure = float32(ctx.Float64("exposure"))
	cfg.EnableBVH = !ctx.Bool("no-bvh")
	cfg.RussianRoulette = !ctx.Bool("no-rr")
	cfg.SortByMaterial = ctx.Bool("sort-materials")
	cfg.StreamCompact = ctx.Bool("compact")
	cfg.CacheFirstBounce = ctx.Bool("cache-first-bounce")
	cfg.GammaCorrection = ctx.Bool("gamma-correct")

	if cfg.MinBouncesForRR == 0 || cfg.MinBouncesForRR >= cfg.NumBounces {
		logger.Notice("disabling russian roulette for path elimination")
		cfg.RussianRoulette = false
	}

	opts = renderer.Options{
		FrameW:     camera.ResolutionX,
		FrameH:     camera.ResolutionY,
		Iterations: camera.Iterations,
		NumTracers: ctx.Int("tracers"),
		NumWorkers: ctx.Int("workers"),
	}

	return sc, cfg, opts, nil
}

// Select the block scheduler for a render.
func selectScheduler(ctx *cli.Context) tracer.BlockScheduler {
	if ctx.Bool("balance") {
		return tracer.NewPerfectScheduler()
	}
	return tracer.NaiveScheduler()
}

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	sc, cfg, opts, err := setupRender(ctx)
	if err != nil {
		return err
	}

	r, err := renderer.NewDefault(sc, selectScheduler(ctx), cpu.DefaultPipeline(cfg), opts)
	if err != nil {
		return err
	}
	defer r.Close()

	// An interrupt stops the render at the next iteration boundary; the
	// partially converged image is still written out.
	renderCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Noticef("rendering %d iterations at %dx%d", opts.Iterations, opts.FrameW, opts.FrameH)
	err = r.Render(renderCtx)
	if err != nil && !errors.Is(err, renderer.ErrInterrupted) {
		return err
	}

	displayFrameStats(r.Stats())

	out := ctx.String("out")
	if out == "" {
		out = sc.Camera.OutputFile
		if out == "" {
			out = "frame"
		}
		out += ".png"
	}

	if err = exportFrame(out, opts.FrameW, opts.FrameH, r); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s", out)

	return nil
}

// Use opengl to render a continuously updating view of the frame buffer.
func RenderInteractive(ctx *cli.Context) error {
	setupLogging(ctx)

	sc, cfg, opts, err := setupRender(ctx)
	if err != nil {
		return err
	}

	r, err := renderer.NewInteractive(sc, selectScheduler(ctx), cpu.DefaultPipeline(cfg), opts)
	if err != nil {
		return err
	}
	defer r.Close()

	renderCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = r.Render(renderCtx)
	if errors.Is(err, renderer.ErrInterrupted) {
		return nil
	}
	return err
}

func displayFrameStats(stats renderer.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Tracer", "Block height", "% of frame", "Render time"})
	for _, stat := range stats.Tracers {
		table.Append([]string{
			stat.Id,
			fmt.Sprintf("%d", stat.BlockH),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			stat.RenderTime.String(),
		})
	}
	table.SetFooter([]string{"", "", "TOTAL", stats.RenderTime.String()})

	table.Render()
	logger.Noticef("frame statistics after %d iterations\n%s", stats.Iterations, buf.String())
}
