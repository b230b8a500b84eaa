package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/wippyai/gltf2image/config"
	"github.com/wippyai/gltf2image/future"
	"github.com/wippyai/gltf2image/logrelay"
	"github.com/wippyai/gltf2image/native"
	"github.com/wippyai/gltf2image/render"
)

// maxConcurrent bounds the renders waiting for the engine at once.
const maxConcurrent = 64

type renderFlags struct {
	out        string
	format     string
	configPath string
	width      uint32
	height     uint32
	repeat     int
	trace      bool
	verbose    bool
	retain     bool
	noProgress bool
}

func newRenderCommand() *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "render FILE [FILE...]",
		Short: "Render glTF or GLB files into an image",
		Long: `Render one scene composed of all given files.

The first file stays loaded for the whole run, so it is the natural place
for a camera rig shared by the other files. The scene must contain exactly
one camera across all files.`,
		Example: `  # Render a model with its own camera
  gltf2image render model.glb -o model.png

  # Shared camera, 16 concurrent renders, BMP output
  gltf2image render camera.gltf model.glb --repeat 16 --format bmp -o out/model`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return runRender(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, args, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.out, "out", "o", "out.png", "output file; repeats get an index suffix")
	fl.StringVarP(&f.format, "format", "f", "png", "output format: png, bmp or tiff")
	fl.StringVarP(&f.configPath, "config", "c", "", "YAML configuration file")
	fl.Uint32VarP(&f.width, "width", "W", 512, "image width in pixels")
	fl.Uint32VarP(&f.height, "height", "H", 512, "image height in pixels")
	fl.IntVarP(&f.repeat, "repeat", "n", 1, "number of concurrent renders")
	fl.BoolVar(&f.trace, "trace", false, "print render spans to stderr")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
	fl.BoolVar(&f.retain, "retain", false, "keep every file loaded between repeats")
	fl.BoolVar(&f.noProgress, "no-progress", false, "disable the progress view")

	return cmd
}

// loadConfig reads the config file, if any, and applies flags that were set
// explicitly on top of it.
func loadConfig(cmd *cobra.Command, f *renderFlags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}

	fl := cmd.Flags()
	if fl.Changed("width") {
		cfg.Job.Width = f.width
	}
	if fl.Changed("height") {
		cfg.Job.Height = f.height
	}
	if fl.Changed("format") {
		cfg.Job.Format = f.format
	}
	if fl.Changed("repeat") {
		cfg.Job.Repeat = f.repeat
	}
	if fl.Changed("retain") {
		cfg.Job.Retain = f.retain
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.Validate()
}

func newLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core)
}

func runRender(ctx context.Context, stdout, stderr io.Writer, cfg *config.Config, files []string, f renderFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := newLogger(stderr, cfg.Log.ZapLevel())
	defer func() { _ = log.Sync() }()
	future.SetLogger(log.Named("future"))
	native.SetLogger(log.Named("native"))

	engine, err := openEngine()
	if err != nil {
		return err
	}
	log.Debug("engine opened", zap.String("kind", engineKind), zap.String("name", engine.Name()))

	if cfg.Log.Engine {
		relay := logrelay.For(engine)
		if err := relay.Set(logrelay.ZapSink(log)); err != nil {
			log.Warn("engine logs unavailable", zap.Error(err))
		} else {
			defer func() { _ = relay.Set(nil) }()
		}
	}

	opts, err := cfg.Renderer.Options(log, nil)
	if err != nil {
		return err
	}
	if f.trace {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		defer func() { _ = tp.Shutdown(context.Background()) }()
		opts = append(opts, render.WithTracer(tp))
	}

	if cfg.Renderer.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Renderer.Timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r, err := render.New(ctx, engine, opts...)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	defer func() {
		if err := r.Close(context.Background()); err != nil {
			log.Warn("renderer close", zap.Error(err))
		}
	}()

	inputs := make([][]byte, len(files))
	for i, name := range files {
		if inputs[i], err = os.ReadFile(name); err != nil {
			return err
		}
	}

	shared, err := loadShared(ctx, r, inputs, cfg.Job.Retain)
	if err != nil {
		return err
	}

	var rep reporter = &plainReporter{w: stdout}
	if !f.noProgress && cfg.Job.Repeat > 1 && isTerminal(stdout) {
		rep = startTeaReporter(stdout, fmt.Sprintf("gltf2image %s", files[0]), cfg.Job.Repeat, cancel)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i := 0; i < cfg.Job.Repeat; i++ {
		path := outputPath(f.out, cfg.Job.Format, i, cfg.Job.Repeat)
		g.Go(func() error {
			err := renderOne(gctx, r, cfg.Job, shared, inputs, path)
			rep.done(path, err)
			return err
		})
	}
	err = g.Wait()
	rep.finish()
	if err != nil {
		return err
	}

	log.Info("renders complete",
		zap.Int("count", cfg.Job.Repeat),
		zap.Duration("elapsed", time.Since(start)),
		zap.Uint32("width", cfg.Job.Width),
		zap.Uint32("height", cfg.Job.Height))
	return nil
}

// loadShared loads the assets used by every render: the first input always,
// all inputs when retain is set. Other inputs are created per render.
func loadShared(ctx context.Context, r *render.Renderer, inputs [][]byte, retain bool) ([]*render.Asset, error) {
	n := 1
	if retain {
		n = len(inputs)
	}
	shared := make([]*render.Asset, n)
	for i := range shared {
		a, err := r.LoadAsset(ctx, inputs[i]).Await(ctx)
		if err != nil {
			return nil, fmt.Errorf("load input %d: %w", i, err)
		}
		shared[i] = a
	}
	return shared, nil
}

func renderOne(ctx context.Context, r *render.Renderer, job config.Job, shared []*render.Asset, inputs [][]byte, path string) error {
	assets := append([]*render.Asset(nil), shared...)
	for _, data := range inputs[len(shared):] {
		a, err := r.NewAsset(data, false)
		if err != nil {
			return err
		}
		defer a.CloseAsync(context.Background())
		assets = append(assets, a)
	}

	px, err := r.Render(ctx, job.Width, job.Height, assets...).Await(ctx)
	if err != nil {
		return err
	}
	return writeImage(path, job.Format, toImage(px, job.Width, job.Height))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
