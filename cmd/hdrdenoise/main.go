package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/erinpentecost/hdrdenoise/internal/denoise"
	"github.com/erinpentecost/hdrdenoise/internal/hdrimage"
	"github.com/erinpentecost/hdrdenoise/internal/imageio"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var errUsage = errors.New("invalid arguments")

type options struct {
	configPath       string
	params           denoise.Params
	threads          int
	ldrGamma         float64
	skipNormalDecode bool
	quiet            bool

	colorPath  string
	albedoPath string
	normalPath string
	outputPath string
}

func newFlagSet(opts *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("hdrdenoise", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: hdrdenoise [flags] <color> <albedo> <normal> <output>\n")
		fs.PrintDefaults()
	}
	def := denoise.DefaultParams()
	fs.StringVar(&opts.configPath, "config", "", "YAML file with filter parameters")
	fs.IntVar(&opts.params.Radius, "radius", def.Radius, "kernel half width in pixels")
	fs.Float32Var(&opts.params.SpatialVariance, "spatial-variance", def.SpatialVariance, "variance of the spatial weight")
	fs.Float32Var(&opts.params.AlbedoVariance, "albedo-variance", def.AlbedoVariance, "variance of the albedo weight")
	fs.Float32Var(&opts.params.NormalVariance, "normal-variance", def.NormalVariance, "variance of the normal weight")
	fs.IntVarP(&opts.threads, "threads", "j", 0, "rows filtered in parallel (0 = all CPUs)")
	fs.Float64Var(&opts.ldrGamma, "ldr-gamma", hdrimage.DefaultGamma, "gamma of 8 and 16 bit images")
	fs.BoolVar(&opts.skipNormalDecode, "skip-normal-decode", false, "normal pass already holds [-1,1] vectors")
	fs.BoolVarP(&opts.quiet, "quiet", "q", false, "only print errors")
	return fs
}

// parseArgs resolves flags, the optional config file and the four paths.
// Flags given on the command line override the config file.
func parseArgs(args []string) (*options, error) {
	opts := &options{}
	fs := newFlagSet(opts)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() != 4 {
		fs.Usage()
		return nil, fmt.Errorf("%w: want 4 paths, got %d", errUsage, fs.NArg())
	}
	opts.colorPath = fs.Arg(0)
	opts.albedoPath = fs.Arg(1)
	opts.normalPath = fs.Arg(2)
	opts.outputPath = fs.Arg(3)

	if opts.configPath != "" {
		fileParams, err := denoise.LoadParams(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if !fs.Changed("radius") {
			opts.params.Radius = fileParams.Radius
		}
		if !fs.Changed("spatial-variance") {
			opts.params.SpatialVariance = fileParams.SpatialVariance
		}
		if !fs.Changed("albedo-variance") {
			opts.params.AlbedoVariance = fileParams.AlbedoVariance
		}
		if !fs.Changed("normal-variance") {
			opts.params.NormalVariance = fileParams.NormalVariance
		}
	}
	if err := opts.params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	return opts, nil
}

func (o *options) printf(format string, a ...any) {
	if !o.quiet {
		fmt.Printf(format, a...)
	}
}

func run(ctx context.Context, opts *options) error {
	paths := []string{opts.colorPath, opts.albedoPath, opts.normalPath}
	images := make([]*hdrimage.Image, len(paths))

	var g errgroup.Group
	for i, p := range paths {
		g.Go(func() error {
			img, err := imageio.Load(p, opts.ldrGamma)
			if err != nil {
				return fmt.Errorf("load hdr file: %w", err)
			}
			opts.printf("Loaded: %q (%s)\n", p, img)
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	color, albedo, normal := images[0], images[1], images[2]

	if !hdrimage.SameSize(color, albedo) || !hdrimage.SameSize(color, normal) {
		return fmt.Errorf("hdr file resolutions are not matched: color %s, albedo %s, normal %s",
			color, albedo, normal)
	}

	// The loaded normal pass is ours; decode it in place.
	if !opts.skipNormalDecode {
		denoise.DecodeNormals(normal)
	}

	filter := denoise.NewFilter(opts.params)
	filter.Workers = opts.threads
	if !opts.quiet && term.IsTerminal(int(os.Stdout.Fd())) {
		filter.Progress = progressPrinter()
	}

	opts.printf("Denoising %s with radius %d...\n", color, opts.params.Radius)
	out, err := filter.Apply(ctx, color, albedo, normal)
	if err != nil {
		return fmt.Errorf("denoise: %w", err)
	}

	if err := imageio.Write(opts.outputPath, out, opts.ldrGamma); err != nil {
		return fmt.Errorf("save hdr file (%s): %w", opts.outputPath, err)
	}
	opts.printf("Wrote %q\n", opts.outputPath)
	return nil
}

// progressPrinter rewrites a single terminal line each time the whole
// percentage changes.
func progressPrinter() func(done, total int) {
	last := -1
	return func(done, total int) {
		percent := done * 100 / total
		if percent == last {
			return
		}
		last = percent
		fmt.Printf("\r%3d%%", percent)
		if done == total {
			fmt.Printf("\n")
		}
	}
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Printf("FAILED: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Printf("FAILED: %v\n", err)
		stop()
		os.Exit(1)
	}
}
