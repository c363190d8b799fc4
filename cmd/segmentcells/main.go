package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/janelia-flyem/cellvox/config"
	"github.com/janelia-flyem/cellvox/vox"
)

var (
	configFile = flag.String("config", "", "")
	inputDir   = flag.String("input", "", "")
	outputRef  = flag.String("output", "", "")
	workers    = flag.Int("workers", 0, "")
	runVerbose = flag.Bool("verbose", false, "")
	version    = flag.Bool("version", false, "")

	// Display usage if true.
	showHelp = flag.Bool("help", false, "")
)

const helpMessage = `
segmentcells thresholds each TIFF section in a directory with Otsu's method and writes
the centroid of every outer contour to <section>_centroids.csv.

Usage: segmentcells [options]

	-config         =string   TOML configuration file; flags override its [segment] section
	-input          =string   Directory of .tif sections
	-output         =string   Output directory or s3:// / gs:// bucket reference
	-workers        =number   Sections segmented concurrently (default 4)
	-verbose        (flag)    Log per-file progress and debug messages
	-version        (flag)    Print the version and exit
	-h, -help       (flag)    Show help message
`

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = func() {
		fmt.Print(helpMessage)
	}
	flag.Parse()

	if *showHelp || flag.NArg() != 0 {
		flag.Usage()
		os.Exit(0)
	}
	if *version {
		fmt.Println(vox.Version())
		os.Exit(0)
	}
	if *runVerbose {
		vox.Verbose = true
		vox.SetLogLevel(vox.DebugLevel)
	}

	c, err := config.LoadOrDefault(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *inputDir != "" {
		c.Segment.InputDir = *inputDir
	}
	if *outputRef != "" {
		c.Output.Ref = *outputRef
	}
	if *workers != 0 {
		c.Segment.Workers = *workers
	}
	c.Logging.SetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, c); err != nil {
		vox.Criticalf("segmentcells: %v\n", err)
		vox.Shutdown()
		os.Exit(1)
	}
	vox.Shutdown()
}

func run(ctx context.Context, c *config.Config) error {
	store, err := c.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	job, err := c.SegmentJob(store)
	if err != nil {
		return err
	}
	m, err := job.Run(ctx)
	if m != nil {
		fmt.Printf("Run %s segmented %d of %d sections into %s\n", m.RunID, len(m.Outputs), len(m.Inputs), store)
	}
	return err
}
