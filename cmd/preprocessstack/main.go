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
	radius     = flag.Int("radius", -1, "")
	workers    = flag.Int("workers", 0, "")
	runVerbose = flag.Bool("verbose", false, "")
	version    = flag.Bool("version", false, "")

	// Display usage if true.
	showHelp = flag.Bool("help", false, "")
)

const helpMessage = `
preprocessstack median filters each TIFF slice in a directory and replaces it with its
edge magnitude, written to <slice>_processed.tif.  Every page of a multi-page TIFF is
processed and written to <slice>_processed/<slice>_processed_0000.tif and up.

Usage: preprocessstack [options]

	-config         =string   TOML configuration file; flags override its [preprocess] section
	-input          =string   Directory of .tif slices
	-output         =string   Output directory or s3:// / gs:// bucket reference
	-radius         =number   Median filter radius in pixels (default 2, 0 disables)
	-workers        =number   Slices processed concurrently (default: number of CPUs)
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
		c.Preprocess.InputDir = *inputDir
	}
	if *outputRef != "" {
		c.Output.Ref = *outputRef
	}
	if *radius >= 0 {
		c.Preprocess.MedianRadius = *radius
	}
	if *workers != 0 {
		c.Preprocess.Workers = *workers
	}
	c.Logging.SetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, c); err != nil {
		vox.Criticalf("preprocessstack: %v\n", err)
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

	job, err := c.PreprocessJob(store)
	if err != nil {
		return err
	}
	m, err := job.Run(ctx)
	if m != nil {
		fmt.Printf("Run %s preprocessed %d of %d slices into %s\n", m.RunID, len(m.Outputs), len(m.Inputs), store)
	}
	return err
}
