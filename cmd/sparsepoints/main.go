package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/janelia-flyem/cellvox/config"
	"github.com/janelia-flyem/cellvox/pipeline"
	"github.com/janelia-flyem/cellvox/vox"
)

var (
	configFile = flag.String("config", "", "")
	inputDir   = flag.String("input", "", "")
	outputRef  = flag.String("output", "", "")
	atlasPath  = flag.String("atlas", "", "")
	maskPath   = flag.String("mask", "", "")
	cellType   = flag.String("celltype", "", "")
	numFiles   = flag.Int("numfiles", 0, "")
	step       = flag.Int("step", 0, "")
	workers    = flag.Int("workers", 0, "")
	writeTIFF  = flag.Bool("tiff", false, "")
	writeGLB   = flag.Bool("glb", false, "")
	runVerbose = flag.Bool("verbose", false, "")
	version    = flag.Bool("version", false, "")

	// Display usage if true.
	showHelp = flag.Bool("help", false, "")
)

const helpMessage = `
sparsepoints renders every Nth point of each colored PLY point cloud in a directory into
an RGB volume, masks it, and adds it to a reference atlas that is then cropped and zoomed.
By default N is the number of source files divided by 2, rounded up.

Usage: sparsepoints [options]

	-config         =string   TOML configuration file; flags override its [sparse] section
	-input          =string   Directory of .ply point clouds
	-output         =string   Output directory or s3:// / gs:// bucket reference
	-atlas          =string   Atlas volume (.vol file or directory of TIFF slices)
	-mask           =string   Mask volume (.vol file or directory of TIFF slices)
	-celltype       =string   Cell type; names containing CCF use 25x25x50 um voxels
	-numfiles       =number   Number of source files the step is derived from
	-step           =number   Keep every step-th point, overriding -numfiles
	-workers        =number   Point clouds processed concurrently (default: number of CPUs)
	-tiff           (flag)    Also write each volume as TIFF slices
	-glb            (flag)    Also write each sparse point cloud as binary glTF
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
	setString(&c.Sparse.InputDir, *inputDir)
	setString(&c.Output.Ref, *outputRef)
	setString(&c.Sparse.Atlas, *atlasPath)
	setString(&c.Sparse.Mask, *maskPath)
	setString(&c.Sparse.CellType, *cellType)
	setInt(&c.Sparse.NumFiles, *numFiles)
	setInt(&c.Sparse.Step, *step)
	setInt(&c.Sparse.Workers, *workers)
	c.Output.TIFF = c.Output.TIFF || *writeTIFF
	c.Output.GLB = c.Output.GLB || *writeGLB
	c.Logging.SetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, c); err != nil {
		var batchErr *pipeline.BatchError
		if errors.As(err, &batchErr) {
			fmt.Fprintf(os.Stderr, "%d point clouds failed, see the run manifest\n", len(batchErr.Failures))
		}
		vox.Criticalf("sparsepoints: %v\n", err)
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

	job, err := c.SparseJob(store)
	if err != nil {
		return err
	}
	m, err := job.Run(ctx)
	if m != nil {
		fmt.Printf("Run %s wrote %d outputs to %s\n", m.RunID, len(m.Outputs), store)
	}
	return err
}

func setString(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}

func setInt(dst *int, flagValue int) {
	if flagValue != 0 {
		*dst = flagValue
	}
}
