package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/janelia-flyem/cellvox/config"
	"github.com/janelia-flyem/cellvox/vox"
)

var (
	configFile = flag.String("config", "", "")
	inputDir   = flag.String("input", "", "")
	countsDir  = flag.String("counts", "", "")
	outputRef  = flag.String("output", "", "")
	maskPath   = flag.String("mask", "", "")
	cellType   = flag.String("celltype", "", "")
	eps        = flag.Float64("eps", 0, "")
	minPoints  = flag.String("minpoints", "", "")
	workers    = flag.Int("workers", 0, "")
	writeTIFF  = flag.Bool("tiff", false, "")
	runVerbose = flag.Bool("verbose", false, "")
	version    = flag.Bool("version", false, "")

	// Display usage if true.
	showHelp = flag.Bool("help", false, "")
)

const helpMessage = `
dbscancluster pools the cell point lists of every animal in a directory, keeps one
hemisphere, and clusters the pooled cells with DBSCAN.  Unless -minpoints is given,
the minimum cluster density is derived from the 10th through 90th percentiles of each
animal's neighbor counts, producing one clustering per percentile.

Usage: dbscancluster [options]

	-config         =string   TOML configuration file; flags override its [dbscan] section
	-input          =string   Directory of point list files, one per animal
	-counts         =string   Directory of precomputed neighbor counts, <input name>.txt
	-output         =string   Output directory or s3:// / gs:// bucket reference
	-mask           =string   Mask applied to clustered volumes (.vol or TIFF slice directory)
	-celltype       =string   Cell type used in output names; CCF types use the CCF preset
	-eps            =number   Neighborhood radius in micrometers (default 150)
	-minpoints      =string   Comma separated minimum points, skipping the percentile estimate
	-workers        =number   Clusterings run concurrently (default: number of CPUs)
	-tiff           (flag)    Also write each clustered volume as TIFF slices
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
		c.DBSCAN.InputDir = *inputDir
	}
	if *countsDir != "" {
		c.DBSCAN.CountsDir = *countsDir
	}
	if *outputRef != "" {
		c.Output.Ref = *outputRef
	}
	if *maskPath != "" {
		c.DBSCAN.Mask = *maskPath
	}
	if *cellType != "" {
		c.DBSCAN.CellType = *cellType
	}
	if *eps != 0 {
		c.DBSCAN.Eps = *eps
	}
	if *workers != 0 {
		c.DBSCAN.Workers = *workers
	}
	if *minPoints != "" {
		if c.DBSCAN.MinPoints, err = parseInts(*minPoints); err != nil {
			fmt.Fprintf(os.Stderr, "Bad -minpoints %q: %v\n", *minPoints, err)
			os.Exit(1)
		}
	}
	c.Output.TIFF = c.Output.TIFF || *writeTIFF
	c.Logging.SetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, c); err != nil {
		vox.Criticalf("dbscancluster: %v\n", err)
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

	job, err := c.ClusterJob(store)
	if err != nil {
		return err
	}
	m, err := job.Run(ctx)
	if m != nil {
		fmt.Printf("Run %s clustered %d animals with min points %s, %d outputs in %s\n",
			m.RunID, len(m.Inputs), m.Params["min_points"], len(m.Outputs), store)
	}
	return err
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
