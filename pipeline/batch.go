/*
Package pipeline runs the cellvox batch jobs: sparse point cloud rendering against an
atlas, density clustering across animals, cell centroid segmentation, and slice
preprocessing.  Each job processes its inputs with a bounded pool of workers, writes
outputs through a storage.Store, and finishes by storing a JSON manifest of the run.
*/
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maruel/natural"
	"github.com/twinj/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/janelia-flyem/cellvox/storage"
	"github.com/janelia-flyem/cellvox/vox"
)

// Failure records an input that could not be processed.
type Failure struct {
	Input string `json:"input"`
	Error string `json:"error"`
}

// BatchError is returned when some inputs of a batch failed.  The outputs of the
// other inputs have still been written.
type BatchError struct {
	Failures []Failure
}

func (e *BatchError) Error() string {
	if len(e.Failures) == 1 {
		return fmt.Sprintf("%s: %s", e.Failures[0].Input, e.Failures[0].Error)
	}
	return fmt.Sprintf("%d inputs failed, first %s: %s", len(e.Failures), e.Failures[0].Input, e.Failures[0].Error)
}

// Manifest describes one run of a job.
type Manifest struct {
	RunID    string            `json:"run_id"`
	Job      string            `json:"job"`
	Version  string            `json:"version"`
	Started  time.Time         `json:"started"`
	Finished time.Time         `json:"finished"`
	Params   map[string]string `json:"params,omitempty"`
	Inputs   []string          `json:"inputs"`
	Outputs  []string          `json:"outputs"`
	Failures []Failure         `json:"failures,omitempty"`

	mu sync.Mutex
}

func newManifest(job string, inputs []string) *Manifest {
	return &Manifest{
		RunID:   uuid.NewV4().String(),
		Job:     job,
		Version: vox.Version(),
		Started: time.Now(),
		Params:  map[string]string{},
		Inputs:  inputs,
	}
}

func (m *Manifest) setParam(key string, value interface{}) {
	m.mu.Lock()
	m.Params[key] = fmt.Sprint(value)
	m.mu.Unlock()
}

func (m *Manifest) addOutputs(keys ...string) {
	m.mu.Lock()
	m.Outputs = append(m.Outputs, keys...)
	m.mu.Unlock()
}

func (m *Manifest) addFailure(input string, err error) {
	m.mu.Lock()
	m.Failures = append(m.Failures, Failure{Input: input, Error: err.Error()})
	m.mu.Unlock()
}

// Key is the object key the manifest is stored under.
func (m *Manifest) Key() string {
	return m.Job + "_manifest.json"
}

// finish sorts the manifest, stores it, and returns a BatchError if any input failed.
func (m *Manifest) finish(ctx context.Context, store *storage.Store) error {
	m.mu.Lock()
	m.Finished = time.Now()
	sort.Strings(m.Outputs)
	sort.Slice(m.Failures, func(i, j int) bool { return natural.Less(m.Failures[i].Input, m.Failures[j].Input) })
	data, err := json.MarshalIndent(m, "", "  ")
	failures := m.Failures
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if err := store.Put(ctx, m.Key(), data); err != nil {
		return err
	}
	vox.Infof("%s run %s finished in %s: %d inputs, %d outputs, %d failures\n",
		m.Job, m.RunID, m.Finished.Sub(m.Started).Round(time.Millisecond), len(m.Inputs), len(m.Outputs), len(failures))
	if len(failures) > 0 {
		return &BatchError{Failures: failures}
	}
	return nil
}

// BatchOptions control how a job spreads work across inputs.
type BatchOptions struct {
	// Workers bounds concurrent inputs.  Zero uses the number of CPUs.
	Workers int

	// StopOnError cancels remaining inputs after the first failure.
	StopOnError bool
}

func (b BatchOptions) workers() int {
	if b.Workers > 0 {
		return b.Workers
	}
	return runtime.NumCPU()
}

// runBatch calls process for every input with at most opts.Workers running at once.
// Failures are logged and recorded in the manifest; only context cancellation or
// StopOnError ends the batch early.
func runBatch(ctx context.Context, m *Manifest, inputs []string, opts BatchOptions,
	process func(ctx context.Context, input string) ([]string, error)) error {

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, input := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			timedLog := vox.NewTimeLog()
			keys, err := process(gctx, input)
			// Partial outputs of a failed input are already in the store.
			m.addOutputs(keys...)
			if err != nil {
				vox.Errorf("Failed to process %s: %v\n", input, err)
				m.addFailure(input, err)
				if opts.StopOnError {
					return err
				}
				return nil
			}
			if vox.Verbose {
				timedLog.Infof("Processed %d/%d %s -> %d outputs", i+1, len(inputs), input, len(keys))
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return err
}

// baseName strips the directory and extension from a path.
func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
