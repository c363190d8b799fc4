package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/janelia-flyem/cellvox/segment"
	"github.com/janelia-flyem/cellvox/storage"
	"github.com/janelia-flyem/cellvox/volume"
)

// SegmentJob stores the cell centroids of every input image as <name>_centroids.csv.
type SegmentJob struct {
	Store  *storage.Store
	Inputs []string
	BatchOptions
}

// Run segments every input and stores the run manifest.
func (j *SegmentJob) Run(ctx context.Context) (*Manifest, error) {
	if j.Store == nil {
		return nil, errors.New("segment job has no output store")
	}
	m := newManifest("segment", j.Inputs)
	err := runBatch(ctx, m, j.Inputs, j.BatchOptions, func(ctx context.Context, input string) ([]string, error) {
		centroids, err := segment.SegmentFile(input)
		if err != nil {
			return nil, err
		}
		key := baseName(input) + "_centroids.csv"
		err = j.Store.PutWith(ctx, key, func(w io.Writer) error {
			return segment.WriteCentroidsCSV(w, centroids)
		})
		if err != nil {
			return nil, err
		}
		return []string{key}, nil
	})
	if ferr := m.finish(context.WithoutCancel(ctx), j.Store); err == nil {
		err = ferr
	}
	return m, err
}

// PreprocessJob stores the edge image of every input slice as <name>_processed.tif.
// A multi-page input gets one file per page, <name>_processed/<name>_processed_0000.tif
// and up.
type PreprocessJob struct {
	Store  *storage.Store
	Inputs []string
	Config segment.PreprocessConfig
	BatchOptions
}

// Run preprocesses every input and stores the run manifest.
func (j *PreprocessJob) Run(ctx context.Context) (*Manifest, error) {
	if j.Store == nil {
		return nil, errors.New("preprocess job has no output store")
	}
	if j.Config.MedianRadius < 0 {
		return nil, fmt.Errorf("median radius must be non-negative, got %d", j.Config.MedianRadius)
	}
	m := newManifest("preprocess", j.Inputs)
	m.setParam("median_radius", j.Config.MedianRadius)
	err := runBatch(ctx, m, j.Inputs, j.BatchOptions, j.process)
	if ferr := m.finish(context.WithoutCancel(ctx), j.Store); err == nil {
		err = ferr
	}
	return m, err
}

func (j *PreprocessJob) process(ctx context.Context, input string) ([]string, error) {
	pages, err := segment.PreprocessFile(input, j.Config)
	if err != nil {
		return nil, err
	}
	name := baseName(input) + "_processed"
	var keys []string
	for i, page := range pages {
		key := name + ".tif"
		if len(pages) > 1 {
			key = fmt.Sprintf("%s/%s_%04d.tif", name, name, i)
		}
		var buf bytes.Buffer
		if err := volume.EncodeTIFF(&buf, page); err != nil {
			return keys, err
		}
		if err := j.Store.Put(ctx, key, buf.Bytes()); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
