package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/janelia-flyem/cellvox/pointcloud"
	"github.com/janelia-flyem/cellvox/storage"
	"github.com/janelia-flyem/cellvox/volume"
	"github.com/janelia-flyem/cellvox/vox"
)

// OutputOptions select which representations of a result are stored.
type OutputOptions struct {
	// Compression applied to serialized .vol volumes.
	Compression vox.Compression

	// PLYFormat of written point clouds.
	PLYFormat pointcloud.PLYFormat

	// TIFF also stores each volume as a directory of axis-0 TIFF slices.
	TIFF bool

	// GLB also stores each point cloud as a binary glTF.
	GLB bool
}

// putVolume stores v as <name>.vol and, if requested, as <name>/<name>_NNNN.tif slices.
func putVolume(ctx context.Context, store *storage.Store, name string, v *volume.Volume, opts OutputOptions) ([]string, error) {
	data, err := v.Serialize(opts.Compression, vox.XXHash)
	if err != nil {
		return nil, err
	}
	key := name + ".vol"
	if err := store.Put(ctx, key, data); err != nil {
		return nil, err
	}
	keys := []string{key}
	if !opts.TIFF {
		return keys, nil
	}
	slices, err := putTIFFStack(ctx, store, name, v)
	return append(keys, slices...), err
}

func putTIFFStack(ctx context.Context, store *storage.Store, name string, v *volume.Volume) ([]string, error) {
	prefix := filepath.Base(name)
	keys := make([]string, 0, v.Shape[0])
	for z := 0; z < v.Shape[0]; z++ {
		img, err := v.Slice(0, z)
		if err != nil {
			return keys, err
		}
		var buf bytes.Buffer
		if err := volume.EncodeTIFF(&buf, img); err != nil {
			return keys, err
		}
		key := storage.Key(name, fmt.Sprintf("%s_%04d.tif", prefix, z))
		if err := store.Put(ctx, key, buf.Bytes()); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// putCloud stores c as <name>.ply and, if requested, <name>.glb.
func putCloud(ctx context.Context, store *storage.Store, name string, c *pointcloud.Cloud, opts OutputOptions) ([]string, error) {
	key := name + ".ply"
	err := store.PutWith(ctx, key, func(w io.Writer) error {
		return pointcloud.WritePLY(w, c, opts.PLYFormat)
	})
	if err != nil {
		return nil, err
	}
	keys := []string{key}
	if !opts.GLB {
		return keys, nil
	}
	key = name + ".glb"
	err = store.PutWith(ctx, key, func(w io.Writer) error {
		return pointcloud.WriteGLB(w, c)
	})
	if err != nil {
		return keys, err
	}
	return append(keys, key), nil
}

// LoadVolume reads a reference volume such as a mask or atlas.  The path may be a
// .vol file, a TIFF whose pages are stacked along axis 0, or a directory of TIFF
// slices stacked the same way.
func LoadVolume(path string) (*volume.Volume, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		slices, err := vox.FilesWithExt(path, ".tif", ".tiff")
		if err != nil {
			return nil, err
		}
		if len(slices) == 0 {
			return nil, fmt.Errorf("no TIFF slices in directory %q", path)
		}
		return volume.ReadTIFFStack(slices)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vol":
		return volume.ReadFile(path)
	case ".tif", ".tiff":
		return volume.ReadTIFFStack([]string{path})
	default:
		return nil, fmt.Errorf("unknown volume file type %q", path)
	}
}

// ReadCloud reads a PLY or a text point list depending on the file extension.
func ReadCloud(path string) (*pointcloud.Cloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var c *pointcloud.Cloud
	if strings.EqualFold(filepath.Ext(path), ".ply") {
		c, err = pointcloud.ReadPLY(f)
	} else {
		c, err = pointcloud.ReadPointList(f)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	return c, nil
}
