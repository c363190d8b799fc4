package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"gocloud.dev/blob"

	"github.com/janelia-flyem/cellvox/vox"
)

// Store writes pipeline outputs under keys in a bucket and keeps running totals.
// It is safe for concurrent use.
type Store struct {
	ref    string
	bucket *blob.Bucket

	objects atomic.Int64
	bytes   atomic.Int64
}

// Open opens the bucket named by ref.  See OpenBucket for the accepted forms.
func Open(ctx context.Context, ref string) (*Store, error) {
	bucket, err := OpenBucket(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &Store{ref: ref, bucket: bucket}, nil
}

// NewStore wraps an already opened bucket.
func NewStore(ref string, bucket *blob.Bucket) *Store {
	return &Store{ref: ref, bucket: bucket}
}

func (s *Store) String() string {
	return s.ref
}

// Put stores data under key, replacing any previous object.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := s.bucket.WriteAll(ctx, key, data, nil); err != nil {
		return fmt.Errorf("writing %q to %s: %v", key, s.ref, err)
	}
	s.objects.Add(1)
	s.bytes.Add(int64(len(data)))
	vox.Debugf("Stored %s (%s) in %s\n", key, humanize.Bytes(uint64(len(data))), s.ref)
	return nil
}

// PutWith streams whatever write produces into key.
func (s *Store) PutWith(ctx context.Context, key string, write func(io.Writer) error) error {
	w, err := s.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("opening %q in %s: %v", key, s.ref, err)
	}
	cw := &countingWriter{w: w}
	if err := write(cw); err != nil {
		w.Close()
		return fmt.Errorf("writing %q to %s: %v", key, s.ref, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing %q in %s: %v", key, s.ref, err)
	}
	s.objects.Add(1)
	s.bytes.Add(cw.n)
	vox.Debugf("Stored %s (%s) in %s\n", key, humanize.Bytes(uint64(cw.n)), s.ref)
	return nil
}

// Get returns the object stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.bucket.ReadAll(ctx, key)
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.bucket.Exists(ctx, key)
}

// List returns the keys beginning with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !obj.IsDir {
			keys = append(keys, obj.Key)
		}
	}
	return keys, nil
}

// Totals returns the number of objects and bytes written so far.
func (s *Store) Totals() (objects int64, bytes int64) {
	return s.objects.Load(), s.bytes.Load()
}

// Close logs totals and releases the bucket.
func (s *Store) Close() error {
	objects, n := s.Totals()
	vox.Infof("Wrote %d objects (%s) to %s\n", objects, humanize.Bytes(uint64(n)), s.ref)
	return s.bucket.Close()
}

// Key joins path elements into a slash-separated object key.
func Key(elem ...string) string {
	return path.Join(elem...)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
