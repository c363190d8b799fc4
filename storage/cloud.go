package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"

	"github.com/janelia-flyem/cellvox/vox"
)

// OpenBucket returns a blob.Bucket for the given reference.
// The reference should be of the form:
//
//	/local/dir or file:///local/dir
//	s3://<bucketname>[/<prefix>]
//	gs://<bucketname>[/<prefix>]
//
// Local directories are created if needed.
func OpenBucket(ctx context.Context, ref string) (bucket *blob.Bucket, err error) {
	switch {
	case strings.HasPrefix(ref, "s3://"):
		// Requires AWS credentials where gocloud can find them and AWS_REGION set.
		name, prefix := splitBucketRef(strings.TrimPrefix(ref, "s3://"))
		bucket, err = blob.OpenBucket(ctx, "s3://"+name)
		if err != nil {
			vox.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
			return nil, err
		}
		if prefix != "" {
			bucket = blob.PrefixedBucket(bucket, prefix)
		}

	case strings.HasPrefix(ref, "gs://"), strings.HasPrefix(ref, "gcs://"):
		// Google default application credentials,
		// see https://cloud.google.com/docs/authentication/production
		trimmed := strings.TrimPrefix(strings.TrimPrefix(ref, "gs://"), "gcs://")
		name, prefix := splitBucketRef(trimmed)
		creds, err := gcp.DefaultCredentials(ctx)
		if err != nil {
			return nil, err
		}
		client, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
		if err != nil {
			return nil, err
		}
		bucket, err = gcsblob.OpenBucket(ctx, client, name, nil)
		if err != nil {
			vox.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
			return nil, err
		}
		if prefix != "" {
			bucket = blob.PrefixedBucket(bucket, prefix)
		}

	default:
		dir := ref
		if strings.HasPrefix(ref, "file://") {
			u, err := url.Parse(ref)
			if err != nil {
				return nil, fmt.Errorf("bad file reference %q: %v", ref, err)
			}
			dir = u.Path
		}
		if dir == "" {
			return nil, fmt.Errorf("empty bucket reference")
		}
		if dir, err = filepath.Abs(dir); err != nil {
			return nil, err
		}
		if err = os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("can't create output directory %q: %v", dir, err)
		}
		bucket, err = fileblob.OpenBucket(dir, nil)
		if err != nil {
			vox.Errorf("Can't open local directory @ %q: %v\n", dir, err)
			return nil, err
		}
	}
	return bucket, nil
}

// splitBucketRef splits "name/some/prefix" into the bucket name and a prefix that ends
// in a slash, or is empty.
func splitBucketRef(ref string) (name, prefix string) {
	parts := strings.SplitN(ref, "/", 2)
	name = parts[0]
	if len(parts) == 2 {
		prefix = strings.Trim(parts[1], "/")
		if prefix != "" {
			prefix += "/"
		}
	}
	return
}
