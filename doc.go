/*
Package cellvox turns registered cell detections into colored voxel volumes that can be
laid over a reference brain atlas.

Packages

	vox         coordinates, colors, scale factors, logging and payload serialization
	volume      the 4D RGB volume with rasterize, apply_mask, composite and crop_and_resample
	pointcloud  colored point clouds read from and written to PLY, point lists and glTF
	cluster     DBSCAN over pooled cells, neighbor count statistics and the tab20 colormap
	segment     Otsu segmentation of tissue sections into centroids and slice preprocessing
	storage     output objects in a local directory, S3 or GCS bucket
	pipeline    the batch jobs with bounded workers and run manifests
	config      the TOML configuration that builds each job

Commands

	cmd/sparsepoints     sparse point cloud rendering against an atlas
	cmd/dbscancluster    density clustering across animals
	cmd/segmentcells     cell centroid extraction from sections
	cmd/preprocessstack  median filtering and edge detection of slices
	cmd/gen-version      writes the git version into vox for go generate

A volume has shape (X, Y, Z, C) and stores 8-bit channels with the channel varying
fastest.  Points are scaled into voxel units and truncated, so a point at 24.9 um on
a 25 um grid lands in voxel 0.  Rasterizing never fails because of where a point lies;
points outside the volume are skipped.
*/
package cellvox
