/*
Package volume rasterizes labeled point sets into fixed-shape 8-bit voxel volumes and
composites them against a reference atlas.

A Volume is a dense 4D array (X, Y, Z, C) stored in row-major order with the channel
axis fastest.  All operations return new volumes and never modify their inputs:

	vol, err := volume.Rasterize(points, colors, cfg)
	masked, err := volume.ApplyMask(vol, mask)
	comp, err := volume.Composite(masked, atlas, volume.OverflowWrap)
	out, err := volume.CropAndResample(comp, bounds, []float64{2, 1, 1, 1}, volume.Linear)

Points whose truncated voxel index falls outside the volume are skipped silently, and
when several points map to the same voxel the last one written wins.
*/
package volume
