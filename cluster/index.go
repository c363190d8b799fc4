/*
Package cluster groups cell coordinates by density.  It provides DBSCAN over a uniform
grid index, per-point neighbor counts, percentile statistics used to choose the
DBSCAN minimum-points threshold, and a categorical colormap for cluster labels.
*/
package cluster

import (
	"math"

	"github.com/janelia-flyem/cellvox/vox"
)

type cellKey [3]int64

// SpatialIndex buckets points into cubic cells of side CellSize so a radius query
// only visits the 27 cells around a point.
type SpatialIndex struct {
	CellSize float64
	Grid     map[cellKey][]int
}

// NewSpatialIndex creates an empty index.  cellSize should be at least the query radius.
func NewSpatialIndex(cellSize float64) *SpatialIndex {
	return &SpatialIndex{CellSize: cellSize, Grid: make(map[cellKey][]int)}
}

func (si *SpatialIndex) cell(p vox.Vector3d) cellKey {
	return cellKey{
		int64(math.Floor(p[0] / si.CellSize)),
		int64(math.Floor(p[1] / si.CellSize)),
		int64(math.Floor(p[2] / si.CellSize)),
	}
}

// Build populates the index from points, replacing any previous contents.
func (si *SpatialIndex) Build(points []vox.Vector3d) {
	si.Grid = make(map[cellKey][]int, len(points)/4+1)
	for i, p := range points {
		k := si.cell(p)
		si.Grid[k] = append(si.Grid[k], i)
	}
}

// RegionQuery appends to dst the indices of points within eps of points[idx],
// including idx itself, and returns the extended slice.
func (si *SpatialIndex) RegionQuery(dst []int, points []vox.Vector3d, idx int, eps float64) []int {
	p := points[idx]
	eps2 := eps * eps
	c := si.cell(p)
	var k cellKey
	for dx := int64(-1); dx <= 1; dx++ {
		k[0] = c[0] + dx
		for dy := int64(-1); dy <= 1; dy++ {
			k[1] = c[1] + dy
			for dz := int64(-1); dz <= 1; dz++ {
				k[2] = c[2] + dz
				for _, j := range si.Grid[k] {
					if p.DistanceSquared(points[j]) <= eps2 {
						dst = append(dst, j)
					}
				}
			}
		}
	}
	return dst
}

// NeighborCounts returns, for each point, how many points (itself included) lie
// within eps of it.
func NeighborCounts(points []vox.Vector3d, eps float64) []int {
	si := NewSpatialIndex(eps)
	si.Build(points)
	counts := make([]int, len(points))
	var buf []int
	for i := range points {
		buf = si.RegionQuery(buf[:0], points, i, eps)
		counts[i] = len(buf)
	}
	return counts
}
