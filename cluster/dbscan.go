package cluster

import (
	"fmt"
	"math"

	"github.com/janelia-flyem/cellvox/vox"
)

// Noise is the label given to points that belong to no cluster.
const Noise = -1

const unvisited = -2

// Params are the DBSCAN density parameters.  A point is a core point when at least
// MinPts points, itself included, lie within Eps of it.
type Params struct {
	Eps    float64
	MinPts int
}

func (p Params) Validate() error {
	if !(p.Eps > 0) || math.IsInf(p.Eps, 1) {
		return fmt.Errorf("eps must be finite and positive, got %g", p.Eps)
	}
	if p.MinPts < 1 {
		return fmt.Errorf("min points must be at least 1, got %d", p.MinPts)
	}
	return nil
}

// Result holds one label per input point.  Clusters are numbered from 0 in the order
// they are discovered while scanning the points; noise is labeled Noise.
type Result struct {
	Labels      []int
	NumClusters int
}

// MaxLabel returns the highest label, or Noise if every point is noise.
func (r Result) MaxLabel() int {
	return r.NumClusters - 1
}

// Sizes returns the number of points in each cluster.
func (r Result) Sizes() []int {
	sizes := make([]int, r.NumClusters)
	for _, l := range r.Labels {
		if l >= 0 {
			sizes[l]++
		}
	}
	return sizes
}

// NoiseCount returns the number of points labeled Noise.
func (r Result) NoiseCount() int {
	var n int
	for _, l := range r.Labels {
		if l == Noise {
			n++
		}
	}
	return n
}

// DBSCAN clusters points by density.  Border points reachable from several clusters
// join the first one that reaches them.
func DBSCAN(points []vox.Vector3d, params Params) (Result, error) {
	if err := params.Validate(); err != nil {
		return Result{}, err
	}
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = unvisited
	}
	si := NewSpatialIndex(params.Eps)
	si.Build(points)

	var cluster int
	var neighbors, queue []int
	for i := range points {
		if labels[i] != unvisited {
			continue
		}
		neighbors = si.RegionQuery(neighbors[:0], points, i, params.Eps)
		if len(neighbors) < params.MinPts {
			labels[i] = Noise
			continue
		}
		labels[i] = cluster
		queue = append(queue[:0], neighbors...)
		for q := 0; q < len(queue); q++ {
			j := queue[q]
			if labels[j] == Noise {
				labels[j] = cluster
				continue
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster
			neighbors = si.RegionQuery(neighbors[:0], points, j, params.Eps)
			if len(neighbors) >= params.MinPts {
				for _, n := range neighbors {
					if labels[n] == unvisited || labels[n] == Noise {
						queue = append(queue, n)
					}
				}
			}
		}
		cluster++
	}
	vox.Debugf("DBSCAN eps %g min points %d: %d clusters from %d points\n", params.Eps, params.MinPts, cluster, len(points))
	return Result{Labels: labels, NumClusters: cluster}, nil
}
