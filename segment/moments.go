/*
Package segment extracts cell centroids from stained tissue sections and prepares image
slices for atlas registration.  Image processing is done with OpenCV through gocv.
*/
package segment

import (
	"encoding/csv"
	"image"
	"io"
	"math"
	"strconv"
)

// Moments are the spatial moments of a closed polygon up to first order.
type Moments struct {
	M00, M10, M01 float64
}

// flt32Epsilon below which a contour is considered to enclose no area.
const flt32Epsilon = 1.1920929e-07

// ContourMoments computes the area and first moments of the polygon traced by pts
// using Green's theorem.  Orientation does not matter; degenerate contours such as
// single points or lines give zero moments.
func ContourMoments(pts []image.Point) Moments {
	n := len(pts)
	if n == 0 {
		return Moments{}
	}
	var a00, a10, a01 float64
	prev := pts[n-1]
	for _, p := range pts {
		xp, yp := float64(prev.X), float64(prev.Y)
		x, y := float64(p.X), float64(p.Y)
		dxy := xp*y - x*yp
		a00 += dxy
		a10 += dxy * (xp + x)
		a01 += dxy * (yp + y)
		prev = p
	}
	if math.Abs(a00) <= flt32Epsilon {
		return Moments{}
	}
	sign := 1.0
	if a00 < 0 {
		sign = -1
	}
	return Moments{M00: sign * a00 / 2, M10: sign * a10 / 6, M01: sign * a01 / 6}
}

// Centroid is a cell position in pixel coordinates.
type Centroid struct {
	X, Y int
}

// Centroid returns the integer centroid, truncating toward zero, and false if the
// moments have no area.
func (m Moments) Centroid() (Centroid, bool) {
	if m.M00 == 0 {
		return Centroid{}, false
	}
	return Centroid{X: int(m.M10 / m.M00), Y: int(m.M01 / m.M00)}, true
}

// ContourCentroids returns the centroid of every contour enclosing some area.
func ContourCentroids(contours [][]image.Point) []Centroid {
	centroids := make([]Centroid, 0, len(contours))
	for _, c := range contours {
		if cen, ok := ContourMoments(c).Centroid(); ok {
			centroids = append(centroids, cen)
		}
	}
	return centroids
}

// WriteCentroidsCSV writes an "x,y" header followed by one row per centroid.
func WriteCentroidsCSV(w io.Writer, centroids []Centroid) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"x", "y"}); err != nil {
		return err
	}
	for _, c := range centroids {
		if err := cw.Write([]string{strconv.Itoa(c.X), strconv.Itoa(c.Y)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
