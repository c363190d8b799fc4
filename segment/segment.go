package segment

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/janelia-flyem/cellvox/vox"
)

// toGray returns a single-channel copy of img.  The caller must close it.
func toGray(img gocv.Mat) (gocv.Mat, error) {
	gray := gocv.NewMat()
	switch img.Channels() {
	case 1:
		img.CopyTo(&gray)
	case 3:
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(img, &gray, gocv.ColorBGRAToGray)
	default:
		gray.Close()
		return gocv.NewMat(), fmt.Errorf("cannot convert %d-channel image to gray", img.Channels())
	}
	return gray, nil
}

// Threshold binarizes img with Otsu's method.  The caller must close the result.
func Threshold(img gocv.Mat) (gocv.Mat, error) {
	gray, err := toGray(img)
	if err != nil {
		return gray, err
	}
	defer gray.Close()

	binary := gocv.NewMat()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	return binary, nil
}

// Centroids segments img by Otsu thresholding and returns the centroid of each outer
// contour that encloses some area.
func Centroids(img gocv.Mat) ([]Centroid, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}
	binary, err := Threshold(img)
	if err != nil {
		return nil, err
	}
	defer binary.Close()

	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	return ContourCentroids(contours.ToPoints()), nil
}

// SegmentFile reads an image file and returns its cell centroids.
func SegmentFile(path string) ([]Centroid, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return nil, fmt.Errorf("could not read image %q", path)
	}
	defer img.Close()

	timedLog := vox.NewTimeLog()
	centroids, err := Centroids(img)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	timedLog.Debugf("Segmented %s into %d centroids", path, len(centroids))
	return centroids, nil
}
