package segment

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"github.com/janelia-flyem/cellvox/volume"
)

// PreprocessConfig sets the smoothing applied before edge detection.
type PreprocessConfig struct {
	// MedianRadius gives a median filter window of 2*MedianRadius+1 pixels.
	// Zero skips the filter.
	MedianRadius int
}

// Preprocess median-filters img and replaces it with its Sobel gradient magnitude,
// saturated to 8 bits.  Color images are processed per channel.  The caller must
// close the result.
func Preprocess(img gocv.Mat, cfg PreprocessConfig) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), fmt.Errorf("empty image")
	}
	if cfg.MedianRadius < 0 {
		return gocv.NewMat(), fmt.Errorf("median radius must be non-negative, got %d", cfg.MedianRadius)
	}
	if img.Channels() == 1 {
		return preprocessPlane(img, cfg), nil
	}

	planes := gocv.Split(img)
	out := make([]gocv.Mat, len(planes))
	for i, p := range planes {
		out[i] = preprocessPlane(p, cfg)
		p.Close()
	}
	merged := gocv.NewMat()
	gocv.Merge(out, &merged)
	for _, m := range out {
		m.Close()
	}
	return merged, nil
}

func preprocessPlane(plane gocv.Mat, cfg PreprocessConfig) gocv.Mat {
	smoothed := gocv.NewMat()
	defer smoothed.Close()
	if cfg.MedianRadius > 0 {
		gocv.MedianBlur(plane, &smoothed, 2*cfg.MedianRadius+1)
	} else {
		plane.CopyTo(&smoothed)
	}

	gx := gocv.NewMat()
	defer gx.Close()
	gy := gocv.NewMat()
	defer gy.Close()
	gocv.Sobel(smoothed, &gx, gocv.MatTypeCV32F, 1, 0, 3, 1, 0, gocv.BorderReplicate)
	gocv.Sobel(smoothed, &gy, gocv.MatTypeCV32F, 0, 1, 3, 1, 0, gocv.BorderReplicate)

	mag := gocv.NewMat()
	defer mag.Close()
	gocv.Magnitude(gx, gy, &mag)

	edges := gocv.NewMat()
	mag.ConvertTo(&edges, gocv.MatTypeCV8U)
	return edges
}

// PreprocessFile reads an image file and returns the preprocessed version of each of
// its pages.  TIFF pages are stacked first, so they must share a size, and 16 bit
// pages are brought to 8 bits the way volume.FromImages does.
func PreprocessFile(path string, cfg PreprocessConfig) ([]image.Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
	default:
		img := gocv.IMRead(path, gocv.IMReadUnchanged)
		if img.Empty() {
			return nil, fmt.Errorf("could not read image %q", path)
		}
		defer img.Close()
		out, err := preprocessToImage(img, cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", path, err)
		}
		return []image.Image{out}, nil
	}

	stack, err := volume.ReadTIFFStack([]string{path})
	if err != nil {
		return nil, err
	}
	outs := make([]image.Image, stack.Shape[0])
	for z := range outs {
		page, err := stack.Slice(0, z)
		if err != nil {
			return nil, err
		}
		var mat gocv.Mat
		if gray, ok := page.(*image.Gray); ok {
			mat, err = gocv.ImageGrayToMatGray(gray)
		} else {
			mat, err = gocv.ImageToMatRGB(page)
		}
		if err != nil {
			return nil, fmt.Errorf("%s page %d: %v", path, z, err)
		}
		outs[z], err = preprocessToImage(mat, cfg)
		mat.Close()
		if err != nil {
			return nil, fmt.Errorf("%s page %d: %v", path, z, err)
		}
	}
	return outs, nil
}

func preprocessToImage(img gocv.Mat, cfg PreprocessConfig) (image.Image, error) {
	out, err := Preprocess(img, cfg)
	if err != nil {
		return nil, err
	}
	defer out.Close()
	return out.ToImage()
}
