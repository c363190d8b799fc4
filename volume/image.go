package volume

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/tiff"

	"github.com/janelia-flyem/cellvox/vox"
)

// planeAxes returns the two axes spanning a plane normal to axis, in increasing order.
func planeAxes(axis int) (rows, cols int) {
	switch axis {
	case 0:
		return 1, 2
	case 1:
		return 0, 2
	default:
		return 0, 1
	}
}

// Slice returns the plane at index along a spatial axis as an image whose rows follow
// the lower remaining axis.  One channel gives *image.Gray, three give opaque
// *image.NRGBA, and four are copied into *image.NRGBA as is.
func (v *Volume) Slice(axis, index int) (image.Image, error) {
	if axis < 0 || axis > 2 {
		return nil, fmt.Errorf("slice axis must be 0, 1 or 2, got %d", axis)
	}
	if index < 0 || index >= v.Shape[axis] {
		return nil, fmt.Errorf("slice index %d outside axis %d extent %d", index, axis, v.Shape[axis])
	}
	ra, ca := planeAxes(axis)
	h, w := v.Shape[ra], v.Shape[ca]
	nc := v.Shape[3]
	rect := image.Rect(0, 0, w, h)

	voxelAt := func(r, c int) []uint8 {
		var p [3]int
		p[axis], p[ra], p[ca] = index, r, c
		return v.Voxel(p[0], p[1], p[2])
	}

	switch nc {
	case 1:
		img := image.NewGray(rect)
		for r := 0; r < h; r++ {
			for c := 0; c < w; c++ {
				img.Pix[r*img.Stride+c] = voxelAt(r, c)[0]
			}
		}
		return img, nil
	case 3, 4:
		img := image.NewNRGBA(rect)
		for r := 0; r < h; r++ {
			for c := 0; c < w; c++ {
				px := img.Pix[r*img.Stride+4*c : r*img.Stride+4*c+4]
				copy(px, voxelAt(r, c))
				if nc == 3 {
					px[3] = 255
				}
			}
		}
		return img, nil
	default:
		return nil, fmt.Errorf("cannot make an image from %d channels", nc)
	}
}

// FromImages stacks equally sized images along axis 0.  The result has one channel
// if every image is 8 or 16 bit grayscale and three otherwise.  16 bit values are
// kept as is when the whole stack fits in a byte, as label and mask slices do, and
// are otherwise scaled so the stack maximum becomes 255.
func FromImages(imgs []image.Image) (*Volume, error) {
	if len(imgs) == 0 {
		return nil, fmt.Errorf("no images to stack")
	}
	bounds := imgs[0].Bounds()
	nc := 1
	var max16 uint16
	for i, img := range imgs {
		if img.Bounds().Size() != bounds.Size() {
			return nil, fmt.Errorf("image %d is %s, expected size %s", i, img.Bounds().Size(), bounds.Size())
		}
		switch g := img.(type) {
		case *image.Gray:
		case *image.Gray16:
			max16 = max(max16, gray16Max(g))
		default:
			nc = 3
		}
	}
	v, err := New(Shape{len(imgs), bounds.Dy(), bounds.Dx(), nc})
	if err != nil {
		return nil, err
	}
	for z, img := range imgs {
		b := img.Bounds()
		g16, _ := img.(*image.Gray16)
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				px := v.Voxel(z, y, x)
				switch {
				case nc == 3:
					c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
					px[0], px[1], px[2] = c.R, c.G, c.B
				case g16 != nil:
					px[0] = scale16(g16.Gray16At(b.Min.X+x, b.Min.Y+y).Y, max16)
				default:
					px[0] = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
				}
			}
		}
	}
	return v, nil
}

func gray16Max(img *image.Gray16) uint16 {
	var m uint16
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			m = max(m, img.Gray16At(x, y).Y)
		}
	}
	return m
}

// scale16 maps a 16 bit value to a byte given the maximum of its stack.
func scale16(val, maximum uint16) uint8 {
	if maximum <= 255 {
		return uint8(val)
	}
	return uint8((uint32(val)*255 + uint32(maximum)/2) / uint32(maximum))
}

// WriteTIFFStack writes one deflate-compressed TIFF per index of axis 0, named
// <prefix>_0000.tif and up, and returns the paths written.
func WriteTIFFStack(dir, prefix string, v *Volume) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, v.Shape[0])
	for z := 0; z < v.Shape[0]; z++ {
		img, err := v.Slice(0, z)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%04d.tif", prefix, z))
		if err := WriteTIFF(path, img); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	vox.Debugf("Wrote %d TIFF slices of %s to %s\n", len(paths), v.Shape, dir)
	return paths, nil
}

// EncodeTIFF writes img as a deflate-compressed TIFF.
func EncodeTIFF(w io.Writer, img image.Image) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// WriteTIFF writes a single deflate-compressed TIFF image.
func WriteTIFF(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeTIFF(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding TIFF %q: %v", path, err)
	}
	return f.Close()
}

// ReadTIFFStack reads the given files in order and stacks their images along axis 0.
// Every page of a multi-page file becomes its own index.
func ReadTIFFStack(paths []string) (*Volume, error) {
	var imgs []image.Image
	for _, path := range paths {
		pages, err := ReadTIFFPages(path)
		if err != nil {
			return nil, err
		}
		imgs = append(imgs, pages...)
	}
	return FromImages(imgs)
}
