package cluster

import "github.com/janelia-flyem/cellvox/vox"

// tab20 is the 20-color qualitative palette commonly used for categorical labels.
var tab20 = [20][3]uint8{
	{0x1f, 0x77, 0xb4}, {0xae, 0xc7, 0xe8}, {0xff, 0x7f, 0x0e}, {0xff, 0xbb, 0x78},
	{0x2c, 0xa0, 0x2c}, {0x98, 0xdf, 0x8a}, {0xd6, 0x27, 0x28}, {0xff, 0x98, 0x96},
	{0x94, 0x67, 0xbd}, {0xc5, 0xb0, 0xd5}, {0x8c, 0x56, 0x4b}, {0xc4, 0x9c, 0x94},
	{0xe3, 0x77, 0xc2}, {0xf7, 0xb6, 0xd2}, {0x7f, 0x7f, 0x7f}, {0xc7, 0xc7, 0xc7},
	{0xbc, 0xbd, 0x22}, {0xdb, 0xdb, 0x8d}, {0x17, 0xbe, 0xcf}, {0x9e, 0xda, 0xe5},
}

// Tab20 maps x in [0,1] onto the palette.  Values outside the range are clamped.
func Tab20(x float64) vox.Color {
	i := int(x * 20)
	switch {
	case x < 0:
		i = 0
	case i > 19:
		i = 19
	}
	c := tab20[i]
	return vox.Color{float64(c[0]) / 255, float64(c[1]) / 255, float64(c[2]) / 255}
}

// Colorize colors each label by its position between 0 and maxLabel on the palette.
// Noise stays black.
func Colorize(labels []int, maxLabel int) []vox.Color {
	denom := float64(maxLabel)
	if maxLabel <= 0 {
		denom = 1
	}
	colors := make([]vox.Color, len(labels))
	for i, l := range labels {
		if l < 0 {
			continue
		}
		colors[i] = Tab20(float64(l) / denom)
	}
	return colors
}
