package pointcloud

import (
	"fmt"
	"io"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// WriteGLB writes the cloud as a binary glTF scene holding a single POINTS primitive.
// Uncolored clouds are written white.
func WriteGLB(w io.Writer, c *Cloud) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Len() == 0 {
		return fmt.Errorf("cannot write an empty point cloud as glTF")
	}
	positions := make([][3]float32, c.Len())
	colors := make([][3]uint8, c.Len())
	for i, p := range c.Points {
		positions[i] = [3]float32{float32(p[0]), float32(p[1]), float32(p[2])}
		if c.HasColors() {
			col := c.Colors[i]
			colors[i] = [3]uint8{colorByte(col[0]), colorByte(col[1]), colorByte(col[2])}
		} else {
			colors[i] = [3]uint8{255, 255, 255}
		}
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = "cellvox"
	posAccessor := modeler.WritePosition(doc, positions)
	colorAccessor := modeler.WriteColor(doc, colors)
	prim := &gltf.Primitive{
		Mode: gltf.PrimitivePoints,
		Attributes: gltf.PrimitiveAttributes{
			gltf.POSITION: posAccessor,
			gltf.COLOR_0:  colorAccessor,
		},
	}
	doc.Meshes = []*gltf.Mesh{{Name: "cells", Primitives: []*gltf.Primitive{prim}}}
	doc.Nodes = []*gltf.Node{{Name: "cells", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	return enc.Encode(doc)
}
