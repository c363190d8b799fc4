/*
Package vox provides the core types and ambient services shared by the cellvox
packages: physical and voxel coordinates, colors, scale factors, leveled logging,
and compressed serialization of byte payloads.

It has no dependencies on the other cellvox packages so that any of them can
import it.
*/
package vox
