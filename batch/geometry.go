package batch

import "math"

// vertType selects which block of the vertex shader executes for a
// given static vertex.
type vertType float32

const (
	vertLine        vertType = 0
	vertSourceArrow vertType = 1
	vertTargetArrow vertType = 2
)

// staticVertex is one of the 12 per-instance static vertices: a local
// position consumed differently per vertType, and the vertType
// discriminant itself.
type staticVertex struct {
	x, y float32
	t    vertType
}

// staticGeometry is the fixed 12-vertex layout every instance shares: six
// line vertices forming a unit rectangle from (0,±0.5) to (1,±0.5), three
// source-arrow vertices and three target-arrow vertices forming unit
// triangles pointing along +x in their own local transformed space.
var staticGeometry = [12]staticVertex{
	// Line quad, two triangles.
	{0, -0.5, vertLine},
	{1, -0.5, vertLine},
	{1, 0.5, vertLine},
	{0, -0.5, vertLine},
	{1, 0.5, vertLine},
	{0, 0.5, vertLine},

	// Source arrow triangle: apex at the origin, base toward -x, so the
	// transform's translate/rotate places the apex at the edge endpoint.
	{0, 0, vertSourceArrow},
	{-1, -0.5, vertSourceArrow},
	{-1, 0.5, vertSourceArrow},

	// Target arrow triangle, same local shape as the source arrow — only
	// the transform differs.
	{0, 0, vertTargetArrow},
	{-1, -0.5, vertTargetArrow},
	{-1, 0.5, vertTargetArrow},
}

// VertexCount is the number of static vertices per instance
// (drawArraysInstanced's vertexCount argument).
const VertexCount = len(staticGeometry)

// staticGeometryBytes packs staticGeometry into the tightly interleaved
// (x, y, vertType) float32 triples a static attribute buffer expects.
func staticGeometryBytes() []byte {
	buf := make([]byte, 0, len(staticGeometry)*3*4)
	for _, v := range staticGeometry {
		buf = appendFloat32(buf, v.x)
		buf = appendFloat32(buf, v.y)
		buf = appendFloat32(buf, float32(v.t))
	}
	return buf
}

func appendFloat32(buf []byte, f float32) []byte {
	bits := math.Float32bits(f)
	return append(buf, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
}
