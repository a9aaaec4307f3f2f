package batch

import (
	"math"

	gc "github.com/gogpu/graphcore"
)

// Edge is one instance's worth of input data: endpoints, width, color,
// and the optional source/target arrowheads with their precomputed
// transforms.
type Edge struct {
	Source, Target gc.Point
	LineWidth      float64
	// LineColor's alpha is the edge's opacity; instances stores it
	// premultiplied.
	LineColor gc.RGBA

	DrawSourceArrow, DrawTargetArrow   bool
	SourceArrowColor, TargetArrowColor gc.RGBA
	SourceArrowTransform               gc.Matrix
	TargetArrowTransform               gc.Matrix
}

// instances holds the per-instance attribute buffers as flat float32
// slices sized for maxInstances, written by direct index assignment to
// avoid allocator pressure on the hot path.
type instances struct {
	max int

	index      []float32 // 4 components
	srcTarget  []float32 // 4
	lineWidth  []float32 // 1
	lineColor  []float32 // 4
	drawArrows []float32 // 2
	srcColor   []float32 // 4
	dstColor   []float32 // 4
	srcXform   []float32 // 9
	dstXform   []float32 // 9
}

func newInstances(max int) *instances {
	return &instances{
		max:        max,
		index:      make([]float32, max*4),
		srcTarget:  make([]float32, max*4),
		lineWidth:  make([]float32, max),
		lineColor:  make([]float32, max*4),
		drawArrows: make([]float32, max*2),
		srcColor:   make([]float32, max*4),
		dstColor:   make([]float32, max*4),
		srcXform:   make([]float32, max*9),
		dstXform:   make([]float32, max*9),
	}
}

// write records edge as instance n. An arrow whose transform carries a
// non-finite component (a NaN position or angle upstream) has its
// drawArrows flag forced to 0, silently skipping that arrow. Arrow
// transforms/colors are only meaningful when the corresponding flag is
// set; the vertex shader discards the arrow vertices otherwise, so the
// values written when a flag is false are never sampled.
func (ins *instances) write(n int, edge Edge, elementIndex uint32) {
	packIndex(elementIndex, ins.index[n*4:n*4+4])

	ins.srcTarget[n*4+0] = float32(edge.Source.X)
	ins.srcTarget[n*4+1] = float32(edge.Source.Y)
	ins.srcTarget[n*4+2] = float32(edge.Target.X)
	ins.srcTarget[n*4+3] = float32(edge.Target.Y)

	ins.lineWidth[n] = float32(edge.LineWidth)

	premul := edge.LineColor.PremultipliedRGBA32()
	copy(ins.lineColor[n*4:n*4+4], premul[:])

	drawSource := edge.DrawSourceArrow && matrixFinite(edge.SourceArrowTransform)
	drawTarget := edge.DrawTargetArrow && matrixFinite(edge.TargetArrowTransform)
	ins.drawArrows[n*2+0] = boolToFloat32(drawSource)
	ins.drawArrows[n*2+1] = boolToFloat32(drawTarget)

	srcPremul := edge.SourceArrowColor.PremultipliedRGBA32()
	copy(ins.srcColor[n*4:n*4+4], srcPremul[:])
	dstPremul := edge.TargetArrowColor.PremultipliedRGBA32()
	copy(ins.dstColor[n*4:n*4+4], dstPremul[:])

	writeMat3ColumnMajor(edge.SourceArrowTransform, ins.srcXform[n*9:n*9+9])
	writeMat3ColumnMajor(edge.TargetArrowTransform, ins.dstXform[n*9:n*9+9])
}

func boolToFloat32(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// matrixFinite reports whether every component of m is finite.
func matrixFinite(m gc.Matrix) bool {
	return finite(m.A) && finite(m.B) && finite(m.C) &&
		finite(m.D) && finite(m.E) && finite(m.F)
}

// writeMat3ColumnMajor expands a 2D affine Matrix into the column-major
// 3x3 float32 layout the matrix attribute buffer expects: columns
// (A,D,0), (B,E,0), (C,F,1).
func writeMat3ColumnMajor(m gc.Matrix, out []float32) {
	out[0] = float32(m.A)
	out[1] = float32(m.D)
	out[2] = 0
	out[3] = float32(m.B)
	out[4] = float32(m.E)
	out[5] = 0
	out[6] = float32(m.C)
	out[7] = float32(m.F)
	out[8] = 1
}

// ArrowTransform builds the 3x3 affine transform for one arrowhead:
// translate(pos) * rotate(angle) * scale(size), with size derived from
// the line width and an arrow-scale factor.
func ArrowTransform(pos gc.Point, angle float64, lineWidth, arrowScale float64) gc.Matrix {
	size := ArrowSize(lineWidth, arrowScale)
	return gc.Translate(pos.X, pos.Y).
		Multiply(gc.Rotate(angle)).
		Multiply(gc.Scale(size, size))
}

// ArrowSize computes an arrowhead's edge length from the line width it
// caps and a style-level scale factor.
func ArrowSize(lineWidth, arrowScale float64) float64 {
	return lineWidth * arrowScale
}

// packIndex writes elementIndex's four bytes, least-significant first,
// normalized to [0,1] per channel — the picking-mode index encoding the
// fragment shader echoes back. 0x01020304 packs to
// (4/255, 3/255, 2/255, 1/255).
func packIndex(elementIndex uint32, out []float32) {
	out[0] = float32(byte(elementIndex)) / 255
	out[1] = float32(byte(elementIndex>>8)) / 255
	out[2] = float32(byte(elementIndex>>16)) / 255
	out[3] = float32(byte(elementIndex>>24)) / 255
}

// floatsToBytes packs every entry of src into its tightly-interleaved
// little-endian byte representation for upload via Device.UpdateBuffer;
// flush passes only the first n*components entries.
func floatsToBytes(src []float32) []byte {
	out := make([]byte, len(src)*4)
	for i, f := range src {
		bits := math.Float32bits(f)
		out[i*4+0] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}
