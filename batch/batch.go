// Package batch implements the instanced edge batcher. Per-edge
// attributes are accumulated into typed buffer views and flushed to the
// GPU as a single drawArraysInstanced call, either on reaching
// maxInstances or at frame end.
package batch

import (
	_ "embed"
	"errors"
	"fmt"

	gc "github.com/gogpu/graphcore"
	"github.com/gogpu/graphcore/device"
)

//go:embed shaders/edge.wgsl
var edgeShaderSource string

const (
	attribPosition     device.AttribLocation = 0
	attribIndex        device.AttribLocation = 2
	attribSourceTarget device.AttribLocation = 3
	attribLineWidth    device.AttribLocation = 4
	attribLineColor    device.AttribLocation = 5
	attribDrawArrows   device.AttribLocation = 6
	attribSrcColor     device.AttribLocation = 7
	attribDstColor     device.AttribLocation = 8
	attribSrcXform     device.AttribLocation = 9
	attribDstXform     device.AttribLocation = 12
)

// ErrInvalidGeometry is returned by Draw when an edge's line endpoints
// are not finite. Non-finite arrow data is handled differently: it
// silently skips just that arrow rather than rejecting the edge.
var ErrInvalidGeometry = errors.New("batch: non-finite edge endpoint")

// Batcher accumulates per-edge instances and flushes them to the GPU
// in draw calls of at most maxInstances instances each.
type Batcher struct {
	dev          device.Device
	maxInstances int

	program device.Program
	vao     device.VertexArray

	staticBuf                                          device.Buffer
	indexBuf, srcTargetBuf, lineWidthBuf, lineColorBuf device.Buffer
	drawArrowsBuf, srcColorBuf, dstColorBuf            device.Buffer
	srcXformBuf, dstXformBuf                           device.Buffer

	cpu *instances

	count      int
	flushCount int

	panZoom gc.Matrix
	bgColor gc.RGBA
	picking bool
}

// New compiles the edge shader and allocates every dynamic buffer sized
// for maxInstances instances.
func New(dev device.Device, maxInstances int) (*Batcher, error) {
	if maxInstances <= 0 {
		return nil, fmt.Errorf("batch: maxInstances must be positive, got %d", maxInstances)
	}

	program, err := dev.CreateProgram(edgeShaderSource, edgeShaderSource)
	if err != nil {
		return nil, fmt.Errorf("batch: compile edge shader: %w", err)
	}
	vao, err := dev.CreateVertexArray()
	if err != nil {
		return nil, fmt.Errorf("batch: create vertex array: %w", err)
	}
	staticBuf, err := dev.CreateStaticBuffer(staticGeometryBytes(), attribPosition)
	if err != nil {
		return nil, fmt.Errorf("batch: create static geometry buffer: %w", err)
	}

	b := &Batcher{
		dev:          dev,
		maxInstances: maxInstances,
		program:      program,
		vao:          vao,
		staticBuf:    staticBuf,
		cpu:          newInstances(maxInstances),
		panZoom:      gc.Identity(),
		bgColor:      gc.RGBA{R: 1, G: 1, B: 1, A: 1},
	}

	if err := b.allocateDynamicBuffers(); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

func (b *Batcher) allocateDynamicBuffers() error {
	type alloc struct {
		dst    *device.Buffer
		stride int
		matrix bool
	}
	allocs := []alloc{
		{&b.indexBuf, 4 * 4, false},
		{&b.srcTargetBuf, 4 * 4, false},
		{&b.lineWidthBuf, 1 * 4, false},
		{&b.lineColorBuf, 4 * 4, false},
		{&b.drawArrowsBuf, 2 * 4, false},
		{&b.srcColorBuf, 4 * 4, false},
		{&b.dstColorBuf, 4 * 4, false},
		{&b.srcXformBuf, 0, true},
		{&b.dstXformBuf, 0, true},
	}
	for _, a := range allocs {
		var buf device.Buffer
		var err error
		if a.matrix {
			buf, err = b.dev.CreateMatrixBuffer(b.maxInstances)
		} else {
			buf, err = b.dev.CreateDynamicBuffer(b.maxInstances, a.stride)
		}
		if err != nil {
			return fmt.Errorf("batch: allocate instance buffer: %w", err)
		}
		*a.dst = buf
	}
	return nil
}

// StartFrame records the per-frame pan/zoom matrix and background color
// (used by the arrow blend) and whether this frame renders the picking
// pass.
func (b *Batcher) StartFrame(panZoomMatrix gc.Matrix, bgColor gc.RGBA, picking bool) {
	b.panZoom = panZoomMatrix
	b.bgColor = bgColor
	b.picking = picking
}

// StartBatch resets the instance count to begin accumulating a new batch.
func (b *Batcher) StartBatch() {
	b.count = 0
}

// Draw records one edge as the next instance, immediately flushing when
// the write brings the count to maxInstances. A non-finite line
// endpoint rejects the edge; a non-finite arrow transform clears that
// arrow's draw flag and keeps the edge (see instances.write).
func (b *Batcher) Draw(edge Edge, elementIndex uint32) error {
	if !finite(edge.Source.X) || !finite(edge.Source.Y) || !finite(edge.Target.X) || !finite(edge.Target.Y) {
		return ErrInvalidGeometry
	}

	n := b.count
	b.cpu.write(n, edge, elementIndex)
	b.count++

	if b.count >= b.maxInstances {
		return b.flush()
	}
	return nil
}

func finite(f float64) bool {
	return f-f == 0
}

// EndBatch flushes any accumulated instances. It is a no-op when the
// count is zero.
func (b *Batcher) EndBatch() error {
	if b.count == 0 {
		return nil
	}
	return b.flush()
}

// FlushCount returns the number of completed flushes (implicit or
// explicit) so far. Exposed for tests; not part of the batcher's
// steady-state operating surface.
func (b *Batcher) FlushCount() int { return b.flushCount }

func (b *Batcher) flush() error {
	n := b.count
	if err := b.dev.BindPipeline(b.program, b.vao); err != nil {
		return fmt.Errorf("batch: bind pipeline: %w", err)
	}
	uploads := []struct {
		buf  device.Buffer
		data []float32
		comp int
	}{
		{b.indexBuf, b.cpu.index, 4},
		{b.srcTargetBuf, b.cpu.srcTarget, 4},
		{b.lineWidthBuf, b.cpu.lineWidth, 1},
		{b.lineColorBuf, b.cpu.lineColor, 4},
		{b.drawArrowsBuf, b.cpu.drawArrows, 2},
		{b.srcColorBuf, b.cpu.srcColor, 4},
		{b.dstColorBuf, b.cpu.dstColor, 4},
		{b.srcXformBuf, b.cpu.srcXform, 9},
		{b.dstXformBuf, b.cpu.dstXform, 9},
	}
	for _, u := range uploads {
		if err := b.dev.UpdateBuffer(u.buf, 0, floatsToBytes(u.data[:n*u.comp])); err != nil {
			return fmt.Errorf("batch: upload instance buffer: %w", err)
		}
	}

	m := b.panZoom
	mat3 := [9]float32{
		float32(m.A), float32(m.D), 0,
		float32(m.B), float32(m.E), 0,
		float32(m.C), float32(m.F), 1,
	}
	if err := b.dev.SetUniformMatrix3(b.program, "panZoomMatrix", mat3); err != nil {
		return fmt.Errorf("batch: set panZoomMatrix: %w", err)
	}
	bg := b.bgColor.PremultipliedRGBA32()
	if err := b.dev.SetUniformVec4(b.program, "bgColor", bg); err != nil {
		return fmt.Errorf("batch: set bgColor: %w", err)
	}
	pickingFlag := int32(0)
	if b.picking {
		pickingFlag = 1
	}
	if err := b.dev.SetUniformInt(b.program, "pickingMode", pickingFlag); err != nil {
		return fmt.Errorf("batch: set pickingMode: %w", err)
	}

	if err := b.dev.DrawArraysInstanced(VertexCount, n); err != nil {
		return fmt.Errorf("batch: draw instanced: %w", err)
	}

	gc.Logger().Debug("batch: flushed edge instances",
		"instances", n, "picking", b.picking)

	b.count = 0
	b.flushCount++
	return nil
}

// Destroy releases every GPU resource the batcher owns.
func (b *Batcher) Destroy() {
	for _, buf := range []device.Buffer{
		b.staticBuf, b.indexBuf, b.srcTargetBuf, b.lineWidthBuf, b.lineColorBuf,
		b.drawArrowsBuf, b.srcColorBuf, b.dstColorBuf, b.srcXformBuf, b.dstXformBuf,
	} {
		if buf != nil {
			b.dev.DeleteBuffer(buf)
		}
	}
	if b.vao != nil {
		b.dev.DeleteVertexArray(b.vao)
	}
	if b.program != nil {
		b.dev.DeleteProgram(b.program)
	}
}
