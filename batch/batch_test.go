package batch

import (
	"testing"

	gc "github.com/gogpu/graphcore"
	"github.com/gogpu/graphcore/device"
)

// countingDevice wraps device.Null, recording every drawArraysInstanced
// call so tests can assert on flush behavior without a real GPU.
type countingDevice struct {
	device.Null
	draws []int
}

func (c *countingDevice) DrawArraysInstanced(vertexCount, instanceCount int) error {
	c.draws = append(c.draws, instanceCount)
	return nil
}

func TestNew_RejectsNonPositiveMaxInstances(t *testing.T) {
	if _, err := New(&device.Null{}, 0); err == nil {
		t.Error("New() with maxInstances=0 should error")
	}
}

func straightEdge(width float64) Edge {
	return Edge{
		Source:    gc.Point{X: 0, Y: 0},
		Target:    gc.Point{X: 10, Y: 0},
		LineWidth: width,
		LineColor: gc.RGBA{R: 1, G: 0, B: 0, A: 1},
	}
}

// TestBatcher_ImplicitFlushAtMaxInstances: with maxInstances=2, three
// consecutive draw calls produce exactly two flushes — one implicit
// after the second call, one from the explicit EndBatch.
func TestBatcher_ImplicitFlushAtMaxInstances(t *testing.T) {
	dev := &countingDevice{}
	b, err := New(dev, 2)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	b.StartFrame(gc.Identity(), gc.RGBA{R: 1, G: 1, B: 1, A: 1}, false)
	b.StartBatch()

	for i := 0; i < 3; i++ {
		if err := b.Draw(straightEdge(2), uint32(i)); err != nil {
			t.Fatalf("Draw() call %d = %v", i, err)
		}
	}
	if b.FlushCount() != 1 {
		t.Fatalf("FlushCount() after 3 draws = %d, want 1 (implicit flush after the 2nd call)", b.FlushCount())
	}

	if err := b.EndBatch(); err != nil {
		t.Fatalf("EndBatch() = %v", err)
	}
	if b.FlushCount() != 2 {
		t.Fatalf("FlushCount() after EndBatch = %d, want 2", b.FlushCount())
	}

	if len(dev.draws) != 2 {
		t.Fatalf("device recorded %d draw calls, want 2", len(dev.draws))
	}
	if dev.draws[0] != 2 {
		t.Errorf("first flush instanceCount = %d, want 2", dev.draws[0])
	}
	if dev.draws[1] != 1 {
		t.Errorf("second flush instanceCount = %d, want 1", dev.draws[1])
	}
}

func TestBatcher_EndBatchIsIdempotentWhenEmpty(t *testing.T) {
	dev := &countingDevice{}
	b, err := New(dev, 4)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	b.StartBatch()
	if err := b.EndBatch(); err != nil {
		t.Fatalf("EndBatch() = %v", err)
	}
	if b.FlushCount() != 0 {
		t.Errorf("FlushCount() = %d, want 0 for an empty batch", b.FlushCount())
	}
	if len(dev.draws) != 0 {
		t.Errorf("device recorded %d draw calls, want 0", len(dev.draws))
	}
}

func TestBatcher_DrawRejectsNonFiniteEndpoint(t *testing.T) {
	dev := &device.Null{}
	b, err := New(dev, 4)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	b.StartBatch()
	nan := straightEdge(2)
	nan.Source.X = posInf()
	if err := b.Draw(nan, 0); err == nil {
		t.Error("Draw() with a non-finite endpoint should error")
	}
}

func posInf() float64 {
	var zero float64
	return 1 / zero
}

// TestBatcher_DrawSkipsArrowWithNonFiniteTransform: a NaN arrow position
// or angle upstream yields a non-finite transform; the edge is still
// recorded, but the offending arrow's draw flag is cleared while the
// other arrow survives.
func TestBatcher_DrawSkipsArrowWithNonFiniteTransform(t *testing.T) {
	dev := &device.Null{}
	b, err := New(dev, 4)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	b.StartBatch()

	edge := straightEdge(2)
	edge.DrawSourceArrow = true
	edge.DrawTargetArrow = true
	edge.SourceArrowTransform = ArrowTransform(gc.Point{X: posInf(), Y: 0}, 0, 2, 1)
	edge.TargetArrowTransform = ArrowTransform(gc.Point{X: 10, Y: 0}, 0, 2, 1)

	if err := b.Draw(edge, 0); err != nil {
		t.Fatalf("Draw() = %v, want the edge accepted with the bad arrow skipped", err)
	}
	if got := b.cpu.drawArrows[0]; got != 0 {
		t.Errorf("source drawArrows flag = %v, want 0 for a non-finite transform", got)
	}
	if got := b.cpu.drawArrows[1]; got != 1 {
		t.Errorf("target drawArrows flag = %v, want 1 for a finite transform", got)
	}
}

// TestPackIndex_LittleEndianNormalized: element index 0x01020304 packs
// to normalized (4/255, 3/255, 2/255, 1/255).
func TestPackIndex_LittleEndianNormalized(t *testing.T) {
	out := make([]float32, 4)
	packIndex(0x01020304, out)

	want := [4]float32{4.0 / 255, 3.0 / 255, 2.0 / 255, 1.0 / 255}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

// TestBlendArrowRGB_AgainstOpaqueWhite: bgColor=(1,1,1,1), arrow RGBA
// (0.2,0,0,0.5) premultiplied blends to (0.7,0.5,0.5).
func TestBlendArrowRGB_AgainstOpaqueWhite(t *testing.T) {
	r, g, bl := BlendArrowRGB([4]float32{0.2, 0, 0, 0.5}, gc.RGBA{R: 1, G: 1, B: 1, A: 1})
	const eps = 1e-6
	if absDiff32(r, 0.7) > eps || absDiff32(g, 0.5) > eps || absDiff32(bl, 0.5) > eps {
		t.Errorf("BlendArrowRGB() = (%v,%v,%v), want (0.7,0.5,0.5)", r, g, bl)
	}
}

func absDiff32(a, b float32) float32 {
	if a < b {
		return b - a
	}
	return a - b
}

func TestArrowTransform_ScalesByLineWidthAndArrowScale(t *testing.T) {
	size := ArrowSize(4, 1.5)
	if size != 6 {
		t.Errorf("ArrowSize(4, 1.5) = %v, want 6", size)
	}

	m := ArrowTransform(gc.Point{X: 10, Y: 20}, 0, 4, 1.5)
	if m.C != 10 || m.F != 20 {
		t.Errorf("ArrowTransform translation = (%v,%v), want (10,20)", m.C, m.F)
	}
	if m.A != 6 || m.E != 6 {
		t.Errorf("ArrowTransform scale = (%v,%v), want (6,6)", m.A, m.E)
	}
}

func TestStaticGeometry_TwelveVerticesPerInstance(t *testing.T) {
	if VertexCount != 12 {
		t.Errorf("VertexCount = %d, want 12", VertexCount)
	}
	bytes := staticGeometryBytes()
	if len(bytes) != 12*3*4 {
		t.Errorf("staticGeometryBytes() len = %d, want %d", len(bytes), 12*3*4)
	}
}
