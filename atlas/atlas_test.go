package atlas

import (
	"errors"
	"testing"

	"github.com/gogpu/graphcore/canvas"
	"github.com/gogpu/graphcore/device"
)

func testFactory(width, height int, _ bool) canvas.Canvas {
	return canvas.NewSurface(width, height)
}

func noopPaint(canvas.Canvas, BBox) {}

func TestNew_InvalidDimensions(t *testing.T) {
	if _, err := New(0, 1, testFactory); err == nil {
		t.Error("New(0, ...) should error")
	}
	if _, err := New(100, 0, testFactory); err == nil {
		t.Error("New(..., 0, ...) should error")
	}
	if _, err := New(100, 101, testFactory); err == nil {
		t.Error("New with texRows > texSize should error")
	}
}

func TestAtlas_RowHeight(t *testing.T) {
	a, err := New(100, 2, testFactory)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if a.RowHeight() != 50 {
		t.Errorf("RowHeight() = %d, want 50", a.RowHeight())
	}
	if a.TexSize() != 100 {
		t.Errorf("TexSize() = %d, want 100", a.TexSize())
	}
}

// TestAtlas_DrawWrapsAcrossRowBoundary: a texSize=100, texRows=2 atlas
// (rowHeight=50) receives an 80×50 entry followed by a 40×50 entry that
// wraps across the row boundary.
func TestAtlas_DrawWrapsAcrossRowBoundary(t *testing.T) {
	a, err := New(100, 2, testFactory)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	scratch := testFactory(100, a.RowHeight(), true)

	entryA, err := a.Draw("A", BBox{W: 80, H: 50}, noopPaint, scratch)
	if err != nil {
		t.Fatalf("Draw(A) = %v", err)
	}
	wantA := Rect{X: 0, Y: 0, W: 80, H: 50}
	if entryA.First != wantA || entryA.Wrapped() {
		t.Errorf("Draw(A) = %+v, want First=%+v unwrapped", entryA, wantA)
	}
	if a.cursorX != 80 || a.cursorRow != 0 {
		t.Errorf("cursor after A = (%d,%d), want (80,0)", a.cursorX, a.cursorRow)
	}

	entryB, err := a.Draw("B", BBox{W: 40, H: 50}, noopPaint, scratch)
	if err != nil {
		t.Fatalf("Draw(B) = %v", err)
	}
	wantLoc1 := Rect{X: 80, Y: 0, W: 20, H: 50}
	wantLoc2 := Rect{X: 0, Y: 50, W: 20, H: 50}
	if entryB.First != wantLoc1 || entryB.Second != wantLoc2 || !entryB.Wrapped() {
		t.Errorf("Draw(B) = %+v, want First=%+v Second=%+v wrapped", entryB, wantLoc1, wantLoc2)
	}
	if a.cursorX != 20 || a.cursorRow != 1 {
		t.Errorf("cursor after B = (%d,%d), want (20,1)", a.cursorX, a.cursorRow)
	}
}

// TestAtlas_CanFitRejectsOnceLastRowInUse follows the wrap placements
// above with a third entry too wide for the remaining space, confirming
// CanFit/Draw agree that no placement exists once the last row is in
// use.
func TestAtlas_CanFitRejectsOnceLastRowInUse(t *testing.T) {
	a, err := New(100, 2, testFactory)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	scratch := testFactory(100, a.RowHeight(), true)

	if _, err := a.Draw("A", BBox{W: 80, H: 50}, noopPaint, scratch); err != nil {
		t.Fatalf("Draw(A) = %v", err)
	}
	if _, err := a.Draw("B", BBox{W: 40, H: 50}, noopPaint, scratch); err != nil {
		t.Fatalf("Draw(B) = %v", err)
	}

	bbC := BBox{W: 100, H: 50}
	if a.CanFit(bbC) {
		t.Error("CanFit(C) = true, want false once the last row is in use")
	}
	if _, err := a.Draw("C", bbC, noopPaint, scratch); !errors.Is(err, ErrNotEnoughRoom) {
		t.Errorf("Draw(C) = %v, want ErrNotEnoughRoom", err)
	}
}

func TestAtlas_DrawIntoLockedAtlas(t *testing.T) {
	a, err := New(100, 2, testFactory)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	a.Lock()
	scratch := testFactory(100, a.RowHeight(), true)
	if _, err := a.Draw("A", BBox{W: 10, H: 50}, noopPaint, scratch); !errors.Is(err, ErrAtlasLocked) {
		t.Errorf("Draw() on locked atlas = %v, want ErrAtlasLocked", err)
	}
	if a.CanFit(BBox{W: 10, H: 50}) {
		t.Error("CanFit() on locked atlas = true, want false")
	}
}

func TestAtlas_GetOffsetsMissingKey(t *testing.T) {
	a, err := New(100, 2, testFactory)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if _, ok := a.GetOffsets("missing"); ok {
		t.Error("GetOffsets(missing) reported present")
	}
}

func TestAtlas_KeysReflectsMembership(t *testing.T) {
	a, err := New(100, 2, testFactory)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	scratch := testFactory(100, a.RowHeight(), true)
	if _, err := a.Draw("A", BBox{W: 10, H: 50}, noopPaint, scratch); err != nil {
		t.Fatalf("Draw(A) = %v", err)
	}
	if _, err := a.Draw("B", BBox{W: 10, H: 50}, noopPaint, scratch); err != nil {
		t.Fatalf("Draw(B) = %v", err)
	}
	keys := a.Keys()
	if len(keys) != 2 {
		t.Fatalf("Keys() = %v, want 2 entries", keys)
	}
}

func TestAtlas_BufferIfNeededAndDispose(t *testing.T) {
	a, err := New(16, 2, testFactory)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	scratch := testFactory(16, a.RowHeight(), true)
	if _, err := a.Draw("A", BBox{W: 8, H: 8}, noopPaint, scratch); err != nil {
		t.Fatalf("Draw(A) = %v", err)
	}

	dev := &device.Null{}
	desc := func() device.TextureDescriptor {
		return device.DefaultTextureDescriptor(16, 16, 0)
	}

	if !a.IsDirty() {
		t.Fatal("atlas should be dirty after a draw")
	}
	if err := a.BufferIfNeeded(dev, desc); err != nil {
		t.Fatalf("BufferIfNeeded() = %v", err)
	}
	if a.IsDirty() {
		t.Error("atlas still dirty after BufferIfNeeded")
	}
	if a.Texture() == nil {
		t.Error("Texture() = nil after BufferIfNeeded")
	}

	a.Dispose(dev)
	if !a.Locked() {
		t.Error("Dispose() should lock the atlas")
	}
	if a.Texture() != nil {
		t.Error("Texture() should be nil after Dispose")
	}
	if a.Canvas() != nil {
		t.Error("Canvas() should be nil after Dispose")
	}
}

func TestAtlas_BufferIfNeededReleasesCanvasWhenLocked(t *testing.T) {
	a, err := New(16, 2, testFactory)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	scratch := testFactory(16, a.RowHeight(), true)
	if _, err := a.Draw("A", BBox{W: 8, H: 8}, noopPaint, scratch); err != nil {
		t.Fatalf("Draw(A) = %v", err)
	}
	a.Lock()

	dev := &device.Null{}
	desc := func() device.TextureDescriptor { return device.DefaultTextureDescriptor(16, 16, 0) }
	if err := a.BufferIfNeeded(dev, desc); err != nil {
		t.Fatalf("BufferIfNeeded() = %v", err)
	}
	if a.Canvas() != nil {
		t.Error("Canvas() should be released once a locked atlas is buffered")
	}
}
