// Package canvas provides the 2D raster-drawing surface the atlas
// subsystem paints into before a region is uploaded to the GPU.
//
// Canvas mirrors the HTML Canvas 2D context contract:
// save/translate/scale/restore plus drawImage and clear. The concrete
// Surface implementation is CPU-backed by a graphcore.Pixmap.
package canvas

import (
	"image"

	"golang.org/x/image/draw"

	gc "github.com/gogpu/graphcore"
)

// Canvas is a 2D drawing surface with a save/restore transform stack.
// Implementations need not be safe for concurrent use; everything here
// runs on the render thread and never shares one across goroutines.
type Canvas interface {
	// Save pushes the current transform onto a stack.
	Save()
	// Restore pops the most recently saved transform.
	Restore()
	// Translate and Scale post-multiply the current transform.
	Translate(x, y float64)
	Scale(x, y float64)
	// DrawImage draws the sw×sh region of src at (sx,sy) into the dw×dh
	// region of the canvas at (dx,dy), scaling as needed, subject to the
	// current transform.
	DrawImage(src image.Image, sx, sy, sw, sh, dx, dy, dw, dh int)
	// Clear fills the entire canvas with transparent black, ignoring the
	// current transform.
	Clear()
	Width() int
	Height() int
	// AsImage exposes the current raster content, letting one Canvas be
	// used as another's DrawImage source — e.g. stitching a scratch
	// canvas's two wrap halves into an atlas's backing canvas.
	AsImage() image.Image
}

// Factory creates a Canvas of the given size. scratch indicates the
// canvas is a collection-owned scratch surface reused across draw calls;
// borrowers clear it themselves, the factory only needs to size it.
// Hosts whose canvases need a rendering context close over it in the
// Factory they supply.
type Factory func(width, height int, scratch bool) Canvas

// Surface is a CPU-backed Canvas over a graphcore.Pixmap.
type Surface struct {
	pix   *gc.Pixmap
	stack []gc.Matrix
	xform gc.Matrix
}

var _ Canvas = (*Surface)(nil)

// NewSurface creates a Surface of the given pixel dimensions.
func NewSurface(width, height int) *Surface {
	return &Surface{
		pix:   gc.NewPixmap(width, height),
		xform: gc.Identity(),
	}
}

// Pixmap exposes the backing pixel buffer, e.g. for upload to the GPU via
// device.Device.UploadImage.
func (s *Surface) Pixmap() *gc.Pixmap { return s.pix }

// AsImage implements Canvas.
func (s *Surface) AsImage() image.Image { return s.pix }

func (s *Surface) Width() int  { return s.pix.Width() }
func (s *Surface) Height() int { return s.pix.Height() }

func (s *Surface) Save() {
	s.stack = append(s.stack, s.xform)
}

func (s *Surface) Restore() {
	if len(s.stack) == 0 {
		return
	}
	n := len(s.stack) - 1
	s.xform = s.stack[n]
	s.stack = s.stack[:n]
}

func (s *Surface) Translate(x, y float64) {
	s.xform = s.xform.Multiply(gc.Translate(x, y))
}

func (s *Surface) Scale(x, y float64) {
	s.xform = s.xform.Multiply(gc.Scale(x, y))
}

func (s *Surface) Clear() {
	s.pix.Clear(gc.Transparent)
}

// DrawImage scales the sw×sh source region to fit the dw×dh destination
// rect located at the transform-adjusted (dx,dy), using bilinear
// interpolation for magnification/minification and nearest-neighbor
// when no scaling is needed.
func (s *Surface) DrawImage(src image.Image, sx, sy, sw, sh, dx, dy, dw, dh int) {
	topLeft := s.xform.TransformPoint(gc.Pt(float64(dx), float64(dy)))
	bottomRight := s.xform.TransformPoint(gc.Pt(float64(dx+dw), float64(dy+dh)))

	srcRect := image.Rect(sx, sy, sx+sw, sy+sh)
	dstRect := image.Rect(int(topLeft.X), int(topLeft.Y), int(bottomRight.X), int(bottomRight.Y))
	if dstRect.Empty() {
		return
	}

	var scaler draw.Interpolator = draw.BiLinear
	if dstRect.Dx() == sw && dstRect.Dy() == sh {
		scaler = draw.NearestNeighbor
	}
	scaler.Scale(s.pix, dstRect, src, srcRect, draw.Over, nil)
}
