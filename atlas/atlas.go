// Package atlas implements the texture-atlas cache: a single fixed-size
// square texture with cursor-based row-wrap placement, and the
// collection that manages an ordered list of atlases with mark-and-sweep
// GC.
package atlas

import (
	"errors"
	"fmt"

	"github.com/gogpu/graphcore/canvas"
	"github.com/gogpu/graphcore/device"
)

// Rect is a placed region in atlas-texture pixel space.
type Rect struct {
	X, Y, W, H int
}

// Entry records where a style key's pixels landed: one region for an
// entry that fits a single row, two when it wraps onto the next row.
// Second.W == 0 means non-wrapped.
type Entry struct {
	First, Second Rect
}

// Wrapped reports whether the entry spans the tail of one row and the
// head of the next.
func (e Entry) Wrapped() bool { return e.Second.W != 0 }

// BBox is the destination bounding box a render-type callback reports
// for one element, in the untransformed coordinate space paint draws in.
type BBox struct {
	X1, Y1 float64
	W, H   float64
}

// PaintFunc draws one element's content into cv, as if cv's origin were
// bb's top-left corner — the atlas applies the translate+scale that maps
// bb into the destination region before invoking PaintFunc.
type PaintFunc func(cv canvas.Canvas, bb BBox)

var (
	// ErrAtlasLocked is returned by Draw on a locked atlas. This is a
	// programmer error: callers must consult CanFit/Locked state before
	// drawing.
	ErrAtlasLocked = errors.New("atlas: draw into locked atlas")

	// ErrNotEnoughRoom is returned by Draw when no placement is possible.
	// AtlasCollection recovers from this by locking the atlas and
	// allocating a fresh one.
	ErrNotEnoughRoom = errors.New("atlas: not enough room")
)

// Atlas is one fixed-size square texture and its CPU raster canvas,
// partitioned into texRows equal-height rows. Placement advances a
// single cursor left-to-right, top-to-bottom, wrapping an entry's tail
// onto the next row when the current row runs out.
type Atlas struct {
	texSize   int
	texRows   int
	rowHeight int

	cursorX   int
	cursorRow int
	locked    bool

	entries map[string]Entry
	dirty   bool

	cv      canvas.Canvas
	factory canvas.Factory

	texture device.Texture
}

// New creates an unlocked atlas of texSize×texSize pixels divided into
// texRows rows, using factory to allocate its CPU canvas.
func New(texSize, texRows int, factory canvas.Factory) (*Atlas, error) {
	if texSize <= 0 {
		return nil, fmt.Errorf("atlas: texSize must be positive, got %d", texSize)
	}
	if texRows <= 0 || texRows > texSize {
		return nil, fmt.Errorf("atlas: texRows must be in (0,texSize], got %d", texRows)
	}
	return &Atlas{
		texSize:   texSize,
		texRows:   texRows,
		rowHeight: texSize / texRows,
		entries:   make(map[string]Entry),
		cv:        factory(texSize, texSize, false),
		factory:   factory,
	}, nil
}

// Locked reports whether the atlas accepts no further placements.
func (a *Atlas) Locked() bool { return a.locked }

// IsDirty reports whether the CPU canvas has uncommitted pixels.
func (a *Atlas) IsDirty() bool { return a.dirty }

// Keys returns the style keys currently present. The entry map is the
// authoritative membership predicate.
func (a *Atlas) Keys() []string {
	keys := make([]string, 0, len(a.entries))
	for k := range a.entries {
		keys = append(keys, k)
	}
	return keys
}

// scale computes the fit-to-row-height scale factor for bb, refitting to
// width if the height-fit would overflow texSize.
func (a *Atlas) scale(bb BBox) (scale, texW, texH float64) {
	scale = float64(a.rowHeight) / bb.H
	if bb.W*scale > float64(a.texSize) {
		scale = float64(a.texSize) / bb.W
	}
	return scale, bb.W * scale, bb.H * scale
}

// CanFit reports whether bb can be placed. A locked atlas fits nothing;
// otherwise bb fits if its scaled width leaves room in the current row,
// or a row remains below to wrap into.
func (a *Atlas) CanFit(bb BBox) bool {
	if a.locked {
		return false
	}
	_, texW, _ := a.scale(bb)
	if float64(a.cursorX)+texW <= float64(a.texSize) {
		return true
	}
	return a.cursorRow < a.texRows-1
}

// GetOffsets returns the placement recorded for key, if present.
func (a *Atlas) GetOffsets(key string) (Entry, bool) {
	e, ok := a.entries[key]
	return e, ok
}

// Lock flips the atlas into its terminal locked state. Once locked the
// atlas accepts no further placements and its CPU canvas may be
// released after the next upload.
func (a *Atlas) Lock() { a.locked = true }

// Draw places key's content at the cursor, wrapping across the row
// boundary when the current row's remainder is too narrow. key must not
// already be present; callers enforce that.
// scratch is a collection-owned scratch canvas, borrowed and cleared by
// the caller before every call that may take the wrap path.
func (a *Atlas) Draw(key string, bb BBox, paint PaintFunc, scratch canvas.Canvas) (Entry, error) {
	if a.locked {
		return Entry{}, ErrAtlasLocked
	}

	scale, texW, texH := a.scale(bb)

	// Case 3: cursor sits exactly at the right edge — advance to the next
	// row and retry as case 1/2/4 with the refreshed cursor.
	if a.cursorX == a.texSize {
		if a.cursorRow >= a.texRows-1 {
			return Entry{}, ErrNotEnoughRoom
		}
		a.cursorX = 0
		a.cursorRow++
	}

	// Case 1: fits in the remainder of the current row.
	if float64(a.cursorX)+texW <= float64(a.texSize) {
		loc := Rect{X: a.cursorX, Y: a.cursorRow * a.rowHeight, W: int(texW), H: int(texH)}
		a.paintInto(a.cv, loc, bb, scale, paint)

		a.cursorX += int(texW)
		if a.cursorX == a.texSize {
			a.cursorX = 0
			a.cursorRow++
		}

		entry := Entry{First: loc}
		a.entries[key] = entry
		a.dirty = true
		return entry, nil
	}

	// Case 2: no room left in any row.
	if a.cursorRow >= a.texRows-1 {
		return Entry{}, ErrNotEnoughRoom
	}

	// Case 4: wrap. Paint once into the scratch canvas at the origin,
	// then split the result across the tail of this row and the head of
	// the next.
	firstW := a.texSize - a.cursorX
	a.paintInto(scratch, Rect{W: int(texW), H: int(texH)}, bb, scale, paint)

	loc1 := Rect{X: a.cursorX, Y: a.cursorRow * a.rowHeight, W: firstW, H: int(texH)}
	loc2 := Rect{X: 0, Y: (a.cursorRow + 1) * a.rowHeight, W: int(texW) - firstW, H: int(texH)}

	a.cv.DrawImage(scratch.AsImage(), 0, 0, firstW, int(texH), loc1.X, loc1.Y, loc1.W, loc1.H)
	a.cv.DrawImage(scratch.AsImage(), firstW, 0, loc2.W, int(texH), loc2.X, loc2.Y, loc2.W, loc2.H)

	a.cursorX = int(texW) - firstW
	a.cursorRow++

	entry := Entry{First: loc1, Second: loc2}
	a.entries[key] = entry
	a.dirty = true
	return entry, nil
}

// paintInto saves cv's transform, translates+scales so paint's bb-space
// drawing lands at dest, invokes paint once, and restores.
func (a *Atlas) paintInto(cv canvas.Canvas, dest Rect, bb BBox, scale float64, paint PaintFunc) {
	cv.Save()
	cv.Translate(float64(dest.X), float64(dest.Y))
	cv.Scale(scale, scale)
	cv.Translate(-bb.X1, -bb.Y1)
	paint(cv, bb)
	cv.Restore()
}

// BufferIfNeeded allocates a GPU texture on first use and uploads the
// full CPU canvas when dirty, releasing the CPU canvas afterward if the
// atlas is locked and can no longer change.
func (a *Atlas) BufferIfNeeded(dev device.Device, format func() device.TextureDescriptor) error {
	if a.texture == nil {
		tex, err := dev.CreateTexture(format())
		if err != nil {
			return fmt.Errorf("atlas: create texture: %w", err)
		}
		a.texture = tex
	}
	if a.dirty {
		if a.cv == nil {
			return errors.New("atlas: dirty with no CPU canvas")
		}
		pixels := pixelBytes(a.cv.AsImage())
		if err := dev.UploadImage(a.texture, 0, 0, a.texSize, a.texSize, pixels); err != nil {
			return fmt.Errorf("atlas: upload texture: %w", err)
		}
		a.dirty = false
		if a.locked {
			a.cv = nil
		}
	}
	return nil
}

// Dispose deletes the GPU texture, releases the CPU canvas, and locks
// the atlas.
func (a *Atlas) Dispose(dev device.Device) {
	if a.texture != nil {
		dev.DeleteTexture(a.texture)
		a.texture = nil
	}
	a.cv = nil
	a.locked = true
}

// Texture returns the GPU texture handle, if buffered.
func (a *Atlas) Texture() device.Texture { return a.texture }

// Canvas exposes the CPU raster canvas, or nil if released.
func (a *Atlas) Canvas() canvas.Canvas { return a.cv }

// RowHeight returns the atlas's fixed row height.
func (a *Atlas) RowHeight() int { return a.rowHeight }

// TexSize returns the atlas's square edge length.
func (a *Atlas) TexSize() int { return a.texSize }
