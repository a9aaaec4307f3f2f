package atlas

import (
	"fmt"

	gc "github.com/gogpu/graphcore"
	"github.com/gogpu/graphcore/canvas"
	"github.com/gogpu/graphcore/device"
)

// Collection is an ordered, append-only list of atlases serving one
// render type. Only the last atlas is ever unlocked; placement never
// reuses space in earlier atlases, so GC is the only way to reclaim it.
type Collection struct {
	texSize int
	texRows int
	factory canvas.Factory

	atlases       []*Atlas
	styleKeyAtlas map[string]*Atlas
	markedKeys    map[string]struct{}

	// scratch is memoised per collection so same-size surfaces aren't
	// reallocated on every draw. stitch is a second scratch used only
	// while GC reassembles a wrapped entry; it must stay distinct from
	// scratch, which Atlas.Draw may be painting into at that moment.
	scratch canvas.Canvas
	stitch  canvas.Canvas
}

// NewCollection creates a collection that allocates texSize×texSize
// atlases with texRows rows, using factory for both atlas and scratch
// canvases.
func NewCollection(texSize, texRows int, factory canvas.Factory) *Collection {
	return &Collection{
		texSize:       texSize,
		texRows:       texRows,
		factory:       factory,
		styleKeyAtlas: make(map[string]*Atlas),
		markedKeys:    make(map[string]struct{}),
	}
}

func (c *Collection) scratchCanvas(w, h int) canvas.Canvas {
	if c.scratch == nil || c.scratch.Width() != w || c.scratch.Height() != h {
		c.scratch = c.factory(w, h, true)
	}
	c.scratch.Clear()
	return c.scratch
}

func (c *Collection) stitchCanvas(w, h int) canvas.Canvas {
	if c.stitch == nil || c.stitch.Width() != w || c.stitch.Height() != h {
		c.stitch = c.factory(w, h, true)
	}
	c.stitch.Clear()
	return c.stitch
}

// Draw returns the atlas holding key, drawing it fresh if absent. If
// the current (last) atlas can't accept bb, it is locked and a new
// atlas is appended, so every atlas but the last stays locked.
func (c *Collection) Draw(key string, bb BBox, paint PaintFunc) (*Atlas, Entry, error) {
	if a, ok := c.styleKeyAtlas[key]; ok {
		entry, _ := a.GetOffsets(key)
		return a, entry, nil
	}

	var last *Atlas
	if n := len(c.atlases); n > 0 {
		last = c.atlases[n-1]
	}
	if last == nil || !last.CanFit(bb) {
		if last != nil {
			last.Lock()
			gc.Logger().Warn("atlas: collection full, allocating new atlas",
				"atlases", len(c.atlases), "key", key)
		}
		next, err := New(c.texSize, c.texRows, c.factory)
		if err != nil {
			return nil, Entry{}, fmt.Errorf("atlas: collection allocate: %w", err)
		}
		c.atlases = append(c.atlases, next)
		last = next
	}

	scratch := c.scratchCanvas(c.texSize, last.RowHeight())
	entry, err := last.Draw(key, bb, paint, scratch)
	if err != nil {
		return nil, Entry{}, err
	}
	c.styleKeyAtlas[key] = last
	return last, entry, nil
}

// MarkKeyForGC tombstones key; no eager work is performed until GC.
func (c *Collection) MarkKeyForGC(key string) {
	c.markedKeys[key] = struct{}{}
}

// GC partitions every atlas's keys into kept and collected, re-packing
// kept entries into fresh atlases and dropping any atlas that had at
// least one collected key from the list. A dropped atlas is disposed
// only when dev is non-nil. Cost is proportional to the total kept area.
func (c *Collection) GC(dev device.Device) error {
	if len(c.markedKeys) == 0 {
		return nil
	}

	rebuiltAtlases := make([]*Atlas, 0, len(c.atlases))
	rebuiltLookup := make(map[string]*Atlas, len(c.styleKeyAtlas))

	for _, src := range c.atlases {
		kept := make([]string, 0, len(src.entries))
		collected := false
		for key := range src.entries {
			if _, marked := c.markedKeys[key]; marked {
				collected = true
				continue
			}
			kept = append(kept, key)
		}

		if !collected {
			rebuiltAtlases = append(rebuiltAtlases, src)
			for _, key := range kept {
				rebuiltLookup[key] = src
			}
			continue
		}

		for _, key := range kept {
			entry := src.entries[key]
			dst, err := c.redrawInto(&rebuiltAtlases, src, key, entry)
			if err != nil {
				return err
			}
			rebuiltLookup[key] = dst
		}

		if dev != nil {
			src.Dispose(dev)
		}
	}

	gc.Logger().Debug("atlas: gc complete",
		"atlases", len(rebuiltAtlases), "keys", len(rebuiltLookup))

	c.atlases = rebuiltAtlases
	c.styleKeyAtlas = rebuiltLookup
	c.markedKeys = make(map[string]struct{})
	return nil
}

// redrawInto re-draws a single kept entry from src into the tail of
// *atlases, appending a fresh atlas when the current tail is full or
// absent, exactly as Draw does for a live placement.
func (c *Collection) redrawInto(atlases *[]*Atlas, src *Atlas, key string, entry Entry) (*Atlas, error) {
	width := entry.First.W
	height := entry.First.H
	if entry.Wrapped() {
		width += entry.Second.W
	}
	bb := BBox{W: float64(width), H: float64(height)}

	paint := func(cv canvas.Canvas, _ BBox) {
		if !entry.Wrapped() {
			cv.DrawImage(src.cv.AsImage(), entry.First.X, entry.First.Y, entry.First.W, entry.First.H, 0, 0, entry.First.W, entry.First.H)
			return
		}
		// Stitch a wrapped entry's two source regions side by side before
		// drawing. Both regions copy at 1:1 scale, so a direct
		// Pixmap.CopyRect skips the image/draw scaler entirely when the
		// canvas exposes its backing Pixmap. The stitch scratch is separate
		// from the draw scratch: this closure runs inside Atlas.Draw, which
		// may already be painting into the draw scratch on the wrap path.
		stitched := c.stitchCanvas(width, height)
		srcSurface, srcOK := src.cv.(*canvas.Surface)
		dstSurface, dstOK := stitched.(*canvas.Surface)
		if srcOK && dstOK {
			dstSurface.Pixmap().CopyRect(srcSurface.Pixmap(), entry.First.X, entry.First.Y, 0, 0, entry.First.W, entry.First.H)
			dstSurface.Pixmap().CopyRect(srcSurface.Pixmap(), entry.Second.X, entry.Second.Y, entry.First.W, 0, entry.Second.W, entry.Second.H)
		} else {
			stitched.DrawImage(src.cv.AsImage(), entry.First.X, entry.First.Y, entry.First.W, entry.First.H, 0, 0, entry.First.W, entry.First.H)
			stitched.DrawImage(src.cv.AsImage(), entry.Second.X, entry.Second.Y, entry.Second.W, entry.Second.H, entry.First.W, 0, entry.Second.W, entry.Second.H)
		}
		cv.DrawImage(stitched.AsImage(), 0, 0, width, height, 0, 0, width, height)
	}

	var last *Atlas
	if n := len(*atlases); n > 0 {
		last = (*atlases)[n-1]
	}
	if last == nil || !last.CanFit(bb) {
		if last != nil {
			last.Lock()
		}
		next, err := New(c.texSize, c.texRows, c.factory)
		if err != nil {
			return nil, fmt.Errorf("atlas: gc rebuild allocate: %w", err)
		}
		*atlases = append(*atlases, next)
		last = next
	}

	scratch := c.scratchCanvas(c.texSize, last.RowHeight())
	if _, err := last.Draw(key, bb, paint, scratch); err != nil {
		return nil, fmt.Errorf("atlas: gc rebuild draw %q: %w", key, err)
	}
	return last, nil
}

// Atlases returns the collection's current ordered atlas list.
func (c *Collection) Atlases() []*Atlas { return c.atlases }

// HasKey reports whether key is present in some atlas.
func (c *Collection) HasKey(key string) bool {
	_, ok := c.styleKeyAtlas[key]
	return ok
}

// AtlasFor returns the atlas owning key, if any.
func (c *Collection) AtlasFor(key string) (*Atlas, bool) {
	a, ok := c.styleKeyAtlas[key]
	return a, ok
}
