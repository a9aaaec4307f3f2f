// Package manager implements the AtlasManager: named atlas collections
// and render types, per-element cache invalidation, and per-frame batch
// assembly bounded by maxAtlasesPerBatch.
package manager

import (
	"errors"
	"fmt"

	gc "github.com/gogpu/graphcore"
	"github.com/gogpu/graphcore/atlas"
	"github.com/gogpu/graphcore/canvas"
	"github.com/gogpu/graphcore/device"
)

// Element is an opaque handle to a drawable item. The manager never
// inspects it directly; every operation on it goes through the RenderType
// registered for its kind.
type Element = any

// RenderType is the required method set every render type implements.
// Optional behaviors (identity, rotation, padding) live on the smaller
// Identifier/Rotator/Padder interfaces, which the manager type-asserts
// for.
type RenderType interface {
	// Key returns the style key identifying element's desired raster
	// content; equal keys must map to identical pixels.
	Key(element Element) string
	// BoundingBox returns element's destination box in the coordinate
	// space its Draw method paints in.
	BoundingBox(element Element) atlas.BBox
	// Draw renders element's content into cv, as atlas.PaintFunc does.
	Draw(cv canvas.Canvas, element Element, bb atlas.BBox)
}

// Identifier is an optional trait distinguishing elements that share a
// render type but need independent (type, id) → styleKey tracking across
// style changes.
type Identifier interface {
	ID(element Element) string
}

// Rotator is an optional trait for render types whose elements rotate
// about a point with an additional offset.
type Rotator interface {
	Rotation(element Element) float64
	RotationPoint(element Element) (x, y float64)
	RotationOffset(element Element) (x, y float64)
}

// Padder is an optional trait shrinking an element's destination quad
// before transform-matrix construction.
type Padder interface {
	Padding(element Element) float64
}

var (
	// ErrUnknownCollection is returned by AddRenderType when the named
	// collection was never registered. Registration-time error, not
	// recoverable at draw time.
	ErrUnknownCollection = errors.New("manager: unknown collection")

	// ErrUnknownRenderType is returned when an operation names a render
	// type that was never registered.
	ErrUnknownRenderType = errors.New("manager: unknown render type")
)

type renderTypeBinding struct {
	collection string
	impl       RenderType
}

type typeIDKey struct {
	renderType string
	id         string
}

// AtlasInfo composes a cache lookup's result: the atlas's index within
// the current batch, its two placed regions, and the element's bounding
// box.
type AtlasInfo struct {
	Index      int
	Tex1, Tex2 atlas.Rect
	BB         atlas.BBox
}

// Manager is the AtlasManager: named collections and render types,
// per-element style invalidation, and per-frame batch assembly.
type Manager struct {
	cfg     *gc.Config
	factory canvas.Factory

	collections map[string]*atlas.Collection
	renderTypes map[string]renderTypeBinding

	// typeIDToStyleKey detects style transitions: an element keeps its
	// (renderType, id) identity across frames even as its computed style
	// key changes.
	typeIDToStyleKey map[typeIDKey]string

	// batchAtlases is the current frame's ordered, deduplicated set of
	// referenced atlases, bounded by cfg.MaxAtlasesPerBatch.
	batchAtlases []*atlas.Atlas
}

// New creates a Manager using cfg for atlas sizing and batch limits, and
// factory to allocate every collection's atlas and scratch canvases.
func New(cfg *gc.Config, factory canvas.Factory) (*Manager, error) {
	if cfg == nil {
		cfg = gc.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("manager: %w", err)
	}
	return &Manager{
		cfg:              cfg,
		factory:          factory,
		collections:      make(map[string]*atlas.Collection),
		renderTypes:      make(map[string]renderTypeBinding),
		typeIDToStyleKey: make(map[typeIDKey]string),
	}, nil
}

// AddAtlasCollection registers a named collection with texRows rows,
// using the manager's configured texture edge size.
func (m *Manager) AddAtlasCollection(name string, texRows int) {
	m.collections[name] = atlas.NewCollection(m.cfg.TexSize, texRows, m.factory)
}

// AddRenderType registers impl under name, bound to collection.
func (m *Manager) AddRenderType(name, collection string, impl RenderType) error {
	if _, ok := m.collections[collection]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	m.renderTypes[name] = renderTypeBinding{collection: collection, impl: impl}
	return nil
}

func (m *Manager) binding(renderType string) (renderTypeBinding, error) {
	b, ok := m.renderTypes[renderType]
	if !ok {
		return renderTypeBinding{}, fmt.Errorf("%w: %q", ErrUnknownRenderType, renderType)
	}
	return b, nil
}

func elementID(impl RenderType, el Element, key string) string {
	if ident, ok := impl.(Identifier); ok {
		return ident.ID(el)
	}
	// Without an Identifier trait, the style key doubles as the identity:
	// every distinct style gets its own (type,id) slot.
	return key
}

// Invalidate drops stale cache entries in one of two modes.
//
// forceRedraw=true marks every matching element's current style key for
// GC and runs GC synchronously — used when pixel content changed under a
// stable key. forceRedraw=false instead detects style-key transitions and
// marks only the stale key, returning true when a caller-scheduled GC is
// warranted.
func (m *Manager) Invalidate(elements []Element, renderType string, forceRedraw bool) (bool, error) {
	b, err := m.binding(renderType)
	if err != nil {
		return false, err
	}
	collection := m.collections[b.collection]

	if forceRedraw {
		for _, el := range elements {
			key := b.impl.Key(el)
			collection.MarkKeyForGC(key)
		}
		return true, collection.GC(nil)
	}

	deferredGC := false
	for _, el := range elements {
		key := b.impl.Key(el)
		id := elementID(b.impl, el, key)
		tk := typeIDKey{renderType: renderType, id: id}

		prevKey, had := m.typeIDToStyleKey[tk]
		if had && prevKey != key {
			collection.MarkKeyForGC(prevKey)
			deferredGC = true
		}
		m.typeIDToStyleKey[tk] = key
	}
	return deferredGC, nil
}

// GC runs mark-and-sweep compaction over every registered collection,
// reclaiming the space of keys marked by earlier Invalidate calls. dev
// disposes the GPU textures of rebuilt atlases; it may be nil when no
// GPU resources exist yet.
func (m *Manager) GC(dev device.Device) error {
	for name, coll := range m.collections {
		if err := coll.GC(dev); err != nil {
			return fmt.Errorf("manager: gc collection %q: %w", name, err)
		}
	}
	return nil
}

// GetOrCreateAtlas resolves element's collection and draws it on cache
// miss via the registered RenderType's Draw method.
func (m *Manager) GetOrCreateAtlas(element Element, renderType string) (*atlas.Atlas, atlas.Entry, error) {
	b, err := m.binding(renderType)
	if err != nil {
		return nil, atlas.Entry{}, err
	}
	collection := m.collections[b.collection]

	key := b.impl.Key(element)
	bb := b.impl.BoundingBox(element)
	paint := func(cv canvas.Canvas, bb atlas.BBox) {
		b.impl.Draw(cv, element, bb)
	}

	a, entry, err := collection.Draw(key, bb, paint)
	if err != nil {
		return nil, atlas.Entry{}, err
	}

	id := elementID(b.impl, element, key)
	m.typeIDToStyleKey[typeIDKey{renderType: renderType, id: id}] = key
	return a, entry, nil
}

// StartBatch clears the current frame's batch atlas list.
func (m *Manager) StartBatch() {
	m.batchAtlases = m.batchAtlases[:0]
}

func (m *Manager) indexOf(a *atlas.Atlas) (int, bool) {
	for i, existing := range m.batchAtlases {
		if existing == a {
			return i, true
		}
	}
	return -1, false
}

// CanAddToCurrentBatch reports whether element's atlas has room in the
// current batch: true if the batch has spare capacity, or if it is full
// but the atlas is already present.
func (m *Manager) CanAddToCurrentBatch(element Element, renderType string) (bool, error) {
	b, err := m.binding(renderType)
	if err != nil {
		return false, err
	}
	key := b.impl.Key(element)
	a, ok := m.collections[b.collection].AtlasFor(key)
	if !ok {
		return len(m.batchAtlases) < m.cfg.MaxAtlasesPerBatch, nil
	}
	if _, present := m.indexOf(a); present {
		return true, nil
	}
	return len(m.batchAtlases) < m.cfg.MaxAtlasesPerBatch, nil
}

// GetAtlasIndexForBatch returns a's index within the current batch,
// appending it if absent and there is room. ok is false when the batch
// is full and a is not already present; callers flush and retry.
func (m *Manager) GetAtlasIndexForBatch(a *atlas.Atlas) (index int, ok bool) {
	if i, present := m.indexOf(a); present {
		return i, true
	}
	if len(m.batchAtlases) >= m.cfg.MaxAtlasesPerBatch {
		return 0, false
	}
	m.batchAtlases = append(m.batchAtlases, a)
	return len(m.batchAtlases) - 1, true
}

// GetAtlasInfo composes GetOrCreateAtlas and GetAtlasIndexForBatch into
// a single lookup, returning ok=false when the batch is full.
func (m *Manager) GetAtlasInfo(element Element, renderType string) (AtlasInfo, bool, error) {
	b, err := m.binding(renderType)
	if err != nil {
		return AtlasInfo{}, false, err
	}
	a, entry, err := m.GetOrCreateAtlas(element, renderType)
	if err != nil {
		return AtlasInfo{}, false, err
	}
	index, ok := m.GetAtlasIndexForBatch(a)
	if !ok {
		return AtlasInfo{}, false, nil
	}
	bb := b.impl.BoundingBox(element)
	return AtlasInfo{Index: index, Tex1: entry.First, Tex2: entry.Second, BB: bb}, true, nil
}

// SetTransformMatrix builds the per-instance transform for one of a
// wrapped entry's two halves: split the destination quad proportionally
// to each half's texture width, apply padding, and fold in rotation
// when impl implements Rotator.
//
// first selects which half (Tex1 when true, Tex2 when false); for a
// non-wrapped entry (info.Tex2.W == 0) the first half's ratio is 1 and
// the quad is unsplit, while first=false yields ratio 0 and a
// zero-width quad.
func SetTransformMatrix(impl RenderType, element Element, info AtlasInfo, first bool) gc.Matrix {
	w1 := float64(info.Tex1.W)
	w2 := float64(info.Tex2.W)
	total := w1 + w2
	var ratio float64
	if total == 0 {
		ratio = 1
	} else if first {
		ratio = w1 / total
	} else {
		ratio = 1 - w1/total
	}

	padding := 0.0
	if padder, ok := impl.(Padder); ok {
		padding = padder.Padding(element)
	}

	x1 := info.BB.X1 + padding
	y1 := info.BB.Y1 + padding
	w := info.BB.W - 2*padding
	h := info.BB.H - 2*padding

	adjW, adjH := w, h
	xOffset := 0.0
	if ratio < 1 {
		if first {
			adjW = w * ratio
		} else {
			xOffset = w - w*ratio
			x1 += xOffset
			adjW = w * ratio
		}
	}

	if rot, ok := impl.(Rotator); ok {
		if theta := rot.Rotation(element); theta != 0 {
			px, py := rot.RotationPoint(element)
			ox, oy := rot.RotationOffset(element)
			m := gc.Translate(px, py)
			m = m.Multiply(gc.Rotate(theta))
			m = m.Multiply(gc.Translate(ox+xOffset, oy))
			m = m.Multiply(gc.Scale(adjW, adjH))
			return m
		}
	}

	return gc.Translate(x1, y1).Multiply(gc.Scale(adjW, adjH))
}

// DebugInfo reports per-collection, per-atlas occupancy and dirty
// state.
type DebugInfo struct {
	Collections map[string]CollectionDebugInfo
}

// CollectionDebugInfo reports one collection's atlas occupancy.
type CollectionDebugInfo struct {
	AtlasCount int
	Atlases    []AtlasDebugInfo
}

// AtlasDebugInfo reports one atlas's key count, dirty state, lock state
// and approximate resident byte size.
type AtlasDebugInfo struct {
	KeyCount int
	Dirty    bool
	Locked   bool
	TexSize  int
	ByteSize int
}

// DebugInfo returns occupancy and dirty-state information for every
// registered collection.
func (m *Manager) DebugInfo() DebugInfo {
	out := DebugInfo{Collections: make(map[string]CollectionDebugInfo, len(m.collections))}
	for name, coll := range m.collections {
		atlases := coll.Atlases()
		info := CollectionDebugInfo{AtlasCount: len(atlases), Atlases: make([]AtlasDebugInfo, len(atlases))}
		for i, a := range atlases {
			info.Atlases[i] = AtlasDebugInfo{
				KeyCount: len(a.Keys()),
				Dirty:    a.IsDirty(),
				Locked:   a.Locked(),
				TexSize:  a.TexSize(),
				ByteSize: a.TexSize() * a.TexSize() * 4,
			}
		}
		out.Collections[name] = info
	}
	return out
}
