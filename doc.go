// Package graphcore is the core of a GPU-accelerated graph renderer: a
// texture-atlas cache paired with an instanced-geometry batcher, together
// capable of drawing large graphs in a small number of GPU draw calls.
//
// # Overview
//
// Two subsystems carry the engineering weight:
//
//   - The atlas subsystem (atlas, manager) packs rasterized node and label
//     images into a bounded set of fixed-size square textures, with row-wrap
//     placement, key-based lookup, and mark-and-sweep eviction with
//     in-place repacking.
//   - The edge batcher (batch) folds per-edge attributes into interleaved
//     GPU buffers and emits at most maxInstances instances per draw call,
//     compositing translucent arrowheads against the background.
//
// This package provides the shared geometry and color primitives (Matrix,
// Point, RGBA, Pixmap) that the subsystems build on, plus the ambient
// logging facility (SetLogger, Logger).
//
// # Coordinate system
//
// Origin (0,0) at top-left, X increases right, Y increases down, angles in
// radians with 0 pointing right and increasing clockwise on screen (a
// positive angle turns +X toward +Y) — matching
// the raster canvas and GPU clip-space conventions used throughout.
//
// # Scope
//
// graphcore does not compute scene layout, styling, or picking geometry; it
// consumes opaque element handles and host-supplied callbacks. It does not
// load shader source from disk, create VAOs, or own GPU texture handles
// directly — those are abstracted behind the device package's Device
// interface, supplied by the host.
package graphcore
