// Package device abstracts the graphics-device operations the atlas and
// batch packages depend on: program/VAO/buffer/texture creation,
// uniform binding, and instanced draw calls. The core never creates a
// GPU device itself; it receives one from the host, which owns device
// lifetime and may share the device with its own rendering.
package device

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Handle is an alias for gpucontext.DeviceProvider, the host-supplied
// source of the underlying WebGPU device/queue/adapter triple.
type Handle = gpucontext.DeviceProvider

// TextureDescriptor describes parameters for creating a texture. It
// mirrors the WebGPU GPUTextureDescriptor.
type TextureDescriptor struct {
	Label         string
	Width         uint32
	Height        uint32
	Depth         uint32
	MipLevelCount uint32
	SampleCount   uint32
	Format        gputypes.TextureFormat
	Usage         TextureUsage
}

// TextureUsage flags, combined with bitwise OR.
type TextureUsage uint32

const (
	TextureUsageCopySrc TextureUsage = 1 << iota
	TextureUsageCopyDst
	TextureUsageTextureBinding
	TextureUsageStorageBinding
	TextureUsageRenderAttachment
)

// DefaultTextureDescriptor returns a TextureDescriptor suitable for an
// atlas texture: sampled in a shader, never rendered to directly.
func DefaultTextureDescriptor(width, height uint32, format gputypes.TextureFormat) TextureDescriptor {
	return TextureDescriptor{
		Width:         width,
		Height:        height,
		Depth:         1,
		MipLevelCount: 1,
		SampleCount:   1,
		Format:        format,
		Usage:         TextureUsageTextureBinding | TextureUsageCopyDst,
	}
}

// Texture represents a GPU texture resource.
type Texture interface {
	Width() uint32
	Height() uint32
	Format() gputypes.TextureFormat
	CreateView() TextureView
	Destroy()
}

// TextureView represents a view into a texture, bindable to a shader stage.
type TextureView interface {
	Destroy()
}

// Program represents a compiled vertex/fragment pipeline, such as the
// edge shader in its screen or picking configuration.
type Program interface {
	Destroy()
}

// VertexArray groups the vertex/instance buffer bindings for one draw
// call.
type VertexArray interface {
	Destroy()
}

// Buffer is an opaque GPU buffer handle — a static attribute buffer, a
// dynamic per-instance buffer, or a 3x3 matrix attribute buffer.
type Buffer interface {
	Size() int
	Destroy()
}

// AttribLocation identifies a vertex attribute binding slot.
type AttribLocation uint32

// DeviceCapabilities describes limits relevant to batch sizing decisions.
type DeviceCapabilities struct {
	MaxTextureSize  uint32
	MaxBindGroups   uint32
	SupportsCompute bool
	VendorName      string
	DeviceName      string
}

// Device is the graphics-device interface the atlas and batch packages
// consume: create/delete program, VAO, buffers; create and upload
// textures; set uniforms; issue instanced draw calls.
type Device interface {
	CreateProgram(vertexWGSL, fragmentWGSL string) (Program, error)
	DeleteProgram(Program)

	CreateVertexArray() (VertexArray, error)
	DeleteVertexArray(VertexArray)

	// CreateStaticBuffer uploads data once at a fixed attribute location,
	// e.g. the edge batcher's 12-vertex static geometry.
	CreateStaticBuffer(data []byte, attrib AttribLocation) (Buffer, error)

	// CreateDynamicBuffer allocates a buffer sized for maxInstances
	// instances of stride bytes each, refreshed via UpdateBuffer every
	// flush.
	CreateDynamicBuffer(maxInstances, stride int) (Buffer, error)

	// CreateMatrixBuffer allocates a buffer for maxInstances 3x3
	// column-major matrix attributes, laid out as three consecutive
	// 3-element vertex attributes.
	CreateMatrixBuffer(maxInstances int) (Buffer, error)

	// UpdateBuffer uploads data starting at byte offset, as bufferSubData
	// would — used to push only the first n instances' worth of bytes.
	UpdateBuffer(buf Buffer, offset int, data []byte) error

	DeleteBuffer(Buffer)

	CreateTexture(desc TextureDescriptor) (Texture, error)
	// UploadImage uploads a w×h RGBA region at (x,y) into tex.
	UploadImage(tex Texture, x, y, w, h int, pixels []byte) error
	DeleteTexture(Texture)

	// BindPipeline makes program and vao current for subsequent
	// SetUniform* and DrawArraysInstanced calls — the "select program,
	// bind VAO" step of a batch flush.
	BindPipeline(program Program, vao VertexArray) error

	SetUniformMatrix3(program Program, name string, m [9]float32) error
	SetUniformVec4(program Program, name string, v [4]float32) error
	SetUniformInt(program Program, name string, v int32) error

	// DrawArraysInstanced issues one drawArraysInstanced(TRIANGLES, 0,
	// vertexCount, instanceCount) call against the currently bound VAO
	// and program.
	DrawArraysInstanced(vertexCount, instanceCount int) error

	Capabilities() DeviceCapabilities
}
