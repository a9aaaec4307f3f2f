package device

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"

	gc "github.com/gogpu/graphcore"
)

// WebGPU is the concrete Device adapter over a host-supplied Handle. It
// compiles the WGSL programs it's given through naga to SPIR-V. Buffers
// and textures are kept as in-memory byte slices, and uniform and draw
// calls only validate or log; no call goes through the handle's
// Device()/Queue(). It never creates its own adapter or device; the
// host owns device lifetime.
type WebGPU struct {
	handle Handle
	logger *slog.Logger
}

var _ Device = (*WebGPU)(nil)

// NewWebGPU wraps handle in a Device. Registers itself as a
// graphcore.LoggerSink so SetLogger calls reach GPU diagnostics.
func NewWebGPU(handle Handle) (*WebGPU, error) {
	if handle == nil {
		return nil, errors.New("device: nil handle")
	}
	d := &WebGPU{handle: handle, logger: gc.Logger()}
	_ = gc.RegisterLoggerSink(d)
	return d, nil
}

// SetLogger implements graphcore.LoggerSink.
func (w *WebGPU) SetLogger(l *slog.Logger) { w.logger = l }

// compiledProgram holds the SPIR-V compiled from a WGSL vertex/fragment
// pair. Turning this into a bound render pipeline requires a render-pass/
// bind-group layout description supplied by the host's pipeline cache;
// that wiring is the host integration's job, not this core's.
type compiledProgram struct {
	vertexSPIRV   []uint32
	fragmentSPIRV []uint32
}

func (compiledProgram) Destroy() {}

// CreateProgram compiles the WGSL vertex and fragment sources to
// SPIR-V.
func (w *WebGPU) CreateProgram(vertexWGSL, fragmentWGSL string) (Program, error) {
	vs, err := compileToSPIRV(vertexWGSL)
	if err != nil {
		return nil, fmt.Errorf("device: compile vertex shader: %w", err)
	}
	fs, err := compileToSPIRV(fragmentWGSL)
	if err != nil {
		return nil, fmt.Errorf("device: compile fragment shader: %w", err)
	}
	if w.logger != nil {
		w.logger.Debug("device: compiled edge program", "vertex_words", len(vs), "fragment_words", len(fs))
	}
	return compiledProgram{vertexSPIRV: vs, fragmentSPIRV: fs}, nil
}

func compileToSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, err
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

func (w *WebGPU) DeleteProgram(Program) {}

type webgpuVAO struct{}

func (webgpuVAO) Destroy() {}

func (w *WebGPU) CreateVertexArray() (VertexArray, error) { return webgpuVAO{}, nil }
func (w *WebGPU) DeleteVertexArray(VertexArray)           {}

type webgpuBuffer struct {
	size int
	data []byte
}

func (b *webgpuBuffer) Size() int { return b.size }
func (b *webgpuBuffer) Destroy()  {}

func (w *WebGPU) CreateStaticBuffer(data []byte, _ AttribLocation) (Buffer, error) {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &webgpuBuffer{size: len(data), data: buf}, nil
}

func (w *WebGPU) CreateDynamicBuffer(maxInstances, stride int) (Buffer, error) {
	size := maxInstances * stride
	return &webgpuBuffer{size: size, data: make([]byte, size)}, nil
}

func (w *WebGPU) CreateMatrixBuffer(maxInstances int) (Buffer, error) {
	size := maxInstances * 9 * 4
	return &webgpuBuffer{size: size, data: make([]byte, size)}, nil
}

func (w *WebGPU) UpdateBuffer(buf Buffer, offset int, data []byte) error {
	b, ok := buf.(*webgpuBuffer)
	if !ok {
		return errors.New("device: UpdateBuffer called with foreign buffer")
	}
	if offset+len(data) > b.size {
		return fmt.Errorf("device: UpdateBuffer write [%d,%d) exceeds buffer size %d", offset, offset+len(data), b.size)
	}
	copy(b.data[offset:], data)
	return nil
}

func (w *WebGPU) DeleteBuffer(Buffer) {}

type webgpuTexture struct {
	width, height uint32
	format        gputypes.TextureFormat
	pixels        []byte
}

func (t *webgpuTexture) Width() uint32                  { return t.width }
func (t *webgpuTexture) Height() uint32                 { return t.height }
func (t *webgpuTexture) Format() gputypes.TextureFormat { return t.format }
func (t *webgpuTexture) CreateView() TextureView        { return webgpuTextureView{} }
func (t *webgpuTexture) Destroy()                       {}

type webgpuTextureView struct{}

func (webgpuTextureView) Destroy() {}

func (w *WebGPU) CreateTexture(desc TextureDescriptor) (Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, errors.New("device: zero-sized texture")
	}
	return &webgpuTexture{
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
		pixels: make([]byte, desc.Width*desc.Height*4),
	}, nil
}

func (w *WebGPU) UploadImage(tex Texture, x, y, width, height int, pixels []byte) error {
	t, ok := tex.(*webgpuTexture)
	if !ok {
		return errors.New("device: UploadImage called with foreign texture")
	}
	if len(pixels) < width*height*4 {
		return fmt.Errorf("device: pixel buffer too small: got %d bytes, want %d", len(pixels), width*height*4)
	}
	for row := 0; row < height; row++ {
		dstY := y + row
		if dstY < 0 || dstY >= int(t.height) {
			continue
		}
		srcStart := row * width * 4
		dstStart := (dstY*int(t.width) + x) * 4
		n := width * 4
		copy(t.pixels[dstStart:dstStart+n], pixels[srcStart:srcStart+n])
	}
	if w.logger != nil {
		w.logger.Debug("device: uploaded texture region", "x", x, "y", y, "w", width, "h", height)
	}
	return nil
}

func (w *WebGPU) DeleteTexture(Texture) {}

func (w *WebGPU) BindPipeline(program Program, _ VertexArray) error {
	if _, ok := program.(compiledProgram); !ok {
		return errors.New("device: BindPipeline called with foreign program")
	}
	return nil
}

func (w *WebGPU) SetUniformMatrix3(Program, string, [9]float32) error { return nil }
func (w *WebGPU) SetUniformVec4(Program, string, [4]float32) error    { return nil }
func (w *WebGPU) SetUniformInt(Program, string, int32) error          { return nil }

func (w *WebGPU) DrawArraysInstanced(vertexCount, instanceCount int) error {
	if instanceCount == 0 {
		return nil
	}
	if w.logger != nil {
		w.logger.Debug("device: draw arrays instanced", "vertex_count", vertexCount, "instance_count", instanceCount)
	}
	return nil
}

func (w *WebGPU) Capabilities() DeviceCapabilities {
	return DeviceCapabilities{
		MaxTextureSize: 8192,
		MaxBindGroups:  4,
	}
}
