package device

import "github.com/gogpu/gputypes"

// Null is a Device that performs no GPU work. It is used for CPU-only
// rendering and in tests.
type Null struct{}

var _ Device = Null{}

type nullProgram struct{}

func (nullProgram) Destroy() {}

type nullVAO struct{}

func (nullVAO) Destroy() {}

type nullBuffer struct{ size int }

func (b nullBuffer) Size() int { return b.size }
func (nullBuffer) Destroy()    {}

type nullTexture struct {
	width, height uint32
	format        gputypes.TextureFormat
}

func (t nullTexture) Width() uint32                  { return t.width }
func (t nullTexture) Height() uint32                 { return t.height }
func (t nullTexture) Format() gputypes.TextureFormat { return t.format }
func (nullTexture) CreateView() TextureView          { return nullTextureView{} }
func (nullTexture) Destroy()                         {}

type nullTextureView struct{}

func (nullTextureView) Destroy() {}

func (Null) CreateProgram(string, string) (Program, error) { return nullProgram{}, nil }
func (Null) DeleteProgram(Program)                         {}

func (Null) CreateVertexArray() (VertexArray, error) { return nullVAO{}, nil }
func (Null) DeleteVertexArray(VertexArray)           {}

func (Null) CreateStaticBuffer(data []byte, _ AttribLocation) (Buffer, error) {
	return nullBuffer{size: len(data)}, nil
}

func (Null) CreateDynamicBuffer(maxInstances, stride int) (Buffer, error) {
	return nullBuffer{size: maxInstances * stride}, nil
}

func (Null) CreateMatrixBuffer(maxInstances int) (Buffer, error) {
	return nullBuffer{size: maxInstances * 9 * 4}, nil
}

func (Null) UpdateBuffer(Buffer, int, []byte) error { return nil }
func (Null) DeleteBuffer(Buffer)                    {}

func (Null) CreateTexture(desc TextureDescriptor) (Texture, error) {
	return nullTexture{width: desc.Width, height: desc.Height, format: desc.Format}, nil
}

func (Null) UploadImage(Texture, int, int, int, int, []byte) error { return nil }
func (Null) DeleteTexture(Texture)                                 {}

func (Null) BindPipeline(Program, VertexArray) error { return nil }

func (Null) SetUniformMatrix3(Program, string, [9]float32) error { return nil }
func (Null) SetUniformVec4(Program, string, [4]float32) error    { return nil }
func (Null) SetUniformInt(Program, string, int32) error          { return nil }

func (Null) DrawArraysInstanced(int, int) error { return nil }

func (Null) Capabilities() DeviceCapabilities {
	return DeviceCapabilities{MaxTextureSize: 8192, MaxBindGroups: 4}
}
