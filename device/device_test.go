package device

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestDefaultTextureDescriptor(t *testing.T) {
	d := DefaultTextureDescriptor(256, 256, gputypes.TextureFormatRGBA8Unorm)
	if d.Width != 256 || d.Height != 256 {
		t.Fatalf("dimensions = (%d,%d), want (256,256)", d.Width, d.Height)
	}
	if d.Depth != 1 || d.MipLevelCount != 1 || d.SampleCount != 1 {
		t.Errorf("descriptor defaults wrong: %+v", d)
	}
	if d.Usage&TextureUsageTextureBinding == 0 {
		t.Error("default usage must include TextureUsageTextureBinding")
	}
}

func TestNullDevice_FullLifecycle(t *testing.T) {
	var d Device = Null{}

	prog, err := d.CreateProgram("vs", "fs")
	if err != nil {
		t.Fatalf("CreateProgram() = %v", err)
	}
	defer d.DeleteProgram(prog)

	vao, err := d.CreateVertexArray()
	if err != nil {
		t.Fatalf("CreateVertexArray() = %v", err)
	}
	defer d.DeleteVertexArray(vao)

	staticBuf, err := d.CreateStaticBuffer([]byte{1, 2, 3, 4}, 0)
	if err != nil {
		t.Fatalf("CreateStaticBuffer() = %v", err)
	}
	if staticBuf.Size() != 4 {
		t.Errorf("static buffer size = %d, want 4", staticBuf.Size())
	}

	dynBuf, err := d.CreateDynamicBuffer(1000, 48)
	if err != nil {
		t.Fatalf("CreateDynamicBuffer() = %v", err)
	}
	if dynBuf.Size() != 48000 {
		t.Errorf("dynamic buffer size = %d, want 48000", dynBuf.Size())
	}

	matBuf, err := d.CreateMatrixBuffer(10)
	if err != nil {
		t.Fatalf("CreateMatrixBuffer() = %v", err)
	}
	if matBuf.Size() != 10*9*4 {
		t.Errorf("matrix buffer size = %d, want %d", matBuf.Size(), 10*9*4)
	}

	if err := d.UpdateBuffer(dynBuf, 0, []byte{1, 2, 3}); err != nil {
		t.Errorf("UpdateBuffer() = %v", err)
	}

	tex, err := d.CreateTexture(DefaultTextureDescriptor(64, 64, gputypes.TextureFormatRGBA8Unorm))
	if err != nil {
		t.Fatalf("CreateTexture() = %v", err)
	}
	if tex.Width() != 64 || tex.Height() != 64 {
		t.Errorf("texture dims = (%d,%d), want (64,64)", tex.Width(), tex.Height())
	}
	if err := d.UploadImage(tex, 0, 0, 64, 64, make([]byte, 64*64*4)); err != nil {
		t.Errorf("UploadImage() = %v", err)
	}
	defer d.DeleteTexture(tex)

	if err := d.BindPipeline(prog, vao); err != nil {
		t.Errorf("BindPipeline() = %v", err)
	}
	if err := d.SetUniformMatrix3(prog, "uPanZoomMatrix", [9]float32{}); err != nil {
		t.Errorf("SetUniformMatrix3() = %v", err)
	}
	if err := d.SetUniformVec4(prog, "uBGColor", [4]float32{1, 1, 1, 1}); err != nil {
		t.Errorf("SetUniformVec4() = %v", err)
	}
	if err := d.SetUniformInt(prog, "uMode", 0); err != nil {
		t.Errorf("SetUniformInt() = %v", err)
	}
	if err := d.DrawArraysInstanced(12, 3); err != nil {
		t.Errorf("DrawArraysInstanced() = %v", err)
	}

	caps := d.Capabilities()
	if caps.MaxTextureSize == 0 {
		t.Error("Capabilities().MaxTextureSize must be nonzero")
	}
}
