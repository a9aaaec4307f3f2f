package atlas

import (
	"image"

	gc "github.com/gogpu/graphcore"
)

// pixelBytes extracts tightly packed row-major RGBA8 bytes from img,
// taking the fast path when img is a graphcore.Pixmap (the concrete type
// every canvas.Surface exposes) and falling back to the generic
// image.Image interface otherwise.
func pixelBytes(img image.Image) []byte {
	if pm, ok := img.(*gc.Pixmap); ok {
		return pm.Data()
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	buf := make([]byte, w*h*4)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			buf[i+0] = uint8(r >> 8)
			buf[i+1] = uint8(g >> 8)
			buf[i+2] = uint8(bl >> 8)
			buf[i+3] = uint8(a >> 8)
			i += 4
		}
	}
	return buf
}
