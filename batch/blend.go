package batch

import gc "github.com/gogpu/graphcore"

// BlendArrowRGB mirrors the fragment shader's arrow compositing: blend
// the arrow's premultiplied RGB against bg with coefficient (1-alpha),
// forcing full output coverage. bg is premultiplied first, as the
// batcher does before uploading it as the bgColor uniform. Kept as a
// pure Go function so the arithmetic is unit-testable independent of
// the WGSL fragment stage that actually runs it.
func BlendArrowRGB(premultiplied [4]float32, bg gc.RGBA) (r, g, b float32) {
	alpha := premultiplied[3]
	coeff := 1 - alpha
	bgp := bg.PremultipliedRGBA32()
	r = premultiplied[0] + bgp[0]*coeff
	g = premultiplied[1] + bgp[1]*coeff
	b = premultiplied[2] + bgp[2]*coeff
	return r, g, b
}
