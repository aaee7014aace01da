package renderer

import "image"

// NewFrame hands out a frame buffer sized to the surface, reusing one
// given back through Release when available. Its pixels are stale;
// Render paints every one of them.
func (s *Surface) NewFrame() *image.RGBA {
	return s.frames.Get().(*image.RGBA)
}

// Release returns a frame for reuse. Buffers of any other size are left
// to the garbage collector.
func (s *Surface) Release(img *image.RGBA) {
	if img == nil || img.Rect != s.Bounds() {
		return
	}
	s.frames.Put(img)
}
