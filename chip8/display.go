package chip8

// Display dimensions in pixels.
const (
	ScreenWidth  = 64
	ScreenHeight = 32
)

// Framebuffer is the 64x32 monochrome bit grid written by the clear and
// draw instructions and consumed by the rendering collaborator. Sprites
// are composited with XOR and nothing else ever clears it.
type Framebuffer [ScreenWidth * ScreenHeight]bool

// At reports whether the pixel at (x, y) is set.
func (f *Framebuffer) At(x, y int) bool {
	return f[y*ScreenWidth+x]
}

func (f *Framebuffer) flip(x, y int) (collision bool) {
	p := &f[y*ScreenWidth+x]
	*p = !*p
	return !*p
}

func (f *Framebuffer) clear() {
	for i := range f {
		f[i] = false
	}
}

// Renderer presents the framebuffer on some display surface. The engine
// calls Present after every instruction that mutates the framebuffer.
type Renderer interface {
	Present(*Framebuffer)
}
