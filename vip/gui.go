package vip

import (
	"image"
	"image/color"
	"image/draw"
	"log"
	"sync"
	"time"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/chirpvm/chirp/chip8"
)

// guiScale is the initial window size in native pixels per CHIP-8 pixel.
const guiScale = 8

// Pixel colors, matching the dark-grey-on-near-black of the original
// display adapter.
var (
	pixelOn  = color.RGBA{0xff, 0xff, 0xff, 0xff}
	pixelOff = color.RGBA{0x19, 0x19, 0x19, 0xff}
)

// gui owns the display window and feeds keyboard events to the keypad.
// The execution context hands it framebuffer snapshots through Present
// (render-on-write); the window publishes them at its own 60Hz cadence.
type gui struct {
	enabled bool

	mu    sync.Mutex
	keys  *chip8.Keypad
	fb    chip8.Framebuffer
	dirty bool
}

func newGUI(m *chip8.Machine, enabled bool) *gui {
	return &gui{enabled: enabled, keys: m.Keys}
}

// Present implements chip8.Renderer.
func (g *gui) Present(fb *chip8.Framebuffer) {
	if !g.enabled {
		return
	}
	g.mu.Lock()
	g.fb = *fb
	g.dirty = true
	g.mu.Unlock()
}

// Swap points the window at a fresh machine after a dev-mode reload.
func (g *gui) Swap(m *chip8.Machine) {
	g.mu.Lock()
	g.keys = m.Keys
	g.fb = *m.FB
	g.dirty = true
	g.mu.Unlock()
}

func (g *gui) pad() *chip8.Keypad {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.keys
}

// Run drives the window until exit is closed, the window is destroyed,
// or the process dies. It must be called from the main goroutine.
func (g *gui) Run(exit <-chan bool) error {
	driver.Main(func(s screen.Screen) {
		w, err := s.NewWindow(&screen.NewWindowOptions{
			Title:  "chirp",
			Width:  chip8.ScreenWidth * guiScale,
			Height: chip8.ScreenHeight * guiScale,
		})
		if err != nil {
			log.Fatal(err)
		}
		defer w.Release()

		type update struct{}
		go func() {
			t := time.NewTicker(time.Second / 60)
			defer t.Stop()
			for {
				select {
				case <-t.C:
					w.Send(update{})
				case <-exit:
					w.Send(update{})
					return
				}
			}
		}()

		var (
			sz    size.Event
			buf   screen.Buffer
			tex   screen.Texture
			small = image.NewRGBA(image.Rect(0, 0, chip8.ScreenWidth, chip8.ScreenHeight))
		)
		release := func() {
			if buf != nil {
				buf.Release()
				buf = nil
			}
			if tex != nil {
				tex.Release()
				tex = nil
			}
		}
		defer release()

		for {
			e := w.NextEvent()

			select {
			case <-exit:
				return
			default:
			}

			switch e := e.(type) {
			case size.Event:
				sz = e
				if sz.WidthPx+sz.HeightPx == 0 {
					return
				}
				g.mu.Lock()
				g.dirty = true
				g.mu.Unlock()

			case lifecycle.Event:
				if e.To == lifecycle.StageDead {
					return
				}

			case key.Event:
				k, ok := padKey(e.Code)
				if !ok {
					break
				}
				switch e.Direction {
				case key.DirPress:
					g.pad().KeyDown(k)
				case key.DirRelease:
					g.pad().KeyUp(k)
				}

			case update, paint.Event:
				g.mu.Lock()
				dirty := g.dirty
				fb := g.fb
				g.dirty = false
				g.mu.Unlock()
				if !dirty || sz.WidthPx == 0 || sz.HeightPx == 0 {
					break
				}
				winSize := image.Point{sz.WidthPx, sz.HeightPx}
				if buf == nil || buf.Size() != winSize {
					release()
					if buf, err = s.NewBuffer(winSize); err != nil {
						log.Fatalf("gui: %v", err)
					}
					if tex, err = s.NewTexture(winSize); err != nil {
						log.Fatalf("gui: %v", err)
					}
				}
				for y := 0; y < chip8.ScreenHeight; y++ {
					for x := 0; x < chip8.ScreenWidth; x++ {
						c := pixelOff
						if fb.At(x, y) {
							c = pixelOn
						}
						small.SetRGBA(x, y, c)
					}
				}
				// Nearest-neighbour keeps the upscaled pixels crisp.
				xdraw.NearestNeighbor.Scale(buf.RGBA(), buf.RGBA().Bounds(), small, small.Bounds(), xdraw.Src, nil)
				tex.Upload(image.Point{}, buf, buf.Bounds())
				w.Copy(image.Point{}, tex, tex.Bounds(), draw.Src, nil)
				w.Publish()

			case error:
				log.Print(e)
			}
		}
	})
	return nil
}

// padKey maps the conventional 0-9 A-F keyboard layout onto the keypad.
func padKey(c key.Code) (chip8.Key, bool) {
	switch c {
	case key.Code0:
		return chip8.Key0, true
	case key.Code1:
		return chip8.Key1, true
	case key.Code2:
		return chip8.Key2, true
	case key.Code3:
		return chip8.Key3, true
	case key.Code4:
		return chip8.Key4, true
	case key.Code5:
		return chip8.Key5, true
	case key.Code6:
		return chip8.Key6, true
	case key.Code7:
		return chip8.Key7, true
	case key.Code8:
		return chip8.Key8, true
	case key.Code9:
		return chip8.Key9, true
	case key.CodeA:
		return chip8.KeyA, true
	case key.CodeB:
		return chip8.KeyB, true
	case key.CodeC:
		return chip8.KeyC, true
	case key.CodeD:
		return chip8.KeyD, true
	case key.CodeE:
		return chip8.KeyE, true
	case key.CodeF:
		return chip8.KeyF, true
	}
	return 0, false
}
