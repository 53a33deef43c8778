package vip

import (
	"sync/atomic"

	"github.com/ebitengine/oto/v3"

	"github.com/chirpvm/chirp/chip8"
)

const (
	beepRate = 48000 // samples per second
	beepFreq = 440   // square wave pitch in Hz
)

// beeper plays a square wave while the machine's sound timer is above
// zero. The audio device pulls samples through Read on its own
// goroutine; the timer handle is atomic so a dev-mode swap can repoint
// it without stopping playback. Timer reads are lock-free, so polling
// from the audio callback needs no coordination with the machine.
type beeper struct {
	ctx    *oto.Context
	player *oto.Player
	timer  atomic.Pointer[chip8.Timer]
	phase  int
}

func newBeeper(t *chip8.Timer) (*beeper, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   beepRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	b := &beeper{ctx: ctx}
	b.timer.Store(t)
	b.player = ctx.NewPlayer(b)
	b.player.Play()
	return b, nil
}

// Swap repoints the beeper at a fresh machine's sound timer.
func (b *beeper) Swap(t *chip8.Timer) {
	b.timer.Store(t)
}

// Read synthesizes int16 mono samples: a square wave while the sound
// timer is running, silence otherwise.
func (b *beeper) Read(p []byte) (int, error) {
	var (
		on     = b.timer.Load().Value() > 0
		period = beepRate / beepFreq
		n      = len(p) &^ 1
	)
	for i := 0; i < n; i += 2 {
		var s int16
		if on {
			if b.phase < period/2 {
				s = 0x2000
			} else {
				s = -0x2000
			}
		}
		b.phase = (b.phase + 1) % period
		p[i] = byte(s)
		p[i+1] = byte(s >> 8)
	}
	return n, nil
}

func (b *beeper) Close() {
	if b.player != nil {
		b.player.Close()
	}
}
