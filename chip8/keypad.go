package chip8

import (
	"fmt"
	"sync"
)

// Key identifies one of the sixteen keys on a CHIP-8 keypad,
// conventionally labelled 0-9 and A-F.
type Key byte

const (
	Key0 Key = iota
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

// KeyOf maps a register value onto the 16-key domain.
func KeyOf(v byte) Key { return Key(v & 0xf) }

func (k Key) String() string { return fmt.Sprintf("%X", byte(k)) }

// Keypad holds the last known state of the sixteen keys, written by the
// input-polling context and read by the execution context. It also
// carries the single-slot rendezvous used by the blocking-read
// instruction: at most one read may be outstanding, and a key-down
// event satisfies it exactly once. The mutex is held across the full
// check-and-clear on both sides, so a key-down cannot slip through
// between the read being requested and the waiter parking.
type Keypad struct {
	mu     sync.Mutex
	down   [16]bool
	waiter chan Key
}

// Pressed reports the last known state of key. It never blocks.
func (k *Keypad) Pressed(key Key) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.down[key]
}

// KeyDown records a key-down event. If a blocking read is outstanding
// it is handed the key and cleared; otherwise only the pressed vector
// is updated.
func (k *Keypad) KeyDown(key Key) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.down[key] = true
	if k.waiter != nil {
		k.waiter <- key
		k.waiter = nil
	}
}

// KeyUp records a key-up event.
func (k *Keypad) KeyUp(key Key) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.down[key] = false
}

// Read blocks until the next key-down event and returns its key.
// Only one Read may be in flight at a time; the engine is single
// threaded so a second concurrent Read is a host bug.
func (k *Keypad) Read() Key { return <-k.read() }

// read registers the waiter slot and returns the channel that the next
// key-down will be delivered on. The channel is buffered so KeyDown
// never blocks on a waiter that has since given up (see cancelRead).
func (k *Keypad) read() <-chan Key {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.waiter != nil {
		panic("chip8: concurrent Keypad.Read")
	}
	k.waiter = make(chan Key, 1)
	return k.waiter
}

// cancelRead withdraws an outstanding read so that a later key-down
// does not satisfy a request nobody is waiting on.
func (k *Keypad) cancelRead() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.waiter = nil
}
