package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"

	"github.com/chirpvm/chirp/vip"
)

// devMode runs progFile and reloads it whenever the file changes on
// disk, so a program can be edited while it runs. With debug set it
// also attaches the interactive debugger.
func devMode(gui, debug bool, ips int, progFile string) error {
	progFile = filepath.Clean(progFile)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Watch(filepath.Dir(progFile)); err != nil {
		return err
	}

	var (
		state vip.StateFunc
		dbg   *debugger
	)
	if debug {
		dbg = newDebugView()
		state = dbg.StateFunc
	}
	runner := vip.NewRunner(gui, true, state)
	runner.SetIPS(ips)
	if dbg != nil {
		dbg.run = runner
		log.SetPrefix("")
		log.SetOutput(dbg.log)
		go func() {
			if err := dbg.Run(); err != nil {
				log.Fatalf("debug: %v", err)
			}
			log.SetOutput(os.Stderr)
			log.SetPrefix("chirp: ")
			runner.Debug("exit", 0)
		}()
	}

	romCh := make(chan []byte)
	go func() {
		started := false
		load := time.After(1 * time.Millisecond)
		for {
			select {
			case <-load:
				log.Printf("dev: load %s", filepath.Base(progFile))
				rom, err := loadProgram(progFile)
				if err != nil {
					log.Printf("dev: %v", err)
					break
				}
				if !started {
					log.Printf("dev: start")
					romCh <- rom
					started = true
				} else {
					log.Printf("dev: reset")
					runner.Swap(rom)
				}
			case ev := <-watcher.Event:
				if ev.Name == progFile && !ev.IsAttrib() {
					load = time.After(100 * time.Millisecond)
				}
			case err := <-watcher.Error:
				log.Printf("dev: watcher: %v", err)
			}
		}
	}()
	code := runner.Run(<-romCh)
	return fmt.Errorf("dev: exit code: %d", code)
}
