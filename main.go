// Command chirp executes CHIP-8 programs on a VIP-style machine.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/chirpvm/chirp/chip8"
	"github.com/chirpvm/chirp/vip"
)

func main() {
	log.SetPrefix("chirp: ")
	log.SetFlags(0)

	var (
		cliFlag   = flag.Bool("cli", false, "disable GUI features")
		devFlag   = flag.Bool("dev", false, "enable developer mode (live re-load the program when it changes)")
		debugFlag = flag.Bool("debug", false, "enable debugger (implies -dev)")
		ipsFlag   = flag.Int("ips", vip.DefaultIPS, "execution pace in instructions per second")

		cpuProfileFlag = flag.String("cpu_profile", "", "write CPU profile to `file`")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-cli] <program.ch8 | program.hex>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s [-cli] <-dev | -debug> <program.hex>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
	}

	if *devFlag || *debugFlag {
		if err := devMode(!*cliFlag, *debugFlag, *ipsFlag, flag.Arg(0)); err != nil {
			log.Fatal(err)
		}
		return
	}

	var cpuProfile io.Closer
	if prof := *cpuProfileFlag; prof != "" {
		f, err := os.Create(prof)
		if err != nil {
			log.Fatalf("creating CPU profile file: %v", err)
		}
		pprof.StartCPUProfile(f)
		cpuProfile = f
	}

	code, err := run(flag.Arg(0), !*cliFlag, *ipsFlag)

	if f := cpuProfile; f != nil {
		pprof.StopCPUProfile()
		f.Close()
	}

	if err != nil {
		log.Fatal(err)
	}
	os.Exit(code)
}

func run(progFile string, guiEnabled bool, ips int) (int, error) {
	rom, err := loadProgram(progFile)
	if err != nil {
		return 0, err
	}

	r := vip.NewRunner(guiEnabled, false, nil)
	r.SetIPS(ips)
	code := r.Run(rom)

	return code, nil
}

// loadProgram reads a program image: the textual hex format for .hex
// and .txt files, raw bytes for anything else.
func loadProgram(name string) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rom []byte
	if ext := filepath.Ext(name); ext == ".hex" || ext == ".txt" {
		rom, err = chip8.ParseText(f)
	} else {
		rom, err = io.ReadAll(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(rom) > chip8.MaxProgramSize {
		return nil, fmt.Errorf("%s: program is %d bytes; the machine holds at most %d",
			name, len(rom), chip8.MaxProgramSize)
	}
	return rom, nil
}
