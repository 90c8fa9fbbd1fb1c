// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// eeprom93 reads, writes and erases Microwire 93Cxx serial EEPROMs.
//
// Synopsis:
//     eeprom93 [OPTIONS] -t TYPE [--x16] (-r FILE | -w FILE | -e)
//     eeprom93 [OPTIONS] -s SIZE -b ADDR_BITS [--x16] (-r FILE | -w FILE | -e)
//
// Options:
//     -D, --spi-device DEV: SPI device (default /dev/spidev1.0)
//     -t, --eeprom-type: EEPROM type/part number
//     --x16: the EEPROM is in x16 configuration
//     -r, --read FILE: save contents of EEPROM to FILE
//     -w, --write FILE: write contents of FILE to EEPROM
//     -e, --erase: erase EEPROM
//     --burst-read: read EEPROM in a single read command
//     -b, --addr-bits: number of address bits in command header
//     -s, --eeprom-size: size of EEPROM in bytes
//     --driver: spidev, periph or sim (default spidev)
//     --profiles FILE: YAML file with additional EEPROM types
//     --trace FILE: record SPI transactions to FILE (CBOR)
//     --poll-timeout: give up on a write cycle after this long
//     -v, --verbose: print every SPI transaction
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/u-root/eeprom93/pkg/spi"
	"github.com/u-root/eeprom93/pkg/spi/eeprom93"
	"github.com/u-root/eeprom93/pkg/spi/eeprom93/eeprom93sim"
	"github.com/u-root/eeprom93/pkg/spi/trace"
)

const examples = `Examples:
  eeprom93 -D /dev/spidev2.0 -r eeprom.bin -t 93c66 --x16
  eeprom93 -D /dev/spidev2.0 -e -b8 -s 512 --x16
`

var errUsage = errors.New("usage")

type action int

const (
	actionNone action = iota
	actionRead
	actionWrite
	actionErase
)

type params struct {
	dev      string
	typ      string
	x16      bool
	read     string
	write    string
	erase    bool
	burst    bool
	addrBits int
	size     int
	driver   string
	profiles string
	trace    string
	timeout  time.Duration
	verbose  bool
	help     bool

	explicit bool
}

func (p *params) action() (action, string, error) {
	var (
		a    = actionNone
		file string
		n    int
	)
	if p.read != "" {
		a, file, n = actionRead, p.read, n+1
	}
	if p.write != "" {
		a, file, n = actionWrite, p.write, n+1
	}
	if p.erase {
		a, n = actionErase, n+1
	}
	switch n {
	case 0:
		return actionNone, "", fmt.Errorf("%w: one of --read, --write or --erase is required", eeprom93.ErrConfiguration)
	case 1:
		return a, file, nil
	}
	return actionNone, "", fmt.Errorf("%w: --read, --write and --erase are mutually exclusive", eeprom93.ErrConfiguration)
}

func (p *params) selection() eeprom93.Selection {
	sel := eeprom93.Selection{Type: p.typ, X16: p.x16}
	if p.explicit || p.typ == "" {
		sel.Explicit = &eeprom93.Params{Size: p.size, AddrBits: p.addrBits}
	}
	return sel
}

func parseFlags(args []string, stderr io.Writer) (*params, error) {
	p := &params{}
	fs := flag.NewFlagSet("eeprom93", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&p.dev, "spi-device", "D", "/dev/spidev1.0", "SPI device")
	fs.StringVarP(&p.typ, "eeprom-type", "t", "", "EEPROM type/part number")
	fs.BoolVar(&p.x16, "x16", false, "EEPROM is in x16 configuration")
	fs.StringVarP(&p.read, "read", "r", "", "save contents of EEPROM to `file`")
	fs.StringVarP(&p.write, "write", "w", "", "write contents of `file` to EEPROM")
	fs.BoolVarP(&p.erase, "erase", "e", false, "erase EEPROM")
	fs.BoolVar(&p.burst, "burst-read", false, "(advanced) read EEPROM in single read command")
	fs.IntVarP(&p.addrBits, "addr-bits", "b", 8, "number of address bits in command header")
	fs.IntVarP(&p.size, "eeprom-size", "s", 256, "size of EEPROM in bytes")
	fs.StringVar(&p.driver, "driver", "spidev", "SPI driver: spidev, periph or sim")
	fs.StringVar(&p.profiles, "profiles", "", "YAML `file` with additional EEPROM types")
	fs.StringVar(&p.trace, "trace", "", "record SPI transactions to `file`")
	fs.DurationVar(&p.timeout, "poll-timeout", eeprom93.DefaultPollTimeout, "give up on a write cycle after this long")
	fs.BoolVarP(&p.verbose, "verbose", "v", false, "print every SPI transaction")
	fs.BoolVarP(&p.help, "help", "h", false, "display this help menu")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage of eeprom93:")
		fs.PrintDefaults()
		fmt.Fprint(stderr, examples)
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			p.help = true
			return p, nil
		}
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if p.help {
		fs.Usage()
		return p, nil
	}
	if fs.NArg() != 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", errUsage, fs.Arg(0))
	}
	p.explicit = fs.Changed("addr-bits") || fs.Changed("eeprom-size")
	return p, nil
}

// opener opens the bus for a resolved geometry.
type opener func(dev string, g eeprom93.Geometry) (spi.Conn, error)

var drivers = map[string]opener{
	"spidev": func(dev string, _ eeprom93.Geometry) (spi.Conn, error) {
		return spi.Open(dev, eeprom93.SPIMode, eeprom93.DefaultSpeedHz)
	},
	"periph": func(dev string, _ eeprom93.Geometry) (spi.Conn, error) {
		return spi.OpenPeriph(dev, eeprom93.DefaultSpeedHz)
	},
	"sim": func(_ string, g eeprom93.Geometry) (spi.Conn, error) {
		return eeprom93sim.New(g), nil
	},
}

func loadRegistry(path string) (eeprom93.Registry, error) {
	if path == "" {
		return eeprom93.Profiles, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	extra, err := eeprom93.LoadProfiles(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return eeprom93.Profiles.Merge(extra), nil
}

func run(args []string, stdout, stderr io.Writer) (err error) {
	p, err := parseFlags(args, stderr)
	if err != nil || p.help {
		return err
	}
	act, file, err := p.action()
	if err != nil {
		return err
	}
	open, ok := drivers[p.driver]
	if !ok {
		return fmt.Errorf("%w: unknown driver %q", eeprom93.ErrConfiguration, p.driver)
	}
	reg, err := loadRegistry(p.profiles)
	if err != nil {
		return err
	}
	g, err := eeprom93.Resolve(reg, p.selection())
	if err != nil {
		return err
	}

	// Check the image before touching the part.
	var image []byte
	if act == actionWrite {
		if image, err = os.ReadFile(file); err != nil {
			return err
		}
		if len(image) != g.Size {
			return &eeprom93.SizeMismatchError{Got: len(image), Want: g.Size}
		}
	}

	fmt.Fprintf(stdout, "EEPROM config: %v\n", g)

	conn, err := open(p.dev, g)
	if err != nil {
		return &eeprom93.TransportError{Op: "open", Err: err}
	}
	var loggers trace.Multi
	if p.verbose {
		h := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		loggers = append(loggers, trace.NewSlogAdapter(slog.New(h)))
	}
	if p.trace != "" {
		fl, err := trace.NewFileLogger(p.trace)
		if err != nil {
			conn.Close()
			return err
		}
		defer fl.Close()
		loggers = append(loggers, fl)
	}
	if len(loggers) != 0 {
		conn = trace.NewConn(conn, loggers)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Printf("Failed to close SPI device: %v", cerr)
		}
	}()

	e := &eeprom93.EEPROM{
		Conn:     conn,
		Geometry: g,
		Options:  eeprom93.Options{PollTimeout: p.timeout},
	}
	if p.verbose {
		e.Progress = progressLogger(stderr)
	}

	switch act {
	case actionRead:
		data, err := e.ReadAll(p.burst)
		if err != nil {
			return err
		}
		return os.WriteFile(file, data, 0o644)
	case actionWrite:
		return e.WriteAll(image)
	case actionErase:
		return e.EraseAll()
	}
	return nil
}

// progressLogger prints a line every tenth of the array.
func progressLogger(w io.Writer) func(done, total int) {
	last := -10
	return func(done, total int) {
		pct := done * 100 / total
		if pct/10 == last/10 && done != total {
			return
		}
		last = pct
		fmt.Fprintf(w, "%d/%d bytes (%d%%)\n", done, total, pct)
	}
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}
