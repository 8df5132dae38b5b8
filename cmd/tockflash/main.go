// tockflash flashes and inspects devices running a Tock-style serial
// bootloader.
//
// Usage:
//
//	tockflash [flags] <command>
//
// Commands:
//
//	flash   write a binary image to internal flash
//	ping    check that the bootloader responds
//	info    print the bootloader information block
//	read    dump a range of internal flash
//	crc     print the CRC32 of an internal flash range
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/tock-tools/go-tockbl/firmware"
	"github.com/tock-tools/go-tockbl/loader"
)

var (
	version = "dev"
)

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		QuoteEmptyFields: true,
	})
}

// logrusAdapter exposes a *logrus.Logger through the loader's Logger interface.
type logrusAdapter struct {
	log *logrus.Logger
}

func (a *logrusAdapter) Debug(msg string, keysAndValues ...interface{}) {
	a.log.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (a *logrusAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.log.WithFields(kvFields(keysAndValues)).Info(msg)
}

func (a *logrusAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.log.WithFields(kvFields(keysAndValues)).Error(msg)
}

// kvFields converts alternating key/value pairs into logrus fields.
func kvFields(kv []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields[key] = kv[i+1]
	}
	return fields
}

func main() {
	var (
		configPath = flag.String("config", "", "path to a TOML config file")
		portName   = flag.String("port", "", "serial port (overrides config)")
		baud       = flag.Int("baud", 0, "baud rate (overrides config)")
		imagePath  = flag.String("image", "", "binary image to flash")
		baseAddr   = flag.String("base", "", "flash base address, e.g. 0x10000 (overrides config)")
		addr       = flag.String("addr", "", "address for read/crc, e.g. 0x10000")
		length     = flag.Uint("len", 512, "length in bytes for read/crc")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	log := logrus.StandardLogger()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] flash|ping|info|read|crc\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	command := flag.Arg(0)

	cfg := defaultFileConfig()
	if *configPath != "" {
		var err error
		cfg, err = loadConfig(*configPath)
		if err != nil {
			log.Fatal(err)
		}
	}
	if *portName != "" {
		cfg.Port = *portName
	}
	if *baud != 0 {
		cfg.Baud = *baud
	}
	if *baseAddr != "" {
		base, err := strconv.ParseUint(*baseAddr, 0, 32)
		if err != nil {
			log.Fatalf("invalid base address %q: %v", *baseAddr, err)
		}
		cfg.BaseAddress = uint32(base)
	}
	if cfg.Port == "" {
		log.Fatal("no serial port given (use -port or a config file)")
	}

	log.WithFields(logrus.Fields{
		"version": version,
		"port":    cfg.Port,
		"baud":    cfg.Baud,
	}).Debug("opening port")

	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		log.Fatalf("open %s: %v", cfg.Port, err)
	}
	defer func() { _ = port.Close() }()

	if err := port.SetReadTimeout(time.Second); err != nil {
		log.Fatalf("set read timeout: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ldr := loader.New(port,
		loader.WithLogger(&logrusAdapter{log: log}),
		loader.WithProgressCallback(func(p loader.Progress) {
			if p.Phase == loader.PhaseWriting {
				fmt.Printf("\r%s %3.0f%% (page %d/%d)", p.Phase, p.Percentage, p.CurrentPage, p.TotalPages)
			} else {
				fmt.Printf("\r%s %3.0f%%%20s", p.Phase, p.Percentage, "")
			}
			if p.Phase == loader.PhaseComplete {
				fmt.Println()
			}
		}),
	)

	if err := dispatch(ctx, log, ldr, &cfg, command, *imagePath, *addr, uint16(*length)); err != nil {
		log.Fatal(err)
	}
}

func dispatch(ctx context.Context, log *logrus.Logger, ldr *loader.Loader, cfg *fileConfig, command, imagePath, addr string, length uint16) error {
	switch command {
	case "ping":
		if err := ldr.Ping(ctx); err != nil {
			return err
		}
		log.Info("bootloader is alive")
		return nil

	case "info":
		info, err := ldr.Info(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", info)
		return nil

	case "flash":
		return runFlash(ctx, log, ldr, cfg, imagePath)

	case "read":
		address, err := parseAddr(addr)
		if err != nil {
			return err
		}
		data, err := ldr.ReadRange(ctx, address, length)
		if err != nil {
			return err
		}
		fmt.Print(hex.Dump(data))
		return nil

	case "crc":
		address, err := parseAddr(addr)
		if err != nil {
			return err
		}
		crc, err := ldr.CrcInternalFlash(ctx, address, uint32(length))
		if err != nil {
			return err
		}
		fmt.Printf("0x%08X\n", crc)
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// runFlash writes an image and programs any attributes from the config file.
func runFlash(ctx context.Context, log *logrus.Logger, ldr *loader.Loader, cfg *fileConfig, imagePath string) error {
	if imagePath == "" {
		return fmt.Errorf("flash requires -image")
	}

	img, err := firmware.Load(imagePath, cfg.BaseAddress)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"image": imagePath,
		"base":  fmt.Sprintf("0x%08X", cfg.BaseAddress),
		"pages": len(img.Pages),
	}).Info("flashing image")

	if err := ldr.FlashImage(ctx, img); err != nil {
		return err
	}

	for _, attr := range cfg.Attributes {
		if err := ldr.SetAttribute(ctx, byte(attr.Index), attr.Key, []byte(attr.Value)); err != nil {
			return fmt.Errorf("set attribute %q: %w", attr.Key, err)
		}
		log.WithFields(logrus.Fields{
			"index": attr.Index,
			"key":   attr.Key,
		}).Debug("attribute programmed")
	}

	return nil
}

// parseAddr parses an address flag in decimal or 0x-prefixed hex.
func parseAddr(s string) (uint32, error) {
	if s == "" {
		return 0, fmt.Errorf("missing -addr")
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint32(v), nil
}
