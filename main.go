// Commander is an interactive terminal for a serial-port link: it opens
// a device and concurrently streams received bytes to the display while
// forwarding operator input to the device, in text or hex mode.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Pairman/Commander/codec"
	"github.com/Pairman/Commander/config"
	"github.com/Pairman/Commander/driver"
	"github.com/Pairman/Commander/logger"
	"github.com/Pairman/Commander/terminal"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// seams for tests
var (
	listPorts = driver.ListPorts
	openPort  = driver.Open
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, in io.Reader, out io.Writer) int {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer logger.Sync()

	if cfg.List {
		ports, err := listPorts()
		if err != nil {
			fmt.Fprintf(out, "failed to list serial ports: %v\n", err)
			return 1
		}
		if len(ports) == 0 {
			fmt.Fprintln(out, "no serial ports available")
			return 1
		}
		fmt.Fprintf(out, "list of serial ports: '%s'\n", strings.Join(ports, "', '"))
		return 0
	}

	// choose the port to connect to
	name := cfg.Port
	if name == "" {
		ports, err := listPorts()
		if err != nil || len(ports) == 0 {
			fmt.Fprintln(out, "no serial ports available")
			return 1
		}
		name = ports[0]
	}

	port, err := openPort(name, driver.Config{
		BaudRate:    cfg.BaudRate,
		DataBits:    cfg.Serial.DataBits,
		Parity:      cfg.Serial.Parity,
		StopBits:    cfg.Serial.StopBits,
		ReadTimeout: cfg.Timeout,
	})
	if err != nil {
		fmt.Fprintf(out, "failed to connect to port '%s': %v\n", name, err)
		return 1
	}

	mode := codec.ModeText
	modeNote := ""
	if cfg.Hex {
		mode = codec.ModeHex
		modeNote = ", hexadecimal mode"
	}
	fmt.Fprintf(out, "connected to '%s', baudrate %d%s\n", name, cfg.BaudRate, modeNote)

	stop := terminal.NewStopSignal()
	defer stop.Trigger()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig := <-sigCh
		logger.L().Info("shutdown signal received", zap.Stringer("signal", sig))
		stop.Trigger()
	}()

	session := terminal.New(port, stop, terminal.Config{
		Mode:        mode,
		ReadTimeout: cfg.Timeout,
		Input:       in,
		Output:      out,
	})
	if err := session.Run(); err != nil {
		logger.L().Warn("port close failed", zap.Error(err))
	}
	return 0
}
