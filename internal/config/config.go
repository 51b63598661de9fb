// Package config is the external collaborator for command-line argument
// parsing and validation: a thin layer over pflag-backed cobra flags. The
// core packages never import it — they only ever see a validated Config.
package config

import (
	"net"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/rvento/drtp/pkg/drtp/framing"
	"github.com/rvento/drtp/pkg/drtp/packet"
	"github.com/rvento/drtp/pkg/drtp/strategy"
)

// Mode selects which side of the connection this invocation runs.
type Mode int

const (
	ModeClient Mode = iota
	ModeServer
)

func parseMode(name string) (Mode, error) {
	switch name {
	case "client":
		return ModeClient, nil
	case "server":
		return ModeServer, nil
	default:
		return 0, errors.Errorf("unknown mode %q, want client or server", name)
	}
}

// Config holds every parsed and validated command-line parameter.
type Config struct {
	Mode          Mode
	Reliability   strategy.Kind
	IP            string
	Port          int
	Window        int    // wire packet size in bytes, including the 12-byte header
	SlidingWindow int    // GBN/SR in-flight packet count
	File          string // input file path on the client, save directory on the server
	TestMode      strategy.TestMode
	LogLevel      string
}

// Flags holds the values of every DRTP flag that Register adds to a
// FlagSet, mirroring the spf13/pflag shape
// telepresenceio-telepresence's cmd/*/main.go builds its commands from.
type Flags struct {
	mode          *string
	reliability   *string
	ip            *string
	port          *int
	window        *int
	slidingWindow *int
	file          *string
	testMode      *string
	logLevel      *string
}

// Register adds DRTP's flags to fs and returns the handle Parse reads back.
func Register(fs *pflag.FlagSet) *Flags {
	return &Flags{
		mode:          fs.String("mode", "", "client or server (required)"),
		reliability:   fs.StringP("reliability", "r", "stop_and_wait", "stop_and_wait, gbn, or sr"),
		ip:            fs.String("ip", "127.0.0.1", "bind address (server) or peer address (client)"),
		port:          fs.IntP("port", "p", 8080, "UDP port"),
		window:        fs.IntP("window", "w", strategy.DefaultWireWindow, "packet size in bytes, including the 12-byte header"),
		slidingWindow: fs.Int("sliding-window", strategy.DefaultWindow, "GBN/SR in-flight packet count"),
		file:          fs.StringP("file", "f", "", "input file (client) or save directory (server)"),
		testMode:      fs.String("test-mode", "none", "none, loss, or skip_ack"),
		logLevel:      fs.String("log-level", "info", "debug, info, warn, or error"),
	}
}

// Parse validates the registered flag values and builds a Config.
func Parse(f *Flags) (*Config, error) {
	mode, err := parseMode(*f.mode)
	if err != nil {
		return nil, errors.Wrap(err, "invalid --mode")
	}
	rel, err := strategy.Parse(*f.reliability)
	if err != nil {
		return nil, errors.Wrap(err, "invalid --reliability")
	}
	tm, err := strategy.ParseTestMode(*f.testMode)
	if err != nil {
		return nil, errors.Wrap(err, "invalid --test-mode")
	}
	if net.ParseIP(*f.ip) == nil {
		return nil, errors.Errorf("invalid --ip %q", *f.ip)
	}
	if *f.port <= 0 || *f.port > 65535 {
		return nil, errors.Errorf("invalid --port %d, want 1-65535", *f.port)
	}
	if *f.window-packet.HeaderSize <= 0 {
		return nil, errors.Errorf("--window %d too small, must exceed the %d-byte packet header", *f.window, packet.HeaderSize)
	}
	if *f.slidingWindow <= 0 {
		return nil, errors.Errorf("--sliding-window %d must be positive", *f.slidingWindow)
	}
	if *f.file == "" {
		return nil, errors.New("--file is required")
	}
	if mode == ModeClient && len(filepath.Base(*f.file)) > framing.NameSize {
		return nil, errors.Errorf("filename %q exceeds the %d-byte filename frame", filepath.Base(*f.file), framing.NameSize)
	}

	return &Config{
		Mode:          mode,
		Reliability:   rel,
		IP:            *f.ip,
		Port:          *f.port,
		Window:        *f.window,
		SlidingWindow: *f.slidingWindow,
		File:          *f.file,
		TestMode:      tm,
		LogLevel:      *f.logLevel,
	}, nil
}
