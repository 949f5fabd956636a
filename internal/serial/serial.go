package serial

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Port is the surface the tester needs from a serial device. The concrete
// implementation is tarm/serial; tests substitute an in-memory fake.
type Port interface {
	io.ReadWriteCloser

	// Flush discards bytes pending in the device input and output queues.
	Flush() error
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g. "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate
	Baud int

	// ReadTimeout is the per-read poll interval, not the overall wait for
	// a reply. Callers that need a longer deadline keep reading until it
	// passes.
	ReadTimeout time.Duration
}

// DefaultConfig returns the configuration for an LED controller board.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Open opens the serial device described by cfg.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	return port, nil
}
