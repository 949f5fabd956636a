package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != ":8000" {
		t.Errorf("Addr = %q, want :8000", cfg.Addr)
	}
	if cfg.SerialPort != "/dev/ttyUSB0" {
		t.Errorf("SerialPort = %q, want /dev/ttyUSB0", cfg.SerialPort)
	}
	if cfg.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", cfg.BaudRate)
	}
	if cfg.ReadTimeout != 2*time.Second {
		t.Errorf("ReadTimeout = %v, want 2s", cfg.ReadTimeout)
	}
	if cfg.SettleDelay != 50*time.Millisecond {
		t.Errorf("SettleDelay = %v, want 50ms", cfg.SettleDelay)
	}
	if cfg.HelpSettleDelay != 100*time.Millisecond {
		t.Errorf("HelpSettleDelay = %v, want 100ms", cfg.HelpSettleDelay)
	}
	if cfg.BootDelay != 2*time.Second {
		t.Errorf("BootDelay = %v, want 2s", cfg.BootDelay)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LEDTESTER_ADDR", ":9000")
	t.Setenv("LEDTESTER_SERIAL_PORT", "/dev/ttyACM2")
	t.Setenv("LEDTESTER_SERIAL_BAUD", "9600")
	t.Setenv("LEDTESTER_SERIAL_READ_TIMEOUT", "5s")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != ":9000" {
		t.Errorf("Addr = %q, want :9000", cfg.Addr)
	}
	if cfg.SerialPort != "/dev/ttyACM2" {
		t.Errorf("SerialPort = %q, want /dev/ttyACM2", cfg.SerialPort)
	}
	if cfg.BaudRate != 9600 {
		t.Errorf("BaudRate = %d, want 9600", cfg.BaudRate)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.ReadTimeout)
	}
	// Untouched keys keep their defaults.
	if cfg.SettleDelay != 50*time.Millisecond {
		t.Errorf("SettleDelay = %v, want 50ms", cfg.SettleDelay)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	body := "addr: \":8080\"\n" +
		"serial:\n" +
		"  port: /dev/ttyACM0\n" +
		"  baud: 57600\n" +
		"  settle_delay: 10ms\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	if err := flags.Set("config", path); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	cfg, err := Load(flags)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.SerialPort != "/dev/ttyACM0" {
		t.Errorf("SerialPort = %q, want /dev/ttyACM0", cfg.SerialPort)
	}
	if cfg.BaudRate != 57600 {
		t.Errorf("BaudRate = %d, want 57600", cfg.BaudRate)
	}
	if cfg.SettleDelay != 10*time.Millisecond {
		t.Errorf("SettleDelay = %v, want 10ms", cfg.SettleDelay)
	}
	if cfg.HelpSettleDelay != 100*time.Millisecond {
		t.Errorf("HelpSettleDelay = %v, want 100ms", cfg.HelpSettleDelay)
	}
}

func TestLoadMissingNamedConfigFile(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	if err := flags.Set("config", filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if _, err := Load(flags); err == nil {
		t.Fatal("Load succeeded with a missing named config file")
	}
}

func TestLoadFlagOverrides(t *testing.T) {
	// A changed flag outranks the environment.
	t.Setenv("LEDTESTER_SERIAL_PORT", "/dev/ttyACM9")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", DefaultAddr, "")
	flags.String("serial-port", DefaultSerialPort, "")
	flags.Int("baud", DefaultBaudRate, "")
	if err := flags.Set("serial-port", "COM7"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := flags.Set("baud", "250000"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	cfg, err := Load(flags)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.SerialPort != "COM7" {
		t.Errorf("SerialPort = %q, want COM7", cfg.SerialPort)
	}
	if cfg.BaudRate != 250000 {
		t.Errorf("BaudRate = %d, want 250000", cfg.BaudRate)
	}
	// The unchanged flag leaves the default in place.
	if cfg.Addr != ":8000" {
		t.Errorf("Addr = %q, want :8000", cfg.Addr)
	}
}
