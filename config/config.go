package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ledtester/pkg/arduino"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults mirror the firmware side: the board talks at 115200 baud and has
// a reply on the wire well inside two seconds. The wire timing values are
// the adapter's own constants.
const (
	DefaultAddr            = ":8000"
	DefaultSerialPort      = "/dev/ttyUSB0"
	DefaultBaudRate        = 115200
	DefaultReadTimeout     = arduino.DefaultReadTimeout
	DefaultSettleDelay     = arduino.DefaultSettleDelay
	DefaultHelpSettleDelay = arduino.DefaultHelpSettleDelay
	DefaultBootDelay       = 2 * time.Second
)

type Config struct {
	Addr            string
	SerialPort      string
	BaudRate        int
	ReadTimeout     time.Duration
	SettleDelay     time.Duration
	HelpSettleDelay time.Duration
	BootDelay       time.Duration
}

// Load resolves settings from changed flags, LEDTESTER_* environment
// variables, an optional ledtester.yaml (or the file named by --config), and
// the defaults, in that order of precedence. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("serial.port", DefaultSerialPort)
	v.SetDefault("serial.baud", DefaultBaudRate)
	v.SetDefault("serial.read_timeout", DefaultReadTimeout)
	v.SetDefault("serial.settle_delay", DefaultSettleDelay)
	v.SetDefault("serial.help_settle_delay", DefaultHelpSettleDelay)
	v.SetDefault("serial.boot_delay", DefaultBootDelay)

	v.SetEnvPrefix("ledtester")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var explicit string
	if flags != nil {
		bind := func(key, name string) {
			if f := flags.Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
		bind("addr", "addr")
		bind("serial.port", "serial-port")
		bind("serial.baud", "baud")
		if f := flags.Lookup("config"); f != nil {
			explicit = f.Value.String()
		}
	}

	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("ledtester")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		// Only a named file is required to exist.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &Config{
		Addr:            v.GetString("addr"),
		SerialPort:      v.GetString("serial.port"),
		BaudRate:        v.GetInt("serial.baud"),
		ReadTimeout:     v.GetDuration("serial.read_timeout"),
		SettleDelay:     v.GetDuration("serial.settle_delay"),
		HelpSettleDelay: v.GetDuration("serial.help_settle_delay"),
		BootDelay:       v.GetDuration("serial.boot_delay"),
	}, nil
}
