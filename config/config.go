// Package config resolves the program configuration from CLI flags,
// COMMANDER_* environment variables, and an optional config file, in
// that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SerialConfig holds the frame settings not exposed as flags; they come
// from the config file or environment and default to 8N1.
type SerialConfig struct {
	DataBits int    `mapstructure:"databits"`
	Parity   string `mapstructure:"parity"`
	StopBits int    `mapstructure:"stopbits"`
}

// LogConfig holds the ambient logging knobs.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Config is the resolved program configuration.
type Config struct {
	List     bool
	Port     string
	BaudRate int
	Hex      bool
	Timeout  time.Duration
	Serial   SerialConfig
	Log      LogConfig
}

// Load parses args (without the program name) and layers them over the
// environment, the config file, and the defaults. Flag usage errors
// (including pflag.ErrHelp) are returned to the caller.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("commander", pflag.ContinueOnError)
	fs.SortFlags = false
	list := fs.BoolP("list", "l", false, "list serial ports")
	fs.StringP("port", "p", "", "serial port (auto detected by default)")
	fs.IntP("baudrate", "b", 9600, "baudrate (default is 9600)")
	fs.BoolP("hex", "x", false, "send and receive data in hexadecimal mode")
	fs.Float64P("timeout", "t", 0.1, "timeout in seconds for receiving data")
	cfgFile := fs.String("config", "", "config file (default is commander.yaml)")
	fs.String("log-level", "warn", "log level (debug|info|warn|error)")
	fs.String("log-file", "", "rotated log file (disabled by default)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("serial.databits", 8)
	v.SetDefault("serial.parity", "none")
	v.SetDefault("serial.stopbits", 1)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)

	v.BindPFlag("port", fs.Lookup("port"))
	v.BindPFlag("baudrate", fs.Lookup("baudrate"))
	v.BindPFlag("hex", fs.Lookup("hex"))
	v.BindPFlag("timeout", fs.Lookup("timeout"))
	v.BindPFlag("log.level", fs.Lookup("log-level"))
	v.BindPFlag("log.file", fs.Lookup("log-file"))

	v.SetEnvPrefix("COMMANDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if *cfgFile != "" {
		v.SetConfigFile(*cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("commander")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/commander")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		List:     *list,
		Port:     v.GetString("port"),
		BaudRate: v.GetInt("baudrate"),
		Hex:      v.GetBool("hex"),
		Timeout:  time.Duration(v.GetFloat64("timeout") * float64(time.Second)),
	}
	if err := v.UnmarshalKey("serial", &cfg.Serial); err != nil {
		return nil, fmt.Errorf("serial config: %w", err)
	}
	if err := v.UnmarshalKey("log", &cfg.Log); err != nil {
		return nil, fmt.Errorf("log config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BaudRate <= 0 {
		return fmt.Errorf("baudrate must be positive, got %d", c.BaudRate)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	switch strings.ToLower(c.Serial.Parity) {
	case "", "none", "n", "odd", "o", "even", "e", "mark", "m", "space", "s":
	default:
		return fmt.Errorf("unknown parity %q", c.Serial.Parity)
	}
	switch c.Serial.StopBits {
	case 1, 2:
	default:
		return fmt.Errorf("unsupported stop bits %d", c.Serial.StopBits)
	}
	return nil
}
