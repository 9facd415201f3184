// Package config loads server settings from a YAML file plus BALANZA_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete server configuration.
type Config struct {
	// Listen is the HTTP listen address, for example ":8080".
	Listen string `mapstructure:"listen"`
	// DBPath is the SQLite reading-audit database file.
	DBPath string `mapstructure:"db_path"`
	// DataDir holds the JSON documents (ledger, realtime state, credentials).
	DataDir string `mapstructure:"data_dir"`

	Scale ScaleConfig `mapstructure:"scale"`
}

// ScaleConfig configures the weighing-instrument connection.
type ScaleConfig struct {
	Port     string `mapstructure:"port"`
	Baud     int    `mapstructure:"baud"`
	Protocol string `mapstructure:"protocol"`
	// Simulate replaces the serial port with a synthetic frame generator.
	Simulate bool `mapstructure:"simulate"`
	// EL05Divisor converts the EL05 raw digit run into kilograms.
	EL05Divisor float64 `mapstructure:"el05_divisor"`
	// PollInterval is the pause between consecutive frames.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// ReadTimeout bounds a single serial read, and with it how long a stop
	// request can go unnoticed.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

var validBauds = map[int]bool{9600: true, 19200: true, 38400: true}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("db_path", "balanza.db")
	v.SetDefault("data_dir", ".")

	v.SetDefault("scale.port", "/dev/ttyUSB0")
	v.SetDefault("scale.baud", 9600)
	v.SetDefault("scale.protocol", "el05")
	v.SetDefault("scale.simulate", false)
	v.SetDefault("scale.el05_divisor", 10)
	v.SetDefault("scale.poll_interval", 100*time.Millisecond)
	v.SetDefault("scale.read_timeout", time.Second)
}

// Load reads configuration from path, or from balanza.yaml in the working
// directory and /etc/balanza when path is empty. A missing implicit config
// file is fine; every key has a default. Environment variables prefixed
// BALANZA_ override file values (scale.baud becomes BALANZA_SCALE_BAUD).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("balanza")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/balanza")
	}

	v.SetEnvPrefix("BALANZA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the acquisition loop cannot run with.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address must not be empty")
	}
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if !validBauds[c.Scale.Baud] {
		return fmt.Errorf("unsupported baud rate %d (want 9600, 19200 or 38400)", c.Scale.Baud)
	}
	switch c.Scale.Protocol {
	case "el05", "cond":
	default:
		return fmt.Errorf("unknown scale protocol %q (want el05 or cond)", c.Scale.Protocol)
	}
	if c.Scale.EL05Divisor <= 0 {
		return fmt.Errorf("el05_divisor must be positive, got %v", c.Scale.EL05Divisor)
	}
	if c.Scale.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", c.Scale.PollInterval)
	}
	if c.Scale.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive, got %v", c.Scale.ReadTimeout)
	}
	return nil
}
