package console

import (
	"flag"
	"os"
	"strconv"

	"github.com/robotalks/rigctl/pkg/regmap"
)

// Config defines the configuration of the interpreter.
type Config struct {
	// Map is a built-in profile name or a TOML register map file.
	Map string
	// LineCapacity bounds the length of a token.
	LineCapacity int
	// Ack forces set commands to acknowledge regardless of the map.
	Ack bool
}

var defaultConfig = Config{
	Map:          "basic",
	LineCapacity: DefaultLineCapacity,
}

func init() {
	if val := os.Getenv("RIG_MAP"); val != "" {
		defaultConfig.Map = val
	}
	if val, err := strconv.Atoi(os.Getenv("RIG_LINE_CAPACITY")); err == nil && val > 0 {
		defaultConfig.LineCapacity = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Map, "map", defaultConfig.Map, "Register map: basic, extended or a TOML file.")
	flag.IntVar(&defaultConfig.LineCapacity, "line-capacity", defaultConfig.LineCapacity, "Maximum token length in bytes.")
	flag.BoolVar(&defaultConfig.Ack, "ack", defaultConfig.Ack, "Acknowledge every SET command with \"0\".")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadMap resolves the register map.
func (c *Config) LoadMap() (*regmap.Map, error) {
	m, err := regmap.Resolve(c.Map)
	if err != nil {
		return nil, err
	}
	if c.Ack {
		m.Ack = true
	}
	return m, nil
}

// NewDispatcher builds the command table of m and the Dispatcher.
func (c *Config) NewDispatcher(m *regmap.Map, bus Bus) (*Dispatcher, error) {
	table, err := m.Commands()
	if err != nil {
		return nil, err
	}
	return NewDispatcher(table, bus, c.LineCapacity), nil
}
