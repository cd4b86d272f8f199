package link

import (
	"flag"
	"os"
)

// Config defines how the link is opened.
type Config struct {
	// URL selects the transport, e.g.
	//   stdio:
	//   serial:///dev/ttyUSB0?baud=115200
	//   tcp://:7000
	//   ws://:8080/console
	//   mqtt://localhost:1883/rig/?id=bench-1
	URL string
	// ID names the console on a broker when the URL doesn't.
	ID string
	// Meta is advertised on brokers.
	Meta map[string]interface{}
}

var defaultConfig = Config{
	URL: "stdio:",
}

func init() {
	if val := os.Getenv("RIG_LINK"); val != "" {
		defaultConfig.URL = val
	}
	if val := os.Getenv("RIG_ID"); val != "" {
		defaultConfig.ID = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.URL, "link", defaultConfig.URL, "Link URL: stdio:, serial://DEV, tcp://ADDR, ws://ADDR/PATH or mqtt://BROKER/PREFIX.")
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Console ID on the broker, defaults to the machine ID.")
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
