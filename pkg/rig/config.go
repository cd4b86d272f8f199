// Package rig assembles the hardware side of a console: the hardware
// context, the transaction engine and telemetry.
package rig

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robotalks/rigctl/pkg/regbus"
	"github.com/robotalks/rigctl/pkg/regbus/axigpio"
)

// Hardware kinds.
const (
	HardwareSim     = "sim"
	HardwareAXIGPIO = "axigpio"
)

// InitFailure is written to the link when the hardware can't be opened.
const InitFailure = "GPIO Initialization Failed\r\n"

// Config provides options to set up the hardware side.
type Config struct {
	// Hardware selects the hardware context: sim or axigpio.
	Hardware string
	// GPIO locates the GPIO blocks for axigpio.
	GPIO axigpio.Config
	// SettleDelay is the hold time after driving a channel.
	SettleDelay time.Duration
	// TelemetryURL is the MQTT broker receiving transaction events,
	// e.g. mqtt://host:port/topic-prefix. Empty disables publishing.
	TelemetryURL string
	// ID names the console in telemetry topics.
	ID string
}

var defaultConfig = Config{
	Hardware:    HardwareAXIGPIO,
	GPIO:        axigpio.DefaultConfig,
	SettleDelay: regbus.DefaultSettleDelay,
}

func init() {
	if val := os.Getenv("RIG_HW"); val != "" {
		defaultConfig.Hardware = val
	}
	if val := os.Getenv("RIG_MQTT_URL"); val != "" {
		defaultConfig.TelemetryURL = val
	}
	if val := os.Getenv("RIG_ID"); val != "" {
		defaultConfig.ID = val
	}
}

type hexFlag struct {
	val *uint64
}

func (f hexFlag) String() string {
	if f.val == nil {
		return ""
	}
	return fmt.Sprintf("%#x", *f.val)
}

func (f hexFlag) Set(s string) error {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return err
	}
	*f.val = v
	return nil
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Hardware, "hw", defaultConfig.Hardware, "Hardware context: sim or axigpio.")
	flag.StringVar(&defaultConfig.GPIO.MemPath, "gpio-mem", defaultConfig.GPIO.MemPath, "Physical memory device of the GPIO blocks.")
	flag.Var(hexFlag{&defaultConfig.GPIO.SetBase}, "gpio-set", "Base address of the GPIO block for writes.")
	flag.Var(hexFlag{&defaultConfig.GPIO.GetBase}, "gpio-get", "Base address of the GPIO block for reads.")
	flag.DurationVar(&defaultConfig.SettleDelay, "settle", defaultConfig.SettleDelay, "Hold time after driving a channel.")
	flag.StringVar(&defaultConfig.TelemetryURL, "mqtt", defaultConfig.TelemetryURL, "MQTT broker URL for transaction telemetry.")
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
