package client

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/rigctl/pkg/framework"
	"github.com/robotalks/rigctl/pkg/link"
	"github.com/robotalks/rigctl/pkg/link/mqtt"
)

// Config defines how to reach a console.
type Config struct {
	// Port is a serial device or a URL: tcp://HOST:PORT, ws://HOST:PORT/PATH
	// or mqtt://BROKER/PREFIX?id=RIG. When empty, serial ports are
	// discovered with Filter.
	Port    string
	Filter  Filter
	Baud    int
	Timeout time.Duration
	Ack     bool
}

var defaultConfig = Config{
	Baud:    link.DefaultBaudRate,
	Timeout: DefaultTimeout,
}

func init() {
	if val := os.Getenv("RIG_PORT"); val != "" {
		defaultConfig.Port = val
	}
	if val := os.Getenv("RIG_VID"); val != "" {
		defaultConfig.Filter.VID = val
	}
	if val := os.Getenv("RIG_PID"); val != "" {
		defaultConfig.Filter.PID = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial device or console URL, discovered if empty.")
	flag.StringVar(&defaultConfig.Filter.VID, "vid", defaultConfig.Filter.VID, "USB vendor ID of the serial adapter.")
	flag.StringVar(&defaultConfig.Filter.PID, "pid", defaultConfig.Filter.PID, "USB product ID of the serial adapter.")
	flag.StringVar(&defaultConfig.Filter.SerialSuffix, "serial", defaultConfig.Filter.SerialSuffix, "Suffix of the USB serial number.")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Serial baud rate.")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Reply timeout.")
	flag.BoolVar(&defaultConfig.Ack, "ack", defaultConfig.Ack, "Expect \"0\" after each SET.")
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

// Dial opens the link and creates a Client.
func (c *Config) Dial(ctx context.Context) (*Client, error) {
	stream, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	cl := New(stream)
	cl.Ack, cl.Timeout = c.Ack, c.Timeout
	return cl, nil
}

// Dial connects to the console with the default configuration.
func Dial(ctx context.Context) (*Client, error) {
	return NewConfig().Dial(ctx)
}

func (c *Config) open(ctx context.Context) (link.Stream, error) {
	if !strings.Contains(c.Port, "://") {
		return c.openSerial(c.Port)
	}
	u, err := url.Parse(c.Port)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "serial":
		return c.openSerial(u.Path)
	case "tcp":
		var d net.Dialer
		return d.DialContext(ctx, "tcp", u.Host)
	case "ws":
		conn, err := websocket.Dial(c.Port, "", "http://"+u.Host+"/")
		if err != nil {
			return nil, err
		}
		conn.PayloadType = websocket.BinaryFrame
		return conn, nil
	case "mqtt", "mqtts", "ssl", "tls":
		id := u.Query().Get("id")
		if id == "" {
			return nil, fmt.Errorf("console id required in %q", c.Port)
		}
		return mqtt.DialClient(ctx, u, id)
	default:
		return nil, fmt.Errorf("unknown port scheme: %q", u.Scheme)
	}
}

func (c *Config) openSerial(port string) (link.Stream, error) {
	mode := &serial.Mode{
		BaudRate: c.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if port != "" {
		return serial.Open(port, mode)
	}
	names, err := FindPorts(c.Filter)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no serial port found")
	}
	var errs fx.AggregatedError
	for _, name := range names {
		port, err := serial.Open(name, mode)
		if err == nil {
			glog.Infof("using serial port %s", name)
			return port, nil
		}
		errs.Add(fmt.Errorf("%s: %w", name, err))
	}
	return nil, errs.Aggregate()
}
