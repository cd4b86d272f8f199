package link

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.bug.st/serial"
)

// DefaultBaudRate is the UART speed of the rig.
const DefaultBaudRate = 115200

// SerialMode parses the serial parameters from the query of a link URL:
// baud, databits, parity (none, odd, even, mark, space) and stopbits
// (1, 1.5, 2).
func SerialMode(query url.Values) (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if val := query.Get("baud"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid baud rate %q", val)
		}
		mode.BaudRate = n
	}
	if val := query.Get("databits"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n < 5 || n > 8 {
			return nil, fmt.Errorf("invalid data bits %q", val)
		}
		mode.DataBits = n
	}
	switch val := strings.ToLower(query.Get("parity")); val {
	case "", "none", "n":
	case "odd", "o":
		mode.Parity = serial.OddParity
	case "even", "e":
		mode.Parity = serial.EvenParity
	case "mark", "m":
		mode.Parity = serial.MarkParity
	case "space", "s":
		mode.Parity = serial.SpaceParity
	default:
		return nil, fmt.Errorf("invalid parity %q", val)
	}
	switch val := query.Get("stopbits"); val {
	case "", "1":
	case "1.5":
		mode.StopBits = serial.OnePointFiveStopBits
	case "2":
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("invalid stop bits %q", val)
	}
	return mode, nil
}

// OpenSerial opens the serial port named by the path of u.
func OpenSerial(u *url.URL) (Stream, error) {
	dev := u.Path
	if dev == "" {
		dev = u.Opaque
	}
	if dev == "" {
		return nil, fmt.Errorf("serial device not specified")
	}
	mode, err := SerialMode(u.Query())
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(dev, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dev, err)
	}
	return port, nil
}
