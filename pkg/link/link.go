// Package link opens the byte stream a console talks over.
package link

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/golang/glog"
)

// Stream is a bidirectional byte stream to the peer.
type Stream = io.ReadWriteCloser

// Open opens a Stream from URL with default options.
func Open(ctx context.Context, rawURL string) (Stream, error) {
	conf := NewConfig()
	conf.URL = rawURL
	return conf.Open(ctx)
}

// Open opens the Stream configured by URL.
func (c *Config) Open(ctx context.Context) (Stream, error) {
	u, err := parseURL(c.URL)
	if err != nil {
		return nil, err
	}
	glog.Infof("opening link %s", u.Redacted())
	switch u.Scheme {
	case "stdio":
		return OpenStdio()
	case "serial":
		return OpenSerial(u)
	case "tcp":
		return ListenTCP(u.Host)
	case "ws":
		return ListenWebsocket(u.Host, u.Path)
	case "mqtt", "mqtts", "ssl", "tls":
		return c.openMQTT(ctx, u)
	default:
		return nil, fmt.Errorf("unknown link URL scheme: %q", u.Scheme)
	}
}

// parseURL accepts "stdio", "stdio:" and a bare device path as shortcuts.
func parseURL(rawURL string) (*url.URL, error) {
	switch {
	case rawURL == "" || rawURL == "-" || strings.TrimSuffix(rawURL, ":") == "stdio":
		return &url.URL{Scheme: "stdio"}, nil
	case strings.HasPrefix(rawURL, "/dev/"):
		return &url.URL{Scheme: "serial", Path: rawURL}, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid link URL: %w", err)
	}
	return u, nil
}
