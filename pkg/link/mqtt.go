package link

import (
	"context"
	"net/url"

	"github.com/robotalks/rigctl/pkg/env"
	"github.com/robotalks/rigctl/pkg/link/mqtt"
)

// consoleID picks the console ID from query "id", the config or the
// machine.
func (c *Config) consoleID(u *url.URL) string {
	if id := u.Query().Get("id"); id != "" {
		return id
	}
	if c.ID != "" {
		return c.ID
	}
	return env.RigID()
}

func (c *Config) openMQTT(ctx context.Context, u *url.URL) (Stream, error) {
	return mqtt.DialConsole(ctx, u, c.consoleID(u), c.Meta)
}
