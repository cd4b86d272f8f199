package console

import (
	"context"
	"fmt"
	"io"

	"github.com/golang/glog"

	fx "github.com/robotalks/rigctl/pkg/framework"
)

// Console runs a Dispatcher over a link.
type Console struct {
	ReadWriter io.ReadWriter
	Dispatcher *Dispatcher
}

// New creates a Console.
func New(rw io.ReadWriter, d *Dispatcher) *Console {
	return &Console{ReadWriter: rw, Dispatcher: d}
}

// Name implements Named.
func (c *Console) Name() string {
	return "console"
}

// Run implements Runnable. It returns nil on EXIT or when the link is
// closed by the peer, the fatal error when the hardware fails.
func (c *Console) Run(ctx context.Context) error {
	if closer, ok := c.ReadWriter.(io.Closer); ok {
		return fx.RunWithContextCloser(ctx, closer, func() error {
			return c.serve(ctx)
		})
	}
	return c.serve(ctx)
}

func (c *Console) serve(ctx context.Context) error {
	buf := make([]byte, 1)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := c.ReadWriter.Read(buf)
		if n > 0 {
			exit, err := c.handle(buf[0])
			if err != nil || exit {
				return err
			}
		}
		if rerr == io.EOF {
			glog.Info("link closed")
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

// handle feeds one byte and writes the response.
func (c *Console) handle(b byte) (bool, error) {
	res, err := c.Dispatcher.Feed(b)
	if err != nil && IsFatal(err) {
		glog.Errorf("fatal: %v", err)
		c.write(fmt.Sprintf("ERROR: %v%s", err, LineEnd))
		return true, err
	}
	if res.Response != "" {
		if werr := c.write(res.Response); werr != nil {
			return true, werr
		}
	}
	return res.Exit, nil
}

func (c *Console) write(s string) error {
	_, err := io.WriteString(c.ReadWriter, s)
	return err
}
