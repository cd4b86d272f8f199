package rig

import (
	"context"
	"fmt"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/rigctl/pkg/env"
	fx "github.com/robotalks/rigctl/pkg/framework"
	"github.com/robotalks/rigctl/pkg/link/mqtt"
	"github.com/robotalks/rigctl/pkg/regbus"
	"github.com/robotalks/rigctl/pkg/regbus/axigpio"
	"github.com/robotalks/rigctl/pkg/regbus/sim"
	"github.com/robotalks/rigctl/pkg/regmap"
	"github.com/robotalks/rigctl/pkg/telemetry"
)

// Env is the hardware side of a console.
type Env struct {
	Config    *Config
	Hardware  regbus.HardwareContext
	Engine    *regbus.Engine
	Telemetry *mqtt.Queue
}

// OpenHardware opens the configured hardware context.
func (c *Config) OpenHardware() (regbus.HardwareContext, error) {
	switch c.Hardware {
	case HardwareSim:
		return sim.NewReference(), nil
	case HardwareAXIGPIO:
		dev, err := axigpio.Open(c.GPIO)
		if err != nil {
			return nil, err
		}
		return dev, nil
	default:
		return nil, fmt.Errorf("unknown hardware %q", c.Hardware)
	}
}

// NewEnv opens the hardware and wires telemetry named after m.
func (c *Config) NewEnv(m *regmap.Map) (*Env, error) {
	hw, err := c.OpenHardware()
	if err != nil {
		return nil, err
	}
	e := &Env{Config: c, Hardware: hw, Engine: regbus.New(hw)}
	e.Engine.SettleDelay = c.SettleDelay
	names := telemetry.NamesOf(m)
	e.Engine.Observe(&telemetry.Logger{Names: names})
	if c.TelemetryURL != "" {
		if e.Telemetry, err = mqtt.NewQueueFromURL(c.TelemetryURL); err != nil {
			e.Close()
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		id := c.ID
		if id == "" {
			id = env.RigID()
		}
		e.Engine.Observe(&telemetry.Publisher{Queue: e.Telemetry, ID: id, Names: names})
	}
	glog.Infof("hardware %s ready, map %s", c.Hardware, m.Name)
	return e, nil
}

// Name implements Named.
func (e *Env) Name() string {
	return "telemetry"
}

// Run implements Runnable. It keeps the telemetry connection.
func (e *Env) Run(ctx context.Context) error {
	if e.Telemetry == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return fx.RunWithContextCloser(ctx, e.Telemetry, func() error {
		token := e.Telemetry.Connect()
		token.Wait()
		if err := token.Error(); err != nil {
			glog.Warningf("telemetry broker unavailable: %v", err)
		}
		<-ctx.Done()
		return ctx.Err()
	})
}

// Close releases the hardware.
func (e *Env) Close() error {
	if closer, ok := e.Hardware.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ReportInitFailure tells the peer on w that the hardware didn't come up.
// A link without a connected peer only gets the failure logged.
func ReportInitFailure(w io.Writer) error {
	if _, err := io.WriteString(w, InitFailure); err != nil {
		glog.Warningf("hardware failure not reported to the link: %v", err)
		return err
	}
	return nil
}
