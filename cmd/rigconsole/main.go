package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/rigctl/pkg/console"
	fx "github.com/robotalks/rigctl/pkg/framework"
	"github.com/robotalks/rigctl/pkg/link"
	"github.com/robotalks/rigctl/pkg/rig"
)

func init() {
	console.SetupFlags()
	link.SetupFlags()
	rig.SetupFlags()
}

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	defer glog.Flush()

	conf := console.NewConfig()
	m, err := conf.LoadMap()
	if err != nil {
		glog.Errorf("register map: %v", err)
		return 2
	}
	table, err := m.Commands()
	if err != nil {
		glog.Errorf("register map %s: %v", m.Name, err)
		return 2
	}

	runner := fx.NewRunner().HandleSignals()

	linkConf := link.NewConfig()
	linkConf.Meta = map[string]interface{}{
		"map":      m.Name,
		"commands": table.Keywords(),
	}

	rigConf := rig.NewConfig()
	if linkConf.ID != "" {
		rigConf.ID = linkConf.ID
	}
	// hardware comes up before the link is served.
	env, envErr := rigConf.NewEnv(m)
	if envErr == nil {
		defer env.Close()
	}

	stream, err := linkConf.Open(runner.Context)
	if err != nil {
		glog.Errorf("open link: %v", err)
		return 1
	}
	if envErr != nil {
		glog.Errorf("hardware: %v", envErr)
		rig.ReportInitFailure(stream)
		stream.Close()
		return 1
	}

	d, err := conf.NewDispatcher(m, env.Engine)
	if err != nil {
		glog.Errorf("dispatcher: %v", err)
		return 1
	}

	err = runner.Go(console.New(stream, d), env).Wait()
	if err != nil && err != context.Canceled {
		glog.Errorf("console stopped: %v", err)
		return 1
	}
	glog.Info("console stopped")
	return 0
}
