package main

import (
	"github.com/robotalks/rigctl/pkg/cli/sh"
	"github.com/robotalks/rigctl/pkg/client"
)

//go-build: CGO_ENABLED=0

func init() {
	client.SetupFlags()
}

func main() {
	sh.Main()
}
