package main

import (
	"os"

	"github.com/packmerge/packmerge/internal/cli"
	"github.com/packmerge/packmerge/internal/version"
)

var buildVersion = "dev"

func main() {
	version.Set(buildVersion)
	cli.SetVersion(buildVersion)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
