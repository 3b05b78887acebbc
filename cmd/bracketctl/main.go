// Command bracketctl submits capture plans to a bracketd server, follows
// their progress, and does exposure arithmetic offline.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
)

// Version is the version number.  Typically injected via ldflags with git build
var Version = "1"

func main() {
	root := newRootCmd()
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
