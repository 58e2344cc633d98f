package main

import (
	"alertlogic-events/cmd/alevents/commands"
	"alertlogic-events/lib/osutil"
)

func main() {
	commands.ExecuteContext(osutil.SignalContext())
}
