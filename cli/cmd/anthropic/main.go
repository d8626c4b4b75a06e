// Command anthropic is a command-line client for the Anthropic Messages API.
package main

import (
	"os"

	"github.com/petal-labs/anthropic-go/cli/commands"
)

func main() {
	os.Exit(commands.Main())
}
