package main

import (
	"os"

	"github.com/criteo/social-connect/internal/client/commands"
)

var version = "1.0.0"

func main() {
	commands.Version = version
	os.Exit(commands.Execute())
}
