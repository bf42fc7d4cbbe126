// Command finhub-etl runs the batch update jobs that refresh the stage files
// read by finhub-server.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var configPath = flag.String("config", "", "config file (default: FINHUB_CONFIG, then finhub.toml next to the binary)")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	for _, c := range commands {
		commander.Register(c, "jobs")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
